package playground

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie set by a successful login.
const SessionCookie = "pg_session"

const (
	defaultSessionKey = "playwright-lab playground"
	loginTTL          = 24 * time.Hour
)

// signLogin encodes user id, expiry and nonce, followed by their HMAC. The
// cookie carries everything needed to check it, so a saved storage state
// stays signed in against any server holding the same key.
func (s *Server) signLogin(userID int, expires time.Time) string {
	payload := fmt.Sprintf("%d.%d.%s", userID, expires.Unix(), uuid.New().String())
	return payload + "." + s.mac(payload)
}

func (s *Server) mac(payload string) string {
	h := hmac.New(sha256.New, s.opts.SessionKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// verifyLogin returns the user id and nonce of a valid, unexpired token.
func (s *Server) verifyLogin(token string, now time.Time) (int, string, bool) {
	i := strings.LastIndexByte(token, '.')
	if i < 0 {
		return 0, "", false
	}
	payload, sig := token[:i], token[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(payload))) {
		return 0, "", false
	}

	parts := strings.SplitN(payload, ".", 3)
	if len(parts) != 3 {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || now.Unix() >= exp {
		return 0, "", false
	}
	return id, parts[2], true
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/account", http.StatusSeeOther)
		return
	}
	s.render(w, "login.html", nil)
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	u, ok := s.fixtures.UserByEmail(email)
	if !ok || u.Password != r.PostFormValue("password") {
		s.log.Info("login rejected", "email", email)
		s.renderStatus(w, http.StatusUnauthorized, "login.html", map[string]any{"Error": "Invalid email or password", "Email": email})
		return
	}

	expires := time.Now().Add(loginTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.signLogin(u.ID, expires),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	s.log.Info("login accepted", "user_id", u.ID)
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// logout revokes the nonce on this server and clears the cookie. Other
// servers only see the cleared cookie.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, nonce, ok := s.verifyLogin(c.Value, time.Now()); ok {
			s.revoked.Store(nonce, struct{}{})
		}
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/account/login", http.StatusSeeOther)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/account/login", http.StatusSeeOther)
		return
	}
	s.render(w, "account.html", u)
}

func (s *Server) currentUser(r *http.Request) (User, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return User{}, false
	}
	id, nonce, ok := s.verifyLogin(c.Value, time.Now())
	if !ok {
		return User{}, false
	}
	if _, gone := s.revoked.Load(nonce); gone {
		return User{}, false
	}
	return s.fixtures.User(id)
}
