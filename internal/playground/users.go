package playground

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// UserPage is the paged envelope of list and search responses.
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// DeletedUser is returned by DELETE; the fixture set itself never changes.
type DeletedUser struct {
	User
	IsDeleted bool      `json:"isDeleted"`
	DeletedOn time.Time `json:"deletedOn"`
}

func paginate(r *http.Request, users []User) UserPage {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 30
	}
	total := len(users)
	if skip < 0 || skip > total {
		skip = total
	}
	end := min(skip+limit, total)
	return UserPage{Users: users[skip:end], Total: total, Skip: skip, Limit: end - skip}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.fixtures.Users))
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.fixtures.SearchUsers(r.URL.Query().Get("q"))))
}

// addUser echoes the posted user with the next free id. Nothing is stored.
func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	var u User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	u.ID = len(s.fixtures.Users) + 1
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// updateUser merges the body over the stored user and echoes the result.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	id := u.ID
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	u.ID = id
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DeletedUser{User: u, IsDeleted: true, DeletedOn: time.Now().UTC()})
}

func (s *Server) userNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"message": fmt.Sprintf("User with id '%s' not found", mux.Vars(r)["id"]),
	})
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	u, ok := s.fixtures.User(id)
	if !ok {
		s.userNotFound(w, r)
	}
	return u, ok
}
