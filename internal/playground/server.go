// Package playground serves a local practice site with the pages the browser
// examples drive: UI challenge pages, dialogs, windows, downloads, a small
// documentation site, a cookie-backed login and a JSON users API.
package playground

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/playwright-lab/internal/obs"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Options tunes the artificial delays of the challenge pages.
type Options struct {
	// LoadDelay is how long /loaddelay holds the response.
	LoadDelay time.Duration
	// AjaxDelay is how long /ajaxdata and /oscars/data take to answer.
	AjaxDelay time.Duration
	// ProgressStep is the interval between progress bar increments.
	ProgressStep time.Duration
	// SessionKey signs login cookies. Servers sharing a key accept each
	// other's logins; empty uses a built-in key.
	SessionKey []byte
}

// DefaultOptions keeps every page usable under a 5s action timeout.
func DefaultOptions() Options {
	return Options{
		LoadDelay:    time.Second,
		AjaxDelay:    1500 * time.Millisecond,
		ProgressStep: 50 * time.Millisecond,
	}
}

// Server is the practice site.
type Server struct {
	router   *mux.Router
	tmpl     *template.Template
	opts     Options
	fixtures *Fixtures
	revoked  sync.Map // login nonce -> struct{}
	log      *slog.Logger
}

// New parses templates and fixtures and wires routes.
func New(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	fixtures, err := LoadFixtures()
	if err != nil {
		return nil, err
	}

	if len(opts.SessionKey) == 0 {
		opts.SessionKey = []byte(defaultSessionKey)
	}

	s := &Server{
		tmpl:     tmpl,
		opts:     opts,
		fixtures: fixtures,
		log:      obs.Pkg("playground"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Fixtures exposes the seeded data so tests can assert against it.
func (s *Server) Fixtures() *Fixtures {
	return s.fixtures
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.page("index.html")).Methods("GET")
	r.HandleFunc("/components", s.page("components.html")).Methods("GET")
	r.HandleFunc("/geolocation", s.page("geolocation.html")).Methods("GET")
	r.HandleFunc("/alerts", s.page("alerts.html")).Methods("GET")
	r.HandleFunc("/browser-windows", s.page("windows.html")).Methods("GET")
	r.HandleFunc("/sample", s.page("sample.html")).Methods("GET")
	r.HandleFunc("/download", s.page("download.html")).Methods("GET")
	r.HandleFunc("/download/{name}", s.downloadFile).Methods("GET")
	r.HandleFunc("/oscars", s.oscars).Methods("GET")
	r.HandleFunc("/oscars/data", s.oscarsData).Methods("GET")

	// UI challenge pages
	r.HandleFunc("/challenges", s.page("challenges.html")).Methods("GET")
	r.HandleFunc("/sampleapp", s.page("sampleapp.html")).Methods("GET")
	r.HandleFunc("/progressbar", s.progressBar).Methods("GET")
	r.HandleFunc("/dynamictable", s.dynamicTable).Methods("GET")
	r.HandleFunc("/ajax", s.page("ajax.html")).Methods("GET")
	r.HandleFunc("/ajaxdata", s.ajaxData).Methods("GET")
	r.HandleFunc("/loaddelay", s.loadDelay).Methods("GET")
	r.HandleFunc("/click", s.page("click.html")).Methods("GET")
	r.HandleFunc("/textinput", s.page("textinput.html")).Methods("GET")
	r.HandleFunc("/scrollbars", s.page("scrollbars.html")).Methods("GET")
	r.HandleFunc("/visibility", s.page("visibility.html")).Methods("GET")
	r.HandleFunc("/mouseover", s.page("mouseover.html")).Methods("GET")
	r.HandleFunc("/nbsp", s.page("nbsp.html")).Methods("GET")
	r.HandleFunc("/overlapped", s.page("overlapped.html")).Methods("GET")
	r.HandleFunc("/dynamicid", s.dynamicID).Methods("GET")
	r.HandleFunc("/classattr", s.page("classattr.html")).Methods("GET")
	r.HandleFunc("/hiddenlayers", s.page("hiddenlayers.html")).Methods("GET")

	// Documentation site
	r.HandleFunc("/docs", s.docsHome).Methods("GET")
	r.HandleFunc("/docs/search", s.docsSearch).Methods("GET")
	r.HandleFunc("/docs/{slug}", s.docsPage).Methods("GET")

	// Cookie login
	r.HandleFunc("/account/login", s.loginForm).Methods("GET")
	r.HandleFunc("/account/login", s.loginSubmit).Methods("POST")
	r.HandleFunc("/account/logout", s.logout).Methods("POST")
	r.HandleFunc("/account", s.account).Methods("GET")

	// Users API
	api := r.PathPrefix("/api/users").Subrouter()
	api.HandleFunc("", s.listUsers).Methods("GET")
	api.HandleFunc("/search", s.searchUsers).Methods("GET")
	api.HandleFunc("/add", s.addUser).Methods("POST")
	api.HandleFunc("/{id:[0-9]+}", s.getUser).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}", s.updateUser).Methods("PUT", "PATCH")
	api.HandleFunc("/{id:[0-9]+}", s.deleteUser).Methods("DELETE")
	api.HandleFunc("/{id}", s.userNotFound)

	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(assets)))

	return r
}

// page renders a template that needs no data.
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, name, nil)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sleep waits for d or until the client goes away.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}
