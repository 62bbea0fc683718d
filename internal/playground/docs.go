package playground

import (
	"net/http"

	"github.com/gorilla/mux"
)

const docsTitle = "Fast and reliable end-to-end testing for modern web apps | Playwright"

// DocsTagline is the hero sentence of the docs home page.
const DocsTagline = "Playwright enables reliable end-to-end testing for modern web apps."

func (s *Server) docsHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "docs.html", map[string]any{
		"Title":   docsTitle,
		"Tagline": DocsTagline,
		"Home":    true,
	})
}

func (s *Server) docsPage(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.fixtures.Doc(mux.Vars(r)["slug"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, "docs.html", map[string]any{
		"Title": doc.Title + " | Playwright",
		"Doc":   doc,
	})
}

func (s *Server) docsSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fixtures.SearchDocs(r.URL.Query().Get("q")))
}
