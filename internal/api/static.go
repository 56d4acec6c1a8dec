package api

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// pages maps the page routes of the web ui to their html files.
var pages = map[string]string{
	"/":             "index.html",
	"/doctor":       "doctor.html",
	"/doctor.html":  "doctor.html",
	"/patient":      "patient.html",
	"/patient.html": "patient.html",
	"/chatbot":      "chatbot.html",
	"/chatbot.html": "chatbot.html",
}

// AddStaticRoutes serves the web ui from dir. Any path without a page route
// is looked up as a file in dir.
func AddStaticRoutes(r chi.Router, dir string) {
	for route, file := range pages {
		path := filepath.Join(dir, file)
		r.Get(route, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, path)
		})
	}
	r.Handle("/*", http.FileServer(http.Dir(dir)))
}
