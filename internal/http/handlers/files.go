package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// ServeFile streams a stored image. Any path that does not resolve to a file
// inside the storage roots is a 404.
func (a *App) ServeFile(w http.ResponseWriter, r *http.Request) {
	path, err := a.Files.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
