package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web
var embedded embed.FS

// rendererFS returns the renderer assets: dir when it exists, otherwise the
// copy built into the binary.
func rendererFS(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	sub, _ := fs.Sub(embedded, "web")
	return sub
}

// handleSPA serves static files from fsys, falling back to index.html
// for any path that doesn't match a real file.
func handleSPA(fsys fs.FS) http.HandlerFunc {
	fileServer := http.FileServerFS(fsys)

	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" {
			if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		http.ServeFileFS(w, r, fsys, "index.html")
	}
}
