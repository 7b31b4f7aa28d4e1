package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web/*
var content embed.FS

// Handler returns an http.Handler serving the UI from dir, or the embedded
// placeholder when dir is empty or missing. Panics if the embedded assets
// cannot be loaded (build error).
func Handler(dir string) http.Handler {
	var fileSystem http.FileSystem

	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			fileSystem = http.Dir(dir)
		}
	}

	if fileSystem == nil {
		webFS, err := fs.Sub(content, "web")
		if err != nil {
			panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
		}
		fileSystem = http.FS(webFS)
	}

	fileServer := http.FileServer(fileSystem)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean("/" + r.URL.Path)
		if upath == "/" || exists(fileSystem, upath) {
			fileServer.ServeHTTP(w, r)
			return
		}
		if isAsset(upath) {
			notFound(w)
			return
		}

		// Client-side route: serve index.html with 200
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// notFound answers a missing asset itself; http.FileServer strips
// Cache-Control from its error responses.
func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintln(w, "404 page not found")
}

func exists(fsys http.FileSystem, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// isAsset reports whether a path names a file rather than a UI route.
func isAsset(p string) bool {
	base := path.Base(p)
	return strings.Contains(base, ".") && !strings.HasPrefix(base, ".")
}
