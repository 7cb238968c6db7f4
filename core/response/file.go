package response

import (
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/quiverhttp/quiver/core/handler"
)

// File creates a response that serves a static file from the filesystem.
// Static serving is an ordinary handler from the core's point of view:
// content type detection, range requests, and conditional headers are
// delegated to net/http. Missing files and directories yield not_found.
func File(path string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		cleanPath := filepath.Clean(path)

		info, err := os.Stat(cleanPath)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotFound
			}
			return ErrIO.WithError(err)
		}
		if info.IsDir() {
			return ErrNotFound
		}

		http.ServeFile(w, r, cleanPath)
		return nil
	}
}

// Download creates a response that forces the browser to download the file.
// If filename is empty, the base name of the path is used.
func Download(path string, filename string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		cleanPath := filepath.Clean(path)

		info, err := os.Stat(cleanPath)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotFound
			}
			return ErrIO.WithError(err)
		}
		if info.IsDir() {
			return ErrNotFound
		}

		if filename == "" {
			filename = filepath.Base(cleanPath)
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

		contentType := mime.TypeByExtension(filepath.Ext(cleanPath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)

		http.ServeFile(w, r, cleanPath)
		return nil
	}
}

// FileFS serves a file from an fs.FS, typically an embedded filesystem.
func FileFS(fsys fs.FS, name string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return ErrNotFound
		}
		if info.IsDir() {
			return ErrNotFound
		}

		http.ServeFileFS(w, r, fsys, name)
		return nil
	}
}
