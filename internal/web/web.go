// Package web serves the single-page browser client for the pulse HTTP API.
//
// The page is plain HTML and JavaScript embedded into the binary. It talks only to the
// JSON routes registered by the server package:
//
//	GET    /api/me                      auth status, "Connect Spotify" link to /api/login
//	GET    /api/playlists               playlist sidebar
//	GET    /api/playlists/{id}/tracks   catalog table; 409 responses are stale and ignored
//	POST   /api/queue                   add the selected catalog rows
//	PUT    /api/queue/order             drag-and-drop reordering
//	POST   /api/export                  start exporting; GET /api/export is polled for progress
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// Handler serves index.html.
func Handler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, sub, "index.html")
	})
}
