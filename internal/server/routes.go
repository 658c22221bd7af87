package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Media collection.
	mux.HandleFunc("POST /v1/media", s.handleUploadMedia)
	mux.HandleFunc("GET /v1/media", s.handleListMedia)

	// Single media item.
	mux.HandleFunc("GET /v1/media/{id}", s.handleGetMedia)
	mux.HandleFunc("PATCH /v1/media/{id}", s.handleUpdateMedia)
	mux.HandleFunc("DELETE /v1/media/{id}", s.handleDeleteMedia)
	mux.HandleFunc("GET /v1/media/{id}/related", s.handleRelatedMedia)

	// Playback. GET also matches HEAD.
	mux.HandleFunc("GET /v1/media/{id}/stream", s.handleStreamMedia)

	// Admin.
	mux.HandleFunc("GET /v1/admin/orphans", s.handleOrphans)

	return mux
}
