package server

import (
	"net/http"

	"streamify/internal/api"
)

type schemaVersioner interface {
	SchemaVersion() (int, error)
}

type rootedStore interface {
	Root() string
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := api.InfoResponse{
		Version:     s.opts.Version,
		AuthEnabled: s.auth.Enabled(),
		MaxUpload:   s.opts.MaxUploadBytes,
	}
	if versioner, ok := s.store.(schemaVersioner); ok {
		version, err := versioner.SchemaVersion()
		if err != nil {
			s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
			return
		}
		resp.SchemaVersion = version
	}
	if rooted, ok := s.blobs.(rootedStore); ok {
		resp.StorageRoot = rooted.Root()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	if !principal.Admin {
		s.writeErrorReq(w, r, http.StatusForbidden, forbidden(errAdminRequired))
		return
	}

	orphans, err := s.media.Orphans(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]api.OrphanBlob, 0, len(orphans))
	for _, orphan := range orphans {
		resp = append(resp, api.OrphanBlob{StorageKey: orphan.StorageKey, SizeBytes: orphan.SizeBytes})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
