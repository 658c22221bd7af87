package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"streamify/internal/api"
	"streamify/internal/byterange"
	"streamify/internal/models"
	"streamify/internal/playback"
	"streamify/internal/store"
)

var errAdminRequired = errors.New("admin token required")

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		principal, ok := s.principalOrUnauthorized(w, r)
		if !ok {
			return
		}

		// Large uploads outlive the server-wide read timeout.
		_ = http.NewResponseController(w).SetReadDeadline(time.Time{})

		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
		if err := r.ParseMultipartForm(s.opts.MultipartMaxMemory); err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
			return
		}
		defer file.Close()

		media, err := s.media.Upload(r.Context(), UploadInput{
			OwnerID:      principal.Owner,
			Title:        r.FormValue("title"),
			Description:  r.FormValue("description"),
			Filename:     header.Filename,
			DeclaredType: header.Header.Get("Content-Type"),
			Content:      file,
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.MediaResponse{Media: media})
	})
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", store.DefaultListLimit)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	offset, err := queryIntDefault(r, "offset", 0)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}

	query := r.URL.Query()
	items, err := s.media.List(r.Context(), store.MediaFilter{
		OwnerID: strings.ToLower(strings.TrimSpace(query.Get("owner"))),
		Search:  strings.TrimSpace(query.Get("q")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaListResponse{Items: toMediaResponses(items), Limit: limit, Offset: offset})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	media, err := s.media.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaResponse{Media: media})
}

func (s *Server) handleRelatedMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	items, err := s.media.Related(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMediaResponses(items))
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	principal, ok := s.principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req api.MediaUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Title == nil && req.Description == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("no fields to update"), ErrCodeMissingRequired))
		return
	}

	media, err := s.media.Update(r.Context(), id, principal.CanModify, store.MediaUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MediaResponse{Media: media})
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	principal, ok := s.principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := s.media.Delete(r.Context(), id, principal.CanModify); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStreamMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	head := r.Method == http.MethodHead
	resp, media, err := s.media.OpenPlayback(r.Context(), id, r.Header.Get("Range"), head)
	if err != nil {
		if httpStatusFromError(err) == http.StatusRequestedRangeNotSatisfiable && media.ID != "" {
			w.Header().Set("Content-Range", byterange.UnsatisfiedContentRange(media.SizeBytes))
		}
		s.writeServiceError(w, r, err)
		return
	}

	// Playback of long media outlives the server-wide write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	written, err := resp.Serve(w)
	if err == nil {
		return
	}
	fields := []any{"media_id", id, "status", resp.StatusCode, "bytes_written", written, "error", err}
	var gone *playback.ClientGoneError
	if errors.As(err, &gone) {
		s.log().Debug("client disconnected during playback", fields...)
		return
	}
	s.log().Error("playback interrupted", fields...)
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func toMediaResponses(items []models.Media) []api.MediaResponse {
	out := make([]api.MediaResponse, 0, len(items))
	for _, item := range items {
		out = append(out, api.MediaResponse{Media: item})
	}
	return out
}
