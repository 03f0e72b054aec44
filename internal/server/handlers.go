package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
	"github.com/imprint-ph/imprint-annotator/internal/session"
)

type fetchRequest struct {
	// Username is only honored on unauthenticated requests that ask for a
	// fresh session; it lets a new client open its first batch before a
	// token is bound. It never grants access to an existing session.
	Username string `json:"username"`
	// RequestedCount absent means "resume only". Present but zero asks for
	// the configured default batch size.
	RequestedCount *int `json:"requestedCount"`
}

type progressRequest struct {
	Index int `json:"index"`
}

type finalizeRequest struct {
	TotalFinished int `json:"totalFinished"`
}

type submitRequest struct {
	ImageID             string       `json:"imageId"`
	ImageKey            int64        `json:"imageKey"`
	EditedBoxes         []domain.Box `json:"editedBoxes"`
	NewBoxes            []domain.Box `json:"newBoxes"`
	AccessibilityRating *int         `json:"accessibilityRating"`
	PavementType        string       `json:"pavementType"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	username, err := s.auth.Authenticate(r)
	if err != nil {
		// The body username only covers first-session creation for a
		// contributor with no token bound yet. Resuming an existing batch
		// always requires credentials.
		if req.Username == "" || req.RequestedCount == nil {
			s.writeError(w, err)
			return
		}
		active, aerr := s.manager.HasActive(r.Context(), req.Username)
		if aerr != nil {
			s.writeError(w, aerr)
			return
		}
		if active {
			s.writeError(w, err)
			return
		}
		username = req.Username
	}

	count := 0
	if req.RequestedCount != nil {
		count = *req.RequestedCount
		if count < 0 {
			s.writeError(w, domain.NewValidationError("requestedCount", "must not be negative"))
			return
		}
		if count == 0 {
			count = s.cfg.Batch.DefaultCount
		}
		if count > s.cfg.Batch.MaxCount {
			count = s.cfg.Batch.MaxCount
		}
	}

	batch, err := s.manager.StartOrResume(r.Context(), username, count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	username, err := s.auth.Authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.UpdateProgress(r.Context(), username, req.Index); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	username, err := s.auth.Authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req finalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.Finalize(r.Context(), username, req.TotalFinished); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	username, err := s.auth.Authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.manager.Abandon(r.Context(), username)
	if errors.Is(err, domain.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]bool{"notFound": true})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	username, err := s.auth.Authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.ImageID == "" {
		s.writeError(w, domain.NewValidationError("imageId", "is required"))
		return
	}
	sub := &session.Submission{
		ImageID:             req.ImageID,
		ImageKey:            req.ImageKey,
		EditedBoxes:         req.EditedBoxes,
		NewBoxes:            req.NewBoxes,
		AccessibilityRating: req.AccessibilityRating,
		PavementType:        req.PavementType,
	}
	if err := s.manager.Submit(r.Context(), username, sub); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if file == "" || strings.Contains(file, "/") || strings.Contains(file, "\\") || file != path.Clean(file) {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	f, err := os.Open(path.Join(s.cfg.Server.ImagesDir, file))
	if errors.Is(err, os.ErrNotExist) {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.logger.Errorw("while serving image asset", "file", file, "error", err)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", fmt.Sprintf("invalid json: %s", err))
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("while encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.Is(err, domain.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		s.logger.Errorw("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
