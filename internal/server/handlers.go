package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/models"
	"go.uber.org/zap"
)

const (
	detailBodyTooLarge     = "Request body too large"
	detailInternal         = "Internal server error"
	detailNotFound         = "Not Found"
	detailMethodNotAllowed = "Method Not Allowed"
)

func (s *Server) handleFileToText(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes.Load()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Debug("request body too large", zap.Int64("limit", tooLarge.Limit))
			s.respondError(w, http.StatusRequestEntityTooLarge, detailBodyTooLarge)
			return
		}
		logger.Debug("read request body failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ConvertBody(r.Context(), raw)
	if err != nil {
		s.respondConversionError(w, logger, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// respondConversionError maps every *models.Error kind to 400. Context errors are
// left to the timeout middleware, which writes 504 on deadline.
func (s *Server) respondConversionError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var convErr *models.Error
	switch {
	case errors.As(err, &convErr):
		logger.Info("conversion rejected", zap.String("kind", string(convErr.Kind)), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, convErr.Message())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn("conversion aborted", zap.Error(err))
	default:
		logger.Error("conversion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, detailInternal)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.FormatsResponse{
		Formats:  extract.Formats(),
		Fallback: extract.ConverterRaw,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, detailNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, detailMethodNotAllowed)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, models.ErrorResponse{Detail: detail})
}
