// Package convert implements the conversion flow: resolve the request shape,
// decode the payload, pick a converter by extension and run it.
package convert

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/metrics"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/payload"
	"go.uber.org/zap"
)

const detailConversionFailed = "Failed to parse file"

// Service converts request bodies to FileText. It holds no per-request state.
type Service struct {
	extractor *extract.Extractor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService returns a Service. m may be nil to disable metrics.
func NewService(extractor *extract.Extractor, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{extractor: extractor, metrics: m, logger: logger}
}

// ConvertBody parses raw as a JSON request body and converts it.
func (s *Service) ConvertBody(ctx context.Context, raw []byte) (*models.FileText, error) {
	body, err := payload.Parse(raw)
	if err != nil {
		s.observeFailure("", err)
		return nil, err
	}
	return s.Convert(ctx, body)
}

// Convert resolves body, decodes its payload and runs the converter for the
// filename's extension. Errors are always *models.Error.
func (s *Service) Convert(ctx context.Context, body payload.Body) (*models.FileText, error) {
	req, err := payload.Resolve(body)
	if err != nil {
		s.observeFailure("", err)
		return nil, err
	}
	content, err := payload.Decode(req)
	if err != nil {
		s.observeFailure("", err)
		return nil, err
	}
	return s.ConvertBytes(ctx, req.Filename(), content)
}

// ConvertBytes converts already-decoded content named filename.
func (s *Service) ConvertBytes(ctx context.Context, filename string, content []byte) (*models.FileText, error) {
	ext := extract.Extension(filename)
	converter := extract.ConverterFor(ext)
	logger := s.logger.With(
		zap.String("filename", filename),
		zap.String("extension", ext),
		zap.String("converter", converter),
		zap.Int("bytes", len(content)),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.metrics.ObserveInputSize(len(content))

	start := time.Now()
	text, err := s.extractor.ExtractBytes(content, ext)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(converter, elapsed)
	// A request whose deadline passed mid-conversion gets the timeout response,
	// not the conversion result.
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("conversion outlived request", zap.Error(ctxErr), zap.Duration("elapsed", elapsed))
		return nil, ctxErr
	}
	if err != nil {
		convErr := models.NewError(models.ConversionFailed, detailConversionFailed, err)
		logger.Debug("conversion failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		s.observeFailure(ext, convErr)
		return nil, convErr
	}
	logger.Debug("converted", zap.Int("text_len", len(text)), zap.Duration("elapsed", elapsed))
	s.metrics.ObserveConversion(ext, metrics.ResultOK)
	return &models.FileText{Filename: filename, Extension: ext, Text: text}, nil
}

func (s *Service) observeFailure(ext string, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		s.metrics.ObserveConversion(ext, string(e.Kind))
		return
	}
	s.metrics.ObserveConversion(ext, "error")
}
