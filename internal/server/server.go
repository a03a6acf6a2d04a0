// =============================================================================
// Contact Formatter - HTTP Service
// =============================================================================
//
// This module serves the converter over HTTP: a contact list is uploaded as a
// multipart form and the formatted file comes back as a download.
//
// ENDPOINTS:
//   POST /convert   multipart form: file (required), reference (optional,
//                   defaults to the configured reference file), format
//                   (optional, csv or xlsx)
//   GET  /healthz   liveness probe
//   GET  /metrics   Prometheus exposition (when a metrics handler is set)
//
// ERROR RESPONSES:
//   {"error": "...", "kind": "...", "request_id": "..."}
//     invalid_input    -> 400
//     parse            -> 422
//     schema_mismatch  -> 422
//     upload too large -> 413
//     anything else    -> 500
//
// =============================================================================

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/converter"
	"github.com/ginjaninja78/contact-formatter/internal/logging"
	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

// Form field names.
const (
	fieldFile      = "file"
	fieldReference = "reference"
	fieldFormat    = "format"
)

// multipartMemory is the part of a form kept in memory before spilling to
// temporary files.
const multipartMemory = 8 << 20

// kindTooLarge is reported when an upload exceeds the size limit.
const kindTooLarge = "too_large"

// =============================================================================
// SERVER STRUCTURE
// =============================================================================

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MaxUploadBytes caps the request body. Zero means no limit.
	MaxUploadBytes int64

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds the graceful shutdown in Run.
	ShutdownTimeout time.Duration

	// Reference is used when an upload carries no reference file.
	Reference converter.Document

	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler

	// Logger receives request logs. May be nil.
	Logger *zap.Logger
}

// Server is the HTTP front end of a Converter.
type Server struct {
	conv   *converter.Converter
	opts   Options
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a Server for conv.
func New(conv *converter.Converter, opts Options) *Server {
	s := &Server{
		conv:   conv,
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /convert", s.handleConvert)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Run listens on Addr and serves until ctx is canceled, then shuts down
// gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx := context.Background()
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(RequestIDHeader, requestID)
	logger := s.logger.With(zap.String("request_id", requestID))

	if limit := s.opts.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			s.writeError(w, logger, requestID, http.StatusRequestEntityTooLarge, kindTooLarge,
				fmt.Errorf("upload exceeds %d bytes", limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	// =========================================================================
	// STEP 1: READ THE UPLOAD
	// =========================================================================

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, logger, requestID, http.StatusRequestEntityTooLarge, kindTooLarge,
				fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, logger, requestID, http.StatusBadRequest, types.KindInvalidInput,
			&types.InvalidInputError{Input: "request", Reason: "expected a multipart form upload"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	input, err := formDocument(r, fieldFile)
	if err != nil {
		s.writeConversionError(w, logger, requestID, err)
		return
	}
	if input == nil {
		s.writeConversionError(w, logger, requestID,
			&types.InvalidInputError{Input: fieldFile, Reason: "no file uploaded"})
		return
	}

	reference, err := formDocument(r, fieldReference)
	if err != nil {
		s.writeConversionError(w, logger, requestID, err)
		return
	}
	if reference == nil {
		reference = &s.opts.Reference
	}

	// =========================================================================
	// STEP 2: CONVERT
	// =========================================================================

	result := s.conv.Convert(r.Context(), converter.Request{
		Input:     *input,
		Reference: *reference,
		Format:    r.FormValue(fieldFormat),
	})
	if !result.Success {
		s.writeConversionError(w, logger, requestID, result.Error)
		return
	}

	// =========================================================================
	// STEP 3: SEND THE DOWNLOAD
	// =========================================================================

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Output)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Output); err != nil {
		logger.Warn("Failed to send converted file", zap.Error(err))
	}
}

// formDocument reads an uploaded file field. A missing field returns nil.
func formDocument(r *http.Request, field string) (*converter.Document, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.InvalidInputError{Input: field, Reason: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return &converter.Document{Name: header.Filename, Data: data}, nil
}

// =============================================================================
// ERROR RESPONSES
// =============================================================================

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id"`
}

// StatusForError maps a conversion error to an HTTP status.
func StatusForError(err error) int {
	switch types.ErrorKind(err) {
	case types.KindInvalidInput:
		return http.StatusBadRequest
	case types.KindParse, types.KindSchemaMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeConversionError(w http.ResponseWriter, logger *zap.Logger, requestID string, err error) {
	s.writeError(w, logger, requestID, StatusForError(err), types.ErrorKind(err), err)
}

func (s *Server) writeError(w http.ResponseWriter, logger *zap.Logger, requestID string, status int, kind string, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Info("Request rejected", zap.Int("status", status), zap.String("kind", kind), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     err.Error(),
		Kind:      kind,
		RequestID: requestID,
	})
}
