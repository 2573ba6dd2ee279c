// Package server exposes the resume pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
)

// MaxMarkupBytes caps the request body of markup endpoints.
const MaxMarkupBytes = 5 << 20

// Converter renders markup into a document. [*resumepdf.Pipeline]
// implements it.
type Converter interface {
	Convert(ctx context.Context, markup, title string) (*resumepdf.Document, error)
	Status() resumepdf.Status
	EngineName() string
}

// Server routes HTTP requests to a Converter.
type Server struct {
	conv   Converter
	logger *log.Logger
	router chi.Router
}

// New returns a Server backed by conv. A nil logger discards output.
func New(conv Converter, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{conv: conv, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/export", s.handleExport)
		r.Post("/sanitize", s.handleSanitize)
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "engine", s.conv.EngineName())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Millisecond),
		)
	})
}

type healthResponse struct {
	Status string           `json:"status"`
	Engine string           `json:"engine"`
	Stages resumepdf.Status `json:"stages"`
	Busy   bool             `json:"busy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.conv.Status()
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Engine: s.conv.EngineName(),
		Stages: st,
		Busy:   st.Busy(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set("X-Export-ID", id)

	markup, ok := readMarkup(w, r)
	if !ok {
		return
	}
	title := r.URL.Query().Get("title")

	doc, err := s.conv.Convert(r.Context(), markup, title)
	if err != nil {
		s.logger.Warn("export failed", "id", id, "kind", resumepdf.KindOf(err), "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Info("exported", "id", id, "file", doc.Filename(), "pages", doc.PageCount())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(doc.Len()))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.PageCount()))
	w.WriteHeader(http.StatusOK)
	if _, err := doc.WriteTo(w); err != nil {
		s.logger.Warn("writing response", "id", id, "err", err)
	}
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	markup, ok := readMarkup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, resumepdf.SanitizeMarkup(markup))
}

// readMarkup reads the request body, writing an error response and
// returning false if it is too large or unreadable.
func readMarkup(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxMarkupBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("Markup exceeds %d bytes.", MaxMarkupBytes),
				Kind:  resumepdf.KindUnknown.String(),
			})
			return "", false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not read request body.", Kind: resumepdf.KindUnknown.String()})
		return "", false
	}
	return string(body), true
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch resumepdf.KindOf(err) {
	case resumepdf.KindBusy:
		return http.StatusConflict
	case resumepdf.KindUserInputEmpty:
		return http.StatusUnprocessableEntity
	case resumepdf.KindConfigurationMissing:
		return http.StatusServiceUnavailable
	case resumepdf.KindGenerationFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error: resumepdf.UserMessage(err),
		Kind:  resumepdf.KindOf(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
