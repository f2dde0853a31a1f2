// Package server exposes preview and import over HTTP for uploads coming
// from the back office.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BeAltea/altea-pay/pkg/config"
	"github.com/BeAltea/altea-pay/pkg/importer"
	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/service"
	"github.com/BeAltea/altea-pay/pkg/source"
)

const maxUpload = 32 << 20

// Server handles HTTP requests for debt imports. Imports run one at a time.
type Server struct {
	config    *config.Config
	logger    *log.Logger
	router    *chi.Mux
	processor *service.Processor
	company   models.Company

	importMu sync.Mutex
}

// New creates a server. company is used when an upload names none.
func New(cfg *config.Config, processor *service.Processor, company models.Company, logger *log.Logger) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		router:    chi.NewRouter(),
		processor: processor,
		company:   company,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.withLogging)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/preview", s.handlePreview)
		r.Post("/import", s.handleImport)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": s.config.Store.Driver}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	src, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	entries, summary, err := s.processor.Preview(r.Context(), src)
	if err != nil {
		s.respondRunError(w, r, err)
		return
	}
	s.logger.Info("preview complete", "file", filename, "rows", summary.RowsProcessed, "skipped", summary.RowsSkipped)

	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"file":    filename,
		"entries": entries,
		"summary": summary,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	src, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	company := s.company
	if name := strings.TrimSpace(r.FormValue("company_name")); name != "" {
		company = models.Company{
			Name:  name,
			TaxID: strings.TrimSpace(r.FormValue("company_cnpj")),
			Email: strings.TrimSpace(r.FormValue("company_email")),
		}
	}
	if company.Name == "" && company.TaxID == "" {
		s.respondError(w, r, http.StatusBadRequest, "company_name required", nil)
		return
	}
	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))

	s.importMu.Lock()
	defer s.importMu.Unlock()

	summary, err := s.processor.Import(r.Context(), company, src, dryRun)
	if err != nil {
		s.respondRunError(w, r, err)
		return
	}
	s.logger.Info("import complete", "file", filename, "debts_created", summary.DebtsCreated, "errors", summary.ErrorCount, "dry_run", dryRun)

	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"file":    filename,
		"summary": summary,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// readUpload extracts the multipart "file" field as a source.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (source.Source, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "file required", err)
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return nil, "", false
	}

	src, err := source.FromBytes(header.Filename, data, r.FormValue("encoding"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return nil, "", false
	}
	return src, header.Filename, true
}

// respondRunError maps pipeline failures to status codes.
func (s *Server) respondRunError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cerr *config.ConfigurationError
		rerr *source.ReadError
	)
	switch {
	case errors.As(err, &cerr):
		s.respondError(w, r, http.StatusInternalServerError, "server is not configured for imports", err)
	case errors.As(err, &rerr):
		s.respondError(w, r, http.StatusUnprocessableEntity, rerr.Error(), err)
	case errors.Is(err, importer.ErrCompanyNotFound):
		s.respondError(w, r, http.StatusNotFound, "company not found", err)
	default:
		s.respondError(w, r, http.StatusBadGateway, "import failed", err)
	}
}

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging logs every request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
