// Package api exposes the HTTP interface for the audit service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
	"github.com/uxlens/uxlens/internal/metrics"
	"github.com/uxlens/uxlens/internal/pipeline"
	"github.com/uxlens/uxlens/internal/quota"
	"github.com/uxlens/uxlens/internal/resolver"
	"github.com/uxlens/uxlens/internal/storage/memory"
	"github.com/uxlens/uxlens/internal/storage/postgres"
)

// maxUploadBytes bounds the multipart form held in memory per request.
const maxUploadBytes = 32 << 20

// Server wires HTTP handlers to the audit pipeline and stores.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	ledger   *quota.Ledger
	reports  audit.ReportStore
	sessions audit.SessionProvider
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	pipe *pipeline.Pipeline,
	ledger *quota.Ledger,
	reports audit.ReportStore,
	sessions audit.SessionProvider,
	timeout time.Duration,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: pipe,
		ledger:   ledger,
		reports:  reports,
		sessions: sessions,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/audits", s.createAudit)
		r.Get("/audits/{audit_id}", s.getAudit)
		r.Get("/usage", s.getUsage)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// auditResponse is the success envelope for one finished audit.
type auditResponse struct {
	Success bool `json:"success"`
	audit.AuditReport
	Limits limitsPayload `json:"limits"`
}

// errorResponse is the failure envelope shared by every handler.
type errorResponse struct {
	Error       string         `json:"error"`
	ErrorCode   string         `json:"error_code"`
	ErrorReason string         `json:"error_reason,omitempty"`
	Limits      *limitsPayload `json:"limits,omitempty"`
}

// limitsPayload reports quota standing for the caller's plan.
type limitsPayload struct {
	Plan       string `json:"plan"`
	AuditsUsed int    `json:"audits_used"`
	Limit      int    `json:"limit"`
	TokenLimit int    `json:"token_limit"`
	PeriodKey  string `json:"period_key"`
}

func limitsFrom(d audit.Decision) limitsPayload {
	return limitsPayload{
		Plan:       string(d.Plan),
		AuditsUsed: d.Used,
		Limit:      d.Limit,
		TokenLimit: d.TokenLimit,
		PeriodKey:  d.PeriodKey,
	}
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	identity := s.sessions.Session(r)

	mode, framework, target, uploads, err := parseAuditForm(r)
	if err != nil {
		s.writeAuditError(w, err, audit.Decision{})
		return
	}

	result, err := s.pipeline.Run(r.Context(), pipeline.Request{
		Identity:  identity,
		Mode:      mode,
		Framework: framework,
		URL:       target,
		Uploads:   uploads,
	})
	if err != nil {
		s.writeAuditError(w, err, result.Decision)
		return
	}

	limits := limitsFrom(result.Decision)
	limits.AuditsUsed++
	writeJSON(w, http.StatusOK, auditResponse{Success: true, AuditReport: result.Report, Limits: limits})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "audit_id")
	stored, err := s.reports.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, memory.ErrReportNotFound) || errors.Is(err, postgres.ErrReportNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: "Report not found", ErrorCode: "NOT_FOUND",
			})
			return
		}
		s.logger.Error("load report", zap.String("audit_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Analysis failed. Try again.", ErrorCode: string(audit.CodeServerError),
		})
		return
	}
	writeJSON(w, http.StatusOK, stored.Report)
}

func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	identity := s.sessions.Session(r)
	decision, err := s.ledger.Admit(r.Context(), identity)
	if err != nil {
		s.logger.Error("load usage", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Analysis failed. Try again.", ErrorCode: string(audit.CodeServerError),
		})
		return
	}
	writeJSON(w, http.StatusOK, limitsFrom(decision))
}

// parseAuditForm accepts multipart or urlencoded forms. Files arrive under
// the repeatable "file" field.
func parseAuditForm(r *http.Request) (audit.Mode, audit.Framework, string, []resolver.Upload, error) {
	contentType := r.Header.Get("Content-Type")
	var uploads []resolver.Upload
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", "", "", nil, audit.NewError(audit.CodeInvalidInput,
				"Invalid input image or URL", http.StatusBadRequest, err)
		}
		for _, header := range r.MultipartForm.File["file"] {
			upload, err := readUpload(header)
			if err != nil {
				return "", "", "", nil, err
			}
			uploads = append(uploads, upload)
		}
	} else if err := r.ParseForm(); err != nil {
		return "", "", "", nil, audit.NewError(audit.CodeInvalidInput,
			"Invalid input image or URL", http.StatusBadRequest, err)
	}

	mode := audit.Mode(strings.TrimSpace(r.FormValue("mode")))
	framework := audit.Framework(strings.TrimSpace(r.FormValue("framework")))
	target := strings.TrimSpace(r.FormValue("url"))
	return mode, framework, target, uploads, nil
}

func readUpload(header *multipart.FileHeader) (resolver.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return resolver.Upload{}, audit.NewError(audit.CodeInvalidInput,
			"Invalid input image or URL", http.StatusBadRequest, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return resolver.Upload{}, audit.NewError(audit.CodeInvalidInput,
			"Invalid input image or URL", http.StatusBadRequest, err)
	}
	return resolver.Upload{
		Name:     header.Filename,
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
	}, nil
}

func (s *Server) writeAuditError(w http.ResponseWriter, err error, decision audit.Decision) {
	ae := audit.AsError(err)
	resp := errorResponse{
		Error:       ae.Message,
		ErrorCode:   string(ae.Code),
		ErrorReason: ae.Reason(),
	}
	if ae.Code == audit.CodePlanLimit {
		limits := limitsFrom(decision)
		resp.Limits = &limits
	}
	if ae.Status >= http.StatusInternalServerError {
		s.logger.Error("audit failed", zap.String("code", string(ae.Code)), zap.Error(ae))
	} else {
		s.logger.Warn("audit rejected", zap.String("code", string(ae.Code)), zap.Error(ae))
	}
	writeJSON(w, ae.Status, resp)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			metrics.ObserveHTTPRequest(r.Method, route, ww.status, duration)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						Error:     "Analysis failed. Try again.",
						ErrorCode: string(audit.CodeServerError),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
