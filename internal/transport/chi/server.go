package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
	logpkg "github.com/kailas-cloud/quizdex/internal/logger"
	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
)

const maxBodyBytes = 1 << 20

// Selector runs the composed retrieval-then-generation selection.
type Selector interface {
	Select(ctx context.Context, req selectionuc.Request) (selectionuc.Result, error)
}

// ExposureRecorder stores which questions a user has been shown.
type ExposureRecorder interface {
	Record(ctx context.Context, userID string, questionIDs []string, at time.Time) error
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports generation token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period string) (domusage.Report, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the caller-facing HTTP API.
type Server struct {
	selections    Selector
	exposures     ExposureRecorder
	health        HealthChecker
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	selections Selector,
	exposures ExposureRecorder,
	health HealthChecker,
	usage UsageReporter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		selections: selections,
		exposures:  exposures,
		health:     health,
		usage:      usage,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		insufficientMatchesHandler,
		// before the generation and validation sentinels that wrap it
		sentinelHandler(domain.ErrGenerationQuotaExceeded,
			http.StatusTooManyRequests, ErrorCodeGenerationQuota),
		sentinelHandler(domain.ErrTopicNotFound, http.StatusNotFound, ErrorCodeTopicNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrValidationUnavailable,
			http.StatusServiceUnavailable, ErrorCodeValidationUnavailable),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, ErrorCodeGenerationFailed),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, ErrorCodeProviderError),
	}
	return s
}

// CreateSelection handles POST /api/v1/selections.
func (s *Server) CreateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.selections.Select(ctx, selectionuc.Request{
		Topics:  req.Topics,
		Count:   req.Count,
		Exclude: req.Exclude,
		UserID:  req.UserID,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SelectionToResponse(res))
}

// RecordExposure handles POST /api/v1/exposures.
func (s *Server) RecordExposure(w http.ResponseWriter, r *http.Request) {
	var req ExposureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var at time.Time
	if req.SeenAt != nil {
		at = req.SeenAt.UTC()
	}

	if err := s.exposures.Record(r.Context(), req.UserID, req.QuestionIDs, at); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUsage handles GET /api/v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.usage.GetReport(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsageToResponse(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.Tokens(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrGenerationQuotaExceeded,
		domain.ErrTopicNotFound,
		domain.ErrInvalidRequest,
		domain.ErrValidationUnavailable,
		domain.ErrGenerationFailed,
		domain.ErrProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// insufficientMatchesHandler reports a selection that could not be filled, with counts.
func insufficientMatchesHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInsufficientMatches) {
		return false
	}
	var ime *domain.InsufficientMatchesError
	if errors.As(err, &ime) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":      ErrorCodeInsufficientContent,
			"message":   insufficientContentMessage,
			"found":     ime.Found,
			"requested": ime.Requested,
		})
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, ErrorCodeInsufficientContent, insufficientContentMessage)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
