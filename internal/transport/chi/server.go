// Package chi serves the explain engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/batch"
	"github.com/kailas-cloud/vexplain/internal/domain/explanation"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/index"
	logpkg "github.com/kailas-cloud/vexplain/internal/logger"
	healthuc "github.com/kailas-cloud/vexplain/internal/usecase/health"
	"github.com/kailas-cloud/vexplain/internal/usecase/pipeline"
	"github.com/kailas-cloud/vexplain/internal/usecase/retrieval"
)

// DefaultMaxVariants bounds one explain request.
const DefaultMaxVariants = 100

// ErrorCode is a machine-readable error class in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeProviderError    ErrorCode = "embedding_provider_error"
	CodeModelMismatch    ErrorCode = "model_mismatch"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Explainer is the loaded explain engine.
type Explainer interface {
	Explain(ctx context.Context, vs []variant.Variant) (pipeline.Report, error)
	Descriptor() index.Descriptor
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements the HTTP API.
type Server struct {
	engine        Explainer
	health        HealthChecker
	maxVariants   int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxVariants <= 0 uses DefaultMaxVariants.
func NewServer(engine Explainer, health HealthChecker, maxVariants int, logger *zap.Logger) *Server {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	s := &Server{engine: engine, health: health, maxVariants: maxVariants, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidK, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrModelMismatch, http.StatusInternalServerError, CodeModelMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// ExplainRequest is the body of POST /v1/explain. Variant keys accept
// both VEP column names and snake_case field names.
type ExplainRequest struct {
	Variants []map[string]string `json:"variants"`
}

// ItemStatus reports per-variant processing outcome.
type ItemStatus struct {
	VariantID string           `json:"variant_id"`
	Status    batch.ItemStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
}

// ExplainResponse is the body of a successful POST /v1/explain.
type ExplainResponse struct {
	Explanations []explanation.Explanation `json:"explanations"`
	Items        []ItemStatus              `json:"items"`
	Summary      retrieval.Summary         `json:"summary"`
}

// Explain handles POST /v1/explain.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Variants) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "at least one variant is required")
		return
	}
	if len(req.Variants) > s.maxVariants {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("too many variants: %d (max %d)", len(req.Variants), s.maxVariants))
		return
	}

	vs := make([]variant.Variant, len(req.Variants))
	for i, raw := range req.Variants {
		vs[i] = variant.FromMap(raw)
	}

	ctx := logpkg.WithFields(r.Context(), zap.Int("variants", len(vs)))
	rep, err := s.engine.Explain(ctx, vs)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	items := make([]ItemStatus, len(rep.Items))
	for i, it := range rep.Items {
		items[i] = ItemStatus{VariantID: it.ID(), Status: it.Status()}
		if it.Err() != nil {
			items[i].Error = domain.ErrorClass(it.Err())
		}
	}
	writeJSON(w, http.StatusOK, ExplainResponse{
		Explanations: rep.Explanations,
		Items:        items,
		Summary:      rep.Summary,
	})
}

// IndexInfo handles GET /v1/index.
func (s *Server) IndexInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Descriptor())
}

// HealthCheck handles GET /v1/health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The message is the error class, never the wrapped internals.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, domain.ErrorClass(err)+": "+sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logpkg.FromContext(ctx, s.logger)
	logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
