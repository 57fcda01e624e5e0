package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed: cache or generator.
	Degraded Status = "degraded"
	// Unhealthy indicates the index or the embedder is unusable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentEmbedding = "embedding"
	ComponentCache     = "cache"
	ComponentGenerator = "generator"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Deps are the checked components. Nil members are skipped.
type Deps struct {
	Index     Checker
	Embedding Checker
	Cache     Pinger
	Generator Checker
}

// Service coordinates health checks.
type Service struct {
	deps Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{deps: deps}
}

// Check runs health checks against all components.
// Generation is best-effort: a failing generator only degrades the report.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	run := func(name string, fn func(context.Context) error, required bool) {
		if err := fn(ctx); err != nil {
			checks[name] = CheckError
			if required {
				status = Unhealthy
			} else if status == Healthy {
				status = Degraded
			}
			return
		}
		checks[name] = CheckOK
	}

	if s.deps.Index != nil {
		run(ComponentIndex, s.deps.Index.HealthCheck, true)
	}
	if s.deps.Embedding != nil {
		run(ComponentEmbedding, s.deps.Embedding.HealthCheck, true)
	}
	if s.deps.Cache != nil {
		run(ComponentCache, s.deps.Cache.Ping, false)
	}
	if s.deps.Generator != nil {
		run(ComponentGenerator, s.deps.Generator.HealthCheck, false)
	}

	return Report{Status: status, Checks: checks}
}
