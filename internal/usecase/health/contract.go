package health

import "context"

// Pinger checks cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks one component: the loaded index, the embedding provider or the generator.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
