package ports

import "context"

// HealthChecker is one dependency checked by GET /health.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// DependencyCheck adapts a check function to HealthChecker.
type DependencyCheck struct {
	Dependency string
	Check      func(ctx context.Context) error
}

func (p DependencyCheck) Ping(ctx context.Context) error { return p.Check(ctx) }
func (p DependencyCheck) Name() string                   { return p.Dependency }
