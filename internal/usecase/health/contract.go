package health

import "context"

// Pinger checks connectivity of a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker reports whether a component finished its startup work.
type ReadinessChecker interface {
	Ready() bool
}
