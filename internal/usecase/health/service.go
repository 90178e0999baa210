package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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
	ComponentSearchEngine = "search_engine"
	ComponentSearchIndex  = "search_index"
	ComponentPostgres     = "postgres"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine   Pinger
	index    ReadinessChecker
	postgres Pinger
}

// New creates a Service. index and postgres can be nil.
func New(engine Pinger, index ReadinessChecker, postgres Pinger) *Service {
	return &Service{engine: engine, index: index, postgres: postgres}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentSearchEngine] = result(s.engine.Ping(ctx) == nil)
	if s.index != nil {
		checks[ComponentSearchIndex] = result(s.index.Ready())
	}
	if s.postgres != nil {
		checks[ComponentPostgres] = result(s.postgres.Ping(ctx) == nil)
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
