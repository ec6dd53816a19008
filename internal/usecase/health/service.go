package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// NamedChecker pairs a checker with its report key.
type NamedChecker struct {
	Name    string
	Checker Checker
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	checkers []NamedChecker
}

// New creates a Service. Additional checkers are optional.
func New(db DBPinger, checkers ...NamedChecker) *Service {
	return &Service{db: db, checkers: checkers}
}

// Check runs health checks against all components. A failing component
// degrades the report instead of failing it; the service keeps answering
// with whatever providers remain.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	for _, c := range s.checkers {
		if c.Checker == nil {
			continue
		}
		if err := c.Checker.HealthCheck(ctx); err != nil {
			checks[c.Name] = CheckError
		} else {
			checks[c.Name] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
