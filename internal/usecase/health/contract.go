package health

import "context"

// DBPinger checks conversation store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks availability of an external provider (vector store,
// embedding API, chat-completion API).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
