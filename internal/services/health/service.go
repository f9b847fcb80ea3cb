package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db      Pinger
	storage string
}

// NewService constructs a health service. db may be nil when the app runs on
// in-memory repositories.
func NewService(db Pinger, storage string) *Service {
	return &Service{db: db, storage: storage}
}

// Status reports liveness plus the backing stores in use. ok is false when
// the database does not answer.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	status := map[string]any{
		"ok":      true,
		"storage": s.storage,
	}
	if s.db == nil {
		status["database"] = "memory"
		return status, true
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		status["ok"] = false
		status["database"] = "unreachable"
		return status, false
	}
	status["database"] = "postgres"
	return status, true
}
