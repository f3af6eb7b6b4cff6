package ports

import (
	"context"

	"github.com/librarium/library-system/internal/core/domain"
)

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
	ListByActor(ctx context.Context, actor string, limit int64) ([]*domain.AuditEvent, error)
}

// AuditTrail is the asynchronous front of the audit pipeline. Enqueue never
// blocks the request path; a dropped or failed event is logged, not surfaced.
type AuditTrail interface {
	Enqueue(event domain.AuditEvent)
}
