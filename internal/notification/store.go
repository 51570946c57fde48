package notification

import (
	"context"
	"time"
)

// ListQuery selects live notifications (expires_at > Now) in feed order,
// starting strictly after After.
type ListQuery struct {
	Now   time.Time
	Limit int
	After *Cursor
}

// Store is the document store behind the service. Implementations return
// raw documents; relevance filtering happens in the service.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, q ListQuery) ([]*Notification, error)
	// Watch calls onChange with the full result set of q each time it
	// changes, until ctx is done. It returns nil on cancellation.
	Watch(ctx context.Context, q ListQuery, onChange func([]*Notification)) error
	AddReader(ctx context.Context, id, uid string) error
	AddReaders(ctx context.Context, ids []string, uid string) error
	RemoveReader(ctx context.Context, id, uid string) error
}
