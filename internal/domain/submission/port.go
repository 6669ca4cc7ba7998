package submission

import "context"

// Store persists the client-owned submission collection.
type Store interface {
	// Get returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*Submission, error)
	Save(ctx context.Context, s *Submission) error
	// List returns submissions newest first.
	List(ctx context.Context) ([]*Submission, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
