package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Registry.Resolve for keys that no prior
// run has registered.
var ErrNotFound = errors.New("not found")

// Registry resolves canonical key strings to persistent record ids.
type Registry interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// CreateResult is the outcome of creating a record: its assigned
// persistent id and the document as the store now holds it.
type CreateResult struct {
	ID       string
	Document map[string]any
}

// Records is the persistent record store. Create leaves the new record
// as an unpublished draft and registers any external pids carried in
// the document. EnsureDraft is a no-op when a draft already exists.
type Records interface {
	Create(ctx context.Context, doc map[string]any, resourceType string) (CreateResult, error)
	Read(ctx context.Context, id string) (map[string]any, error)
	EnsureDraft(ctx context.Context, id string) error
	WriteDraft(ctx context.Context, id string, doc map[string]any) error
	BeginPublish(ctx context.Context) (PublishScope, error)
}

// PublishScope groups publish calls into one all-or-nothing boundary.
// Rollback after a failed Publish must leave every record's published
// state as it was before the scope opened; draft contents written
// before the scope are not part of it. Rollback after Commit is a
// no-op, so callers may defer it unconditionally.
type PublishScope interface {
	Publish(ctx context.Context, id string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
