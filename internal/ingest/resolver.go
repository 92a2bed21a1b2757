package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/edusync/moodle-sync/internal/lom"
	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/store"
)

// Resolver turns keys into run-local tasks, creating store records for
// keys no prior run has seen.
type Resolver struct {
	registry store.Registry
	records  store.Records
	log      *logger.Logger
}

func NewResolver(baseLog *logger.Logger, registry store.Registry, records store.Records) *Resolver {
	return &Resolver{
		registry: registry,
		records:  records,
		log:      baseLog.With("component", "Resolver"),
	}
}

// FetchOrCreate looks the key up in the identifier registry. A miss
// creates a fresh draft record carrying the key as external identifier,
// so the next run resolves it. A hit reads the record's latest
// representation; the candidate document is a deep copy, so transform
// mutations can never leak into PreviousJSON.
func (r *Resolver) FetchOrCreate(ctx context.Context, key Key) (*Task, error) {
	keyString := key.String()

	pid, err := r.registry.Resolve(ctx, keyString)
	if errors.Is(err, store.ErrNotFound) {
		md := lom.NewRecord(key.ResourceType(), keyString)
		md.AppendIdentifier(keyString, "moodle")

		created, err := r.records.Create(ctx, md.Document(), key.ResourceType())
		if err != nil {
			return nil, fmt.Errorf("create record: %w", err)
		}
		r.log.Debug("created record for new key", "key", keyString, "pid", created.ID)
		return &Task{
			Key:           key,
			PID:           created.ID,
			PreviousJSON:  nil,
			CandidateJSON: created.Document,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve key: %w", err)
	}

	previous, err := r.records.Read(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	candidate, err := lom.DeepCopy(previous)
	if err != nil {
		return nil, err
	}
	return &Task{
		Key:           key,
		PID:           pid,
		PreviousJSON:  previous,
		CandidateJSON: candidate,
	}, nil
}
