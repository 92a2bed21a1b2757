package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/wI2L/jsondiff"
)

// taskChanged reports whether the candidate document structurally
// differs from the previous one. Field order never matters; a task
// created this run is always changed.
func taskChanged(t *Task) (bool, error) {
	if t.PreviousJSON == nil {
		return true, nil
	}
	patch, err := jsondiff.Compare(t.PreviousJSON, t.CandidateJSON)
	if err != nil {
		return false, fmt.Errorf("diff documents: %w", err)
	}
	return len(patch) > 0, nil
}

// commit writes changed candidates as drafts, then publishes them all
// inside one scope. Unchanged tasks are left completely untouched —
// that is what makes repeated runs on the same input no-ops. A failed
// publish rolls the scope back; drafts written before it stay behind
// as recoverable in-progress state.
func (e *Engine) commit(ctx context.Context, tasks map[Key]*Task) (int, error) {
	var changed []*Task
	for _, t := range sortedTasks(tasks) {
		isChanged, err := taskChanged(t)
		if err != nil {
			return 0, stageErr(StageCommit, t.Key.String(), err)
		}
		if !isChanged {
			continue
		}
		if err := e.records.EnsureDraft(ctx, t.PID); err != nil {
			return 0, stageErr(StageCommit, t.Key.String(), err)
		}
		if err := e.records.WriteDraft(ctx, t.PID, t.CandidateJSON); err != nil {
			return 0, stageErr(StageCommit, t.Key.String(), err)
		}
		changed = append(changed, t)
	}

	if len(changed) == 0 {
		e.log.Info("no documents changed, nothing to publish")
		return 0, nil
	}

	scope, err := e.records.BeginPublish(ctx)
	if err != nil {
		return 0, stageErr(StageCommit, "", err)
	}
	for _, t := range changed {
		if err := scope.Publish(ctx, t.PID); err != nil {
			_ = scope.Rollback(ctx)
			return 0, stageErr(StageCommit, t.Key.String(), fmt.Errorf("publish rolled back: %w", err))
		}
	}
	if err := scope.Commit(ctx); err != nil {
		_ = scope.Rollback(ctx)
		return 0, stageErr(StageCommit, "", err)
	}

	e.log.Info("published changed records", "count", len(changed))
	return len(changed), nil
}

// sortedTasks orders tasks by canonical key string so commit order,
// and with it the store's write log, is stable across runs.
func sortedTasks(tasks map[Key]*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
