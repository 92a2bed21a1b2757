package ingest

import "github.com/edusync/moodle-sync/internal/moodle"

// Task is the working record for one entity during one run. It is
// created on the first encounter of its Key, reused for every later
// encounter, mutated by the transform/link stages, and consumed by the
// commit pipeline. Nothing about it outlives the run.
type Task struct {
	Key Key
	PID string

	// PreviousJSON is the document the store held before this run, nil
	// for entities created during it. CandidateJSON starts as an
	// independent copy and accumulates this run's changes; the commit
	// pipeline diffs the two.
	PreviousJSON  map[string]any
	CandidateJSON map[string]any

	// Source fragments from the first encounter, as the transforms
	// need them. File is set on every task; Course only on unit and
	// course tasks.
	File   *moodle.File
	Course *moodle.Course
}
