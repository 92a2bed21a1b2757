package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/edusync/moodle-sync/internal/moodle"
	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/store"
)

// Engine reconciles one moodle batch against the record store. A run
// is sequential from the caller's perspective and keeps no state
// between invocations; everything per-run lives in locals and is
// discarded whatever the outcome.
type Engine struct {
	registry  store.Registry
	records   store.Records
	transport Transport
	resolver  *Resolver
	log       *logger.Logger
	workers   int
}

func NewEngine(baseLog *logger.Logger, registry store.Registry, records store.Records, transport Transport, workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		registry:  registry,
		records:   records,
		transport: transport,
		resolver:  NewResolver(baseLog, registry, records),
		log:       baseLog.With("component", "IngestEngine"),
		workers:   workers,
	}
}

// RunStats summarizes one reconciliation run.
type RunStats struct {
	Files     int
	Tasks     int
	Published int
}

type linkPair struct {
	whole Key
	part  Key
}

// Run executes the full pipeline: validate, cache file contents,
// resolve tasks, link course/unit pairs, transform, commit. Any error
// aborts the run; the temporary download directory is removed on every
// exit path. providedPaths optionally maps file references to local
// paths used in place of network fetch.
func (e *Engine) Run(ctx context.Context, batch *moodle.Batch, providedPaths map[string]string) (RunStats, error) {
	stats := RunStats{}

	if batch == nil {
		return stats, stageErr(StageValidate, "", fmt.Errorf("nil batch"))
	}
	if err := batch.Validate(); err != nil {
		return stats, stageErr(StageValidate, "", err)
	}

	files := batch.Files()
	stats.Files = len(files)
	e.log.Info("starting reconciliation run", "files", len(files))

	tempDir, err := os.MkdirTemp("", "moodle-sync-*")
	if err != nil {
		return stats, stageErr(StageFetch, "", err)
	}
	defer os.RemoveAll(tempDir)

	refs := make([]string, 0, len(files))
	for i := range files {
		refs = append(refs, files[i].FileURL)
	}
	cache, err := CacheFiles(ctx, e.log, e.transport, tempDir, providedPaths, refs, e.workers)
	if err != nil {
		return stats, err
	}

	// one task per distinct key; the first occurrence of a key wins
	// and supplies the source fragments
	tasks := map[Key]*Task{}
	links := map[linkPair]struct{}{}

	for i := range files {
		file := &files[i]
		entry, ok := cache[file.FileURL]
		if !ok {
			return stats, stageErr(StageResolve, file.FileURL, fmt.Errorf("reference missing from file cache"))
		}

		fileKey := FileKey{Hash: entry.Hash}
		if _, ok := tasks[fileKey]; !ok {
			task, err := e.resolver.FetchOrCreate(ctx, fileKey)
			if err != nil {
				return stats, stageErr(StageResolve, fileKey.String(), err)
			}
			task.File = file
			tasks[fileKey] = task
		}

		for j := range file.Courses {
			course := &file.Courses[j]
			unitKey := NewUnitKey(file, course)
			courseKey := NewCourseKey(course)

			if _, ok := tasks[unitKey]; !ok {
				task, err := e.resolver.FetchOrCreate(ctx, unitKey)
				if err != nil {
					return stats, stageErr(StageResolve, unitKey.String(), err)
				}
				task.File = file
				task.Course = course
				tasks[unitKey] = task
			}

			if _, ok := tasks[courseKey]; !ok {
				task, err := e.resolver.FetchOrCreate(ctx, courseKey)
				if err != nil {
					return stats, stageErr(StageResolve, courseKey.String(), err)
				}
				task.File = file
				task.Course = course
				tasks[courseKey] = task
			}

			links[linkPair{whole: courseKey, part: unitKey}] = struct{}{}
		}
	}
	stats.Tasks = len(tasks)

	// file tasks are deliberately not linked to their units yet; see
	// DESIGN.md on file linkage
	for pair := range links {
		if err := LinkUp(tasks[pair.whole], tasks[pair.part]); err != nil {
			return stats, stageErr(StageLink, pair.whole.String(), err)
		}
	}

	for key, task := range tasks {
		var err error
		switch key.(type) {
		case FileKey:
			err = TransformFile(task)
		case UnitKey:
			err = TransformUnit(task)
		case CourseKey:
			err = TransformCourse(task)
		default:
			// a defect, not input trouble: the key variants are sealed
			err = fmt.Errorf("unhandled key variant %T", key)
		}
		if err != nil {
			return stats, stageErr(StageTransform, key.String(), err)
		}
	}

	published, err := e.commit(ctx, tasks)
	if err != nil {
		return stats, err
	}
	stats.Published = published

	e.log.Info("reconciliation run complete",
		"files", stats.Files,
		"tasks", stats.Tasks,
		"published", stats.Published,
	)
	return stats, nil
}
