package ingest

import "fmt"

// Stage names the pipeline stage a fatal error came from.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageFetch     Stage = "fetch"
	StageResolve   Stage = "resolve"
	StageTransform Stage = "transform"
	StageLink      Stage = "link"
	StageCommit    Stage = "commit"
)

// StageError tags an error with its stage and, where one applies, the
// key or file reference that triggered it. The engine recovers nothing:
// every StageError aborts the whole run.
type StageError struct {
	Stage Stage
	Ref   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, ref string, err error) error {
	return &StageError{Stage: stage, Ref: ref, Err: err}
}
