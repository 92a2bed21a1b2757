package ingest

import (
	"fmt"

	"github.com/edusync/moodle-sync/internal/lom"
)

// LinkUp cross-references a whole/part task pair: "haspart" on the
// whole, "ispartof" on the part. The underlying appends deduplicate,
// so linking the same pair again, or linking into a document that
// already carries the relation, changes nothing.
func LinkUp(whole, part *Task) error {
	if whole == nil || part == nil {
		return fmt.Errorf("link requires both tasks")
	}
	lom.Wrap(whole.CandidateJSON).AppendRelation(part.PID, "haspart")
	lom.Wrap(part.CandidateJSON).AppendRelation(whole.PID, "ispartof")
	return nil
}
