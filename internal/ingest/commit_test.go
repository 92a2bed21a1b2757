package ingest

import "testing"

func TestTaskChanged(t *testing.T) {
	doc := func() map[string]any {
		return map[string]any{
			"metadata": map[string]any{
				"general": map[string]any{"title": map[string]any{"langstring": map[string]any{"#text": "Lecture 1"}}},
			},
		}
	}

	fresh := &Task{PreviousJSON: nil, CandidateJSON: doc()}
	if changed, err := taskChanged(fresh); err != nil || !changed {
		t.Errorf("fresh task: changed = %v, err = %v, want true, nil", changed, err)
	}

	same := &Task{PreviousJSON: doc(), CandidateJSON: doc()}
	if changed, err := taskChanged(same); err != nil || changed {
		t.Errorf("equal documents: changed = %v, err = %v, want false, nil", changed, err)
	}

	candidate := doc()
	candidate["metadata"].(map[string]any)["rights"] = map[string]any{"url": "https://example.org"}
	differs := &Task{PreviousJSON: doc(), CandidateJSON: candidate}
	if changed, err := taskChanged(differs); err != nil || !changed {
		t.Errorf("differing documents: changed = %v, err = %v, want true, nil", changed, err)
	}
}
