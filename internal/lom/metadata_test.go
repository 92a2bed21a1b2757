package lom

import (
	"reflect"
	"testing"
)

func TestAppendsDeduplicate(t *testing.T) {
	md := Wrap(nil)

	md.AppendLanguage("de")
	md.AppendLanguage("de")
	md.AppendKeyword("analysis", "en")
	md.AppendKeyword("analysis", "en")
	md.AppendIdentifier("CourseKey(courseid=1)", "moodle")
	md.AppendIdentifier("CourseKey(courseid=1)", "moodle")
	md.AppendFormat("application/pdf")
	md.AppendFormat("application/pdf")
	md.AppendClassificationID("1010")
	md.AppendClassificationID("1010")
	md.AppendClassificationID("1010", "en")
	md.AppendClassificationID("1010", "en")
	md.AppendRelation("abcde-fghij", "haspart")
	md.AppendRelation("abcde-fghij", "haspart")

	meta := md.Document()["metadata"].(map[string]any)
	general := meta["general"].(map[string]any)

	if got := len(general["language"].([]any)); got != 1 {
		t.Errorf("language entries = %d, want 1", got)
	}
	if got := len(general["keyword"].([]any)); got != 1 {
		t.Errorf("keyword entries = %d, want 1", got)
	}
	if got := len(general["identifier"].([]any)); got != 1 {
		t.Errorf("identifier entries = %d, want 1", got)
	}
	technical := meta["technical"].(map[string]any)
	if got := len(technical["format"].([]any)); got != 1 {
		t.Errorf("format entries = %d, want 1", got)
	}
	// untagged and en-tagged classification variants are distinct
	if got := len(meta["classification"].([]any)); got != 2 {
		t.Errorf("classification entries = %d, want 2", got)
	}
	if got := len(meta["relation"].([]any)); got != 1 {
		t.Errorf("relation entries = %d, want 1", got)
	}
}

func TestAppendContributeMergesByRole(t *testing.T) {
	md := Wrap(nil)

	md.AppendContribute("Ada Lovelace", "Author")
	md.AppendContribute("Ada Lovelace", "Author")
	md.AppendContribute("Charles Babbage", "Author")
	md.AppendContribute("Ada Lovelace", "Editor")

	meta := md.Document()["metadata"].(map[string]any)
	lifecycle := meta["lifecycle"].(map[string]any)
	contributes := lifecycle["contribute"].([]any)

	if len(contributes) != 2 {
		t.Fatalf("contribute entries = %d, want 2 (one per role)", len(contributes))
	}
	author := contributes[0].(map[string]any)
	if author["role"] != "Author" {
		t.Fatalf("first contribute role = %v, want Author", author["role"])
	}
	entities := author["entity"].([]any)
	if len(entities) != 2 {
		t.Errorf("author entities = %d, want 2", len(entities))
	}
}

func TestSetTitleReplaces(t *testing.T) {
	md := Wrap(nil)
	md.SetTitle("Old Title", "de")
	md.SetTitle("New Title", "de")

	meta := md.Document()["metadata"].(map[string]any)
	general := meta["general"].(map[string]any)
	title := general["title"].(map[string]any)["langstring"].(map[string]any)
	if title["#text"] != "New Title" {
		t.Errorf("title = %v, want New Title", title["#text"])
	}
}

func TestDeepCopyIndependence(t *testing.T) {
	md := NewRecord("course", "CourseKey(courseid=7)")
	md.SetTitle("Original", "en")

	copied, err := DeepCopy(md.Document())
	if err != nil {
		t.Fatal(err)
	}
	Wrap(copied).SetTitle("Mutated", "en")
	Wrap(copied).AppendLanguage("en")

	meta := md.Document()["metadata"].(map[string]any)
	general := meta["general"].(map[string]any)
	title := general["title"].(map[string]any)["langstring"].(map[string]any)
	if title["#text"] != "Original" {
		t.Errorf("mutating the copy changed the source title: %v", title["#text"])
	}
	if _, ok := general["language"]; ok {
		t.Error("mutating the copy added a language to the source")
	}
}

func TestDeepCopySurvivesJSONRoundTrip(t *testing.T) {
	md := NewRecord("unit", "UnitKey(courseid=1, year=2024, semester=WS)")
	md.AppendLanguage("de")

	copied, err := DeepCopy(md.Document())
	if err != nil {
		t.Fatal(err)
	}
	// appending an already-present value into the round-tripped copy
	// must still deduplicate
	Wrap(copied).AppendLanguage("de")

	meta := copied["metadata"].(map[string]any)
	general := meta["general"].(map[string]any)
	if got := len(general["language"].([]any)); got != 1 {
		t.Errorf("language entries after round trip = %d, want 1", got)
	}
	if reflect.DeepEqual(copied, nil) {
		t.Fatal("unexpected nil copy")
	}
}

func TestNewRecordCarriesPIDBlock(t *testing.T) {
	md := NewRecord("file", "FileKey(hash=00ff)")
	pids := md.Document()["pids"].(map[string]any)
	moodlePID := pids["moodle"].(map[string]any)
	if moodlePID["identifier"] != "FileKey(hash=00ff)" {
		t.Errorf("pid identifier = %v", moodlePID["identifier"])
	}
	if moodlePID["provider"] != "moodle" {
		t.Errorf("pid provider = %v", moodlePID["provider"])
	}
}
