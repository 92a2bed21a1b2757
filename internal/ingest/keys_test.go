package ingest

import (
	"testing"

	"github.com/edusync/moodle-sync/internal/moodle"
)

func TestKeyStability(t *testing.T) {
	file := &moodle.File{Year: "2022", Semester: "WS"}
	course := &moodle.Course{CourseID: "10087"}

	if NewCourseKey(course) != NewCourseKey(&moodle.Course{CourseID: "10087"}) {
		t.Error("equal course fields must yield equal keys")
	}
	if NewUnitKey(file, course) != NewUnitKey(&moodle.File{Year: "2022", Semester: "WS"}, course) {
		t.Error("equal unit fields must yield equal keys")
	}
	if (FileKey{Hash: "00ff"}) != (FileKey{Hash: "00ff"}) {
		t.Error("equal hashes must yield equal keys")
	}

	// any single differing field separates the keys
	if NewUnitKey(file, course) == NewUnitKey(&moodle.File{Year: "2023", Semester: "WS"}, course) {
		t.Error("differing year must yield distinct keys")
	}
	if NewUnitKey(file, course) == NewUnitKey(&moodle.File{Year: "2022", Semester: "SS"}, course) {
		t.Error("differing semester must yield distinct keys")
	}
	if NewCourseKey(course) == NewCourseKey(&moodle.Course{CourseID: "10088"}) {
		t.Error("differing course id must yield distinct keys")
	}
}

func TestKeysUsableAsMapKeys(t *testing.T) {
	tasks := map[Key]*Task{}
	unitKey := UnitKey{CourseID: "1", Year: "2022", Semester: "WS"}

	tasks[CourseKey{CourseID: "1"}] = &Task{}
	tasks[unitKey] = &Task{}
	tasks[FileKey{Hash: "aa"}] = &Task{}

	// a value-equal key reaches the same entry
	tasks[UnitKey{CourseID: "1", Year: "2022", Semester: "WS"}] = &Task{PID: "x"}
	if len(tasks) != 3 {
		t.Fatalf("map has %d entries, want 3", len(tasks))
	}
	if tasks[unitKey].PID != "x" {
		t.Error("value-equal unit key did not hit the same entry")
	}
}

func TestCanonicalStrings(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{CourseKey{CourseID: "10087"}, "CourseKey(courseid=10087)"},
		{UnitKey{CourseID: "10087", Year: "2022", Semester: "WS"}, "UnitKey(courseid=10087, year=2022, semester=WS)"},
		{FileKey{Hash: "d41d8cd98f00b204"}, "FileKey(hash=d41d8cd98f00b204)"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestResourceTypes(t *testing.T) {
	if got := (CourseKey{}).ResourceType(); got != "course" {
		t.Errorf("course resource type = %q", got)
	}
	if got := (UnitKey{}).ResourceType(); got != "unit" {
		t.Errorf("unit resource type = %q", got)
	}
	if got := (FileKey{}).ResourceType(); got != "file" {
		t.Errorf("file resource type = %q", got)
	}
}
