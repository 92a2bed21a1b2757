package ingest

import (
	"fmt"

	"github.com/edusync/moodle-sync/internal/moodle"
)

// Key is the identity of one reconcilable entity. The three variants
// are comparable value types, so a Key works directly as a map key;
// equal input fields always yield equal keys. String returns the
// canonical form stored in the identifier registry.
type Key interface {
	String() string
	ResourceType() string
	sealed()
}

// CourseKey identifies a course by its moodle course id alone.
type CourseKey struct {
	CourseID string
}

func NewCourseKey(course *moodle.Course) CourseKey {
	return CourseKey{CourseID: course.CourseID}
}

func (k CourseKey) String() string {
	return fmt.Sprintf("CourseKey(courseid=%s)", k.CourseID)
}

func (k CourseKey) ResourceType() string { return "course" }
func (CourseKey) sealed()                {}

// UnitKey identifies one teaching unit: the same course taught in a
// different semester is a different unit.
type UnitKey struct {
	CourseID string
	Year     string
	Semester string
}

func NewUnitKey(file *moodle.File, course *moodle.Course) UnitKey {
	return UnitKey{
		CourseID: course.CourseID,
		Year:     file.Year,
		Semester: file.Semester,
	}
}

func (k UnitKey) String() string {
	return fmt.Sprintf("UnitKey(courseid=%s, year=%s, semester=%s)", k.CourseID, k.Year, k.Semester)
}

func (k UnitKey) ResourceType() string { return "unit" }
func (UnitKey) sealed()                {}

// FileKey identifies a file by content hash. Two URLs serving identical
// bytes are one file; one URL serving different bytes across runs is
// two files. The URL therefore never enters the key.
type FileKey struct {
	Hash string
}

func (k FileKey) String() string {
	return fmt.Sprintf("FileKey(hash=%s)", k.Hash)
}

func (k FileKey) ResourceType() string { return "file" }
func (FileKey) sealed()                {}
