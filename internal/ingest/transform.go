package ingest

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edusync/moodle-sync/internal/lom"
	"github.com/edusync/moodle-sync/internal/moodle"
)

// The three transforms rewrite a task's candidate document from its
// source fragments. They are pure with respect to everything but the
// candidate, and safe to run repeatedly: every write is either a set
// or a deduplicating append.

func TransformCourse(t *Task) error {
	if t.Course == nil || t.File == nil {
		return fmt.Errorf("course task %s missing source fragments", t.Key)
	}
	md := lom.Wrap(t.CandidateJSON)
	course := t.Course

	md.AppendIdentifier(course.CourseID, "moodle-id")
	md.SetTitle(course.CourseName, course.CourseLanguage)
	md.AppendContext(t.File.Context)
	return nil
}

func TransformUnit(t *Task) error {
	if t.Course == nil || t.File == nil {
		return fmt.Errorf("unit task %s missing source fragments", t.Key)
	}
	md := lom.Wrap(t.CandidateJSON)
	course := t.Course
	file := t.File
	lang := course.CourseLanguage

	title := fmt.Sprintf("%s (%s %s)", course.CourseName, file.Semester, file.Year)
	md.SetTitle(title, lang)
	md.AppendLanguage(lang)
	md.AppendDescription(html.UnescapeString(course.Description), lang)

	for _, lecturer := range strings.Split(course.Lecturer, ",") {
		if name := strings.TrimSpace(lecturer); name != "" {
			md.AppendContribute(name, "Author")
		}
	}
	return nil
}

func TransformFile(t *Task) error {
	if t.File == nil {
		return fmt.Errorf("file task %s missing source fragment", t.Key)
	}
	md := lom.Wrap(t.CandidateJSON)
	file := t.File
	lang := file.Language

	if title := file.Title; title != "" {
		md.SetTitle(title, lang)
	}
	md.AppendLanguage(lang)

	if abstract := html.UnescapeString(file.Abstract); abstract != "" {
		md.AppendDescription(abstract, lang)
	}

	for _, tag := range file.Tags {
		if tag != "" {
			md.AppendKeyword(tag, lang)
		}
	}

	for _, person := range file.Persons {
		name := fmt.Sprintf("%s %s", person.FirstName, person.LastName)
		md.AppendContribute(name, person.Role)
	}

	released, err := strconv.ParseInt(file.TimeReleased, 10, 64)
	if err != nil {
		return fmt.Errorf("parse timereleased %q: %w", file.TimeReleased, err)
	}
	md.SetDatetime(time.Unix(released, 0).UTC().Format("2006-01-02"))

	md.AppendFormat(file.Mimetype)
	md.SetSize(file.FileSize)

	if term, ok := lom.LearningResourceType(file.ResourceType); ok {
		md.AppendLearningResourceType(term)
	}

	md.SetRightsURL(file.License.Source)

	for _, id := range classificationIDs(file.Classification) {
		md.AppendClassificationID(id)
		md.AppendClassificationID(id, "en")
	}
	return nil
}

// classificationIDs flattens every classification value and orders the
// identifiers so more specific (longer) codes are appended after less
// specific ones, ties broken lexicographically.
func classificationIDs(classifications []moodle.Classification) []string {
	var ids []string
	for _, classification := range classifications {
		for _, value := range classification.Values {
			ids = append(ids, value.Identifier)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}
