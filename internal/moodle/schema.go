package moodle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Batch is one ingestion run's full input, as served by the moodle
// OER metadata endpoint.
type Batch struct {
	MoodleCourses []MoodleCourse `json:"moodlecourses" validate:"dive"`
}

type MoodleCourse struct {
	Files []File `json:"files" validate:"dive"`
}

type File struct {
	Abstract         string           `json:"abstract"`
	Classification   []Classification `json:"classification" validate:"dive"`
	Context          string           `json:"context"`
	Courses          []Course         `json:"courses" validate:"min=1,dive"`
	FileCreationTime string           `json:"filecreationtime"`
	FileSize         string           `json:"filesize"`
	FileURL          string           `json:"fileurl" validate:"required,url"`
	Language         string           `json:"language" validate:"required"`
	License          License          `json:"license"`
	Mimetype         string           `json:"mimetype"`
	Persons          []Person         `json:"persons" validate:"dive"`
	ResourceType     string           `json:"resourcetype"`
	Semester         string           `json:"semester" validate:"required"`
	Tags             []string         `json:"tags"`
	TimeReleased     string           `json:"timereleased" validate:"required,numeric"`
	Title            string           `json:"title"`
	Year             string           `json:"year" validate:"required"`
}

type Course struct {
	CourseID       string `json:"courseid" validate:"required"`
	CourseLanguage string `json:"courselanguage" validate:"required"`
	CourseName     string `json:"coursename" validate:"required"`
	Description    string `json:"description"`
	Identifier     string `json:"identifier"`
	Lecturer       string `json:"lecturer"`
	Objective      string `json:"objective"`
	Organisation   string `json:"organisation"`
	SourceID       string `json:"sourceid"`
	Structure      string `json:"structure"`
}

type License struct {
	FullName  string `json:"fullname"`
	ShortName string `json:"shortname"`
	Source    string `json:"source"`
}

type Person struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Role      string `json:"role"`
}

type Classification struct {
	Type   string                `json:"type"`
	URL    string                `json:"url"`
	Values []ClassificationValue `json:"values" validate:"dive"`
}

type ClassificationValue struct {
	Identifier string `json:"identifier" validate:"required"`
	Name       string `json:"name"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the batch against the expected feed shape. The returned
// error names the first offending field path.
func (b *Batch) Validate() error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		path := strings.TrimPrefix(fe.Namespace(), "Batch.")
		return fmt.Errorf("field %s: failed %q validation", path, fe.Tag())
	}
	return err
}

// Files flattens the batch into its file records, in input order.
func (b *Batch) Files() []File {
	var files []File
	for _, mc := range b.MoodleCourses {
		files = append(files, mc.Files...)
	}
	return files
}
