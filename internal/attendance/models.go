package attendance

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists for this student, course, semester and week")
	ErrInvalid   = errors.New("invalid input")
)

// Status is the single-character attendance status.
type Status string

const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
	StatusLate    Status = "L"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Label returns the display name for the status.
func (s Status) Label() string {
	switch s {
	case StatusPresent:
		return "Present"
	case StatusAbsent:
		return "Absent"
	case StatusLate:
		return "Late"
	}
	return string(s)
}

// Record is one attendance mark. At most one record exists per
// (student, course, semester, week) tuple.
type Record struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student"`
	CourseID    string     `json:"course"`
	Semester    int        `json:"semester"`
	Week        int        `json:"week"`
	Date        *time.Time `json:"date,omitempty"`
	Status      Status     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StudentRef  string     `json:"student_id,omitempty"`
	StudentName string     `json:"student_name,omitempty"`
	CourseCode  string     `json:"course_code,omitempty"`
}

// StatusLabel is a template/serializer convenience.
func (r Record) StatusLabel() string { return r.Status.Label() }

// Filter narrows record listings. Zero values mean "any". Identifier and
// code filters are exact matches.
type Filter struct {
	StudentPK         string
	CoursePK          string
	StudentIdentifier string
	CourseCode        string
	Semester          int
	Week              int
	Status            Status
}

// RecordInput carries form/API fields for creating or editing a record.
type RecordInput struct {
	StudentID string `form:"student" json:"student" binding:"required"`
	CourseID  string `form:"course" json:"course" binding:"required"`
	Semester  int    `form:"semester" json:"semester" binding:"required"`
	Week      int    `form:"week" json:"week" binding:"required"`
	Date      string `form:"date" json:"date"`
	Status    Status `form:"status" json:"status" binding:"required"`
	Notes     string `form:"notes" json:"notes"`
}

// MarkEntry is one student's submitted status in the bulk marking form.
// Students with no submitted status are left untouched.
type MarkEntry struct {
	StudentID string `json:"student"`
	Status    Status `json:"status"`
	Notes     string `json:"notes"`
}
