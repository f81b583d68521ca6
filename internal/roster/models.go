package roster

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInvalid   = errors.New("invalid input")
)

// Student is an enrolled student with passport-data credentials.
type Student struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	PassportHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	Courses      []Course  `json:"courses,omitempty"`
}

// FullName returns "First Last".
func (s Student) FullName() string { return s.FirstName + " " + s.LastName }

// Tutor is a course instructor with passport-data credentials.
type Tutor struct {
	ID           string    `json:"id"`
	TutorID      string    `json:"tutor_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	PassportHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	Courses      []Course  `json:"courses,omitempty"`
}

// FullName returns "First Last".
func (t Tutor) FullName() string { return t.FirstName + " " + t.LastName }

// Course is identified by a short unique code.
type Course struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// StudentInput carries form/API fields for creating or editing a student.
// Passport data arrives in plaintext transiently and is hashed before
// persistence; on edit an empty passport keeps the stored hash.
type StudentInput struct {
	StudentID       string   `form:"student_id" json:"student_id" binding:"required"`
	FirstName       string   `form:"first_name" json:"first_name" binding:"required"`
	LastName        string   `form:"last_name" json:"last_name" binding:"required"`
	Email           string   `form:"email" json:"email" binding:"omitempty,email"`
	Passport        string   `form:"passport" json:"passport"`
	PassportConfirm string   `form:"passport_confirm" json:"passport_confirm"`
	CourseIDs       []string `form:"courses" json:"courses"`
}

// TutorInput mirrors StudentInput for tutors.
type TutorInput struct {
	TutorID         string   `form:"tutor_id" json:"tutor_id" binding:"required"`
	FirstName       string   `form:"first_name" json:"first_name" binding:"required"`
	LastName        string   `form:"last_name" json:"last_name" binding:"required"`
	Email           string   `form:"email" json:"email" binding:"omitempty,email"`
	Passport        string   `form:"passport" json:"passport"`
	PassportConfirm string   `form:"passport_confirm" json:"passport_confirm"`
	CourseIDs       []string `form:"courses" json:"courses"`
}

// CourseInput carries form/API fields for creating or editing a course.
type CourseInput struct {
	Code string `form:"code" json:"code" binding:"required"`
	Name string `form:"name" json:"name" binding:"required"`
}
