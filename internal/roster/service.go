package roster

import (
	"context"
	"fmt"

	"rollbook/internal/auth"
)

// Repository persists roster entities.
type Repository interface {
	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	GetStudentByIdentifier(ctx context.Context, studentID string) (*Student, error)
	// ListStudents does a case-insensitive substring match on identifier,
	// names and email when search is non-empty.
	ListStudents(ctx context.Context, search string) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudent(ctx context.Context, id string) error
	SetStudentCourses(ctx context.Context, id string, courseIDs []string) error
	StudentCourses(ctx context.Context, id string) ([]Course, error)
	StudentsInCourse(ctx context.Context, courseID string) ([]Student, error)
	CountStudents(ctx context.Context) (int, error)

	CreateTutor(ctx context.Context, t Tutor) (Tutor, error)
	GetTutor(ctx context.Context, id string) (*Tutor, error)
	GetTutorByIdentifier(ctx context.Context, tutorID string) (*Tutor, error)
	ListTutors(ctx context.Context, search string) ([]Tutor, error)
	UpdateTutor(ctx context.Context, t Tutor) (Tutor, error)
	DeleteTutor(ctx context.Context, id string) error
	SetTutorCourses(ctx context.Context, id string, courseIDs []string) error
	TutorCourses(ctx context.Context, id string) ([]Course, error)

	CreateCourse(ctx context.Context, course Course) (Course, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	GetCourseByCode(ctx context.Context, code string) (*Course, error)
	ListCourses(ctx context.Context, search string) ([]Course, error)
	UpdateCourse(ctx context.Context, course Course) (Course, error)
	DeleteCourse(ctx context.Context, id string) error
	CountCourses(ctx context.Context) (int, error)
}

// Service wraps the repository with credential hashing and input checks.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func hashedPassport(passport, confirm string) ([]byte, error) {
	if passport == "" && confirm == "" {
		return nil, nil
	}
	if passport != confirm {
		return nil, fmt.Errorf("%w: passport confirmation does not match", ErrInvalid)
	}
	return auth.HashPassport(passport)
}

// CreateStudent hashes the passport data and persists a new student.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (Student, error) {
	hash, err := hashedPassport(in.Passport, in.PassportConfirm)
	if err != nil {
		return Student{}, err
	}
	st, err := s.repo.CreateStudent(ctx, Student{
		StudentID:    in.StudentID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PassportHash: hash,
	})
	if err != nil {
		return Student{}, err
	}
	if len(in.CourseIDs) > 0 {
		if err := s.repo.SetStudentCourses(ctx, st.ID, in.CourseIDs); err != nil {
			return Student{}, err
		}
	}
	return st, nil
}

// UpdateStudent replaces the student's fields; an empty passport keeps the
// stored hash.
func (s *Service) UpdateStudent(ctx context.Context, id string, in StudentInput) (Student, error) {
	existing, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if existing == nil {
		return Student{}, ErrNotFound
	}
	hash, err := hashedPassport(in.Passport, in.PassportConfirm)
	if err != nil {
		return Student{}, err
	}
	if hash == nil {
		hash = existing.PassportHash
	}
	st, err := s.repo.UpdateStudent(ctx, Student{
		ID:           id,
		StudentID:    in.StudentID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PassportHash: hash,
	})
	if err != nil {
		return Student{}, err
	}
	if err := s.repo.SetStudentCourses(ctx, id, in.CourseIDs); err != nil {
		return Student{}, err
	}
	return st, nil
}

// GetStudent returns the student with its enrolled courses.
func (s *Service) GetStudent(ctx context.Context, id string) (*Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil || st == nil {
		return st, err
	}
	courses, err := s.repo.StudentCourses(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Courses = courses
	return st, nil
}

func (s *Service) GetStudentByIdentifier(ctx context.Context, studentID string) (*Student, error) {
	return s.repo.GetStudentByIdentifier(ctx, studentID)
}

func (s *Service) ListStudents(ctx context.Context, search string) ([]Student, error) {
	return s.repo.ListStudents(ctx, search)
}

func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	return s.repo.DeleteStudent(ctx, id)
}

func (s *Service) StudentsInCourse(ctx context.Context, courseID string) ([]Student, error) {
	return s.repo.StudentsInCourse(ctx, courseID)
}

// CreateTutor hashes the passport data and persists a new tutor.
func (s *Service) CreateTutor(ctx context.Context, in TutorInput) (Tutor, error) {
	hash, err := hashedPassport(in.Passport, in.PassportConfirm)
	if err != nil {
		return Tutor{}, err
	}
	tu, err := s.repo.CreateTutor(ctx, Tutor{
		TutorID:      in.TutorID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PassportHash: hash,
	})
	if err != nil {
		return Tutor{}, err
	}
	if len(in.CourseIDs) > 0 {
		if err := s.repo.SetTutorCourses(ctx, tu.ID, in.CourseIDs); err != nil {
			return Tutor{}, err
		}
	}
	return tu, nil
}

// UpdateTutor replaces the tutor's fields; an empty passport keeps the
// stored hash.
func (s *Service) UpdateTutor(ctx context.Context, id string, in TutorInput) (Tutor, error) {
	existing, err := s.repo.GetTutor(ctx, id)
	if err != nil {
		return Tutor{}, err
	}
	if existing == nil {
		return Tutor{}, ErrNotFound
	}
	hash, err := hashedPassport(in.Passport, in.PassportConfirm)
	if err != nil {
		return Tutor{}, err
	}
	if hash == nil {
		hash = existing.PassportHash
	}
	tu, err := s.repo.UpdateTutor(ctx, Tutor{
		ID:           id,
		TutorID:      in.TutorID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PassportHash: hash,
	})
	if err != nil {
		return Tutor{}, err
	}
	if err := s.repo.SetTutorCourses(ctx, id, in.CourseIDs); err != nil {
		return Tutor{}, err
	}
	return tu, nil
}

// GetTutor returns the tutor with its taught courses.
func (s *Service) GetTutor(ctx context.Context, id string) (*Tutor, error) {
	tu, err := s.repo.GetTutor(ctx, id)
	if err != nil || tu == nil {
		return tu, err
	}
	courses, err := s.repo.TutorCourses(ctx, id)
	if err != nil {
		return nil, err
	}
	tu.Courses = courses
	return tu, nil
}

func (s *Service) ListTutors(ctx context.Context, search string) ([]Tutor, error) {
	return s.repo.ListTutors(ctx, search)
}

func (s *Service) DeleteTutor(ctx context.Context, id string) error {
	return s.repo.DeleteTutor(ctx, id)
}

func (s *Service) TutorCourses(ctx context.Context, id string) ([]Course, error) {
	return s.repo.TutorCourses(ctx, id)
}

// CreateCourse persists a new course.
func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	return s.repo.CreateCourse(ctx, Course{Code: in.Code, Name: in.Name})
}

// UpdateCourse replaces the course's fields.
func (s *Service) UpdateCourse(ctx context.Context, id string, in CourseInput) (Course, error) {
	return s.repo.UpdateCourse(ctx, Course{ID: id, Code: in.Code, Name: in.Name})
}

func (s *Service) GetCourse(ctx context.Context, id string) (*Course, error) {
	return s.repo.GetCourse(ctx, id)
}

func (s *Service) GetCourseByCode(ctx context.Context, code string) (*Course, error) {
	return s.repo.GetCourseByCode(ctx, code)
}

func (s *Service) ListCourses(ctx context.Context, search string) ([]Course, error) {
	return s.repo.ListCourses(ctx, search)
}

func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	return s.repo.DeleteCourse(ctx, id)
}

func (s *Service) CountStudents(ctx context.Context) (int, error) {
	return s.repo.CountStudents(ctx)
}

func (s *Service) CountCourses(ctx context.Context) (int, error) {
	return s.repo.CountCourses(ctx)
}

// StudentDirectory adapts the roster to the authentication backend's entity
// lookup for student logins.
type StudentDirectory struct {
	repo Repository
}

// NewStudentDirectory creates a directory over the repository.
func NewStudentDirectory(repo Repository) StudentDirectory {
	return StudentDirectory{repo: repo}
}

func (d StudentDirectory) FindByIdentifier(ctx context.Context, identifier string) (*auth.Entity, error) {
	st, err := d.repo.GetStudentByIdentifier(ctx, identifier)
	if err != nil || st == nil {
		return nil, err
	}
	return &auth.Entity{
		Identifier:   st.StudentID,
		FirstName:    st.FirstName,
		LastName:     st.LastName,
		Email:        st.Email,
		PassportHash: st.PassportHash,
	}, nil
}

// TutorDirectory adapts the roster to the authentication backend's entity
// lookup for tutor logins.
type TutorDirectory struct {
	repo Repository
}

// NewTutorDirectory creates a directory over the repository.
func NewTutorDirectory(repo Repository) TutorDirectory {
	return TutorDirectory{repo: repo}
}

func (d TutorDirectory) FindByIdentifier(ctx context.Context, identifier string) (*auth.Entity, error) {
	tu, err := d.repo.GetTutorByIdentifier(ctx, identifier)
	if err != nil || tu == nil {
		return nil, err
	}
	return &auth.Entity{
		Identifier:   tu.TutorID,
		FirstName:    tu.FirstName,
		LastName:     tu.LastName,
		Email:        tu.Email,
		PassportHash: tu.PassportHash,
	}, nil
}
