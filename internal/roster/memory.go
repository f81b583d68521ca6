package roster

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu             sync.Mutex
	students       map[string]Student
	tutors         map[string]Tutor
	courses        map[string]Course
	studentCourses map[string]map[string]bool
	tutorCourses   map[string]map[string]bool

	onDeleteStudent func(id string)
	onDeleteCourse  func(id string)
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students:       make(map[string]Student),
		tutors:         make(map[string]Tutor),
		courses:        make(map[string]Course),
		studentCourses: make(map[string]map[string]bool),
		tutorCourses:   make(map[string]map[string]bool),
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// CascadeStudentDelete registers a callback invoked after a student delete,
// mirroring the schema's FK cascade for companion fakes keyed by student id.
func (r *MemoryRepository) CascadeStudentDelete(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeleteStudent = fn
}

// CascadeCourseDelete registers a callback invoked after a course delete,
// mirroring the schema's FK cascade for companion fakes keyed by course id.
func (r *MemoryRepository) CascadeCourseDelete(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeleteCourse = fn
}

func (r *MemoryRepository) CreateStudent(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.students {
		if existing.StudentID == s.StudentID {
			return Student{}, ErrDuplicate
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	r.students[s.ID] = s
	return s, nil
}

func (r *MemoryRepository) GetStudent(_ context.Context, id string) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.students[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetStudentByIdentifier(_ context.Context, studentID string) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.StudentID == studentID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListStudents(_ context.Context, search string) ([]Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Student
	for _, s := range r.students {
		if search == "" || containsFold(s.StudentID, search) || containsFold(s.FirstName, search) ||
			containsFold(s.LastName, search) || containsFold(s.Email, search) {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].FirstName < res[j].FirstName
	})
	return res, nil
}

func (r *MemoryRepository) UpdateStudent(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.ID]; !ok {
		return Student{}, ErrNotFound
	}
	for id, existing := range r.students {
		if id != s.ID && existing.StudentID == s.StudentID {
			return Student{}, ErrDuplicate
		}
	}
	s.CreatedAt = r.students[s.ID].CreatedAt
	r.students[s.ID] = s
	return s, nil
}

func (r *MemoryRepository) DeleteStudent(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.students[id]; !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.students, id)
	delete(r.studentCourses, id)
	fn := r.onDeleteStudent
	r.mu.Unlock()
	if fn != nil {
		fn(id)
	}
	return nil
}

func (r *MemoryRepository) SetStudentCourses(_ context.Context, id string, courseIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]bool, len(courseIDs))
	for _, cid := range courseIDs {
		set[cid] = true
	}
	r.studentCourses[id] = set
	return nil
}

func (r *MemoryRepository) StudentCourses(_ context.Context, id string) ([]Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coursesFor(r.studentCourses[id]), nil
}

func (r *MemoryRepository) StudentsInCourse(_ context.Context, courseID string) ([]Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Student
	for sid, set := range r.studentCourses {
		if set[courseID] {
			if s, ok := r.students[sid]; ok {
				res = append(res, s)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].FirstName < res[j].FirstName
	})
	return res, nil
}

func (r *MemoryRepository) CountStudents(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.students), nil
}

func (r *MemoryRepository) CreateTutor(_ context.Context, t Tutor) (Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tutors {
		if existing.TutorID == t.TutorID {
			return Tutor{}, ErrDuplicate
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	r.tutors[t.ID] = t
	return t, nil
}

func (r *MemoryRepository) GetTutor(_ context.Context, id string) (*Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tutors[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetTutorByIdentifier(_ context.Context, tutorID string) (*Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tutors {
		if t.TutorID == tutorID {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListTutors(_ context.Context, search string) ([]Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Tutor
	for _, t := range r.tutors {
		if search == "" || containsFold(t.TutorID, search) || containsFold(t.FirstName, search) ||
			containsFold(t.LastName, search) || containsFold(t.Email, search) {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].FirstName < res[j].FirstName
	})
	return res, nil
}

func (r *MemoryRepository) UpdateTutor(_ context.Context, t Tutor) (Tutor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tutors[t.ID]; !ok {
		return Tutor{}, ErrNotFound
	}
	for id, existing := range r.tutors {
		if id != t.ID && existing.TutorID == t.TutorID {
			return Tutor{}, ErrDuplicate
		}
	}
	t.CreatedAt = r.tutors[t.ID].CreatedAt
	r.tutors[t.ID] = t
	return t, nil
}

func (r *MemoryRepository) DeleteTutor(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tutors[id]; !ok {
		return ErrNotFound
	}
	delete(r.tutors, id)
	delete(r.tutorCourses, id)
	return nil
}

func (r *MemoryRepository) SetTutorCourses(_ context.Context, id string, courseIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]bool, len(courseIDs))
	for _, cid := range courseIDs {
		set[cid] = true
	}
	r.tutorCourses[id] = set
	return nil
}

func (r *MemoryRepository) TutorCourses(_ context.Context, id string) ([]Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coursesFor(r.tutorCourses[id]), nil
}

func (r *MemoryRepository) CreateCourse(_ context.Context, c Course) (Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.courses {
		if existing.Code == c.Code {
			return Course{}, ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.courses[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) GetCourse(_ context.Context, id string) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.courses[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetCourseByCode(_ context.Context, code string) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListCourses(_ context.Context, search string) ([]Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Course
	for _, c := range r.courses {
		if search == "" || containsFold(c.Code, search) || containsFold(c.Name, search) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (r *MemoryRepository) UpdateCourse(_ context.Context, c Course) (Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; !ok {
		return Course{}, ErrNotFound
	}
	for id, existing := range r.courses {
		if id != c.ID && existing.Code == c.Code {
			return Course{}, ErrDuplicate
		}
	}
	r.courses[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) DeleteCourse(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.courses[id]; !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.courses, id)
	for _, set := range r.studentCourses {
		delete(set, id)
	}
	for _, set := range r.tutorCourses {
		delete(set, id)
	}
	fn := r.onDeleteCourse
	r.mu.Unlock()
	if fn != nil {
		fn(id)
	}
	return nil
}

func (r *MemoryRepository) CountCourses(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses), nil
}

func (r *MemoryRepository) coursesFor(set map[string]bool) []Course {
	var res []Course
	for cid := range set {
		if c, ok := r.courses[cid]; ok {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}
