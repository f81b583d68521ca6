package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests. Display fields
// (student name, course code) are left empty.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

func sameTuple(a, b Record) bool {
	return a.StudentID == b.StudentID && a.CourseID == b.CourseID &&
		a.Semester == b.Semester && a.Week == b.Week
}

func (r *MemoryRepository) Insert(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if sameTuple(existing, rec) {
			return Record{}, ErrDuplicate
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.records {
		if sameTuple(existing, rec) {
			existing.Status = rec.Status
			existing.Notes = rec.Notes
			if rec.Date != nil {
				existing.Date = rec.Date
			}
			r.records[id] = existing
			return existing, nil
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (r *MemoryRepository) Update(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[rec.ID]
	if !ok {
		return Record{}, ErrNotFound
	}
	for id, other := range r.records {
		if id != rec.ID && sameTuple(other, rec) {
			return Record{}, ErrDuplicate
		}
	}
	rec.CreatedAt = existing.CreatedAt
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Record
	for _, rec := range r.records {
		if f.StudentPK != "" && rec.StudentID != f.StudentPK {
			continue
		}
		if f.CoursePK != "" && rec.CourseID != f.CoursePK {
			continue
		}
		if f.StudentIdentifier != "" && rec.StudentRef != f.StudentIdentifier {
			continue
		}
		if f.CourseCode != "" && rec.CourseCode != f.CourseCode {
			continue
		}
		if f.Semester != 0 && rec.Semester != f.Semester {
			continue
		}
		if f.Week != 0 && rec.Week != f.Week {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Semester != res[j].Semester {
			return res[i].Semester > res[j].Semester
		}
		if res[i].Week != res[j].Week {
			return res[i].Week > res[j].Week
		}
		return res[i].StudentID < res[j].StudentID
	})
	return res, nil
}

// DeleteByCourse removes every record for the course, mirroring the FK
// cascade on attendance_records.
func (r *MemoryRepository) DeleteByCourse(courseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.CourseID == courseID {
			delete(r.records, id)
		}
	}
}

// DeleteByStudent removes every record for the student, mirroring the FK
// cascade on attendance_records.
func (r *MemoryRepository) DeleteByStudent(studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.StudentID == studentID {
			delete(r.records, id)
		}
	}
}

func (r *MemoryRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, rec := range r.records {
		counts[rec.Status]++
	}
	return counts, nil
}

func (r *MemoryRepository) CountForCourse(_ context.Context, coursePK string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.CourseID == coursePK {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountForStudent(_ context.Context, studentPK string) (total, present int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.StudentID != studentPK {
			continue
		}
		total++
		if rec.Status == StatusPresent {
			present++
		}
	}
	return total, present, nil
}
