package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rollbook/internal/roster"
	"rollbook/internal/store"
)

// Repository persists attendance records.
type Repository interface {
	// Insert fails with ErrDuplicate when a record already exists for the
	// (student, course, semester, week) tuple.
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]Record, error)
	// Upsert creates the record or overwrites status/notes/date of the
	// existing one for the same tuple.
	Upsert(ctx context.Context, rec Record) (Record, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountForStudent(ctx context.Context, studentPK string) (total, present int, err error)
	CountForCourse(ctx context.Context, coursePK string) (int, error)
}

// Stats is the aggregate returned by the stats endpoint.
type Stats struct {
	TotalStudents         int       `json:"total_students"`
	TotalCourses          int       `json:"total_courses"`
	TotalRecords          int       `json:"total_attendance_records"`
	OverallAttendanceRate string    `json:"overall_attendance_rate"`
	StatusBreakdown       Breakdown `json:"status_breakdown"`
}

// Breakdown counts records per status.
type Breakdown struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

const statsCacheKey = "rollbook:stats"

// Service coordinates record CRUD, bulk marking and stats.
type Service struct {
	repo     Repository
	roster   *roster.Service
	cache    *store.Redis
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewService creates a service. cache may be nil; stats are then always
// recomputed.
func NewService(repo Repository, rosterSvc *roster.Service, cache *store.Redis, cacheTTL time.Duration, log zerolog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{repo: repo, roster: rosterSvc, cache: cache, cacheTTL: cacheTTL, log: log}
}

func validateRecord(semester, week int, status Status, date *time.Time) error {
	if semester != 1 && semester != 2 {
		return fmt.Errorf("%w: semester must be 1 or 2", ErrInvalid)
	}
	if week < 1 || week > 18 {
		return fmt.Errorf("%w: week must be between 1 and 18", ErrInvalid)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	// Dates parse to midnight UTC, so comparing against today's midnight
	// accepts today and rejects tomorrow onward.
	if date != nil && date.After(time.Now().UTC().Truncate(24*time.Hour)) {
		return fmt.Errorf("%w: attendance date cannot be in the future", ErrInvalid)
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	return &t, nil
}

func (s *Service) recordFromInput(in RecordInput) (Record, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return Record{}, err
	}
	if err := validateRecord(in.Semester, in.Week, in.Status, date); err != nil {
		return Record{}, err
	}
	return Record{
		StudentID: in.StudentID,
		CourseID:  in.CourseID,
		Semester:  in.Semester,
		Week:      in.Week,
		Date:      date,
		Status:    in.Status,
		Notes:     in.Notes,
	}, nil
}

// Create inserts a new record; an existing tuple is a conflict, not an
// overwrite.
func (s *Service) Create(ctx context.Context, in RecordInput) (Record, error) {
	rec, err := s.recordFromInput(in)
	if err != nil {
		return Record{}, err
	}
	return s.repo.Insert(ctx, rec)
}

// Update replaces the record's fields.
func (s *Service) Update(ctx context.Context, id string, in RecordInput) (Record, error) {
	rec, err := s.recordFromInput(in)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	return s.repo.Update(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	return s.repo.List(ctx, f)
}

// BulkMark upserts one record per submitted entry for students enrolled in
// the course. Entries for students not enrolled are ignored, as are entries
// with no status. Resubmitting the same form yields the same record set.
func (s *Service) BulkMark(ctx context.Context, courseID string, semester, week int, entries []MarkEntry) (int, error) {
	if err := validateRecord(semester, week, StatusPresent, nil); err != nil {
		return 0, err
	}
	course, err := s.roster.GetCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if course == nil {
		return 0, fmt.Errorf("course: %w", ErrNotFound)
	}

	enrolled, err := s.roster.StudentsInCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	byStudent := make(map[string]MarkEntry, len(entries))
	for _, e := range entries {
		byStudent[e.StudentID] = e
	}

	marked := 0
	for _, st := range enrolled {
		entry, ok := byStudent[st.ID]
		if !ok || entry.Status == "" {
			continue
		}
		if !entry.Status.Valid() {
			return marked, fmt.Errorf("%w: unknown status %q", ErrInvalid, entry.Status)
		}
		_, err := s.repo.Upsert(ctx, Record{
			StudentID: st.ID,
			CourseID:  courseID,
			Semester:  semester,
			Week:      week,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
		if err != nil {
			return marked, err
		}
		marked++
	}
	s.log.Info().Str("course", course.Code).Int("semester", semester).Int("week", week).
		Int("marked", marked).Msg("bulk attendance marked")
	return marked, nil
}

// Stats returns aggregate counts and the present/absent/late breakdown.
// The result is cached in redis for a short TTL.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if cached := s.cache.CacheGet(ctx, statsCacheKey); cached != "" {
		var st Stats
		if err := json.Unmarshal([]byte(cached), &st); err == nil {
			return st, nil
		}
	}

	students, err := s.roster.CountStudents(ctx)
	if err != nil {
		return Stats{}, err
	}
	courses, err := s.roster.CountCourses(ctx)
	if err != nil {
		return Stats{}, err
	}
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	breakdown := Breakdown{
		Present: byStatus[StatusPresent],
		Absent:  byStatus[StatusAbsent],
		Late:    byStatus[StatusLate],
	}
	total := breakdown.Present + breakdown.Absent + breakdown.Late
	rate := 0.0
	if total > 0 {
		rate = float64(breakdown.Present) / float64(total) * 100
	}

	st := Stats{
		TotalStudents:         students,
		TotalCourses:          courses,
		TotalRecords:          total,
		OverallAttendanceRate: fmt.Sprintf("%.1f%%", rate),
		StatusBreakdown:       breakdown,
	}
	if data, err := json.Marshal(st); err == nil {
		s.cache.CacheSet(ctx, statsCacheKey, string(data), s.cacheTTL)
	}
	return st, nil
}

// CourseRecordCount returns the number of records held for a course.
func (s *Service) CourseRecordCount(ctx context.Context, coursePK string) (int, error) {
	return s.repo.CountForCourse(ctx, coursePK)
}

// StudentStats returns a student's record count and attendance percentage.
func (s *Service) StudentStats(ctx context.Context, studentPK string) (total int, percentage float64, err error) {
	total, present, err := s.repo.CountForStudent(ctx, studentPK)
	if err != nil {
		return 0, 0, err
	}
	if total > 0 {
		percentage = float64(present) / float64(total) * 100
	}
	return total, percentage, nil
}
