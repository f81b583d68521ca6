package attendance

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rollbook/internal/roster"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	roster  *roster.Service
	course  roster.Course
	student []roster.Student
}

// newFixture seeds one course with three enrolled students.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	rosterRepo := roster.NewMemoryRepository()
	rosterSvc := roster.NewService(rosterRepo)

	course, err := rosterSvc.CreateCourse(ctx, roster.CourseInput{Code: "CS101", Name: "Algorithms"})
	if err != nil {
		t.Fatal(err)
	}
	var students []roster.Student
	for i := 1; i <= 3; i++ {
		st, err := rosterSvc.CreateStudent(ctx, roster.StudentInput{
			StudentID: "S00" + strconv.Itoa(i),
			FirstName: "Student",
			LastName:  strconv.Itoa(i),
			CourseIDs: []string{course.ID},
		})
		if err != nil {
			t.Fatal(err)
		}
		students = append(students, st)
	}

	repo := NewMemoryRepository()
	rosterRepo.CascadeCourseDelete(repo.DeleteByCourse)
	rosterRepo.CascadeStudentDelete(repo.DeleteByStudent)
	return &fixture{
		svc:     NewService(repo, rosterSvc, nil, 0, zerolog.Nop()),
		repo:    repo,
		roster:  rosterSvc,
		course:  course,
		student: students,
	}
}

func TestCreateDuplicateTuple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := RecordInput{
		StudentID: f.student[0].ID,
		CourseID:  f.course.ID,
		Semester:  1,
		Week:      3,
		Status:    StatusPresent,
	}
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second create err = %v, want ErrDuplicate", err)
	}
	// The same tuple in the other semester is a different record.
	in.Semester = 2
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Errorf("other semester: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := RecordInput{
		StudentID: f.student[0].ID,
		CourseID:  f.course.ID,
		Semester:  1,
		Week:      1,
		Status:    StatusPresent,
	}

	tests := []struct {
		name   string
		mutate func(*RecordInput)
	}{
		{"semester zero", func(in *RecordInput) { in.Semester = 0 }},
		{"semester three", func(in *RecordInput) { in.Semester = 3 }},
		{"week zero", func(in *RecordInput) { in.Week = 0 }},
		{"week nineteen", func(in *RecordInput) { in.Week = 19 }},
		{"unknown status", func(in *RecordInput) { in.Status = "X" }},
		{"bad date format", func(in *RecordInput) { in.Date = "03/09/2026" }},
		{"tomorrow", func(in *RecordInput) { in.Date = time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02") }},
		{"far future", func(in *RecordInput) { in.Date = "2099-01-01" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			if _, err := f.svc.Create(ctx, in); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestCreateAcceptsToday(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.Create(context.Background(), RecordInput{
		StudentID: f.student[0].ID,
		CourseID:  f.course.ID,
		Semester:  1,
		Week:      1,
		Status:    StatusPresent,
		Date:      time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		t.Fatalf("today's date rejected: %v", err)
	}
	if rec.Date == nil {
		t.Error("date not stored")
	}
}

func TestBulkMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries := []MarkEntry{
		{StudentID: f.student[0].ID, Status: StatusPresent},
		{StudentID: f.student[1].ID, Status: StatusAbsent, Notes: "sick"},
		// student[2] untouched: no entry submitted.
	}
	marked, err := f.svc.BulkMark(ctx, f.course.ID, 1, 5, entries)
	if err != nil {
		t.Fatalf("BulkMark: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, want 2", marked)
	}

	records, err := f.svc.List(ctx, Filter{CoursePK: f.course.ID, Semester: 1, Week: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, rec := range records {
		if rec.StudentID == f.student[2].ID {
			t.Error("record created for an unmarked student")
		}
	}
}

func TestBulkMarkResubmitOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := []MarkEntry{{StudentID: f.student[0].ID, Status: StatusAbsent}}
	if _, err := f.svc.BulkMark(ctx, f.course.ID, 1, 5, first); err != nil {
		t.Fatal(err)
	}

	// Correcting the mark resubmits the form for the same week.
	second := []MarkEntry{{StudentID: f.student[0].ID, Status: StatusPresent, Notes: "arrived after roll call"}}
	if _, err := f.svc.BulkMark(ctx, f.course.ID, 1, 5, second); err != nil {
		t.Fatal(err)
	}

	records, err := f.svc.List(ctx, Filter{CoursePK: f.course.ID, Semester: 1, Week: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 after resubmit", len(records))
	}
	if records[0].Status != StatusPresent || records[0].Notes != "arrived after roll call" {
		t.Errorf("record not overwritten: %+v", records[0])
	}
}

func TestBulkMarkSkipsUnenrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outsider, err := f.roster.CreateStudent(ctx, roster.StudentInput{
		StudentID: "S999", FirstName: "Not", LastName: "Enrolled",
	})
	if err != nil {
		t.Fatal(err)
	}
	marked, err := f.svc.BulkMark(ctx, f.course.ID, 1, 5, []MarkEntry{
		{StudentID: outsider.ID, Status: StatusPresent},
	})
	if err != nil {
		t.Fatal(err)
	}
	if marked != 0 {
		t.Errorf("marked = %d, want 0 for a student outside the course", marked)
	}
}

func TestBulkMarkUnknownCourse(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BulkMark(context.Background(), "no-such-course", 1, 5, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 10 records across the three students: 6 present, 3 absent, 1 late.
	statuses := []Status{
		StatusPresent, StatusPresent, StatusPresent, StatusPresent, StatusPresent, StatusPresent,
		StatusAbsent, StatusAbsent, StatusAbsent,
		StatusLate,
	}
	for i, status := range statuses {
		_, err := f.repo.Insert(ctx, Record{
			StudentID: f.student[i%3].ID,
			CourseID:  f.course.ID,
			Semester:  1 + i%2,
			Week:      1 + i/2,
			Status:    status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalStudents != 3 || st.TotalCourses != 1 || st.TotalRecords != 10 {
		t.Errorf("totals = %d students, %d courses, %d records", st.TotalStudents, st.TotalCourses, st.TotalRecords)
	}
	want := Breakdown{Present: 6, Absent: 3, Late: 1}
	if st.StatusBreakdown != want {
		t.Errorf("breakdown = %+v, want %+v", st.StatusBreakdown, want)
	}
	if st.OverallAttendanceRate != "60.0%" {
		t.Errorf("rate = %q, want 60.0%%", st.OverallAttendanceRate)
	}
}

func TestStatsEmpty(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalRecords != 0 || st.OverallAttendanceRate != "0.0%" {
		t.Errorf("empty stats = %+v", st)
	}
}

func TestStudentStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student[0].ID

	for week, status := range []Status{StatusPresent, StatusPresent, StatusPresent, StatusAbsent} {
		_, err := f.repo.Insert(ctx, Record{
			StudentID: student, CourseID: f.course.ID, Semester: 1, Week: week + 1, Status: status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	total, pct, err := f.svc.StudentStats(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if pct != 75.0 {
		t.Errorf("percentage = %v, want 75", pct)
	}
}

func TestUpdateToExistingTuple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, RecordInput{
		StudentID: f.student[0].ID, CourseID: f.course.ID, Semester: 1, Week: 1, Status: StatusPresent,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, RecordInput{
		StudentID: f.student[0].ID, CourseID: f.course.ID, Semester: 1, Week: 2, Status: StatusPresent,
	}); err != nil {
		t.Fatal(err)
	}

	// Moving record A onto record B's tuple is a conflict.
	_, err = f.svc.Update(ctx, a.ID, RecordInput{
		StudentID: f.student[0].ID, CourseID: f.course.ID, Semester: 1, Week: 2, Status: StatusLate,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestCourseDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, RecordInput{
		StudentID: f.student[0].ID, CourseID: f.course.ID, Semester: 1, Week: 1, Status: StatusPresent,
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.roster.DeleteCourse(ctx, f.course.ID); err != nil {
		t.Fatal(err)
	}

	records, err := f.svc.List(ctx, Filter{CoursePK: f.course.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("%d records survived the course delete", len(records))
	}
}

func TestStudentDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, RecordInput{
		StudentID: f.student[0].ID, CourseID: f.course.ID, Semester: 1, Week: 1, Status: StatusPresent,
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.roster.DeleteStudent(ctx, f.student[0].ID); err != nil {
		t.Fatal(err)
	}

	records, err := f.svc.List(ctx, Filter{StudentPK: f.student[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("%d records survived the student delete", len(records))
	}
}

func TestDeleteMissing(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
