package roster

import (
	"context"
	"errors"
	"testing"

	"rollbook/internal/auth"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepository())
}

func TestCreateStudentHashesPassport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	st, err := svc.CreateStudent(ctx, StudentInput{
		StudentID:       "S001",
		FirstName:       "Aisha",
		LastName:        "Karimova",
		Email:           "aisha@example.com",
		Passport:        "AB1234567",
		PassportConfirm: "AB1234567",
	})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if len(st.PassportHash) == 0 {
		t.Fatal("passport hash not stored")
	}
	if string(st.PassportHash) == "AB1234567" {
		t.Fatal("passport stored in the clear")
	}
	if !auth.CheckPassport(st.PassportHash, "AB1234567") {
		t.Error("stored hash does not verify the original passport")
	}
}

func TestCreateStudentPassportMismatch(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateStudent(context.Background(), StudentInput{
		StudentID:       "S001",
		FirstName:       "A",
		LastName:        "B",
		Passport:        "one",
		PassportConfirm: "two",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestCreateStudentWithoutPassport(t *testing.T) {
	// Admins may register a student before the credential is known; the
	// student simply cannot log in until one is set.
	svc := newTestService(t)
	st, err := svc.CreateStudent(context.Background(), StudentInput{
		StudentID: "S001", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.PassportHash != nil {
		t.Error("expected no hash for an empty passport")
	}
}

func TestCreateStudentDuplicateIdentifier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := StudentInput{StudentID: "S001", FirstName: "A", LastName: "B"}
	if _, err := svc.CreateStudent(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateStudent(ctx, in); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestUpdateStudentKeepsHash(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	st, err := svc.CreateStudent(ctx, StudentInput{
		StudentID: "S001", FirstName: "Aisha", LastName: "Karimova",
		Passport: "AB1234567", PassportConfirm: "AB1234567",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateStudent(ctx, st.ID, StudentInput{
		StudentID: "S001", FirstName: "Aisha", LastName: "Karimova-Lee",
	})
	if err != nil {
		t.Fatalf("UpdateStudent: %v", err)
	}
	if updated.LastName != "Karimova-Lee" {
		t.Errorf("last name = %q", updated.LastName)
	}
	if !auth.CheckPassport(updated.PassportHash, "AB1234567") {
		t.Error("empty passport input must keep the stored credential")
	}

	// A new passport replaces it.
	updated, err = svc.UpdateStudent(ctx, st.ID, StudentInput{
		StudentID: "S001", FirstName: "Aisha", LastName: "Karimova-Lee",
		Passport: "CD7654321", PassportConfirm: "CD7654321",
	})
	if err != nil {
		t.Fatal(err)
	}
	if auth.CheckPassport(updated.PassportHash, "AB1234567") {
		t.Error("old credential still verifies after rotation")
	}
	if !auth.CheckPassport(updated.PassportHash, "CD7654321") {
		t.Error("new credential does not verify")
	}
}

func TestUpdateStudentMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UpdateStudent(context.Background(), "missing", StudentInput{
		StudentID: "S001", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStudentEnrollment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cs, err := svc.CreateCourse(ctx, CourseInput{Code: "CS101", Name: "Algorithms"})
	if err != nil {
		t.Fatal(err)
	}
	ma, err := svc.CreateCourse(ctx, CourseInput{Code: "MA201", Name: "Linear Algebra"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := svc.CreateStudent(ctx, StudentInput{
		StudentID: "S001", FirstName: "A", LastName: "B", CourseIDs: []string{cs.ID, ma.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Courses) != 2 {
		t.Fatalf("enrolled in %d courses, want 2", len(got.Courses))
	}

	// Updating with a single course replaces the whole enrollment set.
	if _, err := svc.UpdateStudent(ctx, st.ID, StudentInput{
		StudentID: "S001", FirstName: "A", LastName: "B", CourseIDs: []string{ma.ID},
	}); err != nil {
		t.Fatal(err)
	}
	got, err = svc.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Courses) != 1 || got.Courses[0].Code != "MA201" {
		t.Errorf("courses after update = %+v", got.Courses)
	}

	enrolled, err := svc.StudentsInCourse(ctx, ma.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(enrolled) != 1 || enrolled[0].ID != st.ID {
		t.Errorf("StudentsInCourse = %+v", enrolled)
	}
}

func TestListStudentsSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seed := []StudentInput{
		{StudentID: "S001", FirstName: "Aisha", LastName: "Karimova"},
		{StudentID: "S002", FirstName: "Boris", LastName: "Ivanov"},
		{StudentID: "S003", FirstName: "Chen", LastName: "Karim"},
	}
	for _, in := range seed {
		if _, err := svc.CreateStudent(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.ListStudents(ctx, "karim")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("search karim returned %d students, want 2", len(got))
	}

	got, err = svc.ListStudents(ctx, "S002")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FirstName != "Boris" {
		t.Errorf("search by identifier = %+v", got)
	}
}

func TestCourseDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateCourse(ctx, CourseInput{Code: "CS101", Name: "Algorithms"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateCourse(ctx, CourseInput{Code: "CS101", Name: "Other"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestTutorCourses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CourseInput{Code: "CS101", Name: "Algorithms"})
	if err != nil {
		t.Fatal(err)
	}
	tu, err := svc.CreateTutor(ctx, TutorInput{
		TutorID: "T001", FirstName: "Elena", LastName: "Petrova", CourseIDs: []string{course.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	courses, err := svc.TutorCourses(ctx, tu.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 1 || courses[0].Code != "CS101" {
		t.Errorf("tutor courses = %+v", courses)
	}
}

func TestDirectories(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.CreateStudent(ctx, StudentInput{
		StudentID: "S001", FirstName: "Aisha", LastName: "Karimova",
		Passport: "AB1234567", PassportConfirm: "AB1234567",
	}); err != nil {
		t.Fatal(err)
	}

	dir := NewStudentDirectory(repo)
	entity, err := dir.FindByIdentifier(ctx, "S001")
	if err != nil {
		t.Fatal(err)
	}
	if entity == nil {
		t.Fatal("entity not found")
	}
	if entity.Identifier != "S001" || entity.FirstName != "Aisha" {
		t.Errorf("entity = %+v", entity)
	}
	if !auth.CheckPassport(entity.PassportHash, "AB1234567") {
		t.Error("entity hash does not verify")
	}

	missing, err := dir.FindByIdentifier(ctx, "S999")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown identifier, got %+v", missing)
	}
}

func TestDeleteStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	st, err := svc.CreateStudent(ctx, StudentInput{StudentID: "S001", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("student still present after delete")
	}
	if err := svc.DeleteStudent(ctx, st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
