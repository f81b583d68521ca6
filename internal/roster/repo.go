package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository persists roster data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func wrapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

const studentColumns = `id, student_id, first_name, last_name, email, passport_hash, created_at`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.LastName, &s.Email, &s.PassportHash, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, student_id, first_name, last_name, email, passport_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.StudentID, s.FirstName, s.LastName, s.Email, s.PassportHash)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Student{}, wrapPgErr(err)
	}
	return s, nil
}

func (r *PostgresRepository) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (r *PostgresRepository) GetStudentByIdentifier(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, studentID)
	return scanStudent(row)
}

func (r *PostgresRepository) ListStudents(ctx context.Context, search string) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	args := []any{}
	if search != "" {
		query += ` WHERE student_id ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET student_id = $2, first_name = $3, last_name = $4, email = $5, passport_hash = $6
		WHERE id = $1
	`, s.ID, s.StudentID, s.FirstName, s.LastName, s.Email, s.PassportHash)
	if err != nil {
		return Student{}, wrapPgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Student{}, ErrNotFound
	}
	updated, err := r.GetStudent(ctx, s.ID)
	if err != nil {
		return Student{}, err
	}
	return *updated, nil
}

func (r *PostgresRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetStudentCourses(ctx context.Context, id string, courseIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_courses WHERE student_id = $1`, id); err != nil {
		return err
	}
	for _, courseID := range courseIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO student_courses (student_id, course_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, courseID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) StudentCourses(ctx context.Context, id string) ([]Course, error) {
	return r.queryCourses(ctx, `
		SELECT c.id, c.code, c.name FROM courses c
		JOIN student_courses sc ON sc.course_id = c.id
		WHERE sc.student_id = $1
		ORDER BY c.code
	`, id)
}

func (r *PostgresRepository) StudentsInCourse(ctx context.Context, courseID string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.student_id, s.first_name, s.last_name, s.email, s.passport_hash, s.created_at
		FROM students s
		JOIN student_courses sc ON sc.student_id = s.id
		WHERE sc.course_id = $1
		ORDER BY s.last_name, s.first_name
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

const tutorColumns = `id, tutor_id, first_name, last_name, email, passport_hash, created_at`

func scanTutor(row interface{ Scan(...any) error }) (*Tutor, error) {
	var t Tutor
	err := row.Scan(&t.ID, &t.TutorID, &t.FirstName, &t.LastName, &t.Email, &t.PassportHash, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) CreateTutor(ctx context.Context, t Tutor) (Tutor, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO tutors (id, tutor_id, first_name, last_name, email, passport_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.TutorID, t.FirstName, t.LastName, t.Email, t.PassportHash)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return Tutor{}, wrapPgErr(err)
	}
	return t, nil
}

func (r *PostgresRepository) GetTutor(ctx context.Context, id string) (*Tutor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tutorColumns+` FROM tutors WHERE id = $1`, id)
	return scanTutor(row)
}

func (r *PostgresRepository) GetTutorByIdentifier(ctx context.Context, tutorID string) (*Tutor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tutorColumns+` FROM tutors WHERE tutor_id = $1`, tutorID)
	return scanTutor(row)
}

func (r *PostgresRepository) ListTutors(ctx context.Context, search string) ([]Tutor, error) {
	query := `SELECT ` + tutorColumns + ` FROM tutors`
	args := []any{}
	if search != "" {
		query += ` WHERE tutor_id ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Tutor
	for rows.Next() {
		t, err := scanTutor(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) UpdateTutor(ctx context.Context, t Tutor) (Tutor, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tutors
		SET tutor_id = $2, first_name = $3, last_name = $4, email = $5, passport_hash = $6
		WHERE id = $1
	`, t.ID, t.TutorID, t.FirstName, t.LastName, t.Email, t.PassportHash)
	if err != nil {
		return Tutor{}, wrapPgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Tutor{}, ErrNotFound
	}
	updated, err := r.GetTutor(ctx, t.ID)
	if err != nil {
		return Tutor{}, err
	}
	return *updated, nil
}

func (r *PostgresRepository) DeleteTutor(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tutors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetTutorCourses(ctx context.Context, id string, courseIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tutor_courses WHERE tutor_id = $1`, id); err != nil {
		return err
	}
	for _, courseID := range courseIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tutor_courses (tutor_id, course_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, courseID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) TutorCourses(ctx context.Context, id string) ([]Course, error) {
	return r.queryCourses(ctx, `
		SELECT c.id, c.code, c.name FROM courses c
		JOIN tutor_courses tc ON tc.course_id = c.id
		WHERE tc.tutor_id = $1
		ORDER BY c.code
	`, id)
}

func (r *PostgresRepository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, code, name) VALUES ($1, $2, $3)
	`, c.ID, c.Code, c.Name)
	if err != nil {
		return Course{}, wrapPgErr(err)
	}
	return c, nil
}

func (r *PostgresRepository) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, code, name FROM courses WHERE id = $1`, id)
	var c Course
	if err := row.Scan(&c.ID, &c.Code, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) GetCourseByCode(ctx context.Context, code string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, code, name FROM courses WHERE code = $1`, code)
	var c Course
	if err := row.Scan(&c.ID, &c.Code, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) ListCourses(ctx context.Context, search string) ([]Course, error) {
	query := `SELECT id, code, name FROM courses`
	args := []any{}
	if search != "" {
		query += ` WHERE code ILIKE $1 OR name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY code`
	return r.queryCourses(ctx, query, args...)
}

func (r *PostgresRepository) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE courses SET code = $2, name = $3 WHERE id = $1
	`, c.ID, c.Code, c.Name)
	if err != nil {
		return Course{}, wrapPgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountCourses(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n)
	return n, err
}

func (r *PostgresRepository) queryCourses(ctx context.Context, query string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
