package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `
	ar.id, ar.student_id, ar.course_id, ar.semester, ar.week, ar.date,
	ar.status, ar.notes, ar.created_at, s.student_id, s.first_name || ' ' || s.last_name, c.code`

const recordFrom = `
	FROM attendance_records ar
	JOIN students s ON s.id = ar.student_id
	JOIN courses c ON c.id = ar.course_id`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.CourseID, &rec.Semester, &rec.Week, &rec.Date,
		&status, &rec.Notes, &rec.CreatedAt, &rec.StudentRef, &rec.StudentName, &rec.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Status = Status(strings.TrimSpace(status))
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, course_id, semester, week, date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.CourseID, rec.Semester, rec.Week, rec.Date, string(rec.Status), rec.Notes)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return rec, nil
}

// Upsert creates or overwrites the record for the tuple. Concurrent inserts
// of the same tuple collapse onto the existing row via ON CONFLICT.
func (r *PostgresRepository) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, course_id, semester, week, date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, course_id, semester, week) DO UPDATE SET
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			date = COALESCE(EXCLUDED.date, attendance_records.date)
		RETURNING id, created_at
	`, rec.ID, rec.StudentID, rec.CourseID, rec.Semester, rec.Week, rec.Date, string(rec.Status), rec.Notes)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+recordFrom+` WHERE ar.id = $1`, id)
	return scanRecord(row)
}

func (r *PostgresRepository) Update(ctx context.Context, rec Record) (Record, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET student_id = $2, course_id = $3, semester = $4, week = $5, date = $6, status = $7, notes = $8
		WHERE id = $1
	`, rec.ID, rec.StudentID, rec.CourseID, rec.Semester, rec.Week, rec.Date, string(rec.Status), rec.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, ErrNotFound
	}
	updated, err := r.Get(ctx, rec.ID)
	if err != nil {
		return Record{}, err
	}
	return *updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + recordFrom
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, clause+"$"+strconv.Itoa(len(args)))
	}
	if f.StudentPK != "" {
		add("ar.student_id = ", f.StudentPK)
	}
	if f.CoursePK != "" {
		add("ar.course_id = ", f.CoursePK)
	}
	if f.StudentIdentifier != "" {
		add("s.student_id = ", f.StudentIdentifier)
	}
	if f.CourseCode != "" {
		add("c.code = ", f.CourseCode)
	}
	if f.Semester != 0 {
		add("ar.semester = ", f.Semester)
	}
	if f.Week != 0 {
		add("ar.week = ", f.Week)
	}
	if f.Status != "" {
		add("ar.status = ", string(f.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ar.semester DESC, ar.week DESC, s.last_name, s.first_name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance_records GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(strings.TrimSpace(status))] = n
	}
	return counts, rows.Err()
}

func (r *PostgresRepository) CountForCourse(ctx context.Context, coursePK string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records WHERE course_id = $1
	`, coursePK).Scan(&n)
	return n, err
}

func (r *PostgresRepository) CountForStudent(ctx context.Context, studentPK string) (total, present int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'P')
		FROM attendance_records WHERE student_id = $1
	`, studentPK)
	err = row.Scan(&total, &present)
	return total, present, err
}
