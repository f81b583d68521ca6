package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the Postgres-backed UserRepository.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, first_name, last_name, email, password_hash, is_staff, is_superuser, last_login, created_at`

func scanUser(row interface{ Scan(...any) error }) (*PlatformUser, error) {
	var u PlatformUser
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.IsStaff, &u.IsSuperuser, &u.LastLogin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns nil, nil when no user exists.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*PlatformUser, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM platform_users WHERE username = $1
	`, username)
	return scanUser(row)
}

// UpsertUser gets or creates the user keyed by username. ON CONFLICT DO
// NOTHING keeps the insert idempotent; the follow-up select returns the
// canonical row either way.
func (r *Repository) UpsertUser(ctx context.Context, u PlatformUser) (*PlatformUser, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO platform_users (id, username, first_name, last_name, email, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username) DO NOTHING
	`, u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.IsStaff, u.IsSuperuser)
	if err != nil {
		return nil, err
	}
	return r.GetUserByUsername(ctx, u.Username)
}

// EnsureGroup creates the named group when it does not exist.
func (r *Repository) EnsureGroup(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO groups (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, uuid.NewString(), name)
	return err
}

// GroupsOf returns the group names the user belongs to.
func (r *Repository) GroupsOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.name FROM groups g
		JOIN platform_user_groups pug ON pug.group_id = g.id
		WHERE pug.user_id = $1
		ORDER BY g.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetRoleGroup clears any role-group memberships and attaches exactly the
// named one, so switching role never leaves a stale dual-role grant.
func (r *Repository) SetRoleGroup(ctx context.Context, userID, group string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM platform_user_groups
		WHERE user_id = $1
		AND group_id IN (SELECT id FROM groups WHERE name IN ($2, $3))
	`, userID, GroupStudents, GroupTutors)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO platform_user_groups (user_id, group_id)
		SELECT $1, id FROM groups WHERE name = $2
		ON CONFLICT DO NOTHING
	`, userID, group)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateLastLogin records a successful login time.
func (r *Repository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE platform_users SET last_login = $2 WHERE id = $1`, userID, at)
	return err
}

// CreateNativeUser inserts a platform user with a native password hash and
// staff/superuser flags. Used by the seed command for admin accounts.
func (r *Repository) CreateNativeUser(ctx context.Context, username, password string, staff, superuser bool) (*PlatformUser, error) {
	hash, err := HashPassport(password)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO platform_users (id, username, password_hash, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			is_staff = EXCLUDED.is_staff,
			is_superuser = EXCLUDED.is_superuser
	`, uuid.NewString(), username, hash, staff, superuser)
	if err != nil {
		return nil, err
	}
	return r.GetUserByUsername(ctx, username)
}
