package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuthFailed is the single error returned for any failed login
	// attempt so callers cannot distinguish an unknown identifier from a
	// wrong credential.
	ErrAuthFailed = errors.New("authentication failed")
)

// PlatformUser is the generic platform identity record. It mirrors Student
// or Tutor identity for session purposes and carries the group memberships
// used for role classification.
type PlatformUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email,omitempty"`
	PasswordHash []byte     `json:"-"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserRepository persists platform users and their group memberships.
type UserRepository interface {
	// GetUserByUsername returns nil, nil when no user exists.
	GetUserByUsername(ctx context.Context, username string) (*PlatformUser, error)
	// UpsertUser gets or creates the user keyed by username. Display
	// fields are applied on first insert only; an existing row is
	// returned unchanged.
	UpsertUser(ctx context.Context, u PlatformUser) (*PlatformUser, error)
	// EnsureGroup creates the named group when it does not exist.
	EnsureGroup(ctx context.Context, name string) error
	// GroupsOf returns the group names the user belongs to.
	GroupsOf(ctx context.Context, userID string) ([]string, error)
	// SetRoleGroup removes the user from all role groups (Students,
	// Tutors) and attaches exactly the named one.
	SetRoleGroup(ctx context.Context, userID, group string) error
	// UpdateLastLogin records a successful login time.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}
