package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entity is the slice of a Student or Tutor record the backend needs to
// verify a login and provision a platform user.
type Entity struct {
	Identifier   string
	FirstName    string
	LastName     string
	Email        string
	PassportHash []byte
}

// EntityDirectory looks up a Student or Tutor by its public identifier.
// Implementations return nil, nil when no entity exists.
type EntityDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*Entity, error)
}

// Backend authenticates students and tutors against their passport data and
// projects them onto platform users.
type Backend struct {
	users    UserRepository
	students EntityDirectory
	tutors   EntityDirectory
	log      zerolog.Logger
}

// NewBackend creates a backend.
func NewBackend(users UserRepository, students, tutors EntityDirectory, log zerolog.Logger) *Backend {
	return &Backend{users: users, students: students, tutors: tutors, log: log}
}

// Username synthesizes the deterministic platform username for a claimed
// role and entity identifier. The role prefix keeps the namespaces apart so
// the same raw identifier can exist as both a student and a tutor.
func Username(claimed Role, identifier string) string {
	return string(claimed) + "_" + identifier
}

// Authenticate verifies identifier/passport against the entity table the
// claimed role selects and returns the provisioned platform user. Every
// failure collapses to ErrAuthFailed. Repeated successful calls are
// idempotent: one platform user, exactly one role group.
func (b *Backend) Authenticate(ctx context.Context, identifier, passport string, claimed Role) (*PlatformUser, error) {
	var (
		dir   EntityDirectory
		group string
	)
	switch claimed {
	case RoleStudent:
		dir, group = b.students, GroupStudents
	case RoleTutor:
		dir, group = b.tutors, GroupTutors
	default:
		return nil, ErrAuthFailed
	}

	entity, err := dir.FindByIdentifier(ctx, identifier)
	if err != nil {
		b.log.Error().Err(err).Str("role", string(claimed)).Msg("entity lookup failed")
		return nil, ErrAuthFailed
	}
	if entity == nil || !CheckPassport(entity.PassportHash, passport) {
		return nil, ErrAuthFailed
	}

	user, err := b.users.UpsertUser(ctx, PlatformUser{
		Username:  Username(claimed, identifier),
		FirstName: entity.FirstName,
		LastName:  entity.LastName,
		Email:     entity.Email,
	})
	if err != nil {
		return nil, err
	}
	if err := b.users.EnsureGroup(ctx, group); err != nil {
		return nil, err
	}
	if err := b.users.SetRoleGroup(ctx, user.ID, group); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := b.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		b.log.Warn().Err(err).Str("username", user.Username).Msg("last login update failed")
	} else {
		user.LastLogin = &now
	}
	b.log.Info().Str("username", user.Username).Str("role", string(claimed)).Msg("passport login")
	return user, nil
}

// Login is the full entry point for the login form. The platform's native
// credential check runs first; the passport backend is consulted only when
// that check fails or is not applicable to the claimed role.
func (b *Backend) Login(ctx context.Context, identifier, secret string, claimed Role) (*PlatformUser, error) {
	if user, err := b.authenticateNative(ctx, identifier, secret); err == nil {
		return user, nil
	}
	if claimed == RoleStudent || claimed == RoleTutor {
		return b.Authenticate(ctx, identifier, secret, claimed)
	}
	return nil, ErrAuthFailed
}

func (b *Backend) authenticateNative(ctx context.Context, username, password string) (*PlatformUser, error) {
	user, err := b.users.GetUserByUsername(ctx, username)
	if err != nil {
		b.log.Error().Err(err).Msg("native user lookup failed")
		return nil, ErrAuthFailed
	}
	if user == nil || !CheckPassport(user.PasswordHash, password) {
		return nil, ErrAuthFailed
	}
	now := time.Now().UTC()
	if err := b.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		b.log.Warn().Err(err).Str("username", user.Username).Msg("last login update failed")
	} else {
		user.LastLogin = &now
	}
	b.log.Info().Str("username", user.Username).Msg("native login")
	return user, nil
}
