package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeDirectory map[string]*Entity

func (d fakeDirectory) FindByIdentifier(_ context.Context, identifier string) (*Entity, error) {
	if e, ok := d[identifier]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func newTestBackend(t *testing.T) (*Backend, *MemoryRepository) {
	t.Helper()
	hash, err := HashPassport("Secure123")
	if err != nil {
		t.Fatal(err)
	}
	students := fakeDirectory{
		"T001": {Identifier: "T001", FirstName: "Aisha", LastName: "Karimova", Email: "aisha@example.com", PassportHash: hash},
		"T002": {Identifier: "T002", FirstName: "No", LastName: "Credential"},
	}
	tutors := fakeDirectory{
		"T001": {Identifier: "T001", FirstName: "Tutor", LastName: "Sameid", PassportHash: hash},
	}
	users := NewMemoryRepository()
	return NewBackend(users, students, tutors, zerolog.Nop()), users
}

func TestAuthenticateProvisionsUser(t *testing.T) {
	b, users := newTestBackend(t)
	ctx := context.Background()

	user, err := b.Authenticate(ctx, "T001", "Secure123", RoleStudent)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Username != "student_T001" {
		t.Errorf("username = %q, want student_T001", user.Username)
	}
	if user.FirstName != "Aisha" || user.LastName != "Karimova" {
		t.Errorf("display names not copied from the roster entity: %+v", user)
	}
	if user.LastLogin == nil {
		t.Error("last login not recorded on the returned user")
	}

	groups, err := users.GroupsOf(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0] != GroupStudents {
		t.Errorf("groups = %v, want [Students]", groups)
	}
}

func TestAuthenticateIdempotent(t *testing.T) {
	b, users := newTestBackend(t)
	ctx := context.Background()

	first, err := b.Authenticate(ctx, "T001", "Secure123", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Authenticate(ctx, "T001", "Secure123", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("repeated login created a second user: %q vs %q", first.ID, second.ID)
	}
	groups, _ := users.GroupsOf(ctx, second.ID)
	if len(groups) != 1 {
		t.Errorf("expected exactly one role group after repeat login, got %v", groups)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		passport   string
		claimed    Role
	}{
		{"wrong passport", "T001", "WrongPass", RoleStudent},
		{"unknown identifier", "T999", "Secure123", RoleStudent},
		{"entity without credential", "T002", "", RoleStudent},
		{"admin claim rejected", "T001", "Secure123", RoleAdmin},
		{"anonymous claim rejected", "T001", "Secure123", RoleAnonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Authenticate(ctx, tt.identifier, tt.passport, tt.claimed); !errors.Is(err, ErrAuthFailed) {
				t.Errorf("err = %v, want ErrAuthFailed", err)
			}
		})
	}
}

func TestAuthenticateRoleNamespaces(t *testing.T) {
	// The same raw identifier can exist as both a student and a tutor and
	// maps to two distinct platform users.
	b, _ := newTestBackend(t)
	ctx := context.Background()

	student, err := b.Authenticate(ctx, "T001", "Secure123", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	tutor, err := b.Authenticate(ctx, "T001", "Secure123", RoleTutor)
	if err != nil {
		t.Fatal(err)
	}
	if student.ID == tutor.ID {
		t.Error("student and tutor identities collapsed into one user")
	}
	if tutor.Username != "tutor_T001" {
		t.Errorf("tutor username = %q, want tutor_T001", tutor.Username)
	}
}

func TestLoginNativeFirst(t *testing.T) {
	b, users := newTestBackend(t)
	ctx := context.Background()
	if _, err := users.AddNativeUser("admin", "hunter22", true, true); err != nil {
		t.Fatal(err)
	}

	user, err := b.Login(ctx, "admin", "hunter22", RoleAdmin)
	if err != nil {
		t.Fatalf("native login: %v", err)
	}
	if !user.IsStaff {
		t.Error("expected the staff account back")
	}
	if user.LastLogin == nil {
		t.Error("last login not recorded")
	}

	if _, err := b.Login(ctx, "admin", "wrong", RoleAdmin); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong password: err = %v, want ErrAuthFailed", err)
	}
}

func TestLoginFallsBackToPassport(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	user, err := b.Login(ctx, "T001", "Secure123", RoleStudent)
	if err != nil {
		t.Fatalf("passport fallback: %v", err)
	}
	if user.Username != "student_T001" {
		t.Errorf("username = %q, want student_T001", user.Username)
	}

	// An admin claim never reaches the passport backend.
	if _, err := b.Login(ctx, "T001", "Secure123", RoleAdmin); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("admin claim: err = %v, want ErrAuthFailed", err)
	}
}
