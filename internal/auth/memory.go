package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory UserRepository for tests and local runs
// without Postgres.
type MemoryRepository struct {
	mu     sync.Mutex
	users  map[string]*PlatformUser // keyed by username
	groups map[string]map[string]bool // group name -> set of user IDs
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:  make(map[string]*PlatformUser),
		groups: make(map[string]map[string]bool),
	}
}

func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*PlatformUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpsertUser(_ context.Context, u PlatformUser) (*PlatformUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.Username]; ok {
		cp := *existing
		return &cp, nil
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	stored := u
	r.users[u.Username] = &stored
	cp := u
	return &cp, nil
}

func (r *MemoryRepository) EnsureGroup(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[name]; !ok {
		r.groups[name] = make(map[string]bool)
	}
	return nil
}

func (r *MemoryRepository) GroupsOf(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, members := range r.groups {
		if members[userID] {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *MemoryRepository) SetRoleGroup(_ context.Context, userID, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range []string{GroupStudents, GroupTutors} {
		if members, ok := r.groups[role]; ok {
			delete(members, userID)
		}
	}
	if _, ok := r.groups[group]; !ok {
		r.groups[group] = make(map[string]bool)
	}
	r.groups[group][userID] = true
	return nil
}

func (r *MemoryRepository) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == userID {
			t := at
			u.LastLogin = &t
			return nil
		}
	}
	return nil
}

// AddNativeUser registers an admin/staff account with a native password.
func (r *MemoryRepository) AddNativeUser(username, password string, staff, superuser bool) (*PlatformUser, error) {
	hash, err := HashPassport(password)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &PlatformUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsStaff:      staff,
		IsSuperuser:  superuser,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[username] = u
	cp := *u
	return &cp, nil
}
