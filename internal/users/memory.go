package users

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps users in process memory. It backs development setups
// without a users table and unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository seeds the repository with the given users.
func NewMemoryRepository(seed ...User) *MemoryRepository {
	repo := &MemoryRepository{users: make(map[string]User, len(seed))}
	for _, u := range seed {
		repo.users[u.ID] = u
	}
	return repo
}

// ListUsers returns all users sorted by name.
func (r *MemoryRepository) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetUser returns a user by id.
func (r *MemoryRepository) GetUser(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UpsertUser stores the user.
func (r *MemoryRepository) UpsertUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

// DemoUsers is the fixed set of accounts used by the seed script and the
// fallback procurement dataset.
func DemoUsers() []User {
	return []User{
		{ID: "u-admin-1", Name: "Ava Admin", Email: "admin@procuredesk.local", Role: RoleAdmin},
		{ID: "u-buyer-1", Name: "Ben Buyer", Email: "ben.buyer@procuredesk.local", Role: RoleBuyer},
		{ID: "u-buyer-2", Name: "Bianca Buyer", Email: "bianca.buyer@procuredesk.local", Role: RoleBuyer},
		{ID: "u-client-1", Name: "Carl Client", Email: "carl@client.example", Role: RoleClient},
		{ID: "u-client-2", Name: "Cora Client", Email: "cora@client.example", Role: RoleClient},
	}
}
