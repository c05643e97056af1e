package server

import (
	"context"
	"strings"
	"sync"
)

// UserDirectory is the boundary to the local account store. The real
// persistence layer lives outside this service; the in-memory directory
// below stands in for it in dev and tests.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// InMemoryDirectory holds user records seeded from configuration.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryDirectory builds the directory from configuration.
func NewInMemoryDirectory(cfgs []UserConfig) *InMemoryDirectory {
	users := make(map[string]*User, len(cfgs))
	for _, cfg := range cfgs {
		users[normalizeEmail(cfg.Email)] = &User{
			ID:    cfg.ID,
			Email: cfg.Email,
			Name:  cfg.Name,
		}
	}
	return &InMemoryDirectory{users: users}
}

// FindByEmail returns the user for email, or nil when unknown.
func (d *InMemoryDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[normalizeEmail(email)], nil
}

// Add registers a user record (used for dev helpers and tests).
func (d *InMemoryDirectory) Add(u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[normalizeEmail(u.Email)] = u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
