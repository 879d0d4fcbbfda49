package userrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/urbansims/microgreens/internal/domain/auth"
)

var errUserMissing = errors.New("user not found")

// MemoryRepository provides an in-memory user store for tests/dev.
type MemoryRepository struct {
	mu            sync.RWMutex
	users         map[int64]auth.User
	usernameIndex map[string]int64
	emailIndex    map[string]int64
	seq           int64
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:         make(map[int64]auth.User),
		usernameIndex: make(map[string]int64),
		emailIndex:    make(map[string]int64),
	}
}

// Create stores the user record.
func (r *MemoryRepository) Create(_ context.Context, user auth.User) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.usernameIndex[user.Username]; exists {
		return auth.User{}, auth.ErrUsernameExists
	}
	if _, exists := r.emailIndex[user.Email]; exists {
		return auth.User{}, auth.ErrEmailExists
	}
	r.seq++
	user.ID = r.seq
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	r.usernameIndex[user.Username] = user.ID
	r.emailIndex[user.Email] = user.ID
	return user, nil
}

// GetByUsername returns a user by login name.
func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.usernameIndex[username]; ok {
		return r.users[id], true, nil
	}
	return auth.User{}, false, nil
}

// GetByEmail returns a user by email.
func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.emailIndex[email]; ok {
		return r.users[id], true, nil
	}
	return auth.User{}, false, nil
}

// GetByID fetches by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return user, ok, nil
}

// UpdatePreferences stores the dashboard mode and default tray size.
func (r *MemoryRepository) UpdatePreferences(_ context.Context, id int64, mode, traySize string) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return auth.User{}, errUserMissing
	}
	user.PreferenceMode = mode
	user.DefaultTraySize = traySize
	r.users[id] = user
	return user, nil
}

var _ auth.Repository = (*MemoryRepository)(nil)
