package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository is a map-backed user.Repository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]user.User
	now   func() time.Time
}

// NewUserRepository returns an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]user.User),
		now:   time.Now,
	}
}

// FindByUsername returns a copy of the stored user.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// Create stores u, setting CreatedAt when zero.
func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Username]; ok {
		return user.ErrUserExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	r.users[u.Username] = *u
	return nil
}
