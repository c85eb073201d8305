package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned by Repository.FindByUsername for unknown users.
	ErrNotFound = errors.New("user not found")
	// ErrUserExists is returned by Repository.Create for a taken username.
	ErrUserExists = errors.New("username already taken")
	// ErrInvalidCredentials is returned when a username/password pair does
	// not match a stored credential.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrLoginRequired is returned by operations that need an active session.
	ErrLoginRequired = errors.New("login required")
)

// User is a stored credential record.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository persists credential records.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// NormalizeUsername returns the canonical form of a username as stored and
// looked up.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// New returns a User for username with a bcrypt hash of password.
func New(username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return &User{
		Username:     NormalizeUsername(username),
		PasswordHash: string(hash),
	}, nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Authenticate looks up username and verifies password. Any mismatch,
// including an unknown username, yields ErrInvalidCredentials.
func Authenticate(ctx context.Context, repo Repository, username, password string) (*User, error) {
	u, err := repo.FindByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
