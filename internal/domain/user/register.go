package user

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Unknumb/SneakerStoreMobile/internal/validate"
)

// Registration is a sign-up request.
type Registration struct {
	Username        string `json:"username" validate:"notblank,min=3,nospaces"`
	Password        string `json:"password" validate:"min=6,hasdigit"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// Validate checks the registration rules. Failures are *validate.Error.
func (r Registration) Validate() error {
	return validate.Struct(r)
}

// Register validates r, hashes the password and stores the new user.
func Register(ctx context.Context, repo Repository, r Registration) (*User, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	u, err := New(r.Username, r.Password)
	if err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}
