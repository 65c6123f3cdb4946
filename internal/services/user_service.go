package services

import (
	"context"
	"errors"
	"strings"

	"github.com/tastyfund/backend/internal/auth"
	"github.com/tastyfund/backend/internal/models"
	repo "github.com/tastyfund/backend/internal/repository"
)

const minPasswordLen = 8

type UserService struct {
	r repo.Users
}

func NewUserService(r repo.Users) *UserService { return &UserService{r: r} }

// Register creates an investor or restaurant owner. Admin accounts are provisioned out of band.
func (s *UserService) Register(ctx context.Context, email, name, password string, role models.Role) (models.User, error) {
	u := models.User{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name), Role: role}
	if err := u.Validate(); err != nil {
		return models.User{}, &Error{Kind: InvalidInput, Msg: err.Error(), Err: err}
	}
	if u.Role == models.RoleAdmin {
		return models.User{}, newErr(InvalidInput, "role not allowed")
	}
	if len(password) < minPasswordLen {
		return models.User{}, newErr(InvalidInput, "password must be at least %d characters", minPasswordLen)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash
	out, err := s.r.Create(ctx, u)
	if errors.Is(err, repo.ErrDuplicate) {
		return models.User{}, &Error{Kind: Conflict, Msg: "user with this email already exists", Err: err}
	}
	if err != nil {
		return models.User{}, storage(err, "user not found")
	}
	return out, nil
}

var errBadCredentials = &Error{Kind: Unauthorized, Msg: "invalid credentials"}

// Authenticate checks an email/password pair. Unknown emails and wrong passwords fail alike.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, errBadCredentials
	}
	if err != nil {
		return models.User{}, storage(err, "user not found")
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, errBadCredentials
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	u, err := s.r.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storage(err, "user not found")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	out, err := s.r.List(ctx)
	if err != nil {
		return nil, storage(err, "user not found")
	}
	return out, nil
}
