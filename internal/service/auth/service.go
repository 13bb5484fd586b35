package auth

import (
	"context"
	"errors"
	"strings"

	"emailhub/internal/model"
	"emailhub/internal/repository"
	"emailhub/pkg/util"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
}

func NewService(users UserStore, jwtSecret string) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return u, nil
}

// Login checks user credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := util.VerifyPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, util.ErrPasswordMismatch) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	return util.GenerateJWT(u.ID, u.Email, s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
