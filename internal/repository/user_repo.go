package repository

import (
	"context"
	"time"

	"emailhub/internal/model"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts u and fills in its ID. ErrDuplicateEmail is returned when the
// address is taken.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	defer observe("insert", "users", time.Now())

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO users (email, password_hash, created_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID)
	return translateError(err)
}

// FindByEmail returns ErrNotFound when no user has the address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer observe("find", "users", time.Now())

	query := `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}
