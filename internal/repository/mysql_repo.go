package repository

import (
	"context"
	"time"

	"emailhub/internal/model"
)

type MySQLEmailRepository struct {
	db SQLDB
}

func NewMySQLEmailRepository(db SQLDB) *MySQLEmailRepository {
	return &MySQLEmailRepository{db: db}
}

func (r *MySQLEmailRepository) Insert(ctx context.Context, e *model.EmailRecord) error {
	defer observe("insert", "emails", time.Now())

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO emails (user_id, recipient, subject, body, spam_score, delivered, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.UserID, e.Recipient, e.Subject, e.Body, e.SpamScore, e.Delivered, e.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = int(id)
	return nil
}

func (r *MySQLEmailRepository) ListForUser(ctx context.Context, userID int, userEmail string) ([]model.EmailRecord, error) {
	defer observe("list", "emails", time.Now())

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, recipient, subject, body, spam_score, delivered, created_at FROM emails WHERE user_id = ? OR recipient = ? ORDER BY created_at DESC, id DESC",
		userID, userEmail,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.EmailRecord{}
	for rows.Next() {
		var e model.EmailRecord
		if err := rows.Scan(&e.ID, &e.UserID, &e.Recipient, &e.Subject, &e.Body, &e.SpamScore, &e.Delivered, &e.CreatedAt); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

type MySQLUserRepository struct {
	db SQLDB
}

func NewMySQLUserRepository(db SQLDB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func (r *MySQLUserRepository) CreateUser(ctx context.Context, u *model.User) error {
	defer observe("insert", "users", time.Now())

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)",
		u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

func (r *MySQLUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer observe("find", "users", time.Now())

	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}
