package repository

import (
	"context"
	"time"

	"emailhub/internal/model"
)

type EmailRepository struct {
	db DBTX
}

func NewEmailRepository(db DBTX) *EmailRepository {
	return &EmailRepository{db: db}
}

// Insert stores e and fills in its ID. A zero CreatedAt is set to the current time.
func (r *EmailRepository) Insert(ctx context.Context, e *model.EmailRecord) error {
	defer observe("insert", "emails", time.Now())

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO emails (user_id, recipient, subject, body, spam_score, delivered, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query,
		e.UserID, e.Recipient, e.Subject, e.Body, e.SpamScore, e.Delivered, e.CreatedAt,
	).Scan(&e.ID)
	return translateError(err)
}

// ListForUser returns emails sent by userID or addressed to userEmail, newest first.
func (r *EmailRepository) ListForUser(ctx context.Context, userID int, userEmail string) ([]model.EmailRecord, error) {
	defer observe("list", "emails", time.Now())

	query := `
        SELECT id, user_id, recipient, subject, body, spam_score, delivered, created_at
        FROM emails
        WHERE user_id = $1 OR recipient = $2
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, userID, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.EmailRecord{}
	for rows.Next() {
		var e model.EmailRecord
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Recipient,
			&e.Subject,
			&e.Body,
			&e.SpamScore,
			&e.Delivered,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, rows.Err()
}
