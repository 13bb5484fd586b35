package model

import "time"

// EmailRecord is a message sent through the service. Records are written once and
// never updated.
type EmailRecord struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SpamScore int       `json:"spam_score"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}
