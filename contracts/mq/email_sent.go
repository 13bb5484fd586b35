package mq

import "time"

// RoutingKeyEmailSent is published after a sent message has been stored.
const RoutingKeyEmailSent = "email.sent"

// EmailSentPayload is the body of an email.sent event. The message body is not
// included; consumers that need it read the stored record by EmailID.
type EmailSentPayload struct {
	EmailID   int       `json:"email_id"`
	UserID    int       `json:"user_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	SpamScore int       `json:"spam_score"`
	Delivered bool      `json:"delivered"`
	SentAt    time.Time `json:"sent_at"`
}
