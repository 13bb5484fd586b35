package email

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	contractmq "emailhub/contracts/mq"
	"emailhub/internal/dispatch"
	"emailhub/internal/model"
	"emailhub/internal/refine"
	"emailhub/internal/spam"
	"emailhub/pkg/logger"
	"emailhub/pkg/metrics"
)

type EmailStore interface {
	Insert(ctx context.Context, e *model.EmailRecord) error
	ListForUser(ctx context.Context, userID int, userEmail string) ([]model.EmailRecord, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, recipient, subject, body string) (dispatch.Result, error)
}

type Refiner interface {
	Refine(ctx context.Context, subject, body string) refine.Result
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type SendResult struct {
	SpamScore  int
	Delivered  bool
	PreviewURL string
}

type Service struct {
	store      EmailStore
	dispatcher Dispatcher
	refiner    Refiner
	publisher  EventPublisher
	logger     *zap.Logger
}

// NewService wires the email operations. publisher may be nil, in which case no
// events are emitted.
func NewService(store EmailStore, dispatcher Dispatcher, refiner Refiner, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		refiner:    refiner,
		publisher:  publisher,
		logger:     logger,
	}
}

// Send scores the message, dispatches it and stores the outcome. Nothing is stored
// when dispatch fails.
func (s *Service) Send(ctx context.Context, userID int, recipient, subject, body string) (*SendResult, error) {
	score := spam.Score(subject, body)
	metrics.ObserveSpamScore("send", score)

	res, err := s.dispatcher.Dispatch(ctx, recipient, subject, body)
	if err != nil {
		return nil, fmt.Errorf("dispatch email: %w", err)
	}

	record := &model.EmailRecord{
		UserID:    userID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		SpamScore: score,
		Delivered: res.Accepted,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("store email: %w", err)
	}

	s.publishSent(ctx, record)

	return &SendResult{
		SpamScore:  score,
		Delivered:  res.Accepted,
		PreviewURL: res.PreviewURL,
	}, nil
}

func (s *Service) publishSent(ctx context.Context, record *model.EmailRecord) {
	if s.publisher == nil {
		return
	}

	payload := contractmq.EmailSentPayload{
		EmailID:   record.ID,
		UserID:    record.UserID,
		Recipient: record.Recipient,
		Subject:   record.Subject,
		SpamScore: record.SpamScore,
		Delivered: record.Delivered,
		SentAt:    record.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, contractmq.RoutingKeyEmailSent, payload); err != nil {
		metrics.IncrementEventPublish(contractmq.RoutingKeyEmailSent, "error")
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", contractmq.RoutingKeyEmailSent),
			zap.Int("email_id", record.ID),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementEventPublish(contractmq.RoutingKeyEmailSent, "ok")
}

// ListEmails returns what userID sent plus what was addressed to userEmail.
func (s *Service) ListEmails(ctx context.Context, userID int, userEmail string) ([]model.EmailRecord, error) {
	return s.store.ListForUser(ctx, userID, userEmail)
}

func (s *Service) ScoreDraft(subject, body string) int {
	score := spam.Score(subject, body)
	metrics.ObserveSpamScore("score", score)
	return score
}

func (s *Service) RefineDraft(ctx context.Context, subject, body string) refine.Result {
	res := s.refiner.Refine(ctx, subject, body)
	metrics.ObserveSpamScore("refine", res.SpamScore)
	return res
}
