package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractmq "emailhub/contracts/mq"
	"emailhub/internal/dispatch"
	"emailhub/internal/model"
	"emailhub/internal/refine"
)

type fakeStore struct {
	inserted  []model.EmailRecord
	insertErr error
	list      []model.EmailRecord
	listArgs  []any
}

func (f *fakeStore) Insert(_ context.Context, e *model.EmailRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	e.ID = len(f.inserted) + 1
	f.inserted = append(f.inserted, *e)
	return nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID int, userEmail string) ([]model.EmailRecord, error) {
	f.listArgs = []any{userID, userEmail}
	return f.list, nil
}

type fakeDispatcher struct {
	result dispatch.Result
	err    error
	calls  int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _, _, _ string) (dispatch.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakePublisher struct {
	keys     []string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.keys = append(f.keys, routingKey)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func TestService_Send(t *testing.T) {
	store := &fakeStore{}
	d := &fakeDispatcher{result: dispatch.Result{Accepted: true, PreviewURL: "https://ethereal.email/message/x"}}
	pub := &fakePublisher{}
	svc := NewService(store, d, refine.NewRefiner(nil, zap.NewNop()), pub, zap.NewNop())

	res, err := svc.Send(context.Background(), 7, "bob@example.com", "Free offer", "Free offer")
	require.NoError(t, err)

	assert.Equal(t, &SendResult{SpamScore: 3, Delivered: true, PreviewURL: "https://ethereal.email/message/x"}, res)
	require.Len(t, store.inserted, 1)
	rec := store.inserted[0]
	assert.Equal(t, 7, rec.UserID)
	assert.Equal(t, "bob@example.com", rec.Recipient)
	assert.Equal(t, 3, rec.SpamScore)
	assert.True(t, rec.Delivered)
	assert.False(t, rec.CreatedAt.IsZero())

	require.Equal(t, []string{contractmq.RoutingKeyEmailSent}, pub.keys)
	payload := pub.payloads[0].(contractmq.EmailSentPayload)
	assert.Equal(t, 1, payload.EmailID)
	assert.Equal(t, 3, payload.SpamScore)
}

func TestService_SendNotAccepted(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeDispatcher{result: dispatch.Result{Accepted: false}}, nil, nil, zap.NewNop())

	res, err := svc.Send(context.Background(), 1, "bob@example.com", "Hi", "Body")
	require.NoError(t, err)

	assert.False(t, res.Delivered)
	require.Len(t, store.inserted, 1)
	assert.False(t, store.inserted[0].Delivered)
}

func TestService_SendDispatchFailureStoresNothing(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	dispatchErr := errors.New("dial tcp: connection refused")
	svc := NewService(store, &fakeDispatcher{err: dispatchErr}, nil, pub, zap.NewNop())

	_, err := svc.Send(context.Background(), 1, "bob@example.com", "Hi", "Body")

	assert.ErrorIs(t, err, dispatchErr)
	assert.Empty(t, store.inserted)
	assert.Empty(t, pub.keys)
}

func TestService_SendStoreFailure(t *testing.T) {
	storeErr := errors.New("insert failed")
	svc := NewService(&fakeStore{insertErr: storeErr}, &fakeDispatcher{result: dispatch.Result{Accepted: true}}, nil, nil, zap.NewNop())

	_, err := svc.Send(context.Background(), 1, "bob@example.com", "Hi", "Body")
	assert.ErrorIs(t, err, storeErr)
}

func TestService_SendPublishFailureIsIgnored(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("channel closed")}
	svc := NewService(store, &fakeDispatcher{result: dispatch.Result{Accepted: true}}, nil, pub, zap.NewNop())

	res, err := svc.Send(context.Background(), 1, "bob@example.com", "Hi", "Body")
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Len(t, store.inserted, 1)
}

func TestService_ListEmails(t *testing.T) {
	store := &fakeStore{list: []model.EmailRecord{{ID: 2}, {ID: 1}}}
	svc := NewService(store, nil, nil, nil, zap.NewNop())

	emails, err := svc.ListEmails(context.Background(), 3, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, []any{3, "alice@example.com"}, store.listArgs)
	assert.Len(t, emails, 2)
}

func TestService_ScoreAndRefine(t *testing.T) {
	svc := NewService(nil, nil, refine.NewRefiner(nil, zap.NewNop()), nil, zap.NewNop())

	assert.Equal(t, 4, svc.ScoreDraft("FREE CASH", ""))

	res := svc.RefineDraft(context.Background(), "Hello", "Meeting notes")
	assert.Equal(t, refine.Draft{Subject: "Hello", Body: "Meeting notes"}, res.Draft)
	assert.Equal(t, 0, res.SpamScore)
	assert.Equal(t, refine.ProviderHeuristic, res.Provider)
}
