package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/persistence/memory"
	"github.com/skozubek/startsnap/internal/platform/events"
)

func TestActivityHandlerProjectsOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := domain.NewService(repo)
	logger, _ := test.NewNullLogger()
	handler := NewActivityHandler(svc, logger)

	payload, err := json.Marshal(events.FeedbackPosted{
		FeedbackID:  "fb-1",
		StartSnapID: "snap-1",
		UserID:      "fan",
		CreatorID:   "maker",
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	msg := Message{EventID: "evt-42", EventType: events.TypeFeedbackPosted, Payload: payload, Timestamp: time.Now()}
	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	given, _, err := svc.ListOwnActivity(ctx, "fan", nil, 0)
	require.NoError(t, err)
	require.Len(t, given, 1)
	require.Equal(t, domain.ActionFeedbackGiven, given[0].ActionType)

	received, _, err := svc.ListOwnActivity(ctx, "maker", nil, 0)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, domain.ActionFeedbackReceived, received[0].ActionType)
}

type failingRecorder struct{}

func (failingRecorder) RecordActivity(context.Context, string, string, []byte) (int, error) {
	return 0, errors.New("db down")
}

func TestActivityHandlerWrapsErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	err := NewActivityHandler(failingRecorder{}, logger).Handle(context.Background(), Message{EventID: "e", EventType: "tip.confirmed"})
	require.ErrorContains(t, err, "record activity for tip.confirmed e: db down")
}
