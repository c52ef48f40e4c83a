package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func framed(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"startsnap_id":"abc"}`)
	msg := kafka.Message{
		Topic:     "startsnap_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("startsnap.created")},
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "actor_id", Value: []byte("user-1")},
			{Key: "schema_subject", Value: []byte("startsnap_events-startsnap_changed")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	before := testutil.ToFloat64(processedCounter.WithLabelValues("startsnap_events", "startsnap.created"))

	logger, _ := test.NewNullLogger()
	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "startsnap.created", handler.last.EventType)
	require.Equal(t, "evt-1", handler.last.EventID)
	require.Equal(t, "user-1", handler.last.ActorID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
	require.Equal(t, before+1, testutil.ToFloat64(processedCounter.WithLabelValues("startsnap_events", "startsnap.created")))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "engagement_events",
		Offset: 20,
		Time:   time.Now().UTC(),
		Value:  framed(99, []byte(`{"startsnap_id":"def"}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("support.toggled")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	logger, hook := test.NewNullLogger()
	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, "engagement_events/0/20", handler.last.EventID, "event id falls back to the record position")
	require.Equal(t, "handler failed", hook.LastEntry().Message)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "tip_events", Value: []byte{0, 1}},
			{Topic: "tip_events", Value: framed(1, []byte(`{}`))},
			{Topic: "tip_events", Value: append([]byte{9}, framed(1, []byte(`{}`))[1:]...), Headers: []kafka.Header{{Key: "event_type", Value: []byte("tip.confirmed")}}},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("tip_events"))

	logger, _ := test.NewNullLogger()
	require.ErrorIs(t, NewProcessor(reader, handler, WithLogger(logger)).Run(ctx), context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	require.Equal(t, before+3, testutil.ToFloat64(decodeErrorCounter.WithLabelValues("tip_events")))
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
