package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/persistence/postgres"
	"github.com/skozubek/startsnap/internal/platform/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)

	s.writes = append(s.writes, writtenBatch{
		topic:    topic,
		messages: copied,
	})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newTestDispatcher(producer messageWriter, registry schemaRegistrar) *Dispatcher {
	return NewDispatcher(nil, producer, registry, testLogger(), 10*time.Millisecond, 5)
}

func testMessage(eventID int64, eventType string) Message {
	meta, _ := postgres.RouteFor(eventType)
	return Message{
		EventID:       eventID,
		ActorID:       "user-1",
		AggregateType: "startsnap",
		AggregateID:   "snap-1",
		EventType:     eventType,
		Topic:         meta.Topic,
		SchemaSubject: meta.SchemaSubject,
		PartitionKey:  "snap-1",
		DedupeKey:     "evt-" + eventType,
		Payload:       json.RawMessage(`{"startsnap_id":"snap-1"}`),
	}
}

func headerMap(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestDeliverFramesPayloadAndSetsHeaders(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := newTestDispatcher(producer, registry)

	msg := testMessage(1, events.TypeStartSnapCreated)
	require.NoError(t, d.deliver(context.Background(), []Message{msg}))

	require.Len(t, producer.writes, 1)
	require.Equal(t, postgres.TopicStartSnapEvents, producer.writes[0].topic)
	record := producer.writes[0].messages[0]

	require.Equal(t, byte(0), record.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(record.Value[1:5]))
	require.JSONEq(t, string(msg.Payload), string(record.Value[5:]))
	require.Equal(t, "snap-1", string(record.Key))
	require.Equal(t, map[string]string{
		HeaderEventType:     events.TypeStartSnapCreated,
		HeaderEventID:       "evt-" + events.TypeStartSnapCreated,
		HeaderActorID:       "user-1",
		HeaderSchemaSubject: msg.SchemaSubject,
	}, headerMap(record))
}

func TestDeliverGroupsByTopicAndCachesSchemaIDs(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 7}
	d := newTestDispatcher(producer, registry)

	batch := []Message{
		testMessage(1, events.TypeStartSnapCreated),
		testMessage(2, events.TypeStartSnapUpdated),
		testMessage(3, events.TypeSupportToggled),
	}
	require.NoError(t, d.deliver(context.Background(), batch))
	require.NoError(t, d.deliver(context.Background(), batch[:1]))

	topics := map[string]int{}
	for _, w := range producer.writes {
		topics[w.topic] += len(w.messages)
	}
	require.Equal(t, map[string]int{postgres.TopicStartSnapEvents: 3, postgres.TopicEngagementEvents: 1}, topics)

	subjects := map[string]int{}
	for _, call := range registry.calls {
		subjects[call.subject]++
	}
	for subject, n := range subjects {
		require.Equal(t, 1, n, "schema for %s should be registered once", subject)
	}
}

func TestDeliverFailsOnUnknownEventAndRegistryErrors(t *testing.T) {
	producer := &stubProducer{}
	d := newTestDispatcher(producer, &stubRegistry{})

	err := d.deliver(context.Background(), []Message{{EventType: "startsnap.exploded", Topic: "x"}})
	require.ErrorContains(t, err, "no schema metadata for event_type=startsnap.exploded")
	require.Empty(t, producer.writes)

	d = newTestDispatcher(producer, &stubRegistry{err: errors.New("registry down")})
	require.ErrorContains(t, d.deliver(context.Background(), []Message{testMessage(1, events.TypeTipConfirmed)}), "registry down")
}

func TestMessageIDFallsBackToSequence(t *testing.T) {
	require.Equal(t, "abc", Message{EventID: 9, DedupeKey: "abc"}.ID())
	require.Equal(t, "outbox-9", Message{EventID: 9}.ID())
}

func TestSchemaCatalogCoversEveryRoutedEvent(t *testing.T) {
	for _, eventType := range []string{
		events.TypeStartSnapCreated, events.TypeStartSnapUpdated, events.TypeStartSnapDeleted,
		events.TypeVibeLogPosted, events.TypeFeedbackPosted, events.TypeSupportToggled,
		events.TypeTipConfirmed, events.TypeProfileUpdated, events.TypeWalletChanged,
	} {
		_, routed := postgres.RouteFor(eventType)
		require.True(t, routed, eventType)
		entry, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.True(t, json.Valid([]byte(entry.Schema)), eventType)
	}
}

func TestBackoffDelayIsExponentialAndCapped(t *testing.T) {
	m := &DLQManager{baseDelay: time.Minute}
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(10))
}
