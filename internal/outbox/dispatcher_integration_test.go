//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/skozubek/startsnap/internal/migrations"
	"github.com/skozubek/startsnap/internal/persistence/postgres"
	"github.com/skozubek/startsnap/internal/platform/events"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), events.TypeStartSnapCreated))

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := newIntegrationDispatcher(pool, producer, registry)

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, postgres.TopicStartSnapEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	require.InDelta(t, beforeDelivered+1, testutil.ToFloat64(deliveredCounter), 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherRoutesMessagesToDLQOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	actorID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, actorID, events.TypeSupportToggled))

	producer := &stubProducer{err: errors.New("kafka write failed")}
	dispatcher := newIntegrationDispatcher(pool, producer, &stubRegistry{id: 7})

	beforeFailed := testutil.ToFloat64(failedCounter)
	beforeDLQ := testutil.ToFloat64(dlqCounter.WithLabelValues(postgres.TopicEngagementEvents))

	require.NoError(t, dispatcher.processBatch(ctx))

	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failedCounter), 0.0001)
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlqCounter.WithLabelValues(postgres.TopicEngagementEvents)), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE actor_id = $1 AND dedupe_key IS NOT NULL`, actorID).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherUnknownSchemaMovesEventsToDLQ(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	eventID := seedOutbox(t, ctx, pool, uuid.NewString(), "startsnap.unknown")
	require.NotZero(t, eventID)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 99}
	dispatcher := newIntegrationDispatcher(pool, producer, registry)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Empty(t, producer.writes, "unknown schema should skip kafka writes")
	require.Empty(t, registry.calls, "schema registry should not be invoked when metadata missing")

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&reason))
	require.Contains(t, reason, "no schema metadata for event_type=startsnap.unknown")
}

func TestDLQManagerRequeuesWithStableEventIDThenQuarantines(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	eventID := seedOutbox(t, ctx, pool, uuid.NewString(), events.TypeTipConfirmed)
	failing := newIntegrationDispatcher(pool, &stubProducer{err: errors.New("broker unavailable")}, &stubRegistry{id: 3})
	require.NoError(t, failing.processBatch(ctx))

	manager := NewDLQManager(pool, testLogger(), 1, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	var outboxRows int
	var publishedAt *time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*), MAX(published_at) FROM outbox`).Scan(&outboxRows, &publishedAt))
	require.Equal(t, 1, outboxRows, "requeue should reuse the original row")
	require.Nil(t, publishedAt)

	producer := &stubProducer{}
	require.NoError(t, newIntegrationDispatcher(pool, producer, &stubRegistry{id: 3}).processBatch(ctx))
	require.Len(t, producer.writes, 1)
	require.Equal(t, dedupeKeyFor(eventID), headerMap(producer.writes[0].messages[0])[HeaderEventID])

	_, err = pool.Exec(ctx,
		`INSERT INTO outbox_dlq (actor_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count)
         VALUES ('u', 1, 'tip.confirmed', 'tip_events', '{}', 'boom', 'tip', 'a', 's', 'k', 5)`)
	require.NoError(t, err)
	_, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
}

func newIntegrationDispatcher(pool *pgxpool.Pool, producer messageWriter, registry schemaRegistrar) *Dispatcher {
	return NewDispatcher(pool, producer, registry, testLogger(), 10*time.Millisecond, 5)
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("startsnap"),
		postgrescontainer.WithUsername("startsnap"),
		postgrescontainer.WithPassword("startsnap"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	require.NoError(t, migrations.Apply(ctx, db))
	require.NoError(t, db.Close())
	return pool
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

func dedupeKeyFor(eventID int64) string {
	return fmt.Sprintf("seed-%d", eventID)
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, actorID, eventType string) int64 {
	t.Helper()

	aggregateID := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"startsnap_id": aggregateID,
		"user_id":      actorID,
	})
	require.NoError(t, err)

	topic, subject := postgres.TopicStartSnapEvents, "startsnap_events-unknown"
	if meta, ok := postgres.RouteFor(eventType); ok {
		topic, subject = meta.Topic, meta.SchemaSubject
	}

	var eventID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO outbox (actor_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         RETURNING event_id`,
		actorID, "startsnap", aggregateID, eventType, topic, subject, aggregateID, payload,
	).Scan(&eventID))

	_, err = pool.Exec(ctx, `UPDATE outbox SET dedupe_key = $1 WHERE event_id = $2`, dedupeKeyFor(eventID), eventID)
	require.NoError(t, err)
	return eventID
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
