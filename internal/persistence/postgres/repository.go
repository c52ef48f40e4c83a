// Package postgres implements the domain repository on top of pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/platform/events"
)

const uniqueViolation = "23505"

// Repository provides Postgres-backed persistence for StartSnap aggregates and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ domain.Repository = (*Repository)(nil)

// session carries the claims row level security evaluates. role is applied
// through request.jwt.claim.role.
type session struct {
	sub  string
	role string
}

func asUser(userID string) session {
	if userID == "" {
		return session{role: auth.RoleAnon}
	}
	return session{sub: userID, role: auth.RoleAuthenticated}
}

var (
	anonymous = session{role: auth.RoleAnon}
	service   = session{role: auth.RoleServiceRole}
)

// inTx runs fn in a transaction with the session claims applied. The transaction
// commits when fn returns nil.
func (r *Repository) inTx(ctx context.Context, s session, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		"SELECT set_config('request.jwt.claim.sub', $1, true), set_config('request.jwt.claim.role', $2, true)",
		s.sub, s.role,
	); err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

// Topics events are published to.
const (
	TopicStartSnapEvents  = "startsnap_events"
	TopicEngagementEvents = "engagement_events"
	TopicTipEvents        = "tip_events"
	TopicProfileEvents    = "profile_events"
)

var eventCatalog = map[string]EventMetadata{
	events.TypeStartSnapCreated: {Topic: TopicStartSnapEvents, SchemaSubject: "startsnap_events-startsnap_changed"},
	events.TypeStartSnapUpdated: {Topic: TopicStartSnapEvents, SchemaSubject: "startsnap_events-startsnap_changed"},
	events.TypeStartSnapDeleted: {Topic: TopicStartSnapEvents, SchemaSubject: "startsnap_events-startsnap_changed"},
	events.TypeVibeLogPosted:    {Topic: TopicStartSnapEvents, SchemaSubject: "startsnap_events-vibelog_posted"},
	events.TypeFeedbackPosted:   {Topic: TopicEngagementEvents, SchemaSubject: "engagement_events-feedback_posted"},
	events.TypeSupportToggled:   {Topic: TopicEngagementEvents, SchemaSubject: "engagement_events-support_toggled"},
	events.TypeTipConfirmed:     {Topic: TopicTipEvents, SchemaSubject: "tip_events-tip_confirmed"},
	events.TypeProfileUpdated:   {Topic: TopicProfileEvents, SchemaSubject: "profile_events-profile_updated"},
	events.TypeWalletChanged:    {Topic: TopicProfileEvents, SchemaSubject: "profile_events-wallet_changed"},
}

// RouteFor returns the topic and schema subject an event type is published under.
// Events without a route cannot be written to the outbox.
func RouteFor(eventType string) (EventMetadata, bool) {
	meta, ok := eventCatalog[eventType]
	return meta, ok
}

func insertOutbox(ctx context.Context, tx pgx.Tx, evts []domain.Event) error {
	const stmt = `INSERT INTO outbox (actor_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	for _, evt := range evts {
		meta, ok := RouteFor(evt.Type)
		if !ok {
			return fmt.Errorf("unknown event type: %s", evt.Type)
		}
		body, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, stmt,
			evt.ActorID,
			evt.AggregateType,
			evt.AggregateID,
			evt.Type,
			meta.Topic,
			meta.SchemaSubject,
			evt.PartitionKey,
			body,
			evt.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
