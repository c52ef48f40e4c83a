package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/skozubek/startsnap/internal/platform/events"
)

// Aggregate types recorded with outbox events.
const (
	AggregateStartSnap = "startsnap"
	AggregateProfile   = "profile"
	AggregateTip       = "tip"
)

// Event is a domain event persisted in the same transaction as the change it describes.
type Event struct {
	ID            string
	Type          string
	AggregateType string
	AggregateID   string
	ActorID       string
	PartitionKey  string
	Payload       any
	OccurredAt    time.Time
}

func newEvent(eventType, aggregateType, aggregateID, actorID string, payload any, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		ActorID:       actorID,
		PartitionKey:  aggregateID,
		Payload:       payload,
		OccurredAt:    at,
	}
}

func startSnapEvent(eventType string, s StartSnap, at time.Time) Event {
	return newEvent(eventType, AggregateStartSnap, s.ID, s.UserID, events.StartSnapChanged{
		StartSnapID: s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		Category:    s.Category,
		OccurredAt:  at,
	}, at)
}

// SupportToggledEvent builds the event recorded alongside a support toggle.
func SupportToggledEvent(snap StartSnap, userID string, result SupportResult, at time.Time) Event {
	return newEvent(events.TypeSupportToggled, AggregateStartSnap, snap.ID, userID, events.SupportToggled{
		StartSnapID:  snap.ID,
		UserID:       userID,
		CreatorID:    snap.UserID,
		Supported:    result.Supported,
		SupportCount: result.SupportCount,
		OccurredAt:   at,
	}, at)
}

// TipConfirmedEvent builds the event recorded alongside a confirmed tip.
func TipConfirmedEvent(t Tip) Event {
	evt := newEvent(events.TypeTipConfirmed, AggregateTip, t.ID, t.SenderUserID, events.TipConfirmed{
		TipID:            t.ID,
		StartSnapID:      t.StartSnapID,
		SenderUserID:     t.SenderUserID,
		RecipientUserID:  t.RecipientUserID,
		SenderAddress:    t.SenderAddress,
		RecipientAddress: t.RecipientAddress,
		Currency:         t.Currency,
		Amount:           t.Amount,
		TxID:             t.TxID,
		ConfirmedRound:   t.ConfirmedRound,
		OccurredAt:       t.CreatedAt,
	}, t.CreatedAt)
	evt.PartitionKey = t.RecipientUserID
	return evt
}
