package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skozubek/startsnap/internal/platform/events"
)

// Activity visibility levels.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Activity action types.
const (
	ActionStartSnapCreated = "startsnap_created"
	ActionStartSnapUpdated = "startsnap_updated"
	ActionStartSnapDeleted = "startsnap_deleted"
	ActionVibeLogPosted    = "vibelog_posted"
	ActionFeedbackGiven    = "feedback_given"
	ActionFeedbackReceived = "feedback_received"
	ActionSupportGiven     = "support_given"
	ActionSupportReceived  = "support_received"
	ActionSupportRemoved   = "support_removed"
	ActionTipSent          = "tip_sent"
	ActionTipReceived      = "tip_received"
	ActionProfileUpdated   = "profile_updated"
	ActionWalletConnected  = "wallet_connected"
	ActionWalletRemoved    = "wallet_removed"
)

// Activity log paging.
const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityLog is one entry of a user's activity feed.
type ActivityLog struct {
	ID         string
	EventKey   string
	UserID     string
	ActionType string
	TargetType string
	TargetID   string
	Visibility string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Cursor models the activity pagination token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ActivityQuery selects a page of a user's activity.
type ActivityQuery struct {
	UserID     string
	PublicOnly bool
	Cursor     *Cursor
	Limit      int
}

func clampActivityLimit(limit int) int {
	if limit <= 0 {
		return DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		return MaxActivityLimit
	}
	return limit
}

type activityBuilder struct {
	eventID string
	at      time.Time
	out     []ActivityLog
}

func (b *activityBuilder) add(userID, action, targetType, targetID, visibility string, meta map[string]any) {
	if userID == "" {
		return
	}
	key := fmt.Sprintf("%s:%s:%s", b.eventID, userID, action)
	b.out = append(b.out, ActivityLog{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		EventKey:   key,
		UserID:     userID,
		ActionType: action,
		TargetType: targetType,
		TargetID:   targetID,
		Visibility: visibility,
		Metadata:   meta,
		CreatedAt:  b.at,
	})
}

// ProjectActivity turns a published event into the activity log rows it implies.
// Rows carry deterministic ids and event keys so replays are idempotent.
// Unknown event types project to nothing.
func ProjectActivity(eventID, eventType string, payload []byte) ([]ActivityLog, error) {
	decode := func(dst any) error {
		if err := json.Unmarshal(payload, dst); err != nil {
			return fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return nil
	}
	b := &activityBuilder{eventID: eventID}

	switch eventType {
	case events.TypeStartSnapCreated, events.TypeStartSnapUpdated, events.TypeStartSnapDeleted:
		var evt events.StartSnapChanged
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		meta := map[string]any{"name": evt.Name, "category": evt.Category}
		switch eventType {
		case events.TypeStartSnapCreated:
			b.add(evt.UserID, ActionStartSnapCreated, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
		case events.TypeStartSnapUpdated:
			b.add(evt.UserID, ActionStartSnapUpdated, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
		default:
			b.add(evt.UserID, ActionStartSnapDeleted, AggregateStartSnap, evt.StartSnapID, VisibilityPrivate, meta)
		}
	case events.TypeVibeLogPosted:
		var evt events.VibeLogPosted
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		b.add(evt.UserID, ActionVibeLogPosted, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, map[string]any{
			"vibelog_id": evt.VibeLogID,
			"log_type":   evt.LogType,
			"title":      evt.Title,
		})
	case events.TypeFeedbackPosted:
		var evt events.FeedbackPosted
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		meta := map[string]any{"feedback_id": evt.FeedbackID}
		b.add(evt.UserID, ActionFeedbackGiven, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
		if evt.CreatorID != evt.UserID {
			b.add(evt.CreatorID, ActionFeedbackReceived, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
		}
	case events.TypeSupportToggled:
		var evt events.SupportToggled
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		meta := map[string]any{"support_count": evt.SupportCount}
		if evt.Supported {
			b.add(evt.UserID, ActionSupportGiven, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
			b.add(evt.CreatorID, ActionSupportReceived, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, map[string]any{
				"support_count": evt.SupportCount,
				"supporter_id":  evt.UserID,
			})
		} else {
			b.add(evt.UserID, ActionSupportRemoved, AggregateStartSnap, evt.StartSnapID, VisibilityPrivate, meta)
		}
	case events.TypeTipConfirmed:
		var evt events.TipConfirmed
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		meta := map[string]any{
			"tip_id":          evt.TipID,
			"currency":        evt.Currency,
			"amount":          evt.Amount,
			"tx_id":           evt.TxID,
			"confirmed_round": evt.ConfirmedRound,
		}
		b.add(evt.SenderUserID, ActionTipSent, AggregateStartSnap, evt.StartSnapID, VisibilityPrivate, meta)
		b.add(evt.RecipientUserID, ActionTipReceived, AggregateStartSnap, evt.StartSnapID, VisibilityPublic, meta)
	case events.TypeProfileUpdated:
		var evt events.ProfileUpdated
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		b.add(evt.UserID, ActionProfileUpdated, AggregateProfile, evt.UserID, VisibilityPrivate, map[string]any{"username": evt.Username})
	case events.TypeWalletChanged:
		var evt events.WalletChanged
		if err := decode(&evt); err != nil {
			return nil, err
		}
		b.at = evt.OccurredAt
		action := ActionWalletRemoved
		if evt.Connected {
			action = ActionWalletConnected
		}
		b.add(evt.UserID, action, AggregateProfile, evt.UserID, VisibilityPrivate, nil)
	default:
		return nil, nil
	}

	if b.at.IsZero() {
		b.at = time.Now().UTC()
		for i := range b.out {
			b.out[i].CreatedAt = b.at
		}
	}
	return b.out, nil
}
