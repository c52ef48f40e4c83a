// Package events defines the event payloads StartSnap publishes through the outbox.
package events

import "time"

// Event types routed through the outbox.
const (
	TypeStartSnapCreated = "startsnap.created"
	TypeStartSnapUpdated = "startsnap.updated"
	TypeStartSnapDeleted = "startsnap.deleted"
	TypeVibeLogPosted    = "vibelog.posted"
	TypeFeedbackPosted   = "feedback.posted"
	TypeSupportToggled   = "support.toggled"
	TypeTipConfirmed     = "tip.confirmed"
	TypeProfileUpdated   = "profile.updated"
	TypeWalletChanged    = "wallet.changed"
)

// StartSnapChanged is emitted when a StartSnap is created, updated, or deleted.
type StartSnapChanged struct {
	StartSnapID string    `json:"startsnap_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// VibeLogPosted is emitted when the owner adds a vibe log entry.
type VibeLogPosted struct {
	VibeLogID   string    `json:"vibelog_id"`
	StartSnapID string    `json:"startsnap_id"`
	UserID      string    `json:"user_id"`
	LogType     string    `json:"log_type"`
	Title       string    `json:"title"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FeedbackPosted is emitted when a user leaves feedback on a StartSnap.
type FeedbackPosted struct {
	FeedbackID  string    `json:"feedback_id"`
	StartSnapID string    `json:"startsnap_id"`
	UserID      string    `json:"user_id"`
	CreatorID   string    `json:"creator_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SupportToggled tracks support on/off transitions.
type SupportToggled struct {
	StartSnapID  string    `json:"startsnap_id"`
	UserID       string    `json:"user_id"`
	CreatorID    string    `json:"creator_id"`
	Supported    bool      `json:"supported"`
	SupportCount int       `json:"support_count"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TipConfirmed is emitted after an on-chain tip reaches a confirmed round.
type TipConfirmed struct {
	TipID            string    `json:"tip_id"`
	StartSnapID      string    `json:"startsnap_id"`
	SenderUserID     string    `json:"sender_user_id"`
	RecipientUserID  string    `json:"recipient_user_id"`
	SenderAddress    string    `json:"sender_address"`
	RecipientAddress string    `json:"recipient_address"`
	Currency         string    `json:"currency"`
	Amount           uint64    `json:"amount"`
	TxID             string    `json:"tx_id"`
	ConfirmedRound   uint64    `json:"confirmed_round"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ProfileUpdated is emitted when a profile is created or edited.
type ProfileUpdated struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WalletChanged is emitted when a wallet address is connected, changed, or removed.
type WalletChanged struct {
	UserID     string    `json:"user_id"`
	Connected  bool      `json:"connected"`
	OccurredAt time.Time `json:"occurred_at"`
}
