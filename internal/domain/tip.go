package domain

import "time"

// Tip is a confirmed on-chain tip from a supporter to a StartSnap creator.
type Tip struct {
	ID               string
	StartSnapID      string
	SenderUserID     string
	RecipientUserID  string
	SenderAddress    string
	RecipientAddress string
	Currency         string
	// Amount is in the currency's base units.
	Amount         uint64
	TxID           string
	ConfirmedRound uint64
	IdempotencyKey string
	CreatedAt      time.Time
}
