package tipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/cache"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

// Tip outcomes recorded in metrics.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
)

// Options tunes submission behaviour.
type Options struct {
	ConfirmationRounds uint64
	SubmitTimeout      time.Duration
}

// Service quotes, prepares and submits tips. It never holds keys: wallets sign client side.
type Service struct {
	repo    domain.Repository
	node    algorand.Node
	cache   cache.Invalidator
	logger  logrus.FieldLogger
	opts    Options
	now     func() time.Time
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewService constructs a tipping Service. A nil invalidator disables cache invalidation.
func NewService(repo domain.Repository, node algorand.Node, invalidator cache.Invalidator, logger logrus.FieldLogger, opts Options) *Service {
	if invalidator == nil {
		invalidator = cache.NoopCache{}
	}
	if opts.ConfirmationRounds == 0 {
		opts.ConfirmationRounds = 10
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 60 * time.Second
	}
	return &Service{
		repo:    repo,
		node:    node,
		cache:   invalidator,
		logger:  logger.WithField("component", "tipping"),
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		pending: make(map[string]struct{}),
	}
}

// QuoteRequest identifies the tip being priced.
type QuoteRequest struct {
	StartSnapID   string
	Currency      string
	SenderAddress string
}

// Preset is a predefined tip amount and whether the sender can afford it.
type Preset struct {
	Amount  uint64
	Enabled bool
}

// Quote describes what the sender may tip.
type Quote struct {
	Currency         algorand.Currency
	StartSnapID      string
	SenderAddress    string
	RecipientAddress string
	Min              uint64
	Available        uint64
	Fee              uint64
	Presets          []Preset
}

// Quote resolves the creator's wallet and the sender's spendable balance.
func (s *Service) Quote(ctx context.Context, userID string, req QuoteRequest) (*Quote, error) {
	q, _, err := s.quote(ctx, userID, req)
	return q, err
}

// PrepareRequest carries the chosen amount as a decimal string.
type PrepareRequest struct {
	QuoteRequest
	Amount string
}

// Prepared is an unsigned transaction for the wallet to sign.
type Prepared struct {
	Quote    Quote
	Amount   uint64
	Unsigned algorand.Unsigned
}

// Prepare validates the amount and builds the transfer for signing.
func (s *Service) Prepare(ctx context.Context, userID string, req PrepareRequest) (*Prepared, error) {
	q, snap, err := s.quote(ctx, userID, req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	amount, err := q.Currency.Parse(req.Amount)
	if err != nil {
		return nil, domain.FieldError("amount", "must be a positive decimal amount")
	}
	if amount < q.Min {
		return nil, domain.FieldError("amount", fmt.Sprintf("minimum tip is %s %s", q.Currency.Format(q.Min), q.Currency.Code))
	}
	if amount > q.Available {
		return nil, algorand.Wrap(algorand.KindInsufficientFunds,
			fmt.Errorf("amount %s exceeds available %s", q.Currency.Format(amount), q.Currency.Format(q.Available)))
	}

	params, err := s.node.SuggestedParams(ctx)
	if err != nil {
		return nil, algorand.Wrap(algorand.Classify(err), err)
	}
	tx, err := algorand.BuildTransfer(algorand.Transfer{
		Currency: q.Currency,
		From:     q.SenderAddress,
		To:       q.RecipientAddress,
		Amount:   amount,
		Note:     tipNote(snap.ID),
	}, params)
	if err != nil {
		return nil, err
	}
	return &Prepared{Quote: *q, Amount: amount, Unsigned: algorand.EncodeUnsigned(tx)}, nil
}

// SubmitRequest carries a wallet-signed transaction.
type SubmitRequest struct {
	StartSnapID       string
	Currency          string
	SignedTransaction string
	IdempotencyKey    string
}

// Receipt reports a confirmed tip. Recorded is false when the chain confirmed
// the transfer but persisting the tip row failed.
type Receipt struct {
	Tip      domain.Tip
	Recorded bool
	Replayed bool
}

// Submit sends a signed tip, waits for confirmation, and records it.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (*Receipt, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindTipByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
		if existing != nil {
			return s.replay(*existing), nil
		}
	}

	currency, ok := algorand.LookupCurrency(req.Currency)
	if !ok {
		return nil, domain.FieldError("currency", "unsupported currency")
	}
	signed, err := algorand.DecodeSigned(req.SignedTransaction)
	if err != nil {
		return nil, domain.FieldError("signed_transaction", err.Error())
	}
	if existing, err := s.repo.FindTipByTxID(ctx, signed.TxID); err != nil {
		return nil, fmt.Errorf("lookup tip by txid: %w", err)
	} else if existing != nil {
		if existing.SenderUserID != userID {
			return nil, domain.ErrTipExists
		}
		return s.replay(*existing), nil
	}

	snap, recipient, err := s.recipient(ctx, userID, req.StartSnapID)
	if err != nil {
		return nil, err
	}
	sender := signed.Txn.Txn.Sender.String()
	amount := transferAmount(signed, currency)
	if amount < currency.MinAmount {
		return nil, domain.FieldError("amount", fmt.Sprintf("minimum tip is %s %s", currency.Format(currency.MinAmount), currency.Code))
	}
	if err := signed.Verify(algorand.Transfer{Currency: currency, From: sender, To: recipient.WalletAddress, Amount: amount}); err != nil {
		return nil, domain.FieldError("signed_transaction", err.Error())
	}

	if !s.acquire(sender) {
		return nil, domain.ErrTipInFlight
	}
	defer s.release(sender)

	log := s.logger.WithFields(logrus.Fields{
		"startsnap_id": snap.ID,
		"sender":       sender,
		"currency":     currency.Code,
		"tx_id":        signed.TxID,
	})

	submitCtx, cancel := context.WithTimeout(ctx, s.opts.SubmitTimeout)
	defer cancel()

	started := time.Now()
	if _, err := s.node.SendRawTransaction(submitCtx, signed.Raw); err != nil {
		return nil, s.reject(log, currency, err)
	}
	round, err := s.node.WaitForConfirmation(submitCtx, signed.TxID, s.opts.ConfirmationRounds)
	if err != nil {
		return nil, s.reject(log, currency, err)
	}
	observability.ObserveTipConfirmation(time.Since(started))
	observability.RecordTipOutcome(currency.Code, OutcomeConfirmed)

	tip := domain.Tip{
		ID:               uuid.NewString(),
		StartSnapID:      snap.ID,
		SenderUserID:     userID,
		RecipientUserID:  recipient.ID,
		SenderAddress:    sender,
		RecipientAddress: recipient.WalletAddress,
		Currency:         currency.Code,
		Amount:           amount,
		TxID:             signed.TxID,
		ConfirmedRound:   round,
		IdempotencyKey:   key,
		CreatedAt:        s.now(),
	}
	receipt := &Receipt{Tip: tip, Recorded: true}

	// The transfer is final on chain; persistence must not be cut short by the caller going away.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.repo.RecordTip(persistCtx, tip, []domain.Event{domain.TipConfirmedEvent(tip)}); err != nil {
		observability.RecordTipRecordFailure()
		log.WithError(err).WithField("confirmed_round", round).Error("tip confirmed on chain but recording failed")
		receipt.Recorded = false
	}
	if err := s.cache.Invalidate(persistCtx, sender, recipient.WalletAddress); err != nil {
		log.WithError(err).Warn("balance cache invalidation failed")
	}
	log.WithField("confirmed_round", round).Info("tip confirmed")
	return receipt, nil
}

func (s *Service) quote(ctx context.Context, userID string, req QuoteRequest) (*Quote, *domain.StartSnap, error) {
	if userID == "" {
		return nil, nil, domain.ErrUnauthenticated
	}
	currency, ok := algorand.LookupCurrency(req.Currency)
	if !ok {
		return nil, nil, domain.FieldError("currency", "unsupported currency")
	}
	sender := strings.TrimSpace(req.SenderAddress)
	if !algorand.ValidAddress(sender) {
		return nil, nil, algorand.Wrap(algorand.KindInvalidAddress, fmt.Errorf("sender address %q", sender))
	}
	snap, recipient, err := s.recipient(ctx, userID, req.StartSnapID)
	if err != nil {
		return nil, nil, err
	}

	senderAcct, err := s.node.AccountInfo(ctx, sender)
	if err != nil {
		return nil, nil, algorand.Wrap(algorand.KindOf(err), err)
	}
	recipientAcct, err := s.node.AccountInfo(ctx, recipient.WalletAddress)
	if err != nil {
		return nil, nil, algorand.Wrap(algorand.KindOf(err), err)
	}
	params, err := s.node.SuggestedParams(ctx)
	if err != nil {
		return nil, nil, algorand.Wrap(algorand.Classify(err), err)
	}
	fee, err := algorand.EstimateFee(algorand.Transfer{
		Currency: currency,
		From:     sender,
		To:       recipient.WalletAddress,
		Note:     tipNote(snap.ID),
	}, params)
	if err != nil {
		return nil, nil, err
	}

	spendableAlgo := subtractFloor(senderAcct.Amount, senderAcct.MinBalance+fee)
	var available uint64
	if currency.Native() {
		available = spendableAlgo
	} else {
		if !senderAcct.OptedIn(currency.AssetID) {
			return nil, nil, algorand.Wrap(algorand.KindNotOptedIn, errors.New("sender is not opted in to "+currency.Code))
		}
		if !recipientAcct.OptedIn(currency.AssetID) {
			return nil, nil, algorand.Wrap(algorand.KindNotOptedIn, errors.New("recipient is not opted in to "+currency.Code))
		}
		if senderAcct.Amount < senderAcct.MinBalance+fee {
			return nil, nil, algorand.Wrap(algorand.KindInsufficientFunds, errors.New("sender cannot cover the network fee"))
		}
		available = senderAcct.Assets[currency.AssetID]
	}

	q := &Quote{
		Currency:         currency,
		StartSnapID:      snap.ID,
		SenderAddress:    sender,
		RecipientAddress: recipient.WalletAddress,
		Min:              currency.MinAmount,
		Available:        available,
		Fee:              fee,
		Presets:          make([]Preset, 0, len(currency.Presets)),
	}
	for _, amount := range currency.Presets {
		q.Presets = append(q.Presets, Preset{Amount: amount, Enabled: amount <= available})
	}
	return q, snap, nil
}

// recipient resolves the StartSnap and its creator's wallet.
func (s *Service) recipient(ctx context.Context, userID, startSnapID string) (*domain.StartSnap, *domain.Profile, error) {
	if _, err := uuid.Parse(startSnapID); err != nil {
		return nil, nil, domain.ErrStartSnapNotFound
	}
	snap, err := s.repo.GetStartSnap(ctx, startSnapID)
	if err != nil {
		return nil, nil, err
	}
	if snap == nil {
		return nil, nil, domain.ErrStartSnapNotFound
	}
	if snap.UserID == userID {
		return nil, nil, domain.ErrSelfTip
	}
	creator, err := s.repo.GetProfile(ctx, snap.UserID)
	if err != nil {
		return nil, nil, err
	}
	if creator == nil || !creator.HasWallet() {
		return nil, nil, domain.ErrNoWallet
	}
	return snap, creator, nil
}

func (s *Service) reject(log logrus.FieldLogger, currency algorand.Currency, err error) error {
	kind := algorand.KindOf(err)
	observability.RecordTipOutcome(currency.Code, OutcomeRejected)
	log.WithError(err).WithField("kind", kind).Warn("tip submission failed")
	return algorand.Wrap(kind, err)
}

func (s *Service) replay(t domain.Tip) *Receipt {
	observability.RecordTipOutcome(t.Currency, OutcomeReplayed)
	return &Receipt{Tip: t, Recorded: true, Replayed: true}
}

func (s *Service) acquire(sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[sender]; busy {
		return false
	}
	s.pending[sender] = struct{}{}
	return true
}

func (s *Service) release(sender string) {
	s.mu.Lock()
	delete(s.pending, sender)
	s.mu.Unlock()
}

func transferAmount(signed algorand.Signed, currency algorand.Currency) uint64 {
	if currency.Native() {
		return uint64(signed.Txn.Txn.Amount)
	}
	return signed.Txn.Txn.AssetAmount
}

func tipNote(startSnapID string) []byte {
	return []byte("startsnap tip " + startSnapID)
}

func subtractFloor(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}
