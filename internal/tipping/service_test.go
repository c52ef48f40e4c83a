package tipping_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
	"github.com/skozubek/startsnap/internal/persistence/memory"
	"github.com/skozubek/startsnap/internal/tipping"
)

type fakeNode struct {
	mu        sync.Mutex
	accounts  map[string]algorand.Account
	sent      [][]byte
	sendErr   error
	waitErr   error
	round     uint64
	waitEnter chan struct{}
	waitGate  chan struct{}
	feeRate   uint64
}

func (n *fakeNode) AccountInfo(_ context.Context, address string) (algorand.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acct, ok := n.accounts[address]
	if !ok {
		return algorand.Account{Address: address, MinBalance: 100_000}, nil
	}
	return acct, nil
}

func (n *fakeNode) SuggestedParams(context.Context) (types.SuggestedParams, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return types.SuggestedParams{
		Fee:             types.MicroAlgos(n.feeRate),
		GenesisID:       "testnet-v1.0",
		GenesisHash:     make([]byte, 32),
		FirstRoundValid: 100,
		LastRoundValid:  1100,
		MinFee:          1000,
	}, nil
}

func (n *fakeNode) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return "", n.sendErr
	}
	n.sent = append(n.sent, raw)
	return "", nil
}

func (n *fakeNode) WaitForConfirmation(ctx context.Context, _ string, _ uint64) (uint64, error) {
	if n.waitEnter != nil {
		n.waitEnter <- struct{}{}
		select {
		case <-n.waitGate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if n.waitErr != nil {
		return 0, n.waitErr
	}
	return n.round, nil
}

func (n *fakeNode) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	svc     *tipping.Service
	repo    *memory.Repository
	node    *fakeNode
	snap    *domain.StartSnap
	sender  crypto.Account
	creator crypto.Account
	invalid *recordingInvalidator
}

type recordingInvalidator struct {
	mu        sync.Mutex
	addresses []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, addresses ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses = append(r.addresses, addresses...)
	return nil
}

const fanID = "fan-1"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewRepository()
	domainSvc := domain.NewService(repo)

	creator := crypto.GenerateAccount()
	sender := crypto.GenerateAccount()

	_, err := domainSvc.UpsertProfile(ctx, "creator-1", domain.ProfileInput{Username: "creator"})
	require.NoError(t, err)
	_, err = domainSvc.ConnectWallet(ctx, "creator-1", creator.Address.String())
	require.NoError(t, err)
	snap, err := domainSvc.CreateStartSnap(ctx, "creator-1", domain.StartSnapInput{
		Name: "Tip Jar", Description: "A project worth tipping.", Category: "finance", Type: domain.TypeIdea,
	})
	require.NoError(t, err)

	node := &fakeNode{
		round: 4242,
		accounts: map[string]algorand.Account{
			sender.Address.String(): {
				Address:    sender.Address.String(),
				Amount:     12_000_000,
				MinBalance: 200_000,
				Assets:     map[uint64]uint64{algorand.USDCAssetID: 7_500_000},
			},
			creator.Address.String(): {
				Address:    creator.Address.String(),
				Amount:     1_000_000,
				MinBalance: 100_000,
				Assets:     map[uint64]uint64{},
			},
		},
	}

	inv := &recordingInvalidator{}
	svc := tipping.NewService(repo, node, inv, logrus.New(), tipping.Options{ConfirmationRounds: 5, SubmitTimeout: 5 * time.Second})
	return &fixture{svc: svc, repo: repo, node: node, snap: snap, sender: sender, creator: creator, invalid: inv}
}

func (f *fixture) sign(t *testing.T, currency string, amount uint64) string {
	t.Helper()
	prepared, err := f.svc.Prepare(context.Background(), fanID, tipping.PrepareRequest{
		QuoteRequest: tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: currency, SenderAddress: f.sender.Address.String()},
		Amount:       algorand.FormatAmount(amount, 6),
	})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(prepared.Unsigned.Transaction)
	require.NoError(t, err)
	var tx types.Transaction
	require.NoError(t, msgpack.Decode(raw, &tx))

	_, stx, err := crypto.SignTransaction(f.sender.PrivateKey, tx)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(stx)
}

func TestQuoteALGOComputesSpendableBalance(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Quote(context.Background(), fanID, tipping.QuoteRequest{
		StartSnapID: f.snap.ID, Currency: "algo", SenderAddress: f.sender.Address.String(),
	})
	require.NoError(t, err)
	require.Equal(t, f.creator.Address.String(), q.RecipientAddress)
	require.Equal(t, uint64(100_000), q.Min)
	require.Equal(t, uint64(12_000_000-200_000-1000), q.Available)
	require.Equal(t, []tipping.Preset{
		{Amount: 1_000_000, Enabled: true},
		{Amount: 5_000_000, Enabled: true},
		{Amount: 10_000_000, Enabled: true},
		{Amount: 25_000_000, Enabled: false},
	}, q.Presets)
}

func TestQuoteChargesPerByteFeeWhenCongested(t *testing.T) {
	f := newFixture(t)
	f.node.feeRate = 10
	ctx := context.Background()
	req := tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: f.sender.Address.String()}

	q, err := f.svc.Quote(ctx, fanID, req)
	require.NoError(t, err)
	require.Greater(t, q.Fee, uint64(1000))
	require.Equal(t, 12_000_000-200_000-q.Fee, q.Available)

	prepared, err := f.svc.Prepare(ctx, fanID, tipping.PrepareRequest{QuoteRequest: req, Amount: "2.5"})
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(prepared.Unsigned.Transaction)
	require.NoError(t, err)
	var tx types.Transaction
	require.NoError(t, msgpack.Decode(raw, &tx))
	require.Greater(t, uint64(tx.Fee), uint64(1000))
	require.LessOrEqual(t, uint64(tx.Fee), q.Fee)
}

func TestQuoteUSDCRequiresOptIn(t *testing.T) {
	f := newFixture(t)
	req := tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "USDC", SenderAddress: f.sender.Address.String()}

	_, err := f.svc.Quote(context.Background(), fanID, req)
	require.Equal(t, algorand.KindNotOptedIn, algorand.KindOf(err))

	f.node.accounts[f.creator.Address.String()] = algorand.Account{
		Address: f.creator.Address.String(), Amount: 1_000_000, MinBalance: 200_000,
		Assets: map[uint64]uint64{algorand.USDCAssetID: 0},
	}
	q, err := f.svc.Quote(context.Background(), fanID, req)
	require.NoError(t, err)
	require.Equal(t, uint64(7_500_000), q.Available)
	require.False(t, q.Presets[2].Enabled)
}

func TestQuoteRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := f.sender.Address.String()

	_, err := f.svc.Quote(ctx, "", tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: sender})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Quote(ctx, fanID, tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "DOGE", SenderAddress: sender})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.Quote(ctx, fanID, tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: "nope"})
	require.Equal(t, algorand.KindInvalidAddress, algorand.KindOf(err))

	_, err = f.svc.Quote(ctx, "creator-1", tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: sender})
	require.ErrorIs(t, err, domain.ErrSelfTip)

	_, err = f.svc.Quote(ctx, fanID, tipping.QuoteRequest{StartSnapID: "missing", Currency: "ALGO", SenderAddress: sender})
	require.ErrorIs(t, err, domain.ErrStartSnapNotFound)

	_, err = domain.NewService(f.repo).RemoveWallet(ctx, "creator-1")
	require.NoError(t, err)
	_, err = f.svc.Quote(ctx, fanID, tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: sender})
	require.ErrorIs(t, err, domain.ErrNoWallet)
}

func TestPrepareValidatesRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := tipping.QuoteRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SenderAddress: f.sender.Address.String()}

	_, err := f.svc.Prepare(ctx, fanID, tipping.PrepareRequest{QuoteRequest: base, Amount: "0.05"})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.Prepare(ctx, fanID, tipping.PrepareRequest{QuoteRequest: base, Amount: "abc"})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.Prepare(ctx, fanID, tipping.PrepareRequest{QuoteRequest: base, Amount: "100"})
	require.Equal(t, algorand.KindInsufficientFunds, algorand.KindOf(err))

	prepared, err := f.svc.Prepare(ctx, fanID, tipping.PrepareRequest{QuoteRequest: base, Amount: "2.5"})
	require.NoError(t, err)
	require.Equal(t, uint64(2_500_000), prepared.Amount)
	require.NotEmpty(t, prepared.Unsigned.TxID)
}

func TestSubmitConfirmsRecordsAndReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	confirmed := testutil.ToFloat64(observability.TipOutcomeCount("ALGO", tipping.OutcomeConfirmed))
	replayed := testutil.ToFloat64(observability.TipOutcomeCount("ALGO", tipping.OutcomeReplayed))

	signed := f.sign(t, "ALGO", 1_000_000)
	req := tipping.SubmitRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: signed, IdempotencyKey: "k-1"}

	receipt, err := f.svc.Submit(ctx, fanID, req)
	require.NoError(t, err)
	require.True(t, receipt.Recorded)
	require.False(t, receipt.Replayed)
	require.Equal(t, uint64(4242), receipt.Tip.ConfirmedRound)
	require.Equal(t, uint64(1_000_000), receipt.Tip.Amount)
	require.Equal(t, "creator-1", receipt.Tip.RecipientUserID)
	require.Equal(t, 1, f.node.sentCount())
	require.ElementsMatch(t, []string{f.sender.Address.String(), f.creator.Address.String()}, f.invalid.addresses)

	again, err := f.svc.Submit(ctx, fanID, req)
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.Equal(t, receipt.Tip.TxID, again.Tip.TxID)

	req.IdempotencyKey = ""
	again, err = f.svc.Submit(ctx, fanID, req)
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.Equal(t, 1, f.node.sentCount())

	_, err = f.svc.Submit(ctx, "someone-else", req)
	require.ErrorIs(t, err, domain.ErrTipExists)

	require.Equal(t, confirmed+1, testutil.ToFloat64(observability.TipOutcomeCount("ALGO", tipping.OutcomeConfirmed)))
	require.Equal(t, replayed+2, testutil.ToFloat64(observability.TipOutcomeCount("ALGO", tipping.OutcomeReplayed)))

	var tipEvents int
	for _, evt := range f.repo.Events() {
		if evt.AggregateType == domain.AggregateTip {
			tipEvents++
		}
	}
	require.Equal(t, 1, tipEvents)
}

func TestSubmitRejectsMismatchedTransaction(t *testing.T) {
	f := newFixture(t)
	signed := f.sign(t, "ALGO", 1_000_000)

	_, err := f.svc.Submit(context.Background(), fanID, tipping.SubmitRequest{StartSnapID: f.snap.ID, Currency: "USDC", SignedTransaction: signed})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.Submit(context.Background(), fanID, tipping.SubmitRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: "garbage"})
	require.True(t, domain.IsValidation(err))
	require.Zero(t, f.node.sentCount())
}

func TestSubmitClassifiesNodeErrors(t *testing.T) {
	f := newFixture(t)
	f.node.sendErr = errors.New("TransactionPool.Remember: overspend (account X, data {...})")

	_, err := f.svc.Submit(context.Background(), fanID, tipping.SubmitRequest{
		StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: f.sign(t, "ALGO", 1_000_000),
	})
	require.Equal(t, algorand.KindInsufficientFunds, algorand.KindOf(err))
	require.Empty(t, f.invalid.addresses)
}

type failingTips struct {
	domain.Repository
}

func (failingTips) RecordTip(context.Context, domain.Tip, []domain.Event) error {
	return errors.New("database unavailable")
}

func TestSubmitReturnsConfirmationWhenRecordingFails(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	svc := tipping.NewService(failingTips{f.repo}, f.node, nil, logger, tipping.Options{})
	before := testutil.ToFloat64(observability.TipRecordFailures())

	receipt, err := svc.Submit(context.Background(), fanID, tipping.SubmitRequest{
		StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: f.sign(t, "ALGO", 1_000_000),
	})
	require.NoError(t, err)
	require.False(t, receipt.Recorded)
	require.Equal(t, uint64(4242), receipt.Tip.ConfirmedRound)
	require.Equal(t, before+1, testutil.ToFloat64(observability.TipRecordFailures()))

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	require.True(t, logged)
}

func TestSubmitRejectsConcurrentTipFromSameWallet(t *testing.T) {
	f := newFixture(t)
	first := f.sign(t, "ALGO", 1_000_000)
	second := f.sign(t, "ALGO", 2_000_000)

	f.node.waitEnter = make(chan struct{})
	f.node.waitGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(context.Background(), fanID, tipping.SubmitRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: first})
		done <- err
	}()
	<-f.node.waitEnter

	_, err := f.svc.Submit(context.Background(), fanID, tipping.SubmitRequest{StartSnapID: f.snap.ID, Currency: "ALGO", SignedTransaction: second})
	require.ErrorIs(t, err, domain.ErrTipInFlight)

	close(f.node.waitGate)
	require.NoError(t, <-done)
}
