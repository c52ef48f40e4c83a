package algorand

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Account is the slice of algod account information tipping needs.
type Account struct {
	Address    string
	Amount     uint64
	MinBalance uint64
	// Assets maps opted-in asset ids to held amounts.
	Assets map[uint64]uint64
}

// OptedIn reports whether the account holds a slot for assetID. ALGO is always held.
func (a Account) OptedIn(assetID uint64) bool {
	if assetID == 0 {
		return true
	}
	_, ok := a.Assets[assetID]
	return ok
}

// Node is the subset of algod used by the tipping workflow.
type Node interface {
	AccountInfo(ctx context.Context, address string) (Account, error)
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txID string, rounds uint64) (uint64, error)
}

// AlgodNode implements Node against an algod REST endpoint.
type AlgodNode struct {
	client *algod.Client
}

// NewAlgodNode dials nothing; requests are made lazily per call.
func NewAlgodNode(url, token string) (*AlgodNode, error) {
	client, err := algod.MakeClient(url, token)
	if err != nil {
		return nil, fmt.Errorf("create algod client: %w", err)
	}
	return &AlgodNode{client: client}, nil
}

func (n *AlgodNode) AccountInfo(ctx context.Context, address string) (Account, error) {
	if _, err := types.DecodeAddress(address); err != nil {
		return Account{}, Wrap(KindInvalidAddress, err)
	}
	info, err := n.client.AccountInformation(address).Do(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("account information %s: %w", address, err)
	}
	acct := Account{
		Address:    address,
		Amount:     info.Amount,
		MinBalance: info.MinBalance,
		Assets:     make(map[uint64]uint64, len(info.Assets)),
	}
	for _, holding := range info.Assets {
		acct.Assets[holding.AssetId] = holding.Amount
	}
	return acct, nil
}

func (n *AlgodNode) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	params, err := n.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("suggested params: %w", err)
	}
	return params, nil
}

func (n *AlgodNode) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	txID, err := n.client.SendRawTransaction(raw).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return txID, nil
}

func (n *AlgodNode) WaitForConfirmation(ctx context.Context, txID string, rounds uint64) (uint64, error) {
	resp, err := transaction.WaitForConfirmation(n.client, txID, rounds, ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for confirmation %s: %w", txID, err)
	}
	if resp.PoolError != "" {
		return 0, fmt.Errorf("transaction %s rejected: %s", txID, resp.PoolError)
	}
	return resp.ConfirmedRound, nil
}
