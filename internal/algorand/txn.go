package algorand

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Transfer describes a tip on chain.
type Transfer struct {
	Currency Currency
	From     string
	To       string
	Amount   uint64
	Note     []byte
}

// Unsigned is a transaction ready for wallet signing.
type Unsigned struct {
	TxID string
	// Transaction is base64 msgpack, the format wallets accept.
	Transaction string
}

// Signed is a wallet-signed transaction decoded from the client.
type Signed struct {
	TxID string
	Txn  types.SignedTxn
	Raw  []byte
}

// ErrUnexpectedTransaction is returned when a signed transaction does not match the tip it claims to pay.
var ErrUnexpectedTransaction = errors.New("signed transaction does not match the tip")

const minTxnFee uint64 = 1000

// feeFloor is the smallest fee the network accepts under params.
func feeFloor(params types.SuggestedParams) uint64 {
	if params.MinFee > minTxnFee {
		return params.MinFee
	}
	return minTxnFee
}

// EstimateFee returns the highest fee BuildTransfer can charge for t under
// params. With a per-byte rate the fee grows with the encoded size, so the
// estimate is taken at the widest amount encoding.
func EstimateFee(t Transfer, params types.SuggestedParams) (uint64, error) {
	t.Amount = math.MaxUint64
	tx, err := BuildTransfer(t, params)
	if err != nil {
		return 0, err
	}
	return uint64(tx.Fee), nil
}

// BuildTransfer creates a payment for ALGO or an asset transfer for ASAs.
// A flat fee is used as given; otherwise params.Fee is a per-byte rate and
// the SDK sizes the fee from the encoded transaction.
func BuildTransfer(t Transfer, params types.SuggestedParams) (types.Transaction, error) {
	floor := feeFloor(params)
	if params.FlatFee && uint64(params.Fee) < floor {
		params.Fee = types.MicroAlgos(floor)
	}
	var (
		tx  types.Transaction
		err error
	)
	if t.Currency.Native() {
		tx, err = transaction.MakePaymentTxn(t.From, t.To, t.Amount, t.Note, "", params)
	} else {
		tx, err = transaction.MakeAssetTransferTxn(t.From, t.To, t.Amount, t.Note, params, "", t.Currency.AssetID)
	}
	if err != nil {
		return types.Transaction{}, Wrap(Classify(err), fmt.Errorf("build %s transfer: %w", t.Currency.Code, err))
	}
	if uint64(tx.Fee) < floor {
		tx.Fee = types.MicroAlgos(floor)
	}
	return tx, nil
}

// EncodeUnsigned serializes tx for the wallet.
func EncodeUnsigned(tx types.Transaction) Unsigned {
	return Unsigned{
		TxID:        crypto.GetTxID(tx),
		Transaction: base64.StdEncoding.EncodeToString(msgpack.Encode(tx)),
	}
}

// DecodeSigned parses a base64 msgpack signed transaction.
func DecodeSigned(encoded string) (Signed, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Signed{}, fmt.Errorf("decode signed transaction: %w", err)
	}
	var stx types.SignedTxn
	if err := msgpack.Decode(raw, &stx); err != nil {
		return Signed{}, fmt.Errorf("decode signed transaction: %w", err)
	}
	if stx.Sig == (types.Signature{}) && len(stx.Msig.Subsigs) == 0 && len(stx.Lsig.Logic) == 0 {
		return Signed{}, fmt.Errorf("%w: transaction is not signed", ErrUnexpectedTransaction)
	}
	return Signed{TxID: crypto.GetTxID(stx.Txn), Txn: stx, Raw: raw}, nil
}

// Verify checks that s pays exactly t.
func (s Signed) Verify(t Transfer) error {
	tx := s.Txn.Txn
	if tx.Sender.String() != t.From {
		return fmt.Errorf("%w: sender %s", ErrUnexpectedTransaction, tx.Sender)
	}
	if tx.RekeyTo != (types.Address{}) {
		return fmt.Errorf("%w: rekey not allowed", ErrUnexpectedTransaction)
	}
	if t.Currency.Native() {
		if tx.Type != types.PaymentTx {
			return fmt.Errorf("%w: type %s", ErrUnexpectedTransaction, tx.Type)
		}
		if tx.Receiver.String() != t.To || uint64(tx.Amount) != t.Amount {
			return fmt.Errorf("%w: payment fields", ErrUnexpectedTransaction)
		}
		if tx.CloseRemainderTo != (types.Address{}) {
			return fmt.Errorf("%w: close remainder not allowed", ErrUnexpectedTransaction)
		}
		return nil
	}
	if tx.Type != types.AssetTransferTx {
		return fmt.Errorf("%w: type %s", ErrUnexpectedTransaction, tx.Type)
	}
	if uint64(tx.XferAsset) != t.Currency.AssetID || tx.AssetReceiver.String() != t.To || tx.AssetAmount != t.Amount {
		return fmt.Errorf("%w: asset transfer fields", ErrUnexpectedTransaction)
	}
	if tx.AssetCloseTo != (types.Address{}) {
		return fmt.Errorf("%w: asset close not allowed", ErrUnexpectedTransaction)
	}
	return nil
}

// ValidAddress reports whether addr decodes as an Algorand address.
func ValidAddress(addr string) bool {
	_, err := types.DecodeAddress(addr)
	return err == nil
}
