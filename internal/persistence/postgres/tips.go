package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

const tipColumns = `id::text, COALESCE(startsnap_id::text, ''), sender_user_id, recipient_user_id, sender_address, recipient_address,
        currency, amount, tx_id, confirmed_round, COALESCE(idempotency_key, ''), created_at`

func scanTip(row pgx.Row) (domain.Tip, error) {
	var t domain.Tip
	var amount, round int64
	err := row.Scan(&t.ID, &t.StartSnapID, &t.SenderUserID, &t.RecipientUserID, &t.SenderAddress, &t.RecipientAddress,
		&t.Currency, &amount, &t.TxID, &round, &t.IdempotencyKey, &t.CreatedAt)
	t.Amount = uint64(amount)
	t.ConfirmedRound = uint64(round)
	return t, err
}

func (r *Repository) findTip(ctx context.Context, query string, args ...any) (*domain.Tip, error) {
	var out *domain.Tip
	err := r.inTx(ctx, service, func(tx pgx.Tx) error {
		t, err := scanTip(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &t
		return nil
	})
	return out, err
}

// FindTipByTxID looks up a recorded tip by on-chain transaction id.
func (r *Repository) FindTipByTxID(ctx context.Context, txID string) (*domain.Tip, error) {
	return r.findTip(ctx, `SELECT `+tipColumns+` FROM tips WHERE tx_id = $1`, txID)
}

// FindTipByIdempotencyKey looks up a sender's tip by the key supplied on submit.
func (r *Repository) FindTipByIdempotencyKey(ctx context.Context, senderUserID, key string) (*domain.Tip, error) {
	if key == "" {
		return nil, nil
	}
	return r.findTip(ctx, `SELECT `+tipColumns+` FROM tips WHERE sender_user_id = $1 AND idempotency_key = $2`, senderUserID, key)
}

// RecordTip persists a confirmed tip and its outbox event in one transaction.
func (r *Repository) RecordTip(ctx context.Context, tip domain.Tip, evts []domain.Event) error {
	err := r.inTx(ctx, asUser(tip.SenderUserID), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tips (id, startsnap_id, sender_user_id, recipient_user_id, sender_address, recipient_address,
                currency, amount, tx_id, confirmed_round, idempotency_key, created_at)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			tip.ID, nullIfEmpty(tip.StartSnapID), tip.SenderUserID, tip.RecipientUserID, tip.SenderAddress, tip.RecipientAddress,
			tip.Currency, int64(tip.Amount), tip.TxID, int64(tip.ConfirmedRound), nullIfEmpty(tip.IdempotencyKey), tip.CreatedAt,
		); err != nil {
			if isUniqueViolation(err, "") {
				return domain.ErrTipExists
			}
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	observability.RecordWrite(domain.AggregateTip, tip.CreatedAt)
	return nil
}
