package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/tipping"
)

// TipService is the tipping workflow the handlers drive.
type TipService interface {
	Quote(ctx context.Context, userID string, req tipping.QuoteRequest) (*tipping.Quote, error)
	Prepare(ctx context.Context, userID string, req tipping.PrepareRequest) (*tipping.Prepared, error)
	Submit(ctx context.Context, userID string, req tipping.SubmitRequest) (*tipping.Receipt, error)
}

type quoteRequest struct {
	Currency      string `json:"currency"`
	SenderAddress string `json:"sender_address"`
}

// Validate checks the fields the quote cannot be priced without.
func (r quoteRequest) Validate() error {
	if strings.TrimSpace(r.Currency) == "" {
		return domain.FieldError("currency", "is required")
	}
	if strings.TrimSpace(r.SenderAddress) == "" {
		return domain.FieldError("sender_address", "is required")
	}
	return nil
}

type prepareRequest struct {
	quoteRequest
	Amount string `json:"amount"`
}

// Validate checks the quote fields and the amount.
func (r prepareRequest) Validate() error {
	if err := r.quoteRequest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Amount) == "" {
		return domain.FieldError("amount", "is required")
	}
	return nil
}

type submitRequest struct {
	StartSnapID       string `json:"startsnap_id"`
	Currency          string `json:"currency"`
	SignedTransaction string `json:"signed_transaction"`
}

// Validate checks the submit payload shape.
func (r submitRequest) Validate() error {
	if strings.TrimSpace(r.StartSnapID) == "" {
		return domain.FieldError("startsnap_id", "is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return domain.FieldError("currency", "is required")
	}
	if strings.TrimSpace(r.SignedTransaction) == "" {
		return domain.FieldError("signed_transaction", "is required")
	}
	return nil
}

type presetView struct {
	Amount  string `json:"amount"`
	Enabled bool   `json:"enabled"`
}

type quoteView struct {
	Currency         string       `json:"currency"`
	StartSnapID      string       `json:"startsnap_id"`
	SenderAddress    string       `json:"sender_address"`
	RecipientAddress string       `json:"recipient_address"`
	Min              string       `json:"min"`
	Available        string       `json:"available"`
	Fee              string       `json:"fee"`
	Presets          []presetView `json:"presets"`
}

func toQuoteView(q tipping.Quote) quoteView {
	presets := make([]presetView, 0, len(q.Presets))
	for _, p := range q.Presets {
		presets = append(presets, presetView{Amount: q.Currency.Format(p.Amount), Enabled: p.Enabled})
	}
	return quoteView{
		Currency:         q.Currency.Code,
		StartSnapID:      q.StartSnapID,
		SenderAddress:    q.SenderAddress,
		RecipientAddress: q.RecipientAddress,
		Min:              q.Currency.Format(q.Min),
		Available:        q.Currency.Format(q.Available),
		Fee:              formatMicroAlgos(q.Fee),
		Presets:          presets,
	}
}

type preparedView struct {
	Quote       quoteView `json:"quote"`
	Amount      string    `json:"amount"`
	TxID        string    `json:"txid"`
	Transaction string    `json:"transaction"`
}

type tipView struct {
	ID               string    `json:"id,omitempty"`
	StartSnapID      string    `json:"startsnap_id"`
	RecipientUserID  string    `json:"recipient_user_id"`
	SenderAddress    string    `json:"sender_address"`
	RecipientAddress string    `json:"recipient_address"`
	Currency         string    `json:"currency"`
	Amount           string    `json:"amount"`
	TxID             string    `json:"txid"`
	ConfirmedRound   uint64    `json:"confirmed_round"`
	CreatedAt        time.Time `json:"created_at"`
}

type receiptView struct {
	Tip      tipView `json:"tip"`
	Recorded bool    `json:"recorded"`
	Replayed bool    `json:"replayed"`
}

func toReceiptView(rc tipping.Receipt) receiptView {
	amount := formatMicroAlgos(rc.Tip.Amount)
	if c, ok := algorand.LookupCurrency(rc.Tip.Currency); ok {
		amount = c.Format(rc.Tip.Amount)
	}
	return receiptView{
		Tip: tipView{
			ID:               rc.Tip.ID,
			StartSnapID:      rc.Tip.StartSnapID,
			RecipientUserID:  rc.Tip.RecipientUserID,
			SenderAddress:    rc.Tip.SenderAddress,
			RecipientAddress: rc.Tip.RecipientAddress,
			Currency:         rc.Tip.Currency,
			Amount:           amount,
			TxID:             rc.Tip.TxID,
			ConfirmedRound:   rc.Tip.ConfirmedRound,
			CreatedAt:        rc.Tip.CreatedAt,
		},
		Recorded: rc.Recorded,
		Replayed: rc.Replayed,
	}
}

func (h *Handler) handleTipQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	quote, err := h.tips.Quote(r.Context(), auth.UserID(r.Context()), tipping.QuoteRequest{
		StartSnapID:   pathVar(r, "id"),
		Currency:      req.Currency,
		SenderAddress: req.SenderAddress,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteView(*quote))
}

func (h *Handler) handleTipPrepare(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	prepared, err := h.tips.Prepare(r.Context(), auth.UserID(r.Context()), tipping.PrepareRequest{
		QuoteRequest: tipping.QuoteRequest{
			StartSnapID:   pathVar(r, "id"),
			Currency:      req.Currency,
			SenderAddress: req.SenderAddress,
		},
		Amount: req.Amount,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preparedView{
		Quote:       toQuoteView(prepared.Quote),
		Amount:      prepared.Quote.Currency.Format(prepared.Amount),
		TxID:        prepared.Unsigned.TxID,
		Transaction: prepared.Unsigned.Transaction,
	})
}

func (h *Handler) handleTipSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	receipt, err := h.tips.Submit(r.Context(), auth.UserID(r.Context()), tipping.SubmitRequest{
		StartSnapID:       req.StartSnapID,
		Currency:          req.Currency,
		SignedTransaction: req.SignedTransaction,
		IdempotencyKey:    r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toReceiptView(*receipt))
}

// formatMicroAlgos renders network fees, which are always paid in ALGO.
func formatMicroAlgos(v uint64) string {
	algo, _ := algorand.LookupCurrency(algorand.CurrencyALGO)
	return algo.Format(v)
}
