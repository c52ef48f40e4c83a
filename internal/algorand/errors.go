package algorand

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure on the node or wallet path.
type Kind string

const (
	KindInsufficientFunds Kind = "insufficient_funds"
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindNotOptedIn        Kind = "not_opted_in"
	KindInvalidAddress    Kind = "invalid_address"
	KindFailed            Kind = "failed"
)

var kindStatus = map[Kind]int{
	KindInsufficientFunds: http.StatusUnprocessableEntity,
	KindCancelled:         http.StatusConflict,
	KindTimeout:           http.StatusGatewayTimeout,
	KindNotOptedIn:        http.StatusUnprocessableEntity,
	KindInvalidAddress:    http.StatusBadRequest,
	KindFailed:            http.StatusBadGateway,
}

var kindMessage = map[Kind]string{
	KindInsufficientFunds: "Insufficient balance to send this tip, including network fees.",
	KindCancelled:         "The transaction was cancelled in the wallet.",
	KindTimeout:           "The network did not confirm the transaction in time. Check your wallet before retrying.",
	KindNotOptedIn:        "Both wallets must be opted in to the asset before it can be sent.",
	KindInvalidAddress:    "The wallet address is not a valid Algorand address.",
	KindFailed:            "The transaction could not be completed.",
}

// Status is the HTTP status the kind maps to.
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusBadGateway
}

// Message is a user-facing description of the kind.
func (k Kind) Message() string {
	if m, ok := kindMessage[k]; ok {
		return m
	}
	return kindMessage[KindFailed]
}

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with kind. A nil err yields a bare kind error.
func Wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind recorded on err, classifying it when none is attached.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Classify(err)
}

var classifierRules = []struct {
	kind    Kind
	needles []string
}{
	{KindInsufficientFunds, []string{"insufficient", "overspend", "below min"}},
	{KindCancelled, []string{"cancel", "rejected", "user denied"}},
	{KindTimeout, []string{"timeout", "timed out", "deadline"}},
	{KindNotOptedIn, []string{"opted in", "opt in", "must optin", "opt-in"}},
	{KindInvalidAddress, []string{"invalid address", "checksum", "address length", "decode address"}},
}

// Classify maps an error message onto a Kind by substring match.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range classifierRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.kind
			}
		}
	}
	// algod reports a missing holding as "asset 31566704 missing from <addr>".
	if strings.Contains(msg, "asset") && strings.Contains(msg, "missing") {
		return KindNotOptedIn
	}
	return KindFailed
}
