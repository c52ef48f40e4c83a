package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/logging"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Type   string            `json:"type"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Type: code, Detail: detail})
}

// WriteAuthError renders authentication middleware failures.
func WriteAuthError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

// WriteRateLimited renders rate limiter rejections.
func WriteRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
}

var sentinelStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrStartSnapNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrVibeLogNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrFeedbackNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrProfileNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrSelfSupport, http.StatusConflict, "self_support"},
	{domain.ErrSelfTip, http.StatusConflict, "self_tip"},
	{domain.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{domain.ErrNoWallet, http.StatusUnprocessableEntity, "no_wallet"},
	{domain.ErrTipExists, http.StatusConflict, "tip_exists"},
	{domain.ErrTipInFlight, http.StatusConflict, "tip_in_flight"},
}

// writeServiceError maps domain and chain errors onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Type: "validation_failed", Detail: validation.Error(), Fields: validation.Fields})
		return
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			writeError(w, s.status, s.code, s.err.Error())
			return
		}
	}
	var chainErr *algorand.Error
	if errors.As(err, &chainErr) {
		logging.FromContext(r.Context(), h.logger).WithError(err).WithField("kind", chainErr.Kind).Warn("tip request failed")
		writeError(w, chainErr.Kind.Status(), string(chainErr.Kind), chainErr.Kind.Message())
		return
	}

	logging.FromContext(r.Context(), h.logger).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}
