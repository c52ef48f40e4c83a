// Package api exposes the StartSnap HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/domain"
)

// Handler wires HTTP routes to the domain and tipping services.
type Handler struct {
	service *domain.Service
	tips    TipService
	logger  logrus.FieldLogger
}

// NewHandler constructs an HTTP handler set.
func NewHandler(service *domain.Service, tips TipService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{service: service, tips: tips, logger: logger.WithField("component", "api")}
}

// RegisterRoutes attaches the handler to a router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/config", h.handleConfig).Methods(http.MethodGet)

	v1.HandleFunc("/startsnaps", h.handleDiscover).Methods(http.MethodGet)
	v1.HandleFunc("/startsnaps", h.handleCreateStartSnap).Methods(http.MethodPost)
	v1.HandleFunc("/startsnaps/{id}", h.handleGetStartSnap).Methods(http.MethodGet)
	v1.HandleFunc("/startsnaps/{id}", h.handleUpdateStartSnap).Methods(http.MethodPatch)
	v1.HandleFunc("/startsnaps/{id}", h.handleDeleteStartSnap).Methods(http.MethodDelete)

	v1.HandleFunc("/startsnaps/{id}/vibelogs", h.handleListVibeLogs).Methods(http.MethodGet)
	v1.HandleFunc("/startsnaps/{id}/vibelogs", h.handleCreateVibeLog).Methods(http.MethodPost)
	v1.HandleFunc("/startsnaps/{id}/vibelogs/{logID}", h.handleUpdateVibeLog).Methods(http.MethodPatch)
	v1.HandleFunc("/startsnaps/{id}/vibelogs/{logID}", h.handleDeleteVibeLog).Methods(http.MethodDelete)

	v1.HandleFunc("/startsnaps/{id}/feedback", h.handleListFeedback).Methods(http.MethodGet)
	v1.HandleFunc("/startsnaps/{id}/feedback", h.handlePostFeedback).Methods(http.MethodPost)
	v1.HandleFunc("/startsnaps/{id}/feedback/{fid}", h.handleUpdateFeedback).Methods(http.MethodPatch)
	v1.HandleFunc("/startsnaps/{id}/feedback/{fid}", h.handleDeleteFeedback).Methods(http.MethodDelete)

	v1.HandleFunc("/startsnaps/{id}/support", h.handleToggleSupport).Methods(http.MethodPost)

	v1.HandleFunc("/startsnaps/{id}/tips/quote", h.handleTipQuote).Methods(http.MethodPost)
	v1.HandleFunc("/startsnaps/{id}/tips/prepare", h.handleTipPrepare).Methods(http.MethodPost)
	v1.HandleFunc("/tips", h.handleTipSubmit).Methods(http.MethodPost)

	// "me" routes must be registered before the {username} patterns.
	v1.HandleFunc("/profiles/me", h.handleGetOwnProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profiles/me", h.handleUpsertProfile).Methods(http.MethodPut)
	v1.HandleFunc("/profiles/me/wallet", h.handleConnectWallet).Methods(http.MethodPut)
	v1.HandleFunc("/profiles/me/wallet", h.handleRemoveWallet).Methods(http.MethodDelete)
	v1.HandleFunc("/profiles/me/activity", h.handleOwnActivity).Methods(http.MethodGet)
	v1.HandleFunc("/profiles/{username}", h.handleGetProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profiles/{username}/activity", h.handlePublicActivity).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type currencyView struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	AssetID   uint64   `json:"asset_id"`
	Decimals  int      `json:"decimals"`
	MinAmount string   `json:"min_amount"`
	Presets   []string `json:"presets"`
}

func toCurrencyView(c algorand.Currency) currencyView {
	presets := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		presets = append(presets, c.Format(p))
	}
	return currencyView{
		Code:      c.Code,
		Name:      c.Name,
		AssetID:   c.AssetID,
		Decimals:  c.Decimals,
		MinAmount: c.Format(c.MinAmount),
		Presets:   presets,
	}
}

func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	currencies := make([]currencyView, 0, 2)
	for _, c := range algorand.Currencies() {
		currencies = append(currencies, toCurrencyView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":      domain.CategoryList(),
		"statuses":        domain.StatusOptions,
		"currencies":      currencies,
		"vibe_log_types":  []string{domain.LogTypeLaunch, domain.LogTypeUpdate, domain.LogTypeFeature, domain.LogTypeFix},
		"startsnap_types": []string{domain.TypeLive, domain.TypeIdea},
	})
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
