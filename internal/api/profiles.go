package api

import (
	"net/http"
	"strconv"

	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/persistence"
)

type profileRequest struct {
	Username    string `json:"username"`
	Bio         string `json:"bio"`
	Status      string `json:"status"`
	AvatarURL   string `json:"avatar_url"`
	GitHubURL   string `json:"github_url"`
	TwitterURL  string `json:"twitter_url"`
	LinkedInURL string `json:"linkedin_url"`
	WebsiteURL  string `json:"website_url"`
}

func (r profileRequest) input() domain.ProfileInput {
	return domain.ProfileInput{
		Username:    r.Username,
		Bio:         r.Bio,
		Status:      r.Status,
		AvatarURL:   r.AvatarURL,
		GitHubURL:   r.GitHubURL,
		TwitterURL:  r.TwitterURL,
		LinkedInURL: r.LinkedInURL,
		WebsiteURL:  r.WebsiteURL,
	}
}

type walletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// Validate requires an address; checksum validation happens in the service.
func (r walletRequest) Validate() error {
	if r.WalletAddress == "" {
		return domain.FieldError("wallet_address", "is required")
	}
	return nil
}

type publicProfileResponse struct {
	Profile    profileView     `json:"profile"`
	StartSnaps []startSnapView `json:"startsnaps"`
}

func (h *Handler) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetOwnProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile, true))
}

func (h *Handler) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := h.service.UpsertProfile(r.Context(), auth.UserID(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile, true))
}

func (h *Handler) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	profile, err := h.service.ConnectWallet(r.Context(), auth.UserID(r.Context()), req.WalletAddress)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile, true))
}

func (h *Handler) handleRemoveWallet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.RemoveWallet(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile, true))
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, snaps, err := h.service.GetProfileByUsername(r.Context(), pathVar(r, "username"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	owner := profile.ID == auth.UserID(r.Context())
	writeJSON(w, http.StatusOK, publicProfileResponse{
		Profile:    toProfileView(*profile, owner),
		StartSnaps: toStartSnapViews(snaps),
	})
}

func (h *Handler) handleOwnActivity(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, next, err := h.service.ListOwnActivity(r.Context(), auth.UserID(r.Context()), cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityPage{Items: toActivityViews(items), NextCursor: persistence.EncodeCursor(next)})
}

func (h *Handler) handlePublicActivity(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, next, err := h.service.ListPublicActivity(r.Context(), pathVar(r, "username"), cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityPage{Items: toActivityViews(items), NextCursor: persistence.EncodeCursor(next)})
}

func parsePage(w http.ResponseWriter, r *http.Request) (*domain.Cursor, int, bool) {
	values := r.URL.Query()
	limit := 0
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return nil, 0, false
		}
		limit = n
	}
	cursor, err := persistence.DecodeCursor(values.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cursor", "cursor is malformed")
		return nil, 0, false
	}
	return cursor, limit, true
}
