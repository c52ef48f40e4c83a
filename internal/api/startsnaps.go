package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/domain"
)

// startSnapRequest is the create payload.
type startSnapRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	LiveDemoURL      string   `json:"live_demo_url"`
	DemoURL          string   `json:"demo_url"`
	ScreenshotURLs   []string `json:"screenshot_urls"`
	Tags             []string `json:"tags"`
	ToolsUsed        []string `json:"tools_used"`
	FeedbackTags     []string `json:"feedback_tags"`
	IsHackathonEntry bool     `json:"is_hackathon_entry"`
}

func (r startSnapRequest) input() domain.StartSnapInput {
	return domain.StartSnapInput{
		Name:             r.Name,
		Description:      r.Description,
		Category:         r.Category,
		Type:             r.Type,
		LiveDemoURL:      r.LiveDemoURL,
		DemoURL:          r.DemoURL,
		ScreenshotURLs:   r.ScreenshotURLs,
		Tags:             r.Tags,
		ToolsUsed:        r.ToolsUsed,
		FeedbackTags:     r.FeedbackTags,
		IsHackathonEntry: r.IsHackathonEntry,
	}
}

// startSnapPatchRequest is the partial update payload; absent fields stay unchanged.
type startSnapPatchRequest struct {
	Name             *string   `json:"name"`
	Description      *string   `json:"description"`
	Category         *string   `json:"category"`
	Type             *string   `json:"type"`
	LiveDemoURL      *string   `json:"live_demo_url"`
	DemoURL          *string   `json:"demo_url"`
	ScreenshotURLs   *[]string `json:"screenshot_urls"`
	Tags             *[]string `json:"tags"`
	ToolsUsed        *[]string `json:"tools_used"`
	FeedbackTags     *[]string `json:"feedback_tags"`
	IsHackathonEntry *bool     `json:"is_hackathon_entry"`
}

// Validate ensures the patch changes something.
func (r startSnapPatchRequest) Validate() error {
	if r == (startSnapPatchRequest{}) {
		return domain.FieldError("body", "at least one field is required")
	}
	return nil
}

func (r startSnapPatchRequest) patch() domain.StartSnapPatch {
	return domain.StartSnapPatch{
		Name:             r.Name,
		Description:      r.Description,
		Category:         r.Category,
		Type:             r.Type,
		LiveDemoURL:      r.LiveDemoURL,
		DemoURL:          r.DemoURL,
		ScreenshotURLs:   r.ScreenshotURLs,
		Tags:             r.Tags,
		ToolsUsed:        r.ToolsUsed,
		FeedbackTags:     r.FeedbackTags,
		IsHackathonEntry: r.IsHackathonEntry,
	}
}

type discoverResponse struct {
	Items   []startSnapView `json:"items"`
	Sort    string          `json:"sort"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
}

// parseDiscoverQuery reads discovery filters from the query string.
func parseDiscoverQuery(r *http.Request) (domain.DiscoverQuery, error) {
	values := r.URL.Query()
	q := domain.DiscoverQuery{
		Query:    values.Get("q"),
		Category: values.Get("category"),
		Type:     values.Get("type"),
		Sort:     values.Get("sort"),
	}
	if raw := values.Get("tags"); raw != "" {
		q.Tags = strings.Split(raw, ",")
	}
	if raw := values.Get("hackathon"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, domain.FieldError("hackathon", "must be true or false")
		}
		q.Hackathon = &b
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, domain.FieldError("limit", "must be a non-negative integer")
		}
		q.Limit = n
	}
	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, domain.FieldError("offset", "must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}

func (h *Handler) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q, err := parseDiscoverQuery(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items, applied, err := h.service.DiscoverStartSnaps(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discoverResponse{
		Items:   toStartSnapViews(items),
		Sort:    applied.Sort,
		Limit:   applied.Limit,
		Offset:  applied.Offset,
		HasMore: len(items) == applied.Limit,
	})
}

func (h *Handler) handleCreateStartSnap(w http.ResponseWriter, r *http.Request) {
	var req startSnapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := h.service.CreateStartSnap(r.Context(), auth.UserID(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStartSnapView(*snap))
}

func (h *Handler) handleGetStartSnap(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetStartSnap(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartSnapDetailView(*detail))
}

func (h *Handler) handleUpdateStartSnap(w http.ResponseWriter, r *http.Request) {
	var req startSnapPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	snap, err := h.service.UpdateStartSnap(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), req.patch())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartSnapView(*snap))
}

func (h *Handler) handleDeleteStartSnap(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteStartSnap(r.Context(), auth.UserID(r.Context()), pathVar(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
