package api

import (
	"net/http"

	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/domain"
)

type vibeLogRequest struct {
	LogType string `json:"log_type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r vibeLogRequest) input() domain.VibeLogInput {
	return domain.VibeLogInput{LogType: r.LogType, Title: r.Title, Content: r.Content}
}

type feedbackRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleListVibeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListVibeLogs(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]vibeLogView, 0, len(logs))
	for _, l := range logs {
		items = append(items, toVibeLogView(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleCreateVibeLog(w http.ResponseWriter, r *http.Request) {
	var req vibeLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.service.CreateVibeLog(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVibeLogView(*entry))
}

func (h *Handler) handleUpdateVibeLog(w http.ResponseWriter, r *http.Request) {
	var req vibeLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.service.UpdateVibeLog(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), pathVar(r, "logID"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVibeLogView(*entry))
}

func (h *Handler) handleDeleteVibeLog(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVibeLog(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), pathVar(r, "logID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListFeedback(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]feedbackView, 0, len(entries))
	for _, f := range entries {
		items = append(items, toFeedbackView(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handlePostFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fb, err := h.service.PostFeedback(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeedbackView(*fb))
}

func (h *Handler) handleUpdateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fb, err := h.service.UpdateFeedback(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), pathVar(r, "fid"), req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackView(*fb))
}

func (h *Handler) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteFeedback(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"), pathVar(r, "fid")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggleSupport(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ToggleSupport(r.Context(), auth.UserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, supportView{Supported: result.Supported, SupportCount: result.SupportCount})
}
