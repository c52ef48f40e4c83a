package api

import (
	"time"

	"github.com/skozubek/startsnap/internal/domain"
)

type startSnapView struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	CategoryLabel    string    `json:"category_label"`
	Type             string    `json:"type"`
	LiveDemoURL      string    `json:"live_demo_url,omitempty"`
	DemoURL          string    `json:"demo_url,omitempty"`
	ScreenshotURLs   []string  `json:"screenshot_urls"`
	Tags             []string  `json:"tags"`
	ToolsUsed        []string  `json:"tools_used"`
	FeedbackTags     []string  `json:"feedback_tags"`
	IsHackathonEntry bool      `json:"is_hackathon_entry"`
	SupportCount     int       `json:"support_count"`
	FeedbackCount    int       `json:"feedback_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toStartSnapView(s domain.StartSnap) startSnapView {
	return startSnapView{
		ID:               s.ID,
		UserID:           s.UserID,
		Name:             s.Name,
		Description:      s.Description,
		Category:         s.Category,
		CategoryLabel:    domain.Categories[s.Category],
		Type:             s.Type,
		LiveDemoURL:      s.LiveDemoURL,
		DemoURL:          s.DemoURL,
		ScreenshotURLs:   nonNil(s.ScreenshotURLs),
		Tags:             nonNil(s.Tags),
		ToolsUsed:        nonNil(s.ToolsUsed),
		FeedbackTags:     nonNil(s.FeedbackTags),
		IsHackathonEntry: s.IsHackathonEntry,
		SupportCount:     s.SupportCount,
		FeedbackCount:    s.FeedbackCount,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toStartSnapViews(items []domain.StartSnap) []startSnapView {
	out := make([]startSnapView, 0, len(items))
	for _, s := range items {
		out = append(out, toStartSnapView(s))
	}
	return out
}

type creatorView struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	HasWallet bool   `json:"has_wallet"`
}

type startSnapDetailView struct {
	startSnapView
	Creator           *creatorView `json:"creator"`
	SupportedByViewer bool         `json:"supported_by_viewer"`
}

func toStartSnapDetailView(d domain.StartSnapDetail) startSnapDetailView {
	view := startSnapDetailView{
		startSnapView:     toStartSnapView(d.StartSnap),
		SupportedByViewer: d.SupportedByViewer,
	}
	if d.Creator != nil {
		view.Creator = &creatorView{
			UserID:    d.Creator.UserID,
			Username:  d.Creator.Username,
			AvatarURL: d.Creator.AvatarURL,
			HasWallet: d.Creator.HasWallet,
		}
	}
	return view
}

type vibeLogView struct {
	ID          string    `json:"id"`
	StartSnapID string    `json:"startsnap_id"`
	LogType     string    `json:"log_type"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toVibeLogView(l domain.VibeLog) vibeLogView {
	return vibeLogView{
		ID:          l.ID,
		StartSnapID: l.StartSnapID,
		LogType:     l.LogType,
		Title:       l.Title,
		Content:     l.Content,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

type feedbackView struct {
	ID          string    `json:"id"`
	StartSnapID string    `json:"startsnap_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toFeedbackView(f domain.Feedback) feedbackView {
	return feedbackView{
		ID:          f.ID,
		StartSnapID: f.StartSnapID,
		UserID:      f.UserID,
		Content:     f.Content,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

type supportView struct {
	Supported    bool `json:"supported"`
	SupportCount int  `json:"support_count"`
}

// profileView omits the wallet address unless the caller owns the profile.
type profileView struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Bio           string    `json:"bio,omitempty"`
	Status        string    `json:"status,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	GitHubURL     string    `json:"github_url,omitempty"`
	TwitterURL    string    `json:"twitter_url,omitempty"`
	LinkedInURL   string    `json:"linkedin_url,omitempty"`
	WebsiteURL    string    `json:"website_url,omitempty"`
	HasWallet     bool      `json:"has_wallet"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toProfileView(p domain.Profile, owner bool) profileView {
	view := profileView{
		ID:          p.ID,
		Username:    p.Username,
		Bio:         p.Bio,
		Status:      p.Status,
		AvatarURL:   p.AvatarURL,
		GitHubURL:   p.GitHubURL,
		TwitterURL:  p.TwitterURL,
		LinkedInURL: p.LinkedInURL,
		WebsiteURL:  p.WebsiteURL,
		HasWallet:   p.HasWallet(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if owner {
		view.WalletAddress = p.WalletAddress
	}
	return view
}

type activityView struct {
	ID         string         `json:"id"`
	ActionType string         `json:"action_type"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Visibility string         `json:"visibility"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type activityPage struct {
	Items      []activityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toActivityViews(items []domain.ActivityLog) []activityView {
	out := make([]activityView, 0, len(items))
	for _, a := range items {
		out = append(out, activityView{
			ID:         a.ID,
			ActionType: a.ActionType,
			TargetType: a.TargetType,
			TargetID:   a.TargetID,
			Visibility: a.Visibility,
			Metadata:   a.Metadata,
			CreatedAt:  a.CreatedAt,
		})
	}
	return out
}
