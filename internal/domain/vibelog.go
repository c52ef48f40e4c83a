package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Vibe log entry kinds.
const (
	LogTypeLaunch  = "launch"
	LogTypeUpdate  = "update"
	LogTypeFeature = "feature"
	LogTypeFix     = "fix"
)

// VibeLog is a timestamped progress update attached to a StartSnap.
type VibeLog struct {
	ID          string
	StartSnapID string
	LogType     string
	Title       string
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VibeLogInput carries create and update fields.
type VibeLogInput struct {
	LogType string
	Title   string
	Content string
}

// Normalize trims and lowercases input fields.
func (in VibeLogInput) Normalize() VibeLogInput {
	in.LogType = strings.ToLower(strings.TrimSpace(in.LogType))
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return in
}

// Validate checks a normalized input.
func (in VibeLogInput) Validate() error {
	var v validator
	switch in.LogType {
	case LogTypeLaunch, LogTypeUpdate, LogTypeFeature, LogTypeFix:
	default:
		v.add("log_type", "must be one of launch, update, feature, fix")
	}
	if n := utf8.RuneCountInString(in.Title); n < 1 || n > 120 {
		v.add("title", "must be between 1 and 120 characters")
	}
	if n := utf8.RuneCountInString(in.Content); n < 1 || n > 5000 {
		v.add("content", "must be between 1 and 5000 characters")
	}
	return v.err()
}
