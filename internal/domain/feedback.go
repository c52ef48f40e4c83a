package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Feedback is a peer comment on a StartSnap.
type Feedback struct {
	ID          string
	StartSnapID string
	UserID      string
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxFeedbackLength bounds feedback content.
const MaxFeedbackLength = 2000

func validateFeedback(content string) (string, error) {
	content = strings.TrimSpace(content)
	var v validator
	if n := utf8.RuneCountInString(content); n < 1 || n > MaxFeedbackLength {
		v.add("content", "must be between 1 and 2000 characters")
	}
	return content, v.err()
}
