package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// StartSnap project types.
const (
	TypeLive = "live"
	TypeIdea = "idea"
)

// Field limits enforced on StartSnap input.
const (
	MaxTags         = 10
	MaxTagLength    = 30
	MaxTools        = 10
	MaxFeedbackTags = 10
	MaxScreenshots  = 6
)

// StartSnap is a project showcased on the platform.
type StartSnap struct {
	ID               string
	UserID           string
	Name             string
	Description      string
	Category         string
	Type             string
	LiveDemoURL      string
	DemoURL          string
	ScreenshotURLs   []string
	Tags             []string
	ToolsUsed        []string
	FeedbackTags     []string
	IsHackathonEntry bool
	SupportCount     int
	FeedbackCount    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreatorSummary is the public slice of the creator's profile shown next to a StartSnap.
type CreatorSummary struct {
	UserID    string
	Username  string
	AvatarURL string
	HasWallet bool
}

// StartSnapDetail is a StartSnap as seen by a particular viewer.
type StartSnapDetail struct {
	StartSnap         StartSnap
	Creator           *CreatorSummary
	SupportedByViewer bool
}

// StartSnapInput carries create fields.
type StartSnapInput struct {
	Name             string
	Description      string
	Category         string
	Type             string
	LiveDemoURL      string
	DemoURL          string
	ScreenshotURLs   []string
	Tags             []string
	ToolsUsed        []string
	FeedbackTags     []string
	IsHackathonEntry bool
}

// StartSnapPatch carries a partial update; nil fields are left unchanged.
type StartSnapPatch struct {
	Name             *string
	Description      *string
	Category         *string
	Type             *string
	LiveDemoURL      *string
	DemoURL          *string
	ScreenshotURLs   *[]string
	Tags             *[]string
	ToolsUsed        *[]string
	FeedbackTags     *[]string
	IsHackathonEntry *bool
}

// Apply returns a copy of the input with the patch applied.
func (p StartSnapPatch) Apply(in StartSnapInput) StartSnapInput {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Type != nil {
		in.Type = *p.Type
	}
	if p.LiveDemoURL != nil {
		in.LiveDemoURL = *p.LiveDemoURL
	}
	if p.DemoURL != nil {
		in.DemoURL = *p.DemoURL
	}
	if p.ScreenshotURLs != nil {
		in.ScreenshotURLs = *p.ScreenshotURLs
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.ToolsUsed != nil {
		in.ToolsUsed = *p.ToolsUsed
	}
	if p.FeedbackTags != nil {
		in.FeedbackTags = *p.FeedbackTags
	}
	if p.IsHackathonEntry != nil {
		in.IsHackathonEntry = *p.IsHackathonEntry
	}
	return in
}

// InputOf extracts the mutable fields of a stored StartSnap.
func InputOf(s StartSnap) StartSnapInput {
	return StartSnapInput{
		Name:             s.Name,
		Description:      s.Description,
		Category:         s.Category,
		Type:             s.Type,
		LiveDemoURL:      s.LiveDemoURL,
		DemoURL:          s.DemoURL,
		ScreenshotURLs:   s.ScreenshotURLs,
		Tags:             s.Tags,
		ToolsUsed:        s.ToolsUsed,
		FeedbackTags:     s.FeedbackTags,
		IsHackathonEntry: s.IsHackathonEntry,
	}
}

// Normalize trims text, lowercases and de-duplicates tags, and drops empty list entries.
func (in StartSnapInput) Normalize() StartSnapInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.LiveDemoURL = strings.TrimSpace(in.LiveDemoURL)
	in.DemoURL = strings.TrimSpace(in.DemoURL)
	in.ScreenshotURLs = compact(in.ScreenshotURLs, false)
	in.Tags = compact(in.Tags, true)
	in.ToolsUsed = compact(in.ToolsUsed, false)
	in.FeedbackTags = compact(in.FeedbackTags, false)
	return in
}

// Validate checks a normalized input.
func (in StartSnapInput) Validate() error {
	var v validator

	if n := utf8.RuneCountInString(in.Name); n < 3 || n > 100 {
		v.add("name", "must be between 3 and 100 characters")
	}
	if n := utf8.RuneCountInString(in.Description); n < 10 || n > 5000 {
		v.add("description", "must be between 10 and 5000 characters")
	}
	if _, ok := Categories[in.Category]; !ok {
		v.add("category", "unknown category")
	}
	switch in.Type {
	case TypeLive:
		if in.LiveDemoURL == "" {
			v.add("live_demo_url", "required for live projects")
		}
	case TypeIdea:
	default:
		v.add("type", "must be live or idea")
	}
	if in.LiveDemoURL != "" && !validHTTPURL(in.LiveDemoURL) {
		v.add("live_demo_url", "must be an absolute http(s) URL")
	}
	if in.DemoURL != "" && !validHTTPURL(in.DemoURL) {
		v.add("demo_url", "must be an absolute http(s) URL")
	}
	if len(in.ScreenshotURLs) > MaxScreenshots {
		v.add("screenshot_urls", "too many screenshots")
	}
	for _, u := range in.ScreenshotURLs {
		if !validHTTPURL(u) {
			v.add("screenshot_urls", "must contain absolute http(s) URLs")
			break
		}
	}
	if len(in.Tags) > MaxTags {
		v.add("tags", "too many tags")
	}
	for _, tag := range in.Tags {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			v.add("tags", "tags must be at most 30 characters")
			break
		}
	}
	if len(in.ToolsUsed) > MaxTools {
		v.add("tools_used", "too many tools")
	}
	if len(in.FeedbackTags) > MaxFeedbackTags {
		v.add("feedback_tags", "too many feedback tags")
	}
	return v.err()
}

// Discovery sort orders.
const (
	SortNewest        = "newest"
	SortOldest        = "oldest"
	SortMostSupported = "most_supported"
	SortMostFeedback  = "most_feedback"
	SortName          = "name"
)

// Discovery page sizes.
const (
	DefaultDiscoverLimit = 12
	MaxDiscoverLimit     = 48
)

// DiscoverQuery filters and orders the StartSnap listing.
type DiscoverQuery struct {
	Query     string
	Category  string
	Type      string
	Tags      []string
	Hackathon *bool
	Sort      string
	Limit     int
	Offset    int
}

// Normalize applies defaults and clamps paging.
func (q DiscoverQuery) Normalize() DiscoverQuery {
	q.Query = strings.TrimSpace(q.Query)
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	q.Tags = compact(q.Tags, true)
	switch q.Sort {
	case SortNewest, SortOldest, SortMostSupported, SortMostFeedback, SortName:
	default:
		q.Sort = SortNewest
	}
	if q.Limit <= 0 {
		q.Limit = DefaultDiscoverLimit
	}
	if q.Limit > MaxDiscoverLimit {
		q.Limit = MaxDiscoverLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Validate rejects filter values that can never match.
func (q DiscoverQuery) Validate() error {
	var v validator
	if q.Category != "" {
		if _, ok := Categories[q.Category]; !ok {
			v.add("category", "unknown category")
		}
	}
	if q.Type != "" && q.Type != TypeLive && q.Type != TypeIdea {
		v.add("type", "must be live or idea")
	}
	return v.err()
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func compact(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
