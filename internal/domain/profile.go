package domain

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,30}$`)

// AvatarBaseURL renders deterministic avatars seeded by username.
const AvatarBaseURL = "https://api.dicebear.com/7.x/bottts/svg"

// Profile is a builder's public identity. ID equals the auth user id.
type Profile struct {
	ID            string
	Username      string
	Bio           string
	Status        string
	AvatarURL     string
	GitHubURL     string
	TwitterURL    string
	LinkedInURL   string
	WebsiteURL    string
	WalletAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasWallet reports whether the profile can receive tips.
func (p Profile) HasWallet() bool {
	return p.WalletAddress != ""
}

// Summary returns the creator card for the profile.
func (p Profile) Summary() *CreatorSummary {
	return &CreatorSummary{UserID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL, HasWallet: p.HasWallet()}
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	Username    string
	Bio         string
	Status      string
	AvatarURL   string
	GitHubURL   string
	TwitterURL  string
	LinkedInURL string
	WebsiteURL  string
}

// Normalize trims fields, lowercases the username, and fills the generated avatar.
func (in ProfileInput) Normalize() ProfileInput {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Bio = strings.TrimSpace(in.Bio)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	in.GitHubURL = strings.TrimSpace(in.GitHubURL)
	in.TwitterURL = strings.TrimSpace(in.TwitterURL)
	in.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	if in.AvatarURL == "" && in.Username != "" {
		in.AvatarURL = GeneratedAvatarURL(in.Username)
	}
	return in
}

// Validate checks a normalized input.
func (in ProfileInput) Validate() error {
	var v validator
	if !usernamePattern.MatchString(in.Username) {
		v.add("username", "must be 3-30 characters of a-z, 0-9, _ or -")
	}
	if utf8.RuneCountInString(in.Bio) > 500 {
		v.add("bio", "must be at most 500 characters")
	}
	if in.Status != "" && !validStatus(in.Status) {
		v.add("status", "unknown status")
	}
	for field, value := range map[string]string{
		"avatar_url":   in.AvatarURL,
		"github_url":   in.GitHubURL,
		"twitter_url":  in.TwitterURL,
		"linkedin_url": in.LinkedInURL,
		"website_url":  in.WebsiteURL,
	} {
		if value != "" && !validHTTPURL(value) {
			v.add(field, "must be an absolute http(s) URL")
		}
	}
	return v.err()
}

// GeneratedAvatarURL returns the default avatar for a username.
func GeneratedAvatarURL(username string) string {
	return AvatarBaseURL + "?seed=" + url.QueryEscape(username)
}
