// Package domain defines the business logic for the StartSnap service.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/google/uuid"

	"github.com/skozubek/startsnap/internal/platform/events"
)

// Service orchestrates StartSnap workflows.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Repository exposes the underlying repository to collaborating workflows.
func (s *Service) Repository() Repository {
	return s.repo
}

// CreateStartSnap validates and stores a new StartSnap together with its launch log.
func (s *Service) CreateStartSnap(ctx context.Context, userID string, in StartSnapInput) (*StartSnap, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	snap := StartSnap{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             in.Name,
		Description:      in.Description,
		Category:         in.Category,
		Type:             in.Type,
		LiveDemoURL:      in.LiveDemoURL,
		DemoURL:          in.DemoURL,
		ScreenshotURLs:   in.ScreenshotURLs,
		Tags:             in.Tags,
		ToolsUsed:        in.ToolsUsed,
		FeedbackTags:     in.FeedbackTags,
		IsHackathonEntry: in.IsHackathonEntry,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	launch := VibeLog{
		ID:          uuid.NewString(),
		StartSnapID: snap.ID,
		LogType:     LogTypeLaunch,
		Title:       "Launched " + snap.Name,
		Content:     snap.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	evts := []Event{startSnapEvent(events.TypeStartSnapCreated, snap, now)}
	if err := s.repo.CreateStartSnap(ctx, snap, launch, evts); err != nil {
		return nil, fmt.Errorf("create startsnap: %w", err)
	}
	return &snap, nil
}

// GetStartSnap returns a StartSnap with its creator card and the viewer's support state.
func (s *Service) GetStartSnap(ctx context.Context, viewerID, id string) (*StartSnapDetail, error) {
	snap, err := s.getStartSnap(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &StartSnapDetail{StartSnap: *snap}

	creator, err := s.repo.GetProfile(ctx, snap.UserID)
	if err != nil {
		return nil, err
	}
	if creator != nil {
		detail.Creator = creator.Summary()
	}

	if viewerID != "" {
		supported, err := s.repo.IsSupporter(ctx, snap.ID, viewerID)
		if err != nil {
			return nil, err
		}
		detail.SupportedByViewer = supported
	}
	return detail, nil
}

// UpdateStartSnap applies a partial update on behalf of the owner.
func (s *Service) UpdateStartSnap(ctx context.Context, userID, id string, patch StartSnapPatch) (*StartSnap, error) {
	snap, err := s.ownedStartSnap(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	in := patch.Apply(InputOf(*snap)).Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated := *snap
	updated.Name = in.Name
	updated.Description = in.Description
	updated.Category = in.Category
	updated.Type = in.Type
	updated.LiveDemoURL = in.LiveDemoURL
	updated.DemoURL = in.DemoURL
	updated.ScreenshotURLs = in.ScreenshotURLs
	updated.Tags = in.Tags
	updated.ToolsUsed = in.ToolsUsed
	updated.FeedbackTags = in.FeedbackTags
	updated.IsHackathonEntry = in.IsHackathonEntry
	updated.UpdatedAt = s.now()

	evts := []Event{startSnapEvent(events.TypeStartSnapUpdated, updated, updated.UpdatedAt)}
	if err := s.repo.UpdateStartSnap(ctx, updated, evts); err != nil {
		return nil, fmt.Errorf("update startsnap: %w", err)
	}
	return &updated, nil
}

// DeleteStartSnap removes a StartSnap and everything attached to it.
func (s *Service) DeleteStartSnap(ctx context.Context, userID, id string) error {
	snap, err := s.ownedStartSnap(ctx, userID, id)
	if err != nil {
		return err
	}
	evts := []Event{startSnapEvent(events.TypeStartSnapDeleted, *snap, s.now())}
	if err := s.repo.DeleteStartSnap(ctx, *snap, evts); err != nil {
		return fmt.Errorf("delete startsnap: %w", err)
	}
	return nil
}

// DiscoverStartSnaps searches, filters, and orders the public listing.
func (s *Service) DiscoverStartSnaps(ctx context.Context, q DiscoverQuery) ([]StartSnap, DiscoverQuery, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, q, err
	}
	items, err := s.repo.DiscoverStartSnaps(ctx, q)
	if err != nil {
		return nil, q, err
	}
	return items, q, nil
}

// ListStartSnapsByCreator lists a creator's StartSnaps newest first.
func (s *Service) ListStartSnapsByCreator(ctx context.Context, userID string) ([]StartSnap, error) {
	return s.repo.ListStartSnapsByCreator(ctx, userID)
}

// ListVibeLogs lists a StartSnap's vibe logs newest first.
func (s *Service) ListVibeLogs(ctx context.Context, startSnapID string) ([]VibeLog, error) {
	if _, err := s.getStartSnap(ctx, startSnapID); err != nil {
		return nil, err
	}
	return s.repo.ListVibeLogs(ctx, startSnapID)
}

// CreateVibeLog posts a new vibe log entry on behalf of the owner.
func (s *Service) CreateVibeLog(ctx context.Context, userID, startSnapID string, in VibeLogInput) (*VibeLog, error) {
	snap, err := s.ownedStartSnap(ctx, userID, startSnapID)
	if err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	entry := VibeLog{
		ID:          uuid.NewString(),
		StartSnapID: snap.ID,
		LogType:     in.LogType,
		Title:       in.Title,
		Content:     in.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	evt := newEvent(events.TypeVibeLogPosted, AggregateStartSnap, snap.ID, userID, events.VibeLogPosted{
		VibeLogID:   entry.ID,
		StartSnapID: snap.ID,
		UserID:      userID,
		LogType:     entry.LogType,
		Title:       entry.Title,
		OccurredAt:  now,
	}, now)
	if err := s.repo.CreateVibeLog(ctx, userID, entry, []Event{evt}); err != nil {
		return nil, fmt.Errorf("create vibe log: %w", err)
	}
	return &entry, nil
}

// UpdateVibeLog edits a vibe log entry on behalf of the owner.
func (s *Service) UpdateVibeLog(ctx context.Context, userID, startSnapID, logID string, in VibeLogInput) (*VibeLog, error) {
	if _, err := s.ownedStartSnap(ctx, userID, startSnapID); err != nil {
		return nil, err
	}
	entry, err := s.getVibeLog(ctx, startSnapID, logID)
	if err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry.LogType = in.LogType
	entry.Title = in.Title
	entry.Content = in.Content
	entry.UpdatedAt = s.now()
	if err := s.repo.UpdateVibeLog(ctx, userID, *entry); err != nil {
		return nil, fmt.Errorf("update vibe log: %w", err)
	}
	return entry, nil
}

// DeleteVibeLog removes a vibe log entry on behalf of the owner.
func (s *Service) DeleteVibeLog(ctx context.Context, userID, startSnapID, logID string) error {
	if _, err := s.ownedStartSnap(ctx, userID, startSnapID); err != nil {
		return err
	}
	entry, err := s.getVibeLog(ctx, startSnapID, logID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVibeLog(ctx, userID, *entry); err != nil {
		return fmt.Errorf("delete vibe log: %w", err)
	}
	return nil
}

// ListFeedback lists feedback on a StartSnap newest first.
func (s *Service) ListFeedback(ctx context.Context, startSnapID string) ([]Feedback, error) {
	if _, err := s.getStartSnap(ctx, startSnapID); err != nil {
		return nil, err
	}
	return s.repo.ListFeedback(ctx, startSnapID)
}

// PostFeedback leaves feedback on a StartSnap.
func (s *Service) PostFeedback(ctx context.Context, userID, startSnapID, content string) (*Feedback, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	snap, err := s.getStartSnap(ctx, startSnapID)
	if err != nil {
		return nil, err
	}
	content, err = validateFeedback(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fb := Feedback{
		ID:          uuid.NewString(),
		StartSnapID: snap.ID,
		UserID:      userID,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	evt := newEvent(events.TypeFeedbackPosted, AggregateStartSnap, snap.ID, userID, events.FeedbackPosted{
		FeedbackID:  fb.ID,
		StartSnapID: snap.ID,
		UserID:      userID,
		CreatorID:   snap.UserID,
		OccurredAt:  now,
	}, now)
	if err := s.repo.CreateFeedback(ctx, fb, []Event{evt}); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return &fb, nil
}

// UpdateFeedback edits feedback on behalf of its author.
func (s *Service) UpdateFeedback(ctx context.Context, userID, startSnapID, feedbackID, content string) (*Feedback, error) {
	fb, err := s.authoredFeedback(ctx, userID, startSnapID, feedbackID)
	if err != nil {
		return nil, err
	}
	content, err = validateFeedback(content)
	if err != nil {
		return nil, err
	}
	fb.Content = content
	fb.UpdatedAt = s.now()
	if err := s.repo.UpdateFeedback(ctx, *fb); err != nil {
		return nil, fmt.Errorf("update feedback: %w", err)
	}
	return fb, nil
}

// DeleteFeedback removes feedback on behalf of its author.
func (s *Service) DeleteFeedback(ctx context.Context, userID, startSnapID, feedbackID string) error {
	fb, err := s.authoredFeedback(ctx, userID, startSnapID, feedbackID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFeedback(ctx, *fb); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}

// ToggleSupport flips the caller's support for a StartSnap.
func (s *Service) ToggleSupport(ctx context.Context, userID, startSnapID string) (SupportResult, error) {
	if userID == "" {
		return SupportResult{}, ErrUnauthenticated
	}
	snap, err := s.getStartSnap(ctx, startSnapID)
	if err != nil {
		return SupportResult{}, err
	}
	if snap.UserID == userID {
		return SupportResult{}, ErrSelfSupport
	}
	now := s.now()
	result, err := s.repo.ToggleSupport(ctx, *snap, userID, func(r SupportResult) Event {
		return SupportToggledEvent(*snap, userID, r, now)
	})
	if err != nil {
		return SupportResult{}, fmt.Errorf("toggle support: %w", err)
	}
	return result, nil
}

// GetOwnProfile returns the caller's profile.
func (s *Service) GetOwnProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// GetProfileByUsername returns a public profile and the creator's StartSnaps.
func (s *Service) GetProfileByUsername(ctx context.Context, username string) (*Profile, []StartSnap, error) {
	p, err := s.repo.GetProfileByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrProfileNotFound
	}
	snaps, err := s.repo.ListStartSnapsByCreator(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return p, snaps, nil
}

// UpsertProfile creates or edits the caller's profile. The wallet is left untouched.
func (s *Service) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p := Profile{
		ID:          userID,
		Username:    in.Username,
		Bio:         in.Bio,
		Status:      in.Status,
		AvatarURL:   in.AvatarURL,
		GitHubURL:   in.GitHubURL,
		TwitterURL:  in.TwitterURL,
		LinkedInURL: in.LinkedInURL,
		WebsiteURL:  in.WebsiteURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	evt := newEvent(events.TypeProfileUpdated, AggregateProfile, userID, userID, events.ProfileUpdated{
		UserID:     userID,
		Username:   p.Username,
		OccurredAt: now,
	}, now)
	stored, err := s.repo.UpsertProfile(ctx, p, []Event{evt})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return stored, nil
}

// ConnectWallet validates an Algorand address and stores it on the caller's profile.
func (s *Service) ConnectWallet(ctx context.Context, userID, address string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	address = strings.TrimSpace(address)
	if _, err := types.DecodeAddress(address); err != nil {
		return nil, FieldError("wallet_address", "not a valid Algorand address")
	}
	return s.setWallet(ctx, userID, address)
}

// RemoveWallet clears the caller's wallet address.
func (s *Service) RemoveWallet(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.setWallet(ctx, userID, "")
}

func (s *Service) setWallet(ctx context.Context, userID, address string) (*Profile, error) {
	now := s.now()
	evt := newEvent(events.TypeWalletChanged, AggregateProfile, userID, userID, events.WalletChanged{
		UserID:     userID,
		Connected:  address != "",
		OccurredAt: now,
	}, now)
	p, err := s.repo.SetWallet(ctx, userID, address, []Event{evt})
	if err != nil {
		return nil, fmt.Errorf("set wallet: %w", err)
	}
	return p, nil
}

// ListOwnActivity lists the caller's activity, including private entries.
func (s *Service) ListOwnActivity(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityLog, *Cursor, error) {
	if userID == "" {
		return nil, nil, ErrUnauthenticated
	}
	return s.repo.ListActivity(ctx, ActivityQuery{UserID: userID, Cursor: cursor, Limit: clampActivityLimit(limit)})
}

// ListPublicActivity lists a user's public activity by username.
func (s *Service) ListPublicActivity(ctx context.Context, username string, cursor *Cursor, limit int) ([]ActivityLog, *Cursor, error) {
	p, err := s.repo.GetProfileByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrProfileNotFound
	}
	return s.repo.ListActivity(ctx, ActivityQuery{UserID: p.ID, PublicOnly: true, Cursor: cursor, Limit: clampActivityLimit(limit)})
}

// RecordActivity projects a published event into the activity log.
func (s *Service) RecordActivity(ctx context.Context, eventID, eventType string, payload []byte) (int, error) {
	logs, err := ProjectActivity(eventID, eventType, payload)
	if err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}
	return s.repo.RecordActivity(ctx, logs)
}

func (s *Service) getStartSnap(ctx context.Context, id string) (*StartSnap, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStartSnapNotFound
	}
	snap, err := s.repo.GetStartSnap(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrStartSnapNotFound
	}
	return snap, nil
}

func (s *Service) ownedStartSnap(ctx context.Context, userID, id string) (*StartSnap, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	snap, err := s.getStartSnap(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.UserID != userID {
		return nil, ErrForbidden
	}
	return snap, nil
}

func (s *Service) getVibeLog(ctx context.Context, startSnapID, id string) (*VibeLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrVibeLogNotFound
	}
	entry, err := s.repo.GetVibeLog(ctx, startSnapID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrVibeLogNotFound
	}
	return entry, nil
}

func (s *Service) authoredFeedback(ctx context.Context, userID, startSnapID, id string) (*Feedback, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrFeedbackNotFound
	}
	fb, err := s.repo.GetFeedback(ctx, startSnapID, id)
	if err != nil {
		return nil, err
	}
	if fb == nil {
		return nil, ErrFeedbackNotFound
	}
	if fb.UserID != userID {
		return nil, ErrForbidden
	}
	return fb, nil
}
