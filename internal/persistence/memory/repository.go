// Package memory provides an in-process repository for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skozubek/startsnap/internal/domain"
)

// Repository stores every aggregate in maps guarded by a single lock. Events are
// projected into the activity log synchronously instead of going through Kafka.
type Repository struct {
	mu         sync.RWMutex
	startsnaps map[string]domain.StartSnap
	vibelogs   map[string]domain.VibeLog
	feedback   map[string]domain.Feedback
	supporters map[string]map[string]struct{}
	profiles   map[string]domain.Profile
	tips       map[string]domain.Tip
	activity   map[string]domain.ActivityLog
	events     []domain.Event
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		startsnaps: make(map[string]domain.StartSnap),
		vibelogs:   make(map[string]domain.VibeLog),
		feedback:   make(map[string]domain.Feedback),
		supporters: make(map[string]map[string]struct{}),
		profiles:   make(map[string]domain.Profile),
		tips:       make(map[string]domain.Tip),
		activity:   make(map[string]domain.ActivityLog),
	}
}

var _ domain.Repository = (*Repository)(nil)

// Events returns a copy of every event recorded so far.
func (r *Repository) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// recordLocked appends events and projects them. Callers hold the write lock.
func (r *Repository) recordLocked(evts []domain.Event) error {
	for _, evt := range evts {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		logs, err := domain.ProjectActivity(evt.ID, evt.Type, payload)
		if err != nil {
			return err
		}
		r.insertActivityLocked(logs)
		r.events = append(r.events, evt)
	}
	return nil
}

func (r *Repository) insertActivityLocked(logs []domain.ActivityLog) int {
	inserted := 0
	for _, l := range logs {
		if _, exists := r.activity[l.EventKey]; exists {
			continue
		}
		r.activity[l.EventKey] = l
		inserted++
	}
	return inserted
}

// CreateStartSnap implements domain.StartSnapRepository.
func (r *Repository) CreateStartSnap(ctx context.Context, snap domain.StartSnap, launch domain.VibeLog, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startsnaps[snap.ID] = cloneStartSnap(snap)
	r.vibelogs[launch.ID] = launch
	return r.recordLocked(evts)
}

// GetStartSnap implements domain.StartSnapRepository.
func (r *Repository) GetStartSnap(ctx context.Context, id string) (*domain.StartSnap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.startsnaps[id]
	if !ok {
		return nil, nil
	}
	out := cloneStartSnap(snap)
	return &out, nil
}

// UpdateStartSnap implements domain.StartSnapRepository. Counters are owned by the store.
func (r *Repository) UpdateStartSnap(ctx context.Context, snap domain.StartSnap, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.startsnaps[snap.ID]
	if !ok || current.UserID != snap.UserID {
		return domain.ErrStartSnapNotFound
	}
	snap.SupportCount = current.SupportCount
	snap.FeedbackCount = current.FeedbackCount
	snap.CreatedAt = current.CreatedAt
	r.startsnaps[snap.ID] = cloneStartSnap(snap)
	return r.recordLocked(evts)
}

// DeleteStartSnap implements domain.StartSnapRepository and cascades children.
func (r *Repository) DeleteStartSnap(ctx context.Context, snap domain.StartSnap, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.startsnaps[snap.ID]
	if !ok || current.UserID != snap.UserID {
		return domain.ErrStartSnapNotFound
	}
	delete(r.startsnaps, snap.ID)
	for id, l := range r.vibelogs {
		if l.StartSnapID == snap.ID {
			delete(r.vibelogs, id)
		}
	}
	for id, fb := range r.feedback {
		if fb.StartSnapID == snap.ID {
			delete(r.feedback, id)
		}
	}
	delete(r.supporters, snap.ID)
	return r.recordLocked(evts)
}

// DiscoverStartSnaps implements domain.StartSnapRepository.
func (r *Repository) DiscoverStartSnaps(ctx context.Context, q domain.DiscoverQuery) ([]domain.StartSnap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(q.Query)
	matches := make([]domain.StartSnap, 0)
	for _, snap := range r.startsnaps {
		if needle != "" && !matchesText(snap, needle) {
			continue
		}
		if q.Category != "" && snap.Category != q.Category {
			continue
		}
		if q.Type != "" && snap.Type != q.Type {
			continue
		}
		if q.Hackathon != nil && snap.IsHackathonEntry != *q.Hackathon {
			continue
		}
		if !containsAll(snap.Tags, q.Tags) {
			continue
		}
		matches = append(matches, cloneStartSnap(snap))
	}

	sortStartSnaps(matches, q.Sort)

	if q.Offset >= len(matches) {
		return []domain.StartSnap{}, nil
	}
	matches = matches[q.Offset:]
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// ListStartSnapsByCreator implements domain.StartSnapRepository.
func (r *Repository) ListStartSnapsByCreator(ctx context.Context, userID string) ([]domain.StartSnap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StartSnap, 0)
	for _, snap := range r.startsnaps {
		if snap.UserID == userID {
			out = append(out, cloneStartSnap(snap))
		}
	}
	sortStartSnaps(out, domain.SortNewest)
	return out, nil
}

// ListVibeLogs implements domain.VibeLogRepository.
func (r *Repository) ListVibeLogs(ctx context.Context, startSnapID string) ([]domain.VibeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.VibeLog, 0)
	for _, l := range r.vibelogs {
		if l.StartSnapID == startSnapID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetVibeLog implements domain.VibeLogRepository.
func (r *Repository) GetVibeLog(ctx context.Context, startSnapID, id string) (*domain.VibeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.vibelogs[id]
	if !ok || l.StartSnapID != startSnapID {
		return nil, nil
	}
	return &l, nil
}

// CreateVibeLog implements domain.VibeLogRepository.
func (r *Repository) CreateVibeLog(ctx context.Context, actorID string, log domain.VibeLog, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.startsnaps[log.StartSnapID]; !ok {
		return domain.ErrStartSnapNotFound
	}
	r.vibelogs[log.ID] = log
	return r.recordLocked(evts)
}

// UpdateVibeLog implements domain.VibeLogRepository.
func (r *Repository) UpdateVibeLog(ctx context.Context, actorID string, log domain.VibeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vibelogs[log.ID]; !ok {
		return domain.ErrVibeLogNotFound
	}
	r.vibelogs[log.ID] = log
	return nil
}

// DeleteVibeLog implements domain.VibeLogRepository.
func (r *Repository) DeleteVibeLog(ctx context.Context, actorID string, log domain.VibeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vibelogs[log.ID]; !ok {
		return domain.ErrVibeLogNotFound
	}
	delete(r.vibelogs, log.ID)
	return nil
}

// ListFeedback implements domain.FeedbackRepository.
func (r *Repository) ListFeedback(ctx context.Context, startSnapID string) ([]domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Feedback, 0)
	for _, fb := range r.feedback {
		if fb.StartSnapID == startSnapID {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetFeedback implements domain.FeedbackRepository.
func (r *Repository) GetFeedback(ctx context.Context, startSnapID, id string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fb, ok := r.feedback[id]
	if !ok || fb.StartSnapID != startSnapID {
		return nil, nil
	}
	return &fb, nil
}

// CreateFeedback implements domain.FeedbackRepository.
func (r *Repository) CreateFeedback(ctx context.Context, fb domain.Feedback, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.startsnaps[fb.StartSnapID]
	if !ok {
		return domain.ErrStartSnapNotFound
	}
	r.feedback[fb.ID] = fb
	snap.FeedbackCount++
	r.startsnaps[snap.ID] = snap
	return r.recordLocked(evts)
}

// UpdateFeedback implements domain.FeedbackRepository.
func (r *Repository) UpdateFeedback(ctx context.Context, fb domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.feedback[fb.ID]; !ok {
		return domain.ErrFeedbackNotFound
	}
	r.feedback[fb.ID] = fb
	return nil
}

// DeleteFeedback implements domain.FeedbackRepository.
func (r *Repository) DeleteFeedback(ctx context.Context, fb domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.feedback[fb.ID]; !ok {
		return domain.ErrFeedbackNotFound
	}
	delete(r.feedback, fb.ID)
	if snap, ok := r.startsnaps[fb.StartSnapID]; ok && snap.FeedbackCount > 0 {
		snap.FeedbackCount--
		r.startsnaps[snap.ID] = snap
	}
	return nil
}

// IsSupporter implements domain.SupportRepository.
func (r *Repository) IsSupporter(ctx context.Context, startSnapID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.supporters[startSnapID][userID]
	return ok, nil
}

// ToggleSupport implements domain.SupportRepository.
func (r *Repository) ToggleSupport(ctx context.Context, snap domain.StartSnap, userID string, event func(domain.SupportResult) domain.Event) (domain.SupportResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.startsnaps[snap.ID]
	if !ok {
		return domain.SupportResult{}, domain.ErrStartSnapNotFound
	}
	set := r.supporters[snap.ID]
	if set == nil {
		set = make(map[string]struct{})
		r.supporters[snap.ID] = set
	}

	var result domain.SupportResult
	if _, supported := set[userID]; supported {
		delete(set, userID)
	} else {
		set[userID] = struct{}{}
		result.Supported = true
	}
	result.SupportCount = len(set)
	current.SupportCount = result.SupportCount
	r.startsnaps[snap.ID] = current

	if err := r.recordLocked([]domain.Event{event(result)}); err != nil {
		return domain.SupportResult{}, err
	}
	return result, nil
}

// GetProfile implements domain.ProfileRepository.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetProfileByUsername implements domain.ProfileRepository.
func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, nil
}

// UpsertProfile implements domain.ProfileRepository.
func (r *Repository) UpsertProfile(ctx context.Context, p domain.Profile, evts []domain.Event) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, other := range r.profiles {
		if id != p.ID && strings.EqualFold(other.Username, p.Username) {
			return nil, domain.ErrUsernameTaken
		}
	}
	if existing, ok := r.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
		p.WalletAddress = existing.WalletAddress
	}
	r.profiles[p.ID] = p
	if err := r.recordLocked(evts); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetWallet implements domain.ProfileRepository.
func (r *Repository) SetWallet(ctx context.Context, userID, address string, evts []domain.Event) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	p.WalletAddress = address
	p.UpdatedAt = time.Now().UTC()
	r.profiles[userID] = p
	if err := r.recordLocked(evts); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindTipByTxID implements domain.TipRepository.
func (r *Repository) FindTipByTxID(ctx context.Context, txID string) (*domain.Tip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tips {
		if t.TxID == txID {
			return &t, nil
		}
	}
	return nil, nil
}

// FindTipByIdempotencyKey implements domain.TipRepository.
func (r *Repository) FindTipByIdempotencyKey(ctx context.Context, senderUserID, key string) (*domain.Tip, error) {
	if key == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tips {
		if t.SenderUserID == senderUserID && t.IdempotencyKey == key {
			return &t, nil
		}
	}
	return nil, nil
}

// RecordTip implements domain.TipRepository.
func (r *Repository) RecordTip(ctx context.Context, tip domain.Tip, evts []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tips {
		if t.TxID == tip.TxID {
			return domain.ErrTipExists
		}
	}
	r.tips[tip.ID] = tip
	return r.recordLocked(evts)
}

// RecordActivity implements domain.ActivityRepository.
func (r *Repository) RecordActivity(ctx context.Context, logs []domain.ActivityLog) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertActivityLocked(logs), nil
}

// ListActivity implements domain.ActivityRepository.
func (r *Repository) ListActivity(ctx context.Context, q domain.ActivityQuery) ([]domain.ActivityLog, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]domain.ActivityLog, 0)
	for _, l := range r.activity {
		if l.UserID != q.UserID {
			continue
		}
		if q.PublicOnly && l.Visibility != domain.VisibilityPublic {
			continue
		}
		if q.Cursor != nil && !before(l, q.Cursor) {
			continue
		}
		rows = append(rows, l)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	var next *domain.Cursor
	if q.Limit > 0 && len(rows) == q.Limit {
		last := rows[len(rows)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// before reports whether l sorts strictly after the cursor position in (created_at, id) DESC order.
func before(l domain.ActivityLog, c *domain.Cursor) bool {
	if l.CreatedAt.Equal(c.CreatedAt) {
		return l.ID < c.ID
	}
	return l.CreatedAt.Before(c.CreatedAt)
}

func matchesText(snap domain.StartSnap, needle string) bool {
	if strings.Contains(strings.ToLower(snap.Name), needle) || strings.Contains(strings.ToLower(snap.Description), needle) {
		return true
	}
	for _, tag := range snap.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func sortStartSnaps(items []domain.StartSnap, order string) {
	newer := func(a, b domain.StartSnap) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case domain.SortOldest:
			return newer(b, a)
		case domain.SortMostSupported:
			if a.SupportCount != b.SupportCount {
				return a.SupportCount > b.SupportCount
			}
		case domain.SortMostFeedback:
			if a.FeedbackCount != b.FeedbackCount {
				return a.FeedbackCount > b.FeedbackCount
			}
		case domain.SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		}
		return newer(a, b)
	})
}

func cloneStartSnap(s domain.StartSnap) domain.StartSnap {
	s.ScreenshotURLs = append([]string(nil), s.ScreenshotURLs...)
	s.Tags = append([]string(nil), s.Tags...)
	s.ToolsUsed = append([]string(nil), s.ToolsUsed...)
	s.FeedbackTags = append([]string(nil), s.FeedbackTags...)
	return s
}
