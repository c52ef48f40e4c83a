package domain

import "context"

// Read methods return (nil, nil) when the row does not exist. Write methods record
// the supplied events in the same transaction as the change.

// StartSnapRepository captures StartSnap persistence.
type StartSnapRepository interface {
	CreateStartSnap(ctx context.Context, snap StartSnap, launch VibeLog, evts []Event) error
	GetStartSnap(ctx context.Context, id string) (*StartSnap, error)
	UpdateStartSnap(ctx context.Context, snap StartSnap, evts []Event) error
	DeleteStartSnap(ctx context.Context, snap StartSnap, evts []Event) error
	DiscoverStartSnaps(ctx context.Context, q DiscoverQuery) ([]StartSnap, error)
	ListStartSnapsByCreator(ctx context.Context, userID string) ([]StartSnap, error)
}

// VibeLogRepository captures vibe log persistence. actorID is the StartSnap owner.
type VibeLogRepository interface {
	ListVibeLogs(ctx context.Context, startSnapID string) ([]VibeLog, error)
	GetVibeLog(ctx context.Context, startSnapID, id string) (*VibeLog, error)
	CreateVibeLog(ctx context.Context, actorID string, log VibeLog, evts []Event) error
	UpdateVibeLog(ctx context.Context, actorID string, log VibeLog) error
	DeleteVibeLog(ctx context.Context, actorID string, log VibeLog) error
}

// FeedbackRepository captures feedback persistence and keeps feedback_count in step.
type FeedbackRepository interface {
	ListFeedback(ctx context.Context, startSnapID string) ([]Feedback, error)
	GetFeedback(ctx context.Context, startSnapID, id string) (*Feedback, error)
	CreateFeedback(ctx context.Context, fb Feedback, evts []Event) error
	UpdateFeedback(ctx context.Context, fb Feedback) error
	DeleteFeedback(ctx context.Context, fb Feedback) error
}

// SupportRepository captures the supporters relation.
type SupportRepository interface {
	IsSupporter(ctx context.Context, startSnapID, userID string) (bool, error)
	// ToggleSupport flips membership and updates support_count atomically. The event
	// is built from the resulting state and recorded in the same transaction.
	ToggleSupport(ctx context.Context, snap StartSnap, userID string, event func(SupportResult) Event) (SupportResult, error)
}

// ProfileRepository captures profile persistence.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)
	// UpsertProfile returns ErrUsernameTaken when another profile holds the username.
	UpsertProfile(ctx context.Context, p Profile, evts []Event) (*Profile, error)
	// SetWallet returns ErrProfileNotFound when the user has no profile.
	SetWallet(ctx context.Context, userID, address string, evts []Event) (*Profile, error)
}

// TipRepository captures confirmed tips.
type TipRepository interface {
	FindTipByTxID(ctx context.Context, txID string) (*Tip, error)
	FindTipByIdempotencyKey(ctx context.Context, senderUserID, key string) (*Tip, error)
	// RecordTip returns ErrTipExists when the transaction id is already recorded.
	RecordTip(ctx context.Context, tip Tip, evts []Event) error
}

// ActivityRepository captures the activity log projection.
type ActivityRepository interface {
	// RecordActivity inserts rows, skipping event keys already present, and
	// returns how many were inserted.
	RecordActivity(ctx context.Context, logs []ActivityLog) (int, error)
	ListActivity(ctx context.Context, q ActivityQuery) ([]ActivityLog, *Cursor, error)
}

// Repository is the full persistence surface the service needs.
type Repository interface {
	StartSnapRepository
	VibeLogRepository
	FeedbackRepository
	SupportRepository
	ProfileRepository
	TipRepository
	ActivityRepository
}
