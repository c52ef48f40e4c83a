package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

const vibeLogColumns = `id::text, startsnap_id::text, log_type, title, content, created_at, updated_at`

func insertVibeLog(ctx context.Context, tx pgx.Tx, l domain.VibeLog) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO vibelogs (id, startsnap_id, log_type, title, content, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.StartSnapID, l.LogType, l.Title, l.Content, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func scanVibeLog(row pgx.Row) (domain.VibeLog, error) {
	var l domain.VibeLog
	err := row.Scan(&l.ID, &l.StartSnapID, &l.LogType, &l.Title, &l.Content, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// ListVibeLogs lists a StartSnap's vibe logs newest first.
func (r *Repository) ListVibeLogs(ctx context.Context, startSnapID string) ([]domain.VibeLog, error) {
	out := make([]domain.VibeLog, 0)
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+vibeLogColumns+` FROM vibelogs WHERE startsnap_id = $1 ORDER BY created_at DESC, id DESC`, startSnapID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			l, err := scanVibeLog(rows)
			if err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	return out, err
}

// GetVibeLog retrieves one vibe log of a StartSnap.
func (r *Repository) GetVibeLog(ctx context.Context, startSnapID, id string) (*domain.VibeLog, error) {
	var out *domain.VibeLog
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		l, err := scanVibeLog(tx.QueryRow(ctx, `SELECT `+vibeLogColumns+` FROM vibelogs WHERE startsnap_id = $1 AND id = $2`, startSnapID, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &l
		return nil
	})
	return out, err
}

// CreateVibeLog inserts a vibe log and its outbox event.
func (r *Repository) CreateVibeLog(ctx context.Context, actorID string, log domain.VibeLog, evts []domain.Event) error {
	err := r.inTx(ctx, asUser(actorID), func(tx pgx.Tx) error {
		if err := insertVibeLog(ctx, tx, log); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("vibelog", log.CreatedAt)
	return nil
}

// UpdateVibeLog edits a vibe log.
func (r *Repository) UpdateVibeLog(ctx context.Context, actorID string, log domain.VibeLog) error {
	return r.inTx(ctx, asUser(actorID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE vibelogs SET log_type=$3, title=$4, content=$5, updated_at=$6 WHERE startsnap_id=$1 AND id=$2`,
			log.StartSnapID, log.ID, log.LogType, log.Title, log.Content, log.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVibeLogNotFound
		}
		return nil
	})
}

// DeleteVibeLog removes a vibe log.
func (r *Repository) DeleteVibeLog(ctx context.Context, actorID string, log domain.VibeLog) error {
	return r.inTx(ctx, asUser(actorID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM vibelogs WHERE startsnap_id=$1 AND id=$2`, log.StartSnapID, log.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVibeLogNotFound
		}
		return nil
	})
}

const feedbackColumns = `id::text, startsnap_id::text, user_id, content, created_at, updated_at`

func scanFeedback(row pgx.Row) (domain.Feedback, error) {
	var fb domain.Feedback
	err := row.Scan(&fb.ID, &fb.StartSnapID, &fb.UserID, &fb.Content, &fb.CreatedAt, &fb.UpdatedAt)
	return fb, err
}

// ListFeedback lists feedback on a StartSnap newest first.
func (r *Repository) ListFeedback(ctx context.Context, startSnapID string) ([]domain.Feedback, error) {
	out := make([]domain.Feedback, 0)
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE startsnap_id = $1 ORDER BY created_at DESC, id DESC`, startSnapID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			fb, err := scanFeedback(rows)
			if err != nil {
				return err
			}
			out = append(out, fb)
		}
		return rows.Err()
	})
	return out, err
}

// GetFeedback retrieves one feedback entry of a StartSnap.
func (r *Repository) GetFeedback(ctx context.Context, startSnapID, id string) (*domain.Feedback, error) {
	var out *domain.Feedback
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		fb, err := scanFeedback(tx.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE startsnap_id = $1 AND id = $2`, startSnapID, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &fb
		return nil
	})
	return out, err
}

// CreateFeedback inserts feedback; the counter trigger bumps feedback_count in the same transaction.
func (r *Repository) CreateFeedback(ctx context.Context, fb domain.Feedback, evts []domain.Event) error {
	err := r.inTx(ctx, asUser(fb.UserID), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO feedback (id, startsnap_id, user_id, content, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			fb.ID, fb.StartSnapID, fb.UserID, fb.Content, fb.CreatedAt, fb.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("feedback", fb.CreatedAt)
	return nil
}

// UpdateFeedback edits the author's feedback.
func (r *Repository) UpdateFeedback(ctx context.Context, fb domain.Feedback) error {
	return r.inTx(ctx, asUser(fb.UserID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE feedback SET content=$4, updated_at=$5 WHERE startsnap_id=$1 AND id=$2 AND user_id=$3`,
			fb.StartSnapID, fb.ID, fb.UserID, fb.Content, fb.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrFeedbackNotFound
		}
		return nil
	})
}

// DeleteFeedback removes the author's feedback.
func (r *Repository) DeleteFeedback(ctx context.Context, fb domain.Feedback) error {
	return r.inTx(ctx, asUser(fb.UserID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM feedback WHERE startsnap_id=$1 AND id=$2 AND user_id=$3`, fb.StartSnapID, fb.ID, fb.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrFeedbackNotFound
		}
		return nil
	})
}

// IsSupporter reports whether the user supports the StartSnap.
func (r *Repository) IsSupporter(ctx context.Context, startSnapID, userID string) (bool, error) {
	var exists bool
	err := r.inTx(ctx, asUser(userID), func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM supporters WHERE startsnap_id = $1 AND user_id = $2)`, startSnapID, userID,
		).Scan(&exists)
	})
	return exists, err
}

// ToggleSupport deletes the supporter row if present, inserts it otherwise, and
// reads back the trigger-maintained count, all in one transaction.
func (r *Repository) ToggleSupport(ctx context.Context, snap domain.StartSnap, userID string, event func(domain.SupportResult) domain.Event) (domain.SupportResult, error) {
	var result domain.SupportResult
	err := r.inTx(ctx, asUser(userID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM supporters WHERE startsnap_id = $1 AND user_id = $2`, snap.ID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO supporters (startsnap_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, snap.ID, userID,
			); err != nil {
				return err
			}
			result.Supported = true
		}

		if err := tx.QueryRow(ctx, `SELECT support_count FROM startsnaps WHERE id = $1`, snap.ID).Scan(&result.SupportCount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrStartSnapNotFound
			}
			return err
		}
		return insertOutbox(ctx, tx, []domain.Event{event(result)})
	})
	if err != nil {
		return domain.SupportResult{}, err
	}
	return result, nil
}
