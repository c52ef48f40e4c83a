package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

// RecordActivity inserts projected rows as the service role, skipping event keys already present.
func (r *Repository) RecordActivity(ctx context.Context, logs []domain.ActivityLog) (int, error) {
	inserted := 0
	err := r.inTx(ctx, service, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO activity_logs (id, event_key, user_id, action_type, target_type, target_id, visibility, metadata, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
            ON CONFLICT (event_key) DO NOTHING`
		for _, l := range logs {
			meta := l.Metadata
			if meta == nil {
				meta = map[string]any{}
			}
			tag, err := tx.Exec(ctx, stmt, l.ID, l.EventKey, l.UserID, l.ActionType, l.TargetType, l.TargetID, l.Visibility, meta, l.CreatedAt)
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(logs) > 0 {
		observability.RecordActivityProjected(logs[len(logs)-1].CreatedAt)
	}
	return inserted, nil
}

// ListActivity returns a user's activity ordered by time, newest first.
func (r *Repository) ListActivity(ctx context.Context, q domain.ActivityQuery) ([]domain.ActivityLog, *domain.Cursor, error) {
	args := []interface{}{q.UserID, q.Limit}
	query := `SELECT id::text, event_key, user_id, action_type, target_type, target_id, visibility, metadata, created_at
        FROM activity_logs WHERE user_id=$1`

	if q.PublicOnly {
		query += ` AND visibility = 'public'`
	}
	if q.Cursor != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	sess := asUser(q.UserID)
	if q.PublicOnly {
		sess = anonymous
	}

	results := make([]domain.ActivityLog, 0, q.Limit)
	err := r.inTx(ctx, sess, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var l domain.ActivityLog
			if err := rows.Scan(&l.ID, &l.EventKey, &l.UserID, &l.ActionType, &l.TargetType, &l.TargetID, &l.Visibility, &l.Metadata, &l.CreatedAt); err != nil {
				return err
			}
			results = append(results, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == q.Limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}
