package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

const startSnapColumns = `id::text, user_id, name, description, category, type, live_demo_url, demo_url,
        screenshot_urls, tags, tools_used, feedback_tags, is_hackathon_entry, support_count, feedback_count, created_at, updated_at`

func scanStartSnap(row pgx.Row) (domain.StartSnap, error) {
	var s domain.StartSnap
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.Category, &s.Type, &s.LiveDemoURL, &s.DemoURL,
		&s.ScreenshotURLs, &s.Tags, &s.ToolsUsed, &s.FeedbackTags, &s.IsHackathonEntry, &s.SupportCount, &s.FeedbackCount, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateStartSnap persists the StartSnap, its launch log, and outbox events inside a single transaction.
func (r *Repository) CreateStartSnap(ctx context.Context, snap domain.StartSnap, launch domain.VibeLog, evts []domain.Event) error {
	err := r.inTx(ctx, asUser(snap.UserID), func(tx pgx.Tx) error {
		const insertSnap = `INSERT INTO startsnaps (id, user_id, name, description, category, type, live_demo_url, demo_url,
            screenshot_urls, tags, tools_used, feedback_tags, is_hackathon_entry, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
		if _, err := tx.Exec(ctx, insertSnap,
			snap.ID, snap.UserID, snap.Name, snap.Description, snap.Category, snap.Type, snap.LiveDemoURL, snap.DemoURL,
			nonNil(snap.ScreenshotURLs), nonNil(snap.Tags), nonNil(snap.ToolsUsed), nonNil(snap.FeedbackTags),
			snap.IsHackathonEntry, snap.CreatedAt, snap.UpdatedAt,
		); err != nil {
			return err
		}
		if err := insertVibeLog(ctx, tx, launch); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	observability.RecordWrite(domain.AggregateStartSnap, snap.UpdatedAt)
	return nil
}

// GetStartSnap retrieves a StartSnap by ID.
func (r *Repository) GetStartSnap(ctx context.Context, id string) (*domain.StartSnap, error) {
	var out *domain.StartSnap
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		snap, err := scanStartSnap(tx.QueryRow(ctx, `SELECT `+startSnapColumns+` FROM startsnaps WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &snap
		return nil
	})
	return out, err
}

// UpdateStartSnap writes the mutable fields. Counters are left to their triggers.
func (r *Repository) UpdateStartSnap(ctx context.Context, snap domain.StartSnap, evts []domain.Event) error {
	err := r.inTx(ctx, asUser(snap.UserID), func(tx pgx.Tx) error {
		const stmt = `UPDATE startsnaps SET name=$3, description=$4, category=$5, type=$6, live_demo_url=$7, demo_url=$8,
            screenshot_urls=$9, tags=$10, tools_used=$11, feedback_tags=$12, is_hackathon_entry=$13, updated_at=$14
            WHERE id=$1 AND user_id=$2`
		tag, err := tx.Exec(ctx, stmt,
			snap.ID, snap.UserID, snap.Name, snap.Description, snap.Category, snap.Type, snap.LiveDemoURL, snap.DemoURL,
			nonNil(snap.ScreenshotURLs), nonNil(snap.Tags), nonNil(snap.ToolsUsed), nonNil(snap.FeedbackTags),
			snap.IsHackathonEntry, snap.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrStartSnapNotFound
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	observability.RecordWrite(domain.AggregateStartSnap, snap.UpdatedAt)
	return nil
}

// DeleteStartSnap removes the row; vibe logs, feedback, and supporters cascade.
func (r *Repository) DeleteStartSnap(ctx context.Context, snap domain.StartSnap, evts []domain.Event) error {
	return r.inTx(ctx, asUser(snap.UserID), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM startsnaps WHERE id=$1 AND user_id=$2`, snap.ID, snap.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrStartSnapNotFound
		}
		return insertOutbox(ctx, tx, evts)
	})
}

// DiscoverStartSnaps runs the search/filter/sort listing.
func (r *Repository) DiscoverStartSnaps(ctx context.Context, q domain.DiscoverQuery) ([]domain.StartSnap, error) {
	query, args := buildDiscoverQuery(q)
	var out []domain.StartSnap
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		var err error
		out, err = queryStartSnaps(ctx, tx, query, args...)
		return err
	})
	return out, err
}

// ListStartSnapsByCreator lists a creator's StartSnaps newest first.
func (r *Repository) ListStartSnapsByCreator(ctx context.Context, userID string) ([]domain.StartSnap, error) {
	var out []domain.StartSnap
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		var err error
		out, err = queryStartSnaps(ctx, tx,
			`SELECT `+startSnapColumns+` FROM startsnaps WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
		return err
	})
	return out, err
}

func queryStartSnaps(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]domain.StartSnap, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StartSnap, 0)
	for rows.Next() {
		snap, err := scanStartSnap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

var discoverOrder = map[string]string{
	domain.SortNewest:        "created_at DESC, id DESC",
	domain.SortOldest:        "created_at ASC, id ASC",
	domain.SortMostSupported: "support_count DESC, created_at DESC, id DESC",
	domain.SortMostFeedback:  "feedback_count DESC, created_at DESC, id DESC",
	domain.SortName:          "lower(name) ASC, created_at DESC, id DESC",
}

// buildDiscoverQuery translates a normalized DiscoverQuery into SQL. Text search
// matches name, description, or any tag; tag filters require every listed tag.
func buildDiscoverQuery(q domain.DiscoverQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Query != "" {
		p := next("%" + escapeLike(q.Query) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(tags) AS t(tag) WHERE t.tag ILIKE %[1]s))", p))
	}
	if q.Category != "" {
		where = append(where, "category = "+next(q.Category))
	}
	if q.Type != "" {
		where = append(where, "type = "+next(q.Type))
	}
	if len(q.Tags) > 0 {
		where = append(where, "tags @> "+next(q.Tags)+"::text[]")
	}
	if q.Hackathon != nil {
		where = append(where, "is_hackathon_entry = "+next(*q.Hackathon))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(startSnapColumns)
	b.WriteString(" FROM startsnaps")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	order, ok := discoverOrder[q.Sort]
	if !ok {
		order = discoverOrder[domain.SortNewest]
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)
	b.WriteString(" LIMIT " + next(q.Limit))
	b.WriteString(" OFFSET " + next(q.Offset))
	return b.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
