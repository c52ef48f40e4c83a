package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/observability"
)

const profileColumns = `id, username, bio, status, avatar_url, github_url, twitter_url, linkedin_url, website_url,
        COALESCE(wallet_address, ''), created_at, updated_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Bio, &p.Status, &p.AvatarURL, &p.GitHubURL, &p.TwitterURL, &p.LinkedInURL, &p.WebsiteURL,
		&p.WalletAddress, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) getProfile(ctx context.Context, where string, arg string) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.inTx(ctx, anonymous, func(tx pgx.Tx) error {
		p, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE `+where, arg))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

// GetProfile retrieves a profile by user id.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.getProfile(ctx, "id = $1", userID)
}

// GetProfileByUsername retrieves a profile by case-insensitive username.
func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.getProfile(ctx, "lower(username) = lower($1)", username)
}

// UpsertProfile inserts or updates the editable fields, leaving the wallet untouched.
func (r *Repository) UpsertProfile(ctx context.Context, p domain.Profile, evts []domain.Event) (*domain.Profile, error) {
	var out domain.Profile
	err := r.inTx(ctx, asUser(p.ID), func(tx pgx.Tx) error {
		const stmt = `INSERT INTO profiles (id, username, bio, status, avatar_url, github_url, twitter_url, linkedin_url, website_url, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
            ON CONFLICT (id) DO UPDATE SET
                username = EXCLUDED.username,
                bio = EXCLUDED.bio,
                status = EXCLUDED.status,
                avatar_url = EXCLUDED.avatar_url,
                github_url = EXCLUDED.github_url,
                twitter_url = EXCLUDED.twitter_url,
                linkedin_url = EXCLUDED.linkedin_url,
                website_url = EXCLUDED.website_url,
                updated_at = EXCLUDED.updated_at
            RETURNING ` + profileColumns
		var err error
		out, err = scanProfile(tx.QueryRow(ctx, stmt,
			p.ID, p.Username, p.Bio, p.Status, p.AvatarURL, p.GitHubURL, p.TwitterURL, p.LinkedInURL, p.WebsiteURL, p.UpdatedAt,
		))
		if err != nil {
			if isUniqueViolation(err, "profiles_username_lower_idx") {
				return domain.ErrUsernameTaken
			}
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordWrite(domain.AggregateProfile, out.UpdatedAt)
	return &out, nil
}

// SetWallet stores or clears the wallet address.
func (r *Repository) SetWallet(ctx context.Context, userID, address string, evts []domain.Event) (*domain.Profile, error) {
	var out domain.Profile
	err := r.inTx(ctx, asUser(userID), func(tx pgx.Tx) error {
		var err error
		out, err = scanProfile(tx.QueryRow(ctx,
			`UPDATE profiles SET wallet_address = $2, updated_at = NOW() WHERE id = $1 RETURNING `+profileColumns,
			userID, nullIfEmpty(address),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrProfileNotFound
			}
			return err
		}
		return insertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
