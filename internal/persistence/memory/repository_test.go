package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/persistence/memory"
)

func TestSetWalletBumpsUpdatedAt(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.UpsertProfile(ctx, domain.Profile{ID: "user-1", Username: "ada", CreatedAt: created, UpdatedAt: created}, nil)
	require.NoError(t, err)

	p, err := repo.SetWallet(ctx, "user-1", "WALLET", nil)
	require.NoError(t, err)
	require.Equal(t, "WALLET", p.WalletAddress)
	require.True(t, p.UpdatedAt.After(created))
	require.Equal(t, created, p.CreatedAt)

	stored, err := repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, p.UpdatedAt, stored.UpdatedAt)

	_, err = repo.SetWallet(ctx, "missing", "WALLET", nil)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}
