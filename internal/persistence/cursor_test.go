package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	c := &domain.Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 123456000, time.UTC), ID: "0b0f0a52-3f4e-4f39-9d39-0e6c7a7e1f10"}
	decoded, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
	require.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursorEmptyAndInvalid(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("not base64!")
	require.Error(t, err)

	_, err = DecodeCursor(EncodeCursor(nil) + "bm8tc2VwYXJhdG9y")
	require.Error(t, err)
}

func TestDecodeCursorRejectsNonUUIDID(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte("2025-03-01T12:30:00Z|not-a-uuid"))
	_, err := DecodeCursor(token)
	require.ErrorContains(t, err, "invalid cursor id")
}
