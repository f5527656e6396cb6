package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	c := Cursor{
		EntryDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2026, 3, 15, 14, 30, 45, 123456789, time.UTC),
		EntryID:   "6f1c9a8e-3d2b-4c1a-9f7e-0b5d2e4a6c81",
	}

	token := EncodeToken(c)
	assert.NotEmpty(t, token)

	got, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestTokensDifferOnlyByEntryID(t *testing.T) {
	ts := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	a := EncodeToken(Cursor{EntryDate: ts, CreatedAt: ts, EntryID: "a"})
	b := EncodeToken(Cursor{EntryDate: ts, CreatedAt: ts, EntryID: "b"})
	assert.NotEqual(t, a, b)

	got, err := DecodeToken(b)
	require.NoError(t, err)
	assert.Equal(t, "b", got.EntryID)
}

func TestDecodeTokenErrors(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base64 decode")

	_, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("no-separator")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	_, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("2026-03-15T00:00:00Z|2026-03-15T00:00:00Z")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	_, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("yesterday|2026-03-15T00:00:00Z|id")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry date parse")

	_, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("2026-03-15T00:00:00Z|later|id")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at parse")
}
