package watchlist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("  brk.b ")
	require.NoError(t, err)
	assert.Equal(t, "BRK.B", got)

	for _, bad := range []string{"", "   ", "TWO WORDS", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456"} {
		_, err := Normalize(bad)
		assert.ErrorIs(t, err, ErrInvalidTicker, bad)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open("", filepath.Join(t.TempDir(), "watchlist.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	u1, err := store.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	u2, err := store.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	added, err := store.Add(ctx, "alice", "tsla")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = store.Add(ctx, "alice", " TSLA ")
	require.NoError(t, err)
	assert.False(t, added, "duplicate after normalization is ignored")

	_, err = store.Add(ctx, "alice", "aapl")
	require.NoError(t, err)
	_, err = store.Add(ctx, "bob", "msft")
	require.NoError(t, err)

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, list)

	removed, err := store.Remove(ctx, "alice", "tsla")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Remove(ctx, "alice", "tsla")
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = store.Remove(ctx, "nobody", "aapl")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err = store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)

	list, err = store.List(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Add(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrInvalidTicker)
}
