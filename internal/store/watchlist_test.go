package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

func TestWatchlistStore_AddAndLoad(t *testing.T) {
	ctx := context.Background()
	ws := NewWatchlistStore(NewMemoryKV())

	entries, err := ws.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	stored, err := ws.Add(ctx, model.WatchlistEntry{
		CompanyName: "Acmé Industrie",
		SIREN:       "552100554",
		Region:      "Pays de la Loire",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.True(t, stored.Active)
	assert.False(t, stored.AddedAt.IsZero())

	entries, err = ws.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acmé Industrie", entries[0].CompanyName)
}

func TestWatchlistStore_RejectsDuplicateSIREN(t *testing.T) {
	ctx := context.Background()
	ws := NewWatchlistStore(NewMemoryKV())

	_, err := ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acmé", SIREN: "552100554"})
	require.NoError(t, err)

	_, err = ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acme Industrie", SIREN: "552100554"})
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestWatchlistStore_RejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	ws := NewWatchlistStore(NewMemoryKV())

	_, err := ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acmé Industrie"})
	require.NoError(t, err)

	// Same name, different case and padding.
	_, err = ws.Add(ctx, model.WatchlistEntry{CompanyName: "  acmé industrie "})
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestWatchlistStore_DeactivateThenReAdd(t *testing.T) {
	ctx := context.Background()
	ws := NewWatchlistStore(NewMemoryKV())

	first, err := ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acmé", SIREN: "552100554"})
	require.NoError(t, err)

	require.NoError(t, ws.Deactivate(ctx, first.ID))

	// A deactivated entry no longer blocks the identity.
	second, err := ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acmé", SIREN: "552100554"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	entries, err := ws.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWatchlistStore_Remove(t *testing.T) {
	ctx := context.Background()
	ws := NewWatchlistStore(NewMemoryKV())

	stored, err := ws.Add(ctx, model.WatchlistEntry{CompanyName: "Acmé"})
	require.NoError(t, err)

	require.NoError(t, ws.Remove(ctx, stored.ID))

	entries, err := ws.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, ws.Remove(ctx, stored.ID), ErrNotFound)
}

func TestWatchlistStore_DeactivateUnknownID(t *testing.T) {
	ws := NewWatchlistStore(NewMemoryKV())
	assert.ErrorIs(t, ws.Deactivate(context.Background(), "missing"), ErrNotFound)
}
