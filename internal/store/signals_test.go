package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

func TestMergeUpsert_NewRecord(t *testing.T) {
	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	records, stored := MergeUpsert(nil, model.SignalRecord{
		CompanyIdentity: "552100554",
		CompanyName:     "Acmé",
		ScoreGlobal:     45,
	}, now)

	require.Len(t, records, 1)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, now, stored.UpdatedAt)
	assert.Equal(t, model.StatusNew, stored.Status)
}

func TestMergeUpsert_RescanPreservesIdentityFields(t *testing.T) {
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	gen := &model.GeneratedContent{Hypothesis: "besoin ERP"}
	existing := []model.SignalRecord{{
		ID:              "rec-1",
		CompanyIdentity: "552100554",
		ScoreGlobal:     45,
		Status:          model.StatusReviewed,
		Generated:       gen,
		Notes:           "vu en réunion",
		CreatedAt:       created,
		UpdatedAt:       created,
	}}

	records, stored := MergeUpsert(existing, model.SignalRecord{
		CompanyIdentity: "552100554",
		ScoreGlobal:     62,
	}, now)

	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", stored.ID)
	assert.Equal(t, created, stored.CreatedAt)
	assert.Equal(t, now, stored.UpdatedAt)
	assert.Equal(t, model.StatusReviewed, stored.Status)
	assert.Equal(t, gen, stored.Generated)
	assert.Equal(t, "vu en réunion", stored.Notes)
	assert.Equal(t, 62, stored.ScoreGlobal)
}

func TestMergeUpsert_FreshNotesWin(t *testing.T) {
	now := time.Now().UTC()
	existing := []model.SignalRecord{{
		ID:              "rec-1",
		CompanyIdentity: "acmé",
		Notes:           "ancienne note",
	}}

	_, stored := MergeUpsert(existing, model.SignalRecord{
		CompanyIdentity: "acmé",
		Notes:           "nouvelle justification",
	}, now)

	assert.Equal(t, "nouvelle justification", stored.Notes)
}

func TestMergeUpsert_DiscardedRecordNotReused(t *testing.T) {
	now := time.Now().UTC()
	existing := []model.SignalRecord{{
		ID:              "rec-1",
		CompanyIdentity: "552100554",
		Status:          model.StatusDiscarded,
	}}

	records, stored := MergeUpsert(existing, model.SignalRecord{
		CompanyIdentity: "552100554",
	}, now)

	require.Len(t, records, 2)
	assert.NotEqual(t, "rec-1", stored.ID)
	assert.Equal(t, model.StatusNew, stored.Status)
}

func TestSignalStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	ss := NewSignalStore(NewMemoryKV())

	stored, err := ss.Upsert(ctx, model.SignalRecord{
		CompanyIdentity: "552100554",
		CompanyName:     "Acmé",
	})
	require.NoError(t, err)

	got, err := ss.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acmé", got.CompanyName)

	_, err = ss.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSignalStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	ss := NewSignalStore(NewMemoryKV())

	stored, err := ss.Upsert(ctx, model.SignalRecord{CompanyIdentity: "acmé"})
	require.NoError(t, err)

	require.NoError(t, ss.UpdateStatus(ctx, stored.ID, model.StatusReviewed))

	got, err := ss.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, got.Status)
	assert.True(t, got.UpdatedAt.After(stored.UpdatedAt) || got.UpdatedAt.Equal(stored.UpdatedAt))

	assert.ErrorIs(t, ss.UpdateStatus(ctx, "missing", model.StatusReviewed), ErrNotFound)
}

func TestSignalStore_AttachGeneratedContent(t *testing.T) {
	ctx := context.Background()
	ss := NewSignalStore(NewMemoryKV())

	stored, err := ss.Upsert(ctx, model.SignalRecord{CompanyIdentity: "acmé"})
	require.NoError(t, err)

	gen := model.GeneratedContent{
		Hypothesis:  "migration ERP probable",
		CallScript:  "Bonjour...",
		GeneratedAt: time.Now().UTC(),
	}
	require.NoError(t, ss.AttachGeneratedContent(ctx, stored.ID, gen))

	got, err := ss.Get(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Generated)
	assert.Equal(t, "migration ERP probable", got.Generated.Hypothesis)
}

func TestConfigStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cs := NewConfigStore(NewMemoryKV())

	cfg, err := cs.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, cfg.Cursor)
	assert.Nil(t, cfg.LastRunAt)

	now := time.Now().UTC().Truncate(time.Second)
	cfg = model.ScanConfig{
		ActiveRegions:  []string{"Pays de la Loire"},
		Cursor:         15,
		AlertThreshold: 60,
		LastRunAt:      &now,
	}
	require.NoError(t, cs.Save(ctx, cfg))

	got, err := cs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Cursor)
	assert.Equal(t, []string{"Pays de la Loire"}, got.ActiveRegions)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(now))
}
