package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

// SignalStore persists the signal-record collection.
type SignalStore struct {
	kv KV
}

// NewSignalStore creates a SignalStore over a KV.
func NewSignalStore(kv KV) *SignalStore {
	return &SignalStore{kv: kv}
}

// Load reads all signal records; an absent key is an empty list.
func (s *SignalStore) Load(ctx context.Context) ([]model.SignalRecord, error) {
	raw, err := s.kv.Get(ctx, KeySignals)
	if err != nil {
		return nil, eris.Wrap(err, "store: load signals")
	}
	if raw == nil {
		return nil, nil
	}
	var records []model.SignalRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal signals")
	}
	return records, nil
}

// Save writes the full signal collection.
func (s *SignalStore) Save(ctx context.Context, records []model.SignalRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "store: marshal signals")
	}
	return eris.Wrap(s.kv.Set(ctx, KeySignals, raw), "store: save signals")
}

// MergeUpsert inserts rec into records keyed by company identity. When a
// non-discarded record for the identity exists, rec replaces every field
// except ID, CreatedAt, Status, Generated and Notes, which survive the
// re-scan. The updated slice and the stored record are returned; records is
// not mutated in place for the insert case.
func MergeUpsert(records []model.SignalRecord, rec model.SignalRecord, now time.Time) ([]model.SignalRecord, model.SignalRecord) {
	for i := range records {
		existing := &records[i]
		if existing.CompanyIdentity != rec.CompanyIdentity || existing.Status == model.StatusDiscarded {
			continue
		}

		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.Status = existing.Status
		rec.Generated = existing.Generated
		if rec.Notes == "" {
			rec.Notes = existing.Notes
		}
		rec.UpdatedAt = now
		records[i] = rec
		return records, rec
	}

	rec.ID = uuid.New().String()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.StatusNew
	}
	return append(records, rec), rec
}

// Upsert is the read-modify-write form of MergeUpsert for interactive use.
func (s *SignalStore) Upsert(ctx context.Context, rec model.SignalRecord) (*model.SignalRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	records, stored := MergeUpsert(records, rec, time.Now().UTC())
	if err := s.Save(ctx, records); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Get returns a record by ID.
func (s *SignalStore) Get(ctx context.Context, id string) (*model.SignalRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// UpdateStatus moves a record through the triage lifecycle.
func (s *SignalStore) UpdateStatus(ctx context.Context, id string, status model.SignalStatus) error {
	return s.updateRecord(ctx, id, func(r *model.SignalRecord) {
		r.Status = status
	})
}

// AttachGeneratedContent commits generated outreach text onto a record.
func (s *SignalStore) AttachGeneratedContent(ctx context.Context, id string, gen model.GeneratedContent) error {
	return s.updateRecord(ctx, id, func(r *model.SignalRecord) {
		r.Generated = &gen
	})
}

func (s *SignalStore) updateRecord(ctx context.Context, id string, mutate func(*model.SignalRecord)) error {
	records, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == id {
			mutate(&records[i])
			records[i].UpdatedAt = time.Now().UTC()
			return s.Save(ctx, records)
		}
	}
	return ErrNotFound
}
