package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

// ErrDuplicateEntry reports that an active watchlist entry with the same
// company identity already exists.
var ErrDuplicateEntry = errors.New("store: duplicate watchlist entry")

// ErrNotFound reports a missing entry or record.
var ErrNotFound = errors.New("store: not found")

// WatchlistStore persists the monitored-company collection.
type WatchlistStore struct {
	kv KV
}

// NewWatchlistStore creates a WatchlistStore over a KV.
func NewWatchlistStore(kv KV) *WatchlistStore {
	return &WatchlistStore{kv: kv}
}

// Load reads the watchlist; an absent key is an empty list.
func (s *WatchlistStore) Load(ctx context.Context) ([]model.WatchlistEntry, error) {
	raw, err := s.kv.Get(ctx, KeyWatchlist)
	if err != nil {
		return nil, eris.Wrap(err, "store: load watchlist")
	}
	if raw == nil {
		return nil, nil
	}
	var entries []model.WatchlistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal watchlist")
	}
	return entries, nil
}

// Save writes the full watchlist.
func (s *WatchlistStore) Save(ctx context.Context, entries []model.WatchlistEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "store: marshal watchlist")
	}
	return eris.Wrap(s.kv.Set(ctx, KeyWatchlist, raw), "store: save watchlist")
}

// FindDuplicate returns the index of an active entry sharing the candidate's
// identity (SIREN when both have one, else case-insensitive name), or -1.
func FindDuplicate(entries []model.WatchlistEntry, candidate model.WatchlistEntry) int {
	for i, e := range entries {
		if !e.Active {
			continue
		}
		if candidate.SIREN != "" && e.SIREN == candidate.SIREN {
			return i
		}
		if e.Identity() == candidate.Identity() {
			return i
		}
	}
	return -1
}

// Add appends a new entry unless an active entry with the same identity
// exists, in which case ErrDuplicateEntry is returned and nothing is
// written. The stored entry (with assigned ID and AddedAt) is returned.
func (s *WatchlistStore) Add(ctx context.Context, entry model.WatchlistEntry) (*model.WatchlistEntry, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if FindDuplicate(entries, entry) >= 0 {
		return nil, ErrDuplicateEntry
	}

	entry.ID = uuid.New().String()
	entry.AddedAt = time.Now().UTC()
	entry.Active = true

	entries = append(entries, entry)
	if err := s.Save(ctx, entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Deactivate soft-removes an entry: it stays persisted but is excluded from
// future scans and no longer blocks re-adding the same identity.
func (s *WatchlistStore) Deactivate(ctx context.Context, id string) error {
	return s.update(ctx, id, func(e *model.WatchlistEntry) {
		e.Active = false
	})
}

// Remove hard-deletes an entry.
func (s *WatchlistStore) Remove(ctx context.Context, id string) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return s.Save(ctx, entries)
		}
	}
	return ErrNotFound
}

func (s *WatchlistStore) update(ctx context.Context, id string, mutate func(*model.WatchlistEntry)) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			mutate(&entries[i])
			return s.Save(ctx, entries)
		}
	}
	return ErrNotFound
}
