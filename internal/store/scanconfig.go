package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

// ConfigStore persists the scanner's cursor state.
type ConfigStore struct {
	kv KV
}

// NewConfigStore creates a ConfigStore over a KV.
func NewConfigStore(kv KV) *ConfigStore {
	return &ConfigStore{kv: kv}
}

// Load reads the scan config; an absent key yields a zero config.
func (s *ConfigStore) Load(ctx context.Context) (model.ScanConfig, error) {
	var cfg model.ScanConfig
	raw, err := s.kv.Get(ctx, KeyConfig)
	if err != nil {
		return cfg, eris.Wrap(err, "store: load scan config")
	}
	if raw == nil {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, eris.Wrap(err, "store: unmarshal scan config")
	}
	return cfg, nil
}

// Save writes the scan config.
func (s *ConfigStore) Save(ctx context.Context, cfg model.ScanConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "store: marshal scan config")
	}
	return eris.Wrap(s.kv.Set(ctx, KeyConfig, raw), "store: save scan config")
}
