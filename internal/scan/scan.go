// Package scan drives the detection pipeline: it advances a persisted
// cursor over the eligible watchlist, processes one fixed-size batch per
// invocation, and isolates per-company failures so one bad company cannot
// abort the rest.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/altiore-conseil/veille-cli/internal/extract"
	"github.com/altiore-conseil/veille-cli/internal/gather"
	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/score"
	"github.com/altiore-conseil/veille-cli/internal/store"
	"github.com/altiore-conseil/veille-cli/pkg/pappers"
)

// Scanner runs batch and single-company scans. It is constructed once per
// invocation and carries no state across invocations: everything durable
// crosses the boundary through the stores.
type Scanner struct {
	watchlist *store.WatchlistStore
	signals   *store.SignalStore
	config    *store.ConfigStore
	gatherer  *gather.Gatherer
	registry  pappers.Client
	extractor      *extract.Extractor
	scorer         score.Calculator
	batchSize      int
	alertThreshold int
	now            func() time.Time
}

// Options configures a Scanner.
type Options struct {
	BatchSize      int
	AlertThreshold int
	Clock          func() time.Time // tests
}

// New creates a Scanner. The extractor must be non-nil: a missing LLM
// credential is a configuration error detected before any store is touched.
func New(kv store.KV, gatherer *gather.Gatherer, registry pappers.Client, extractor *extract.Extractor, scorer score.Calculator, opts Options) *Scanner {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Scanner{
		watchlist:      store.NewWatchlistStore(kv),
		signals:        store.NewSignalStore(kv),
		config:         store.NewConfigStore(kv),
		gatherer:       gatherer,
		registry:       registry,
		extractor:      extractor,
		scorer:         scorer,
		batchSize:      batchSize,
		alertThreshold: opts.AlertThreshold,
		now:            now,
	}
}

// runState carries per-run flags across companies within one batch.
type runState struct {
	registryDown bool
}

// Eligible returns the scannable subset of the watchlist: active entries
// whose region is in activeRegions (all regions when the filter is empty).
func Eligible(entries []model.WatchlistEntry, activeRegions []string) []model.WatchlistEntry {
	allowed := make(map[string]bool, len(activeRegions))
	for _, r := range activeRegions {
		allowed[strings.ToLower(r)] = true
	}

	var out []model.WatchlistEntry
	for _, e := range entries {
		if !e.Active {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(e.Region)] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// nextBatch slices a batch out of the eligible count, returning the start
// and end indices and the advanced cursor, which wraps to 0 once it reaches
// or exceeds the eligible count.
func nextBatch(eligibleCount, cursor, batchSize int) (start, end, next int) {
	if eligibleCount == 0 {
		return 0, 0, 0
	}
	if cursor < 0 || cursor >= eligibleCount {
		cursor = 0
	}
	start = cursor
	end = start + batchSize
	if end > eligibleCount {
		end = eligibleCount
	}
	next = end
	if next >= eligibleCount {
		next = 0
	}
	return start, end, next
}

// Run executes one scheduled batch. The three collections are read once at
// the start and written once at the end, after the full batch, so they stay
// mutually consistent; a fully failed run leaves all prior state untouched.
func (s *Scanner) Run(ctx context.Context) (*model.ScanReport, error) {
	if s.extractor == nil {
		return nil, eris.New("scan: llm api key missing, aborting before any mutation")
	}

	scanCfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.watchlist.Load(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.signals.Load(ctx)
	if err != nil {
		return nil, err
	}

	eligible := Eligible(entries, scanCfg.ActiveRegions)
	start, end, next := nextBatch(len(eligible), scanCfg.Cursor, s.batchSize)
	batch := eligible[start:end]

	zap.L().Info("scan: batch start",
		zap.Int("eligible", len(eligible)),
		zap.Int("cursor", scanCfg.Cursor),
		zap.Int("batch_size", len(batch)),
	)

	report := &model.ScanReport{
		BatchSize:  len(batch),
		NextCursor: next,
	}
	if len(batch) == 0 {
		report.TotalSignals = len(records)
		return report, nil
	}

	state := &runState{}
	now := s.now().UTC()

	// The persisted threshold wins over the configured default.
	threshold := scanCfg.AlertThreshold
	if threshold <= 0 {
		threshold = s.alertThreshold
	}

	// Companies are processed sequentially: the registry and the LLM
	// endpoint impose rate limits that per-company parallelism would break.
	for _, entry := range batch {
		rec, err := s.processOne(ctx, entry, state)
		if err != nil {
			if errors.Is(err, extract.ErrAuth) {
				// Configuration error, not a company failure: abort the run
				// without persisting anything.
				return nil, err
			}
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entry.CompanyName, err))
			zap.L().Warn("scan: company failed",
				zap.String("company", entry.CompanyName),
				zap.Error(err),
			)
			continue
		}

		records, _ = store.MergeUpsert(records, *rec, now)
		markScanned(entries, entry.ID, now)
		report.Processed++

		if threshold > 0 && rec.ScoreGlobal >= threshold {
			report.Alerts++
			zap.L().Warn("scan: signal above alert threshold",
				zap.String("company", entry.CompanyName),
				zap.Int("score_global", rec.ScoreGlobal),
				zap.Int("threshold", threshold),
			)
		}
	}

	scanCfg.Cursor = next
	scanCfg.LastRunAt = &now
	report.TotalSignals = len(records)

	// Persist the three collections together at the end of the run. A write
	// failure here is fatal: partial state would be inconsistent.
	if err := s.watchlist.Save(ctx, entries); err != nil {
		return nil, err
	}
	if err := s.signals.Save(ctx, records); err != nil {
		return nil, err
	}
	if err := s.config.Save(ctx, scanCfg); err != nil {
		return nil, err
	}

	zap.L().Info("scan: batch complete",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("next_cursor", report.NextCursor),
		zap.Int("total_signals", report.TotalSignals),
	)

	return report, nil
}

// ScanOne runs the pipeline for a single watchlist entry and writes
// immediately. The cursor is not touched.
func (s *Scanner) ScanOne(ctx context.Context, watchlistID string) (*model.SignalRecord, error) {
	if s.extractor == nil {
		return nil, eris.New("scan: llm api key missing")
	}

	entries, err := s.watchlist.Load(ctx)
	if err != nil {
		return nil, err
	}

	var entry *model.WatchlistEntry
	for i := range entries {
		if entries[i].ID == watchlistID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return nil, eris.Errorf("scan: watchlist entry not found: %s", watchlistID)
	}

	rec, err := s.processOne(ctx, *entry, &runState{})
	if err != nil {
		return nil, err
	}

	stored, err := s.signals.Upsert(ctx, *rec)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	markScanned(entries, entry.ID, now)
	if err := s.watchlist.Save(ctx, entries); err != nil {
		return nil, err
	}

	return stored, nil
}

// processOne runs the full pipeline for one company and assembles the
// signal record. Evidence gathering and registry enrichment run
// concurrently; extraction and scoring need both.
func (s *Scanner) processOne(ctx context.Context, entry model.WatchlistEntry, state *runState) (*model.SignalRecord, error) {
	var (
		evidence model.RawEvidence
		firmo    *model.FirmographicData
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		evidence = s.gatherer.Gather(egCtx, entry)
		return nil
	})
	eg.Go(func() error {
		if state.registryDown || entry.SIREN == "" || s.registry == nil {
			return nil
		}
		data, err := s.registry.Enrich(egCtx, entry.SIREN)
		if err != nil {
			if errors.Is(err, pappers.ErrQuotaExceeded) {
				// Quota exhausted: stop calling the registry for the rest of
				// the run, but keep scanning without firmographics.
				state.registryDown = true
				zap.L().Warn("scan: registry quota exceeded, disabling enrichment for this run")
				return nil
			}
			zap.L().Warn("scan: registry enrichment failed",
				zap.String("siren", entry.SIREN),
				zap.Error(err),
			)
			return nil
		}
		firmo = data
		return nil
	})
	_ = eg.Wait()

	result, err := s.extractor.Extract(ctx, entry.CompanyName, evidence, firmo)
	if err != nil {
		return nil, err
	}

	need, urgency, complexity, global := s.scorer.Compute(
		result.Evidence, firmo,
		result.ScoreNeed, result.ScoreUrgency, result.ScoreComplexity,
	)

	return &model.SignalRecord{
		CompanyIdentity: entry.Identity(),
		CompanyName:     entry.CompanyName,
		Region:          entry.Region,
		Department:      entry.Department,
		City:            entry.City,
		PostalCode:      entry.PostalCode,
		Evidence:        result.Evidence,
		ScoreNeed:       need,
		ScoreUrgency:    urgency,
		ScoreComplexity: complexity,
		ScoreGlobal:     global,
		Registry:        firmo,
		Raw:             evidence,
		Status:          model.StatusNew,
		Notes:           result.Justification,
	}, nil
}

func markScanned(entries []model.WatchlistEntry, id string, now time.Time) {
	for i := range entries {
		if entries[i].ID == id {
			t := now
			entries[i].LastScanAt = &t
			return
		}
	}
}
