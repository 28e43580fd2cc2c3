package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/extract"
	"github.com/altiore-conseil/veille-cli/internal/fetchtext"
	"github.com/altiore-conseil/veille-cli/internal/gather"
	"github.com/altiore-conseil/veille-cli/internal/scan"
	"github.com/altiore-conseil/veille-cli/internal/score"
	"github.com/altiore-conseil/veille-cli/internal/store"
	"github.com/altiore-conseil/veille-cli/pkg/llm"
	"github.com/altiore-conseil/veille-cli/pkg/pappers"
)

// scanEnv holds the store and the pipeline pieces the scan/serve/generate
// commands need. Callers should defer env.Close().
type scanEnv struct {
	KV      store.KV
	Scanner *scan.Scanner
	LLM     llm.Client
}

func (e *scanEnv) Close() {
	if e.KV != nil {
		_ = e.KV.Close()
	}
}

func initKV(ctx context.Context) (store.KV, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "veille.db"
		}
		return store.NewSQLite(ctx, dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN)
	case "memory":
		return store.NewMemoryKV(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initScanEnv sets up the store, the fetch chain, all API clients and the
// scanner. The LLM key is the one mandatory credential.
func initScanEnv(ctx context.Context) (*scanEnv, error) {
	if cfg.LLM.Key == "" {
		return nil, eris.New("llm api key is required (VEILLE_LLM_KEY)")
	}

	kv, err := initKV(ctx)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Gather.FetchTimeout()
	fetchers := []fetchtext.Fetcher{fetchtext.NewDirectFetcher(timeout)}
	if cfg.Proxy.RelayBaseURL != "" {
		fetchers = append(fetchers, fetchtext.NewRelayFetcher(cfg.Proxy.RelayBaseURL, timeout))
	}
	if cfg.Proxy.PublicProxyURL != "" {
		fetchers = append(fetchers, fetchtext.NewPublicProxyFetcher(cfg.Proxy.PublicProxyURL, timeout))
	}
	chain := fetchtext.NewChain(timeout, fetchers...)

	gatherer := gather.New(chain,
		gather.WithPageBudget(cfg.Gather.PageCharBudget),
		gather.WithSearchBudget(cfg.Gather.SearchCharBudget),
		gather.WithMaxNewsItems(cfg.Gather.MaxNewsItems),
	)

	registry := pappers.NewClient(cfg.Registry.Key,
		pappers.WithBaseURL(cfg.Registry.BaseURL),
		pappers.WithMinInterval(cfg.Registry.MinInterval()),
	)
	if cfg.Registry.Key == "" {
		zap.L().Debug("VEILLE_REGISTRY_KEY not set, firmographic enrichment disabled")
	}

	llmClient := llm.NewClient(cfg.LLM.Key,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
	)

	extractor := extract.New(llmClient,
		extract.WithModel(cfg.LLM.Model),
		extract.WithMaxTokens(cfg.LLM.MaxTokens),
		extract.WithTemperature(cfg.LLM.Temperature),
	)

	scanner := scan.New(kv, gatherer, registry, extractor, score.NewCalculator(score.DefaultWeights()), scan.Options{
		BatchSize:      cfg.Scan.BatchSize,
		AlertThreshold: cfg.Scan.AlertThreshold,
	})

	return &scanEnv{KV: kv, Scanner: scanner, LLM: llmClient}, nil
}
