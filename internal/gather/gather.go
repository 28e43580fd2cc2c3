// Package gather collects public evidence about a company from three
// sources: its corporate site, a news-search feed, and a generic web search.
// Every source degrades to empty text on failure; Gather never errors.
package gather

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/altiore-conseil/veille-cli/internal/fetchtext"
	"github.com/altiore-conseil/veille-cli/internal/model"
)

// sitePaths are the fixed relative paths fetched on a corporate site.
var sitePaths = []string{"", "/actualites", "/recrutement"}

const (
	defaultPageBudget   = 3000
	defaultSearchBudget = 2000
	defaultMaxNewsItems = 5

	newsFeedURL  = "https://news.google.com/rss/search?hl=fr&gl=FR&ceid=FR:fr&q="
	webSearchURL = "https://html.duckduckgo.com/html/?q="
)

// TextFetcher is the soft-fail fetch capability the gatherer relies on.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// Gatherer fetches and normalizes evidence for a watchlist entry.
type Gatherer struct {
	chain        TextFetcher
	pageBudget   int
	searchBudget int
	maxNewsItems int
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithPageBudget bounds the text kept per site page.
func WithPageBudget(chars int) Option {
	return func(g *Gatherer) { g.pageBudget = chars }
}

// WithSearchBudget bounds the text kept from the web-search snapshot.
func WithSearchBudget(chars int) Option {
	return func(g *Gatherer) { g.searchBudget = chars }
}

// WithMaxNewsItems bounds the number of news items kept.
func WithMaxNewsItems(n int) Option {
	return func(g *Gatherer) { g.maxNewsItems = n }
}

// New creates a Gatherer on top of a fetch chain.
func New(chain TextFetcher, opts ...Option) *Gatherer {
	g := &Gatherer{
		chain:        chain,
		pageBudget:   defaultPageBudget,
		searchBudget: defaultSearchBudget,
		maxNewsItems: defaultMaxNewsItems,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Gather fetches the three evidence sources concurrently and joins them.
// Site pages are fetched in parallel as well. All failures degrade to empty
// output; the returned RawEvidence is always usable.
func (g *Gatherer) Gather(ctx context.Context, entry model.WatchlistEntry) model.RawEvidence {
	var (
		mu        sync.Mutex
		pageTexts = make([]string, len(sitePaths))
		evidence  model.RawEvidence
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if entry.WebsiteURL != "" {
		base := strings.TrimRight(entry.WebsiteURL, "/")
		for i, p := range sitePaths {
			eg.Go(func() error {
				body := g.chain.FetchText(egCtx, base+p)
				if body == "" {
					return nil
				}
				text := fetchtext.Truncate(fetchtext.StripHTML(body), g.pageBudget)
				mu.Lock()
				pageTexts[i] = text
				mu.Unlock()
				return nil
			})
		}
	}

	eg.Go(func() error {
		items := g.fetchNews(egCtx, entry.CompanyName)
		mu.Lock()
		evidence.NewsItems = items
		mu.Unlock()
		return nil
	})

	eg.Go(func() error {
		text := g.fetchSearch(egCtx, entry.CompanyName, entry.City)
		mu.Lock()
		evidence.SearchExcerpt = text
		mu.Unlock()
		return nil
	})

	_ = eg.Wait()

	var nonEmpty []string
	for _, t := range pageTexts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	evidence.SiteExcerpt = strings.Join(nonEmpty, "\n\n")

	zap.L().Debug("gather: evidence collected",
		zap.String("company", entry.CompanyName),
		zap.Int("site_chars", len(evidence.SiteExcerpt)),
		zap.Int("news_items", len(evidence.NewsItems)),
		zap.Int("search_chars", len(evidence.SearchExcerpt)),
	)

	return evidence
}

// fetchNews retrieves and parses the news-search RSS feed for a company.
func (g *Gatherer) fetchNews(ctx context.Context, companyName string) []model.NewsItem {
	query := url.QueryEscape(`"` + companyName + `"`)
	body := g.chain.FetchText(ctx, newsFeedURL+query)
	if body == "" {
		return nil
	}

	items, err := parseNewsFeed(body, g.maxNewsItems)
	if err != nil {
		zap.L().Debug("gather: news feed parse failed",
			zap.String("company", companyName),
			zap.Error(err),
		)
		return nil
	}
	return items
}

// fetchSearch retrieves a generic web-search snapshot for a company.
func (g *Gatherer) fetchSearch(ctx context.Context, companyName, city string) string {
	query := companyName
	if city != "" {
		query += " " + city
	}
	body := g.chain.FetchText(ctx, webSearchURL+url.QueryEscape(query))
	if body == "" {
		return ""
	}
	return fetchtext.Truncate(fetchtext.StripHTML(body), g.searchBudget)
}
