// Package fetchtext fetches web pages as text through a chain of
// interchangeable fetch strategies. Corporate sites frequently block or
// throttle direct requests, so each URL is tried through every strategy in
// priority order until one returns content.
package fetchtext

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 512 * 1024

// Fetcher fetches a single URL and returns its body as text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	Name() string
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func fetchBody(ctx context.Context, client *http.Client, reqURL, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrapf(err, "%s: create request", name)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VeilleBot/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "%s: fetch", name)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", eris.Errorf("%s: status %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrapf(err, "%s: read body", name)
	}

	return string(body), nil
}

// DirectFetcher fetches a URL with a plain HTTP GET. First in the chain:
// free and fast when the target does not block bots.
type DirectFetcher struct {
	client *http.Client
}

// NewDirectFetcher creates a DirectFetcher.
func NewDirectFetcher(timeout time.Duration) *DirectFetcher {
	return &DirectFetcher{client: newHTTPClient(timeout)}
}

func (f *DirectFetcher) Name() string { return "direct" }

func (f *DirectFetcher) FetchText(ctx context.Context, targetURL string) (string, error) {
	return fetchBody(ctx, f.client, targetURL, f.Name())
}

// RelayFetcher routes the fetch through a first-party relay function that
// performs the request server-side and returns the page body.
type RelayFetcher struct {
	baseURL string
	client  *http.Client
}

// NewRelayFetcher creates a RelayFetcher for the given relay base URL.
func NewRelayFetcher(baseURL string, timeout time.Duration) *RelayFetcher {
	return &RelayFetcher{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (f *RelayFetcher) Name() string { return "relay" }

func (f *RelayFetcher) FetchText(ctx context.Context, targetURL string) (string, error) {
	reqURL := f.baseURL + "?url=" + url.QueryEscape(targetURL)
	return fetchBody(ctx, f.client, reqURL, f.Name())
}

// PublicProxyFetcher routes the fetch through a public CORS proxy
// (allorigins-style: GET {base}?url={target} returns the raw body).
// Last resort in the chain.
type PublicProxyFetcher struct {
	baseURL string
	client  *http.Client
}

// NewPublicProxyFetcher creates a PublicProxyFetcher.
func NewPublicProxyFetcher(baseURL string, timeout time.Duration) *PublicProxyFetcher {
	return &PublicProxyFetcher{baseURL: baseURL, client: newHTTPClient(timeout)}
}

func (f *PublicProxyFetcher) Name() string { return "public_proxy" }

func (f *PublicProxyFetcher) FetchText(ctx context.Context, targetURL string) (string, error) {
	reqURL := f.baseURL + "?url=" + url.QueryEscape(targetURL)
	return fetchBody(ctx, f.client, reqURL, f.Name())
}
