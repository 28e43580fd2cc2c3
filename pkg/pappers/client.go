// Package pappers provides a client for a Pappers-style French company
// registry API. All calls are rate-limited client-side; a client without an
// API key is a no-op that returns empty results rather than errors.
package pappers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/resilience"
)

const defaultBaseURL = "https://api.pappers.fr/v2"

// ErrQuotaExceeded signals an HTTP 429 from the registry. Callers must stop
// calling the registry for the rest of the run instead of retrying.
var ErrQuotaExceeded = errors.New("pappers: quota exceeded")

// Candidate is a company returned by a registry search.
type Candidate struct {
	SIREN      string `json:"siren"`
	Name       string `json:"name"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	NAFCode    string `json:"naf_code,omitempty"`
}

// SearchFilters narrows a region search.
type SearchFilters struct {
	NAFCode      string
	MinHeadcount int
	PerPage      int
}

// Client defines the registry operations used by the pipeline.
type Client interface {
	// Enrich returns firmographic data for a SIREN, nil when unavailable.
	Enrich(ctx context.Context, siren string) (*model.FirmographicData, error)
	// SearchByRegion lists companies registered in the given departments.
	SearchByRegion(ctx context.Context, departments []string, filters SearchFilters) ([]Candidate, error)
	// SearchByName returns the best match for a company name, preferring a
	// city substring match, else the first result. Nil when nothing matched.
	SearchByName(ctx context.Context, name, city string) (*Candidate, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithMinInterval sets the minimum delay between registry calls.
func WithMinInterval(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a registry client. An empty apiKey produces a client
// whose every call is a no-op returning nil/empty.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pappers: rate limit wait")
	}

	params.Set("api_token", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pappers: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pappers: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pappers: read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrQuotaExceeded
	case resp.StatusCode != http.StatusOK:
		return nil, &resilience.StatusError{
			Service: "pappers",
			Code:    resp.StatusCode,
			Body:    string(body),
		}
	}

	return body, nil
}

// entrepriseResponse mirrors the registry's company endpoint.
type entrepriseResponse struct {
	SIREN            string `json:"siren"`
	NomEntreprise    string `json:"nom_entreprise"`
	CodeNAF          string `json:"code_naf"`
	TrancheEffectif  string `json:"tranche_effectif"`
	Effectif         int    `json:"effectif"`
	DernierCA        float64 `json:"dernier_ca"`
	AnneeFinances    int     `json:"annee_finances"`
	CroissanceCA     float64 `json:"croissance_ca"`
	Siege            struct {
		Ville      string `json:"ville"`
		CodePostal string `json:"code_postal"`
	} `json:"siege"`
	Representants []struct {
		NomComplet string `json:"nom_complet"`
		Qualite    string `json:"qualite"`
	} `json:"representants"`
}

func (c *httpClient) Enrich(ctx context.Context, siren string) (*model.FirmographicData, error) {
	if c.apiKey == "" || siren == "" {
		return nil, nil
	}

	body, err := c.get(ctx, "/entreprise", url.Values{"siren": {siren}})
	if err != nil {
		return nil, err
	}

	var raw entrepriseResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "pappers: unmarshal entreprise")
	}

	data := &model.FirmographicData{
		SIREN:          raw.SIREN,
		LegalName:      raw.NomEntreprise,
		NAFCode:        raw.CodeNAF,
		Revenue:        raw.DernierCA,
		RevenueYear:    raw.AnneeFinances,
		GrowthPct:      raw.CroissanceCA,
		HeadcountRange: raw.TrancheEffectif,
		Headcount:      raw.Effectif,
		City:           raw.Siege.Ville,
		PostalCode:     raw.Siege.CodePostal,
	}
	if data.Headcount == 0 && raw.TrancheEffectif != "" {
		data.Headcount = ParseHeadcount(raw.TrancheEffectif)
	}
	for _, r := range raw.Representants {
		data.Officers = append(data.Officers, model.Officer{
			Name: r.NomComplet,
			Role: r.Qualite,
		})
	}
	return data, nil
}

// rechercheResponse mirrors the registry's search endpoint.
type rechercheResponse struct {
	Resultats []struct {
		SIREN         string `json:"siren"`
		NomEntreprise string `json:"nom_entreprise"`
		CodeNAF       string `json:"code_naf"`
		Siege         struct {
			Ville      string `json:"ville"`
			CodePostal string `json:"code_postal"`
		} `json:"siege"`
	} `json:"resultats"`
}

func decodeCandidates(body []byte) ([]Candidate, error) {
	var raw rechercheResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "pappers: unmarshal recherche")
	}

	out := make([]Candidate, 0, len(raw.Resultats))
	for _, r := range raw.Resultats {
		out = append(out, Candidate{
			SIREN:      r.SIREN,
			Name:       r.NomEntreprise,
			City:       r.Siege.Ville,
			PostalCode: r.Siege.CodePostal,
			NAFCode:    r.CodeNAF,
		})
	}
	return out, nil
}

func (c *httpClient) SearchByRegion(ctx context.Context, departments []string, filters SearchFilters) ([]Candidate, error) {
	if c.apiKey == "" || len(departments) == 0 {
		return nil, nil
	}

	params := url.Values{"departement": {strings.Join(departments, ",")}}
	if filters.NAFCode != "" {
		params.Set("code_naf", filters.NAFCode)
	}
	if filters.MinHeadcount > 0 {
		params.Set("effectif_min", itoa(filters.MinHeadcount))
	}
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	params.Set("par_page", itoa(perPage))

	body, err := c.get(ctx, "/recherche", params)
	if err != nil {
		return nil, err
	}
	return decodeCandidates(body)
}

func (c *httpClient) SearchByName(ctx context.Context, name, city string) (*Candidate, error) {
	if c.apiKey == "" || name == "" {
		return nil, nil
	}

	body, err := c.get(ctx, "/recherche", url.Values{"q": {name}, "par_page": {"10"}})
	if err != nil {
		return nil, err
	}

	candidates, err := decodeCandidates(body)
	if err != nil {
		return nil, err
	}
	return BestMatch(candidates, city), nil
}

// BestMatch prefers a candidate whose city contains the given city
// (case-insensitive), else the first candidate. Nil for an empty slice.
func BestMatch(candidates []Candidate, city string) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	if city != "" {
		needle := strings.ToLower(city)
		for i := range candidates {
			if strings.Contains(strings.ToLower(candidates[i].City), needle) {
				return &candidates[i]
			}
		}
	}
	return &candidates[0]
}
