// Package model defines the core types shared across the detection pipeline:
// watchlist entries, typed signals, scored signal records and scan state.
package model

import (
	"strings"
	"time"
)

// SignalType classifies a detected business signal.
type SignalType string

const (
	SignalInvestment       SignalType = "investissement"
	SignalExpansion        SignalType = "expansion"
	SignalERPProject       SignalType = "projet_erp_si"
	SignalGrowth           SignalType = "croissance"
	SignalAcquisition      SignalType = "rachat"
	SignalInternational    SignalType = "international"
	SignalITHiring         SignalType = "recrutement_it"
	SignalLeadershipChange SignalType = "changement_direction"
)

// KnownSignalTypes lists every valid signal type.
var KnownSignalTypes = []SignalType{
	SignalInvestment,
	SignalExpansion,
	SignalERPProject,
	SignalGrowth,
	SignalAcquisition,
	SignalInternational,
	SignalITHiring,
	SignalLeadershipChange,
}

// Valid reports whether t is one of the known signal types.
func (t SignalType) Valid() bool {
	for _, k := range KnownSignalTypes {
		if t == k {
			return true
		}
	}
	return false
}

// WatchlistEntry is a company under active monitoring.
type WatchlistEntry struct {
	ID          string     `json:"id"`
	CompanyName string     `json:"company_name"`
	SIREN       string     `json:"siren,omitempty"`
	WebsiteURL  string     `json:"website_url,omitempty"`
	Region      string     `json:"region"`
	Department  string     `json:"department,omitempty"`
	City        string     `json:"city,omitempty"`
	PostalCode  string     `json:"postal_code,omitempty"`
	SectorCode  string     `json:"sector_code,omitempty"`
	Active      bool       `json:"active"`
	AddedAt     time.Time  `json:"added_at"`
	LastScanAt  *time.Time `json:"last_scan_at,omitempty"`
}

// Identity returns the stable company identity: the SIREN when present,
// otherwise the lowercased company name.
func (e WatchlistEntry) Identity() string {
	if e.SIREN != "" {
		return e.SIREN
	}
	return strings.ToLower(strings.TrimSpace(e.CompanyName))
}

// SignalEvidence is a single typed indicator extracted from gathered evidence.
type SignalEvidence struct {
	Type       SignalType `json:"type"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	SourceKind string     `json:"source_kind,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
	Excerpt    string     `json:"excerpt,omitempty"`
}

// NewsItem is one entry from the news-search feed.
type NewsItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate string `json:"pub_date,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// RawEvidence holds the gathered source material a record was scored from.
type RawEvidence struct {
	SiteExcerpt   string     `json:"site_excerpt,omitempty"`
	NewsItems     []NewsItem `json:"news_items,omitempty"`
	SearchExcerpt string     `json:"search_excerpt,omitempty"`
}

// Empty reports whether no evidence source returned anything.
func (r RawEvidence) Empty() bool {
	return r.SiteExcerpt == "" && len(r.NewsItems) == 0 && r.SearchExcerpt == ""
}

// Officer is a company officer from the registry.
type Officer struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// FirmographicData is registry enrichment data for a company.
type FirmographicData struct {
	SIREN          string    `json:"siren"`
	LegalName      string    `json:"legal_name,omitempty"`
	Revenue        float64   `json:"revenue,omitempty"`
	RevenueYear    int       `json:"revenue_year,omitempty"`
	GrowthPct      float64   `json:"growth_pct,omitempty"`
	Headcount      int       `json:"headcount,omitempty"`
	HeadcountRange string    `json:"headcount_range,omitempty"`
	NAFCode        string    `json:"naf_code,omitempty"`
	City           string    `json:"city,omitempty"`
	PostalCode     string    `json:"postal_code,omitempty"`
	Officers       []Officer `json:"officers,omitempty"`
}

// GeneratedContent is human-facing outreach text produced on demand.
type GeneratedContent struct {
	Hypothesis      string    `json:"hypothesis"`
	ApproachAngle   string    `json:"approach_angle"`
	CallScript      string    `json:"call_script"`
	OutreachMessage string    `json:"outreach_message"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SignalStatus tracks the triage state of a signal record.
type SignalStatus string

const (
	StatusNew       SignalStatus = "new"
	StatusReviewed  SignalStatus = "reviewed"
	StatusDiscarded SignalStatus = "discarded"
)

// SignalRecord is the persisted outcome of scanning one company.
// At most one non-discarded record exists per company identity; re-scans
// merge into the existing record, preserving ID and CreatedAt.
type SignalRecord struct {
	ID              string            `json:"id"`
	CompanyIdentity string            `json:"company_identity"`
	CompanyName     string            `json:"company_name"`
	Region          string            `json:"region,omitempty"`
	Department      string            `json:"department,omitempty"`
	City            string            `json:"city,omitempty"`
	PostalCode      string            `json:"postal_code,omitempty"`
	Evidence        []SignalEvidence  `json:"evidence"`
	ScoreNeed       int               `json:"score_need"`
	ScoreUrgency    int               `json:"score_urgency"`
	ScoreComplexity int               `json:"score_complexity"`
	ScoreGlobal     int               `json:"score_global"`
	Registry        *FirmographicData `json:"registry,omitempty"`
	Raw             RawEvidence       `json:"raw_evidence"`
	Generated       *GeneratedContent `json:"generated_content,omitempty"`
	Status          SignalStatus      `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Notes           string            `json:"notes,omitempty"`
}

// ScanConfig is the persisted scheduling state of the batch scanner.
type ScanConfig struct {
	ActiveRegions  []string   `json:"active_regions,omitempty"`
	Cursor         int        `json:"cursor"`
	AlertThreshold int        `json:"alert_threshold"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// ScanReport summarizes one batch scanner invocation.
type ScanReport struct {
	Processed    int      `json:"processed"`
	Failed       int      `json:"failed"`
	Alerts       int      `json:"alerts"`
	BatchSize    int      `json:"batch_size"`
	NextCursor   int      `json:"next_cursor"`
	TotalSignals int      `json:"total_signals"`
	Errors       []string `json:"errors,omitempty"`
}
