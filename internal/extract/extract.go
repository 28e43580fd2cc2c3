// Package extract turns gathered evidence into typed signals through a
// language-model completion call with a strict JSON contract.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/resilience"
	"github.com/altiore-conseil/veille-cli/pkg/llm"
)

// ErrAuth marks an LLM authentication failure. This is a configuration
// error: the run must abort instead of degrading.
var ErrAuth = errors.New("extract: llm authentication failed")

// Result is the outcome of one extraction.
type Result struct {
	Evidence        []model.SignalEvidence `json:"evidence"`
	ScoreNeed       int                    `json:"score_need"`
	ScoreUrgency    int                    `json:"score_urgency"`
	ScoreComplexity int                    `json:"score_complexity"`
	Justification   string                 `json:"justification"`
}

// Extractor calls the completion endpoint and parses the signal contract.
type Extractor struct {
	client      llm.Client
	model       string
	maxTokens   int
	temperature float64
	retry       resilience.RetryConfig
	now         func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithModel sets the completion model.
func WithModel(m string) Option {
	return func(e *Extractor) { e.model = m }
}

// WithMaxTokens bounds the completion token budget.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Extractor) { e.temperature = t }
}

// WithRetryConfig overrides the rate-limit retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(e *Extractor) { e.retry = cfg }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor.
func New(client llm.Client, opts ...Option) *Extractor {
	e := &Extractor{
		client:      client,
		maxTokens:   1500,
		temperature: 0.2,
		retry:       resilience.DefaultRetryConfig(),
		now:         time.Now,
	}
	e.retry.ShouldRetry = resilience.IsRateLimited
	e.retry.OnRetry = resilience.RetryLogger("llm", "chat_completion")
	for _, o := range opts {
		o(e)
	}
	return e
}

// llmPayload is the strict JSON contract expected from the model.
type llmPayload struct {
	Signaux           []llmSignal `json:"signaux"`
	ScoreBesoinDSI    float64     `json:"score_besoin_dsi"`
	ScoreUrgence      float64     `json:"score_urgence"`
	ScoreComplexiteSI float64     `json:"score_complexite_si"`
	Justification     string      `json:"justification"`
}

type llmSignal struct {
	Type      string  `json:"type"`
	Label     string  `json:"label"`
	Confiance float64 `json:"confiance"`
	Source    string  `json:"source,omitempty"`
}

// Extract builds the prompt, calls the completion endpoint and parses the
// response. Rate limits are retried with exponential backoff; auth failures
// return ErrAuth; an unparsable response degrades to a zeroed Result with an
// explanatory justification rather than an error, so one bad completion
// cannot abort a batch.
func (e *Extractor) Extract(ctx context.Context, companyName string, ev model.RawEvidence, firmo *model.FirmographicData) (*Result, error) {
	prompt := buildPrompt(companyName, ev, firmo)

	req := llm.ChatCompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &e.temperature,
		MaxTokens:   &e.maxTokens,
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*llm.ChatCompletionResponse, error) {
		return e.client.ChatCompletion(ctx, req)
	})
	if err != nil {
		if resilience.IsAuthFailure(err) {
			return nil, eris.Wrap(ErrAuth, err.Error())
		}
		return nil, eris.Wrapf(err, "extract: completion for %s", companyName)
	}

	return e.parseResponse(companyName, resp.Content()), nil
}

// parseResponse decodes and validates the model output, failing soft to a
// zeroed result on any contract violation.
func (e *Extractor) parseResponse(companyName, content string) *Result {
	var payload llmPayload
	if err := json.Unmarshal([]byte(StripCodeFences(content)), &payload); err != nil {
		zap.L().Warn("extract: unparsable llm response",
			zap.String("company", companyName),
			zap.Error(err),
		)
		return &Result{
			Evidence:      []model.SignalEvidence{},
			Justification: "Analyse indisponible : réponse IA illisible (" + err.Error() + ")",
		}
	}

	now := e.now().UTC()
	evidence := make([]model.SignalEvidence, 0, len(payload.Signaux))
	for _, s := range payload.Signaux {
		t := model.SignalType(strings.TrimSpace(s.Type))
		if !t.Valid() {
			// Preserved but flagged: an unknown type carries no rule weight.
			zap.L().Warn("extract: unknown signal type from llm",
				zap.String("company", companyName),
				zap.String("type", string(t)),
			)
		}
		evidence = append(evidence, model.SignalEvidence{
			Type:       t,
			Label:      strings.TrimSpace(s.Label),
			Confidence: clamp01(s.Confiance),
			SourceKind: s.Source,
			DetectedAt: now,
		})
	}

	return &Result{
		Evidence:        evidence,
		ScoreNeed:       clampScore(payload.ScoreBesoinDSI),
		ScoreUrgency:    clampScore(payload.ScoreUrgence),
		ScoreComplexity: clampScore(payload.ScoreComplexiteSI),
		Justification:   payload.Justification,
	}
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v + 0.5)
	}
}
