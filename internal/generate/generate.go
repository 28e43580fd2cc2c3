// Package generate produces outreach content for a scored signal record on
// demand. Generation is explicit and never runs inside the batch scanner.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/altiore-conseil/veille-cli/internal/extract"
	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/pkg/llm"
)

const systemPrompt = `Tu es un expert en prospection commerciale B2B pour un cabinet de conseil en systèmes d'information. Tu rédiges des approches commerciales personnalisées, concrètes et sans jargon inutile. Tu réponds uniquement en JSON valide.`

const promptTemplate = `À partir des signaux d'affaires détectés ci-dessous, rédige une approche commerciale pour l'entreprise %s.

Signaux détectés :
%s

Scores : besoin DSI %d/100, urgence %d/100, complexité SI %d/100, global %d/100.
%s
Réponds uniquement avec un objet JSON de la forme :
{
  "hypothese": "hypothèse sur le besoin probable de l'entreprise",
  "angle_approche": "angle d'approche commercial recommandé",
  "script_appel": "script d'appel téléphonique court (moins de 200 mots)",
  "message_approche": "message LinkedIn ou email de prise de contact (moins de 150 mots)"
}`

// Generator turns a signal record into outreach content via the LLM.
type Generator struct {
	client      llm.Client
	model       string
	maxTokens   int
	temperature float64
	now         func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel overrides the model name.
func WithModel(name string) Option {
	return func(g *Generator) { g.model = name }
}

// WithMaxTokens overrides the completion budget.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator.
func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		maxTokens:   1500,
		temperature: 0.7,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generatedPayload struct {
	Hypothesis      string `json:"hypothese"`
	ApproachAngle   string `json:"angle_approche"`
	CallScript      string `json:"script_appel"`
	OutreachMessage string `json:"message_approche"`
}

// GenerateApproach produces outreach content for rec. Unlike extraction,
// generation is interactive: errors propagate to the caller instead of
// degrading to a placeholder, and the caller decides whether to persist.
func (g *Generator) GenerateApproach(ctx context.Context, rec model.SignalRecord) (*model.GeneratedContent, error) {
	req := llm.ChatCompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(rec)},
		},
		Temperature: &g.temperature,
		MaxTokens:   &g.maxTokens,
	}

	resp, err := g.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "generate: chat completion")
	}

	raw := extract.StripCodeFences(resp.Content())
	var payload generatedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, eris.Wrap(err, "generate: parse response")
	}

	return &model.GeneratedContent{
		Hypothesis:      payload.Hypothesis,
		ApproachAngle:   payload.ApproachAngle,
		CallScript:      payload.CallScript,
		OutreachMessage: payload.OutreachMessage,
		GeneratedAt:     g.now().UTC(),
	}, nil
}

func buildPrompt(rec model.SignalRecord) string {
	var signals strings.Builder
	if len(rec.Evidence) == 0 {
		signals.WriteString("(aucun signal fort, approche exploratoire)")
	}
	for _, ev := range rec.Evidence {
		fmt.Fprintf(&signals, "- [%s] %s (confiance %.0f%%)\n", ev.Type, ev.Label, ev.Confidence*100)
	}

	var context string
	if rec.Registry != nil {
		var parts []string
		if rec.Registry.HeadcountRange != "" {
			parts = append(parts, "effectif "+rec.Registry.HeadcountRange)
		}
		if rec.Registry.Revenue > 0 {
			parts = append(parts, fmt.Sprintf("CA %.0f EUR", rec.Registry.Revenue))
		}
		if rec.Registry.NAFCode != "" {
			parts = append(parts, "NAF "+rec.Registry.NAFCode)
		}
		if len(parts) > 0 {
			context = "Contexte entreprise : " + strings.Join(parts, ", ") + ".\n"
		}
	}

	return fmt.Sprintf(promptTemplate,
		rec.CompanyName,
		strings.TrimRight(signals.String(), "\n"),
		rec.ScoreNeed, rec.ScoreUrgency, rec.ScoreComplexity, rec.ScoreGlobal,
		context,
	)
}
