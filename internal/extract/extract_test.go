package extract

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/resilience"
	"github.com/altiore-conseil/veille-cli/pkg/llm"
)

// mockLLM implements llm.Client with scripted responses.
type mockLLM struct {
	responses []string
	errs      []error
	calls     int
	lastReq   llm.ChatCompletionRequest
}

func (m *mockLLM) ChatCompletion(_ context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	i := m.calls
	m.calls++
	m.lastReq = req
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	content := ""
	if i < len(m.responses) {
		content = m.responses[i]
	}
	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: content}}},
	}, nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		ShouldRetry: resilience.IsRateLimited,
	}
}

const validPayload = `{
	"signaux": [
		{"type": "projet_erp_si", "label": "Refonte ERP annoncée", "confiance": 0.9, "source": "actualites"},
		{"type": "recrutement_it", "label": "Poste de DSI ouvert", "confiance": 0.7}
	],
	"score_besoin_dsi": 72,
	"score_urgence": 55,
	"score_complexite_si": 60,
	"justification": "Projet ERP confirmé par la presse locale."
}`

func TestExtract_ValidResponse(t *testing.T) {
	client := &mockLLM{responses: []string{validPayload}}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé Industrie", model.RawEvidence{SiteExcerpt: "texte"}, nil)

	require.NoError(t, err)
	require.Len(t, res.Evidence, 2)
	assert.Equal(t, model.SignalERPProject, res.Evidence[0].Type)
	assert.Equal(t, "Refonte ERP annoncée", res.Evidence[0].Label)
	assert.InDelta(t, 0.9, res.Evidence[0].Confidence, 1e-9)
	assert.Equal(t, "actualites", res.Evidence[0].SourceKind)
	assert.Equal(t, 72, res.ScoreNeed)
	assert.Equal(t, 55, res.ScoreUrgency)
	assert.Equal(t, 60, res.ScoreComplexity)
	assert.Equal(t, "Projet ERP confirmé par la presse locale.", res.Justification)
}

func TestExtract_FencedResponse(t *testing.T) {
	client := &mockLLM{responses: []string{"```json\n" + validPayload + "\n```"}}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	require.NoError(t, err)
	assert.Len(t, res.Evidence, 2)
}

func TestExtract_UnparsableFailsSoft(t *testing.T) {
	client := &mockLLM{responses: []string{"Je ne peux pas répondre en JSON."}}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	require.NoError(t, err)
	assert.NotNil(t, res.Evidence)
	assert.Empty(t, res.Evidence)
	assert.Zero(t, res.ScoreNeed)
	assert.Contains(t, res.Justification, "réponse IA illisible")
}

func TestExtract_UnknownTypeKept(t *testing.T) {
	client := &mockLLM{responses: []string{`{
		"signaux": [{"type": "levée_de_fonds", "label": "Série B", "confiance": 0.8}],
		"score_besoin_dsi": 40, "score_urgence": 30, "score_complexite_si": 20,
		"justification": "ok"
	}`}}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	require.NoError(t, err)
	require.Len(t, res.Evidence, 1)
	assert.Equal(t, model.SignalType("levée_de_fonds"), res.Evidence[0].Type)
	assert.False(t, res.Evidence[0].Type.Valid())
}

func TestExtract_ClampsScoresAndConfidence(t *testing.T) {
	client := &mockLLM{responses: []string{`{
		"signaux": [{"type": "expansion", "label": "x", "confiance": 1.8}],
		"score_besoin_dsi": 140, "score_urgence": -5, "score_complexite_si": 59.6,
		"justification": ""
	}`}}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Evidence[0].Confidence)
	assert.Equal(t, 100, res.ScoreNeed)
	assert.Equal(t, 0, res.ScoreUrgency)
	assert.Equal(t, 60, res.ScoreComplexity)
}

func TestExtract_RetriesRateLimit(t *testing.T) {
	client := &mockLLM{
		errs:      []error{&resilience.StatusError{Service: "llm", Code: http.StatusTooManyRequests}, nil},
		responses: []string{"", validPayload},
	}
	e := New(client, WithRetryConfig(fastRetry()))

	res, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Len(t, res.Evidence, 2)
}

func TestExtract_AuthFailureIsErrAuth(t *testing.T) {
	client := &mockLLM{errs: []error{&resilience.StatusError{Service: "llm", Code: http.StatusUnauthorized}}}
	e := New(client, WithRetryConfig(fastRetry()))

	_, err := e.Extract(context.Background(), "Acmé", model.RawEvidence{}, nil)

	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, client.calls)
}

func TestExtract_PromptCarriesEvidence(t *testing.T) {
	client := &mockLLM{responses: []string{validPayload}}
	e := New(client, WithRetryConfig(fastRetry()))

	ev := model.RawEvidence{
		SiteExcerpt: "Nous ouvrons une filiale en Allemagne.",
		NewsItems:   []model.NewsItem{{Title: "Acmé investit 4 M€", PubDate: "2 juin 2025"}},
	}
	firmo := &model.FirmographicData{LegalName: "ACME SAS", SIREN: "552100554", Headcount: 80}

	_, err := e.Extract(context.Background(), "Acmé Industrie", ev, firmo)

	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 2)
	prompt := client.lastReq.Messages[1].Content
	assert.Contains(t, prompt, "filiale en Allemagne")
	assert.Contains(t, prompt, "Acmé investit 4 M€")
	assert.Contains(t, prompt, "ACME SAS")
	assert.Contains(t, prompt, "552100554")
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
}
