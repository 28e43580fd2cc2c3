package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altiore-conseil/veille-cli/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"signaux\":[]}"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 8}
		}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", WithBaseURL(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "analyse"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"signaux":[]}`, resp.Content())
	assert.Equal(t, 120, resp.Usage.PromptTokens)
}

func TestChatCompletion_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limit"}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})

	require.Error(t, err)
	assert.True(t, resilience.IsRateLimited(err))
}

func TestChatCompletion_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})

	require.Error(t, err)
	assert.True(t, resilience.IsAuthFailure(err))
	assert.False(t, resilience.IsTransient(err))
}

func TestContent_Empty(t *testing.T) {
	var nilResp *ChatCompletionResponse
	assert.Empty(t, nilResp.Content())
	assert.Empty(t, (&ChatCompletionResponse{}).Content())
}
