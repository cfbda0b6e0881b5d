package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interviewace/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := NewGateway(config.OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return gateway
}

func completionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return body
}

func TestNewGatewayRequiresAPIKey(t *testing.T) {
	_, err := NewGateway(config.OpenRouterConfig{})
	assert.Error(t, err)
}

func TestGenerateResponse(t *testing.T) {
	var captured chatRequest
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write(completionBody("I led the migration of our payments platform at Acme, which reduced costs by 30%. In my role I managed a team of four engineers through the transition. We improved reliability substantially."))
	})

	resp, err := gateway.GenerateResponse(context.Background(), Request{
		Question:     "Tell me about a project you led",
		SystemPrompt: "system",
		Model:        "gpt-4",
		HasResume:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4-turbo-preview", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, 800, captured.MaxTokens)
	assert.False(t, captured.Stream)

	assert.NotEmpty(t, resp.Answer)
	// Long answer with examples, quantification, and action words scores high.
	assert.Equal(t, 0.95, resp.Confidence)
}

func TestGenerateResponseModelMapping(t *testing.T) {
	tests := []struct {
		model string
		image string
		want  string
	}{
		{"gpt-4", "", "openai/gpt-4-turbo-preview"},
		{"claude-3.5", "", "anthropic/claude-3.5-sonnet"},
		{"gpt-3.5-turbo", "", "openai/gpt-3.5-turbo"},
		{"unknown", "", "openai/gpt-4-turbo-preview"},
		{"gpt-4", "data:image/png;base64,AA==", "openai/gpt-4-vision-preview"},
		{"gpt-3.5-turbo", "data:image/png;base64,AA==", "openai/gpt-4-vision-preview"},
		{"claude-3.5", "data:image/png;base64,AA==", "anthropic/claude-3.5-sonnet"},
	}

	for _, tt := range tests {
		var captured chatRequest
		gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&captured)
			w.Write(completionBody("ok"))
		})

		_, err := gateway.GenerateResponse(context.Background(), Request{
			Question: "q",
			Model:    tt.model,
			Image:    tt.image,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, captured.Model, "model %q image %q", tt.model, tt.image)
	}
}

func TestGenerateResponseErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidAPIKey},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := gateway.GenerateResponse(context.Background(), Request{Question: "q"})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestGenerateResponseOtherErrorIncludesMessage(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "bad model"},
		})
	})

	_, err := gateway.GenerateResponse(context.Background(), Request{Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestGenerateResponseNetworkError(t *testing.T) {
	gateway, err := NewGateway(config.OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	_, err = gateway.GenerateResponse(context.Background(), Request{Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failed")
}

func TestScoreConfidence(t *testing.T) {
	short := scoreConfidence("Yes.", Request{})
	assert.InDelta(t, 0.7, short, 0.001)

	capped := scoreConfidence(
		"In my role at Acme I led a team of 12 people and managed the rollout. "+
			"We improved throughput by 45% over six months. For example, I developed "+
			"a caching layer that reduced load. This experience shaped how I approach "+
			"reliability work. I also created dashboards for the team. The results "+
			"were strong and the project was considered a success across the company.",
		Request{HasResume: true, JobRole: "engineer"},
	)
	assert.Equal(t, 0.95, capped)
}

func TestTestConnection(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, gateway.TestConnection(context.Background()))

	unauthorized := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.ErrorIs(t, unauthorized.TestConnection(context.Background()), ErrInvalidAPIKey)
}
