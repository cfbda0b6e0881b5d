// Package ai provides the OpenRouter chat completion gateway used to
// generate candidate answers during a rehearsal session.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/interviewace/apiserver/config"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"
const requestTimeout = 60 * time.Second

// Error conditions reported by the completion endpoint.
var (
	ErrInvalidAPIKey       = errors.New("openrouter: invalid API key")
	ErrInsufficientCredits = errors.New("openrouter: insufficient credits or payment required")
	ErrRateLimited         = errors.New("openrouter: rate limit exceeded")
	ErrServerError         = errors.New("openrouter: server error")
)

// Request is one completion request for an interviewer question.
type Request struct {
	Question     string
	SystemPrompt string

	// Model is the short model name: "gpt-4", "claude-3.5", or
	// "gpt-3.5-turbo". Unknown names fall back to "gpt-4".
	Model string

	// Image is an optional data URL of a captured screenshot. When set
	// the request uses the vision variant of the model.
	Image string

	// JobRole and HasResume feed the confidence heuristic.
	JobRole   string
	HasResume bool
}

// Response is the generated answer with a confidence estimate.
type Response struct {
	Answer     string
	Confidence float64
}

// Gateway calls the OpenRouter chat completion API.
type Gateway struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGateway constructs a Gateway from config.
func NewGateway(cfg config.OpenRouterConfig) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openrouter: API key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Stream           bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateResponse sends one completion request and scores the answer.
func (g *Gateway) GenerateResponse(ctx context.Context, req Request) (Response, error) {
	payload := chatRequest{
		Model: modelName(req.Model, req.Image != ""),
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: userContent(req)},
		},
		MaxTokens:        800,
		Temperature:      0.7,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "InterviewAce Assistant")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("openrouter: connection failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode == http.StatusOK {
		return Response{}, fmt.Errorf("openrouter: decode response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Response{}, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusPaymentRequired:
		return Response{}, ErrInsufficientCredits
	case resp.StatusCode == http.StatusTooManyRequests:
		return Response{}, ErrRateLimited
	case resp.StatusCode >= 500:
		return Response{}, ErrServerError
	case resp.StatusCode != http.StatusOK:
		message := "unknown error"
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return Response{}, fmt.Errorf("openrouter: %d - %s", resp.StatusCode, message)
	}

	if len(parsed.Choices) == 0 {
		return Response{}, errors.New("openrouter: empty completion")
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	return Response{
		Answer:     answer,
		Confidence: scoreConfidence(answer, req),
	}, nil
}

// TestConnection verifies the API key against the models endpoint.
func (g *Gateway) TestConnection(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openrouter: connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrInvalidAPIKey
		}
		return fmt.Errorf("openrouter: connection test failed with status %d", resp.StatusCode)
	}
	return nil
}

func userContent(req Request) any {
	if req.Image != "" {
		return []map[string]any{
			{"type": "text", "text": req.Question},
			{"type": "image_url", "image_url": map[string]string{"url": req.Image}},
		}
	}
	return req.Question
}

var textModels = map[string]string{
	"gpt-4":         "openai/gpt-4-turbo-preview",
	"claude-3.5":    "anthropic/claude-3.5-sonnet",
	"gpt-3.5-turbo": "openai/gpt-3.5-turbo",
}

var visionModels = map[string]string{
	"gpt-4":         "openai/gpt-4-vision-preview",
	"claude-3.5":    "anthropic/claude-3.5-sonnet",
	"gpt-3.5-turbo": "openai/gpt-4-vision-preview",
}

func modelName(model string, hasImage bool) string {
	models := textModels
	if hasImage {
		models = visionModels
	}
	if name, ok := models[model]; ok {
		return name
	}
	return models["gpt-4"]
}

var (
	examplesRe       = regexp.MustCompile(`(?i)example|experience|when I|in my role|at \w+|worked on`)
	quantificationRe = regexp.MustCompile(`(?i)\d+(%|percent|times|years|months|people|team)`)
	actionWordsRe    = regexp.MustCompile(`(?i)led|managed|developed|created|improved|increased|reduced|implemented`)
)

// scoreConfidence estimates answer quality from length and content
// markers. Scores start at 0.7 and cap at 0.95.
func scoreConfidence(answer string, req Request) float64 {
	length := len(answer)
	hasExamples := examplesRe.MatchString(answer)
	hasStructure := strings.Contains(answer, ".") && len(strings.Split(answer, ".")) > 2

	confidence := 0.7

	if length > 100 {
		confidence += 0.05
	}
	if length > 200 {
		confidence += 0.05
	}
	if length > 300 {
		confidence += 0.05
	}

	if hasExamples {
		confidence += 0.08
	}
	if hasStructure {
		confidence += 0.05
	}
	if quantificationRe.MatchString(answer) {
		confidence += 0.07
	}
	if actionWordsRe.MatchString(answer) {
		confidence += 0.06
	}

	if req.HasResume && hasExamples {
		confidence += 0.05
	}
	if req.JobRole != "" && strings.Contains(strings.ToLower(answer), strings.ToLower(req.JobRole)) {
		confidence += 0.03
	}

	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}
