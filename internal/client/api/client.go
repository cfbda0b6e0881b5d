// Package api is the REST client used by the terminal rehearsal client
// to talk to the backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/interviewace/apiserver/types"
)

const defaultTimeout = 30 * time.Second

// Client is an authenticated HTTP client for the backend API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a Client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs a previously issued JWT.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current JWT, empty when not logged in.
func (c *Client) Token() string {
	return c.token
}

// envelope is the standard response wrapper used by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		message := env.Message
		if message == "" {
			message = resp.Status
		}
		return envelope{}, fmt.Errorf("%s %s: %s", method, path, message)
	}
	return env, nil
}

// Register creates an account and stores the issued token.
func (c *Client) Register(ctx context.Context, name, email, password string) (types.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return types.User{}, err
	}
	return c.adoptAuth(env)
}

// Login authenticates and stores the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return types.User{}, err
	}
	return c.adoptAuth(env)
}

func (c *Client) adoptAuth(env envelope) (types.User, error) {
	var user types.User
	if err := json.Unmarshal(env.User, &user); err != nil {
		return types.User{}, fmt.Errorf("decode user: %w", err)
	}
	if env.Token != "" {
		c.token = env.Token
	}
	return user, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return types.User{}, err
	}
	var user types.User
	if err := json.Unmarshal(env.User, &user); err != nil {
		return types.User{}, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// ListResumes fetches the caller's resumes.
func (c *Client) ListResumes(ctx context.Context) ([]types.Resume, error) {
	env, err := c.do(ctx, http.MethodGet, "/resumes/", nil)
	if err != nil {
		return nil, err
	}
	var resumes []types.Resume
	if err := json.Unmarshal(env.Data, &resumes); err != nil {
		return nil, fmt.Errorf("decode resumes: %w", err)
	}
	return resumes, nil
}

// GetResume fetches one resume by id.
func (c *Client) GetResume(ctx context.Context, id int) (types.Resume, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/resumes/%d/", id), nil)
	if err != nil {
		return types.Resume{}, err
	}
	var resume types.Resume
	if err := json.Unmarshal(env.Data, &resume); err != nil {
		return types.Resume{}, fmt.Errorf("decode resume: %w", err)
	}
	return resume, nil
}

// CreateSessionRequest is the session creation payload. Preferences are
// flat fields; the server folds them into the session metadata.
type CreateSessionRequest struct {
	SessionType       string `json:"sessionType"`
	Company           string `json:"company"`
	Position          string `json:"position"`
	ResumeID          int    `json:"resumeId,omitempty"`
	Language          string `json:"language,omitempty"`
	SimpleEnglish     bool   `json:"simpleEnglish,omitempty"`
	ExtraInstructions string `json:"extraInstructions,omitempty"`
	AIModel           string `json:"aiModel,omitempty"`
}

// CreateSession starts a new interview session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (types.InterviewSession, error) {
	env, err := c.do(ctx, http.MethodPost, "/sessions/", req)
	if err != nil {
		return types.InterviewSession{}, err
	}
	return decodeSession(env)
}

// GetSession fetches one session by id.
func (c *Client) GetSession(ctx context.Context, id int) (types.InterviewSession, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d/", id), nil)
	if err != nil {
		return types.InterviewSession{}, err
	}
	return decodeSession(env)
}

// GetQuestions fetches the question log of a session.
func (c *Client) GetQuestions(ctx context.Context, id int) ([]types.SessionQuestion, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d/questions", id), nil)
	if err != nil {
		return nil, err
	}
	var questions []types.SessionQuestion
	if err := json.Unmarshal(env.Data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

// AddQuestion appends a question/answer exchange to a session.
func (c *Client) AddQuestion(ctx context.Context, id int, question types.SessionQuestion) (types.InterviewSession, error) {
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sessions/%d/questions", id), question)
	if err != nil {
		return types.InterviewSession{}, err
	}
	return decodeSession(env)
}

// CompleteSessionRequest is the session completion payload.
type CompleteSessionRequest struct {
	Status   string     `json:"status,omitempty"`
	EndTime  *time.Time `json:"endTime,omitempty"`
	Duration *int       `json:"duration,omitempty"`
}

// CompleteSession moves a session to a terminal status.
func (c *Client) CompleteSession(ctx context.Context, id int, req CompleteSessionRequest) (types.InterviewSession, error) {
	env, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/sessions/%d/complete", id), req)
	if err != nil {
		return types.InterviewSession{}, err
	}
	return decodeSession(env)
}

func decodeSession(env envelope) (types.InterviewSession, error) {
	var session types.InterviewSession
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return types.InterviewSession{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
