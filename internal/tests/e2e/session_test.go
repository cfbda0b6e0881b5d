//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/interviewace/apiserver/config"
	"github.com/interviewace/apiserver/internal/db"
	"github.com/interviewace/apiserver/internal/server"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/health"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestSessionLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("candidate_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	token, err := registerUser(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	session, err := createSession(t, baseURL, token)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID == 0 {
		t.Fatalf("expected session ID to be set")
	}
	if session.Status != "active" {
		t.Fatalf("unexpected session status: %q", session.Status)
	}

	withQuestion, err := addQuestion(t, baseURL, token, session.ID)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if len(withQuestion.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(withQuestion.Questions))
	}

	completed, err := completeSession(t, baseURL, token, session.ID)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if completed.Status != "completed" {
		t.Fatalf("unexpected completed status: %q", completed.Status)
	}

	if err := expectCompleteConflict(t, baseURL, token, session.ID); err != nil {
		t.Fatalf("expected second complete to conflict: %v", err)
	}
}

func TestResumeDefaultFlag(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("writer_%d@example.com", time.Now().UnixNano())

	token, err := registerUser(t, baseURL, email, "testpass123!")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	first, err := createResume(t, baseURL, token, "First Resume")
	if err != nil {
		t.Fatalf("create first resume: %v", err)
	}
	second, err := createResume(t, baseURL, token, "Second Resume")
	if err != nil {
		t.Fatalf("create second resume: %v", err)
	}

	if err := setDefaultResume(t, baseURL, token, first.ID); err != nil {
		t.Fatalf("set first default: %v", err)
	}
	if err := setDefaultResume(t, baseURL, token, second.ID); err != nil {
		t.Fatalf("set second default: %v", err)
	}

	firstAgain, err := getResume(t, baseURL, token, first.ID)
	if err != nil {
		t.Fatalf("get first resume: %v", err)
	}
	if firstAgain.IsDefault {
		t.Fatalf("expected first resume to lose the default flag")
	}
	secondAgain, err := getResume(t, baseURL, token, second.ID)
	if err != nil {
		t.Fatalf("get second resume: %v", err)
	}
	if !secondAgain.IsDefault {
		t.Fatalf("expected second resume to carry the default flag")
	}
}

type sessionResponse struct {
	ID        int    `json:"id"`
	Status    string `json:"status"`
	Questions []struct {
		Question string `json:"question"`
	} `json:"questions"`
}

type resumeResponse struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	IsDefault bool   `json:"isDefault"`
}

type dataEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
}

func registerUser(t *testing.T, baseURL, email, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"name":     "Test Candidate",
		"email":    email,
		"password": password,
	}
	env, status, err := doRequest(http.MethodPost, baseURL+"/auth/register", "", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("register status %d: %s", status, env.Message)
	}
	if env.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return env.Token, nil
}

func createSession(t *testing.T, baseURL, token string) (sessionResponse, error) {
	t.Helper()

	payload := map[string]any{
		"sessionType": "trial",
		"company":     "Initech",
		"position":    "Backend Engineer",
		"metadata": map[string]any{
			"language": "en",
			"aiModel":  "gpt-4",
		},
	}
	env, status, err := doRequest(http.MethodPost, baseURL+"/sessions/", token, payload)
	if err != nil {
		return sessionResponse{}, err
	}
	if status != http.StatusCreated {
		return sessionResponse{}, fmt.Errorf("create session status %d: %s", status, env.Message)
	}
	var session sessionResponse
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return sessionResponse{}, err
	}
	return session, nil
}

func addQuestion(t *testing.T, baseURL, token string, id int) (sessionResponse, error) {
	t.Helper()

	payload := map[string]any{
		"question": "Tell me about yourself",
		"answer":   "I build backend services in Go.",
	}
	url := fmt.Sprintf("%s/sessions/%d/questions", baseURL, id)
	env, status, err := doRequest(http.MethodPost, url, token, payload)
	if err != nil {
		return sessionResponse{}, err
	}
	if status != http.StatusOK {
		return sessionResponse{}, fmt.Errorf("add question status %d: %s", status, env.Message)
	}
	var session sessionResponse
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return sessionResponse{}, err
	}
	return session, nil
}

func completeSession(t *testing.T, baseURL, token string, id int) (sessionResponse, error) {
	t.Helper()

	payload := map[string]any{
		"status":   "completed",
		"duration": 7,
	}
	url := fmt.Sprintf("%s/sessions/%d/complete", baseURL, id)
	env, status, err := doRequest(http.MethodPut, url, token, payload)
	if err != nil {
		return sessionResponse{}, err
	}
	if status != http.StatusOK {
		return sessionResponse{}, fmt.Errorf("complete session status %d: %s", status, env.Message)
	}
	var session sessionResponse
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return sessionResponse{}, err
	}
	return session, nil
}

func expectCompleteConflict(t *testing.T, baseURL, token string, id int) error {
	t.Helper()

	url := fmt.Sprintf("%s/sessions/%d/complete", baseURL, id)
	env, status, err := doRequest(http.MethodPut, url, token, map[string]any{"status": "completed"})
	if err != nil {
		return err
	}
	if status != http.StatusConflict {
		return fmt.Errorf("expected 409, got %d: %s", status, env.Message)
	}
	return nil
}

func createResume(t *testing.T, baseURL, token, title string) (resumeResponse, error) {
	t.Helper()

	payload := map[string]any{
		"title": title,
		"personalDetails": map[string]string{
			"name":  "Test Candidate",
			"email": "candidate@example.com",
		},
	}
	env, status, err := doRequest(http.MethodPost, baseURL+"/resumes/", token, payload)
	if err != nil {
		return resumeResponse{}, err
	}
	if status != http.StatusCreated {
		return resumeResponse{}, fmt.Errorf("create resume status %d: %s", status, env.Message)
	}
	var resume resumeResponse
	if err := json.Unmarshal(env.Data, &resume); err != nil {
		return resumeResponse{}, err
	}
	return resume, nil
}

func setDefaultResume(t *testing.T, baseURL, token string, id int) error {
	t.Helper()

	url := fmt.Sprintf("%s/resumes/%d/default", baseURL, id)
	env, status, err := doRequest(http.MethodPut, url, token, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("set default status %d: %s", status, env.Message)
	}
	return nil
}

func getResume(t *testing.T, baseURL, token string, id int) (resumeResponse, error) {
	t.Helper()

	url := fmt.Sprintf("%s/resumes/%d/", baseURL, id)
	env, status, err := doRequest(http.MethodGet, url, token, nil)
	if err != nil {
		return resumeResponse{}, err
	}
	if status != http.StatusOK {
		return resumeResponse{}, fmt.Errorf("get resume status %d: %s", status, env.Message)
	}
	var resume resumeResponse
	if err := json.Unmarshal(env.Data, &resume); err != nil {
		return resumeResponse{}, err
	}
	return resume, nil
}

func doRequest(method, url, token string, payload any) (dataEnvelope, int, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return dataEnvelope{}, 0, err
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return dataEnvelope{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dataEnvelope{}, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return dataEnvelope{}, resp.StatusCode, err
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return dataEnvelope{}, resp.StatusCode, fmt.Errorf("decode response %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return env, resp.StatusCode, nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := db.BuildPostgresURL(cfg)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := db.BuildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "interviewace")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "interviewace_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
