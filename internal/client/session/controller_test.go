package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/interviewace/apiserver/config"
	"github.com/interviewace/apiserver/internal/ai"
	"github.com/interviewace/apiserver/internal/client/api"
	"github.com/interviewace/apiserver/internal/client/capture"
	"github.com/interviewace/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the API server, speaking the
// same response envelope.
type fakeBackend struct {
	mu               sync.Mutex
	session          types.InterviewSession
	resume           *types.Resume
	complete         *api.CompleteSessionRequest
	completeFailures int
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	writeData := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}

	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.session = types.InterviewSession{
			ID:          1,
			UserID:      1,
			SessionType: req.SessionType,
			Company:     req.Company,
			Position:    req.Position,
			Status:      types.SessionStatusActive,
			StartTime:   time.Now(),
			Metadata: types.SessionMetadata{
				ResumeID:          req.ResumeID,
				Language:          req.Language,
				SimpleEnglish:     req.SimpleEnglish,
				ExtraInstructions: req.ExtraInstructions,
				AIModel:           req.AIModel,
			},
		}
		session := b.session
		b.mu.Unlock()
		writeData(w, session)
	})
	mux.HandleFunc("GET /sessions/{id}/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		session := b.session
		b.mu.Unlock()
		writeData(w, session)
	})
	mux.HandleFunc("GET /sessions/{id}/questions", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		questions := b.session.Questions
		b.mu.Unlock()
		writeData(w, questions)
	})
	mux.HandleFunc("POST /sessions/{id}/questions", func(w http.ResponseWriter, r *http.Request) {
		var q types.SessionQuestion
		_ = json.NewDecoder(r.Body).Decode(&q)
		b.mu.Lock()
		b.session.Questions = append(b.session.Questions, q)
		session := b.session
		b.mu.Unlock()
		writeData(w, session)
	})
	mux.HandleFunc("PUT /sessions/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		var req api.CompleteSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		if b.completeFailures > 0 {
			b.completeFailures--
			b.mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Failed to complete session"})
			return
		}
		b.complete = &req
		b.session.Status = types.SessionStatusCompleted
		if req.Duration != nil {
			b.session.Duration = *req.Duration
		}
		session := b.session
		b.mu.Unlock()
		writeData(w, session)
	})
	mux.HandleFunc("GET /resumes/{id}/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		resume := b.resume
		b.mu.Unlock()
		if resume == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Resume not found"})
			return
		}
		writeData(w, resume)
	})
	return mux
}

func (b *fakeBackend) completed() *api.CompleteSessionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

func newTestController(t *testing.T, backend *fakeBackend, answer string) *Controller {
	t.Helper()

	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)

	aiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, answer)
	}))
	t.Cleanup(aiSrv.Close)

	gateway, err := ai.NewGateway(config.OpenRouterConfig{APIKey: "test-key", BaseURL: aiSrv.URL})
	require.NoError(t, err)

	client := api.New(backendSrv.URL)
	client.SetToken("test-token")

	return NewController(client, gateway, NewFileCache(t.TempDir()), nil, nil)
}

func startTrial(t *testing.T, c *Controller) {
	t.Helper()
	err := c.Start(context.Background(), api.CreateSessionRequest{
		SessionType: types.SessionTypeTrial,
		Company:     "Initech",
		Position:    "Backend Engineer",
		Language:    "en",
		AIModel:     "gpt-4",
	})
	require.NoError(t, err)
}

func TestControllerStartTrial(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "Lead with your most recent project.")

	startTrial(t, c)

	assert.Equal(t, 1, c.Session().ID)
	assert.Equal(t, trialSeconds, c.TimeRemaining())
	assert.Empty(t, c.Conversation())
}

func TestControllerProcessAnswer(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "Lead with your most recent project.")

	startTrial(t, c)

	entry, err := c.ProcessAnswer(context.Background(), "Tell me about yourself")
	require.NoError(t, err)

	assert.Equal(t, "Tell me about yourself", entry.Question)
	assert.Equal(t, "Lead with your most recent project.", entry.Answer)
	assert.True(t, entry.Processed)
	assert.Len(t, c.Conversation(), 1)

	backend.mu.Lock()
	saved := len(backend.session.Questions)
	backend.mu.Unlock()
	assert.Equal(t, 1, saved)
}

func TestControllerProcessAnswerAfterEnd(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "answer")

	startTrial(t, c)
	require.NoError(t, c.End(context.Background()))

	_, err := c.ProcessAnswer(context.Background(), "Tell me about yourself")
	assert.ErrorIs(t, err, ErrEnded)
}

func TestControllerResumeRebuildsConversation(t *testing.T) {
	backend := &fakeBackend{}
	backend.session = types.InterviewSession{
		ID:          9,
		SessionType: types.SessionTypeTrial,
		Company:     "Initech",
		Position:    "Backend Engineer",
		Status:      types.SessionStatusActive,
		Questions: []types.SessionQuestion{
			{Question: "Q1", Answer: "A1", Confidence: 0.9},
			{Question: "Q2", Answer: "A2"},
		},
	}
	c := newTestController(t, backend, "answer")

	require.NoError(t, c.Resume(context.Background(), 9))

	// No local state survived, so the full time box is granted.
	assert.Equal(t, trialSeconds, c.TimeRemaining())

	conversation := c.Conversation()
	require.Len(t, conversation, 2)
	assert.Equal(t, 0.9, conversation[0].Confidence)
	assert.Equal(t, 0.8, conversation[1].Confidence)
	assert.True(t, conversation[1].Processed)
}

func TestControllerResumeRestoresCachedCountdown(t *testing.T) {
	backend := &fakeBackend{}
	backend.session = types.InterviewSession{
		ID:          7,
		SessionType: types.SessionTypeTrial,
		Company:     "Initech",
		Position:    "Backend Engineer",
		Status:      types.SessionStatusActive,
	}
	c := newTestController(t, backend, "answer")

	require.NoError(t, c.cache.Save(State{
		SessionID:     7,
		TimeRemaining: 100,
		Conversation: []Entry{
			{Question: "Q1", Answer: "A1", Confidence: 0.9, Processed: true},
		},
	}))

	require.NoError(t, c.Resume(context.Background(), 7))

	assert.Equal(t, 100, c.TimeRemaining())
	conversation := c.Conversation()
	require.Len(t, conversation, 1)
	assert.Equal(t, "Q1", conversation[0].Question)
}

func TestControllerResumeIgnoresCacheForOtherSession(t *testing.T) {
	backend := &fakeBackend{}
	backend.session = types.InterviewSession{
		ID:          9,
		SessionType: types.SessionTypeTrial,
		Company:     "Initech",
		Position:    "Backend Engineer",
		Status:      types.SessionStatusActive,
	}
	c := newTestController(t, backend, "answer")

	require.NoError(t, c.cache.Save(State{SessionID: 4, TimeRemaining: 100}))

	require.NoError(t, c.Resume(context.Background(), 9))
	assert.Equal(t, trialSeconds, c.TimeRemaining())
}

func TestControllerResumeEndedSession(t *testing.T) {
	backend := &fakeBackend{}
	backend.session = types.InterviewSession{
		ID:          9,
		SessionType: types.SessionTypeTrial,
		Status:      types.SessionStatusCompleted,
		Duration:    9,
	}
	c := newTestController(t, backend, "answer")

	require.NoError(t, c.Resume(context.Background(), 9))
	assert.Equal(t, 0, c.TimeRemaining())

	_, err := c.ProcessAnswer(context.Background(), "Q")
	assert.ErrorIs(t, err, ErrEnded)
}

func TestControllerTickExpiryEndsSession(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "answer")

	startTrial(t, c)

	// Burn the clock down to the last second.
	for i := 0; i < trialSeconds-1; i++ {
		expired, err := c.Tick(context.Background())
		require.NoError(t, err)
		require.False(t, expired)
	}

	expired, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, expired)

	req := backend.completed()
	require.NotNil(t, req)
	assert.Equal(t, types.SessionStatusCompleted, req.Status)
	require.NotNil(t, req.Duration)
	assert.Equal(t, trialSeconds/60, *req.Duration)

	// Further ticks are no-ops.
	expired, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestControllerConcurrentTickAndAnswers(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "answer")

	startTrial(t, c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = c.Tick(context.Background())
		}
	}()

	for i := 0; i < 20; i++ {
		_, err := c.ProcessAnswer(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		_ = c.TimeRemaining()
		_ = c.Conversation()
	}
	wg.Wait()

	assert.Len(t, c.Conversation(), 20)
}

func TestControllerEndRetriesAfterServerFailure(t *testing.T) {
	backend := &fakeBackend{completeFailures: 1}
	c := newTestController(t, backend, "answer")

	startTrial(t, c)
	require.Error(t, c.End(context.Background()))

	// The failed attempt keeps the session usable and the cache intact.
	_, ok := c.loadState()
	assert.True(t, ok)
	_, err := c.ProcessAnswer(context.Background(), "Still there?")
	require.NoError(t, err)

	require.NoError(t, c.End(context.Background()))
	require.NotNil(t, backend.completed())
}

// flakySource delivers an unusable first frame, as a paused capture
// command does, then recovers.
type flakySource struct {
	mu        sync.Mutex
	snapshots int
	done      chan struct{}
}

func (s *flakySource) Start(ctx context.Context) error { return nil }

func (s *flakySource) Snapshot(ctx context.Context) (capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
	if s.snapshots == 1 {
		return capture.Frame{}, nil
	}
	return capture.Frame{PNG: []byte("png-bytes"), Width: 1280, Height: 720}, nil
}

func (s *flakySource) Stop() error { return nil }

func (s *flakySource) Done() <-chan struct{} { return s.done }

func TestControllerAnalyzeScreenRefreshesStaleSource(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "Use a hash map for O(n) lookups.")

	source := &flakySource{done: make(chan struct{})}
	c.screen = capture.NewScreen(source)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, c.screen.Start(ctx))

	startTrial(t, c)

	entry, err := c.AnalyzeScreen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Use a hash map for O(n) lookups.", entry.Answer)

	source.mu.Lock()
	snapshots := source.snapshots
	source.mu.Unlock()
	assert.GreaterOrEqual(t, snapshots, 3)
}

func TestControllerEndIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, "answer")

	startTrial(t, c)
	require.NoError(t, c.End(context.Background()))
	require.NoError(t, c.End(context.Background()))
}

func TestControllerEndClearsCache(t *testing.T) {
	backend := &fakeBackend{}

	dir := t.TempDir()
	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)
	aiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	t.Cleanup(aiSrv.Close)

	gateway, err := ai.NewGateway(config.OpenRouterConfig{APIKey: "k", BaseURL: aiSrv.URL})
	require.NoError(t, err)

	cache := NewFileCache(dir)
	c := NewController(api.New(backendSrv.URL), gateway, cache, nil, nil)

	startTrial(t, c)

	_, ok, err := cache.Load()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.End(context.Background()))

	_, ok, err = cache.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestControllerModelNormalization(t *testing.T) {
	c := &Controller{}

	c.session.Metadata.AIModel = "gpt-4.1"
	assert.Equal(t, "gpt-4", c.model())

	c.session.Metadata.AIModel = "claude-3.5"
	assert.Equal(t, "claude-3.5", c.model())

	c.session.Metadata.AIModel = "llama-70b"
	assert.Equal(t, "gpt-4", c.model())

	c.session.Metadata.AIModel = ""
	assert.Equal(t, "gpt-4", c.model())
}
