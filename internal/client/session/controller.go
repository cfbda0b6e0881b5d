// Package session orchestrates a rehearsal session on the client:
// transcript intake, prompt assembly, answer generation, and saving the
// exchange log back to the server.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/interviewace/apiserver/internal/ai"
	"github.com/interviewace/apiserver/internal/client/api"
	"github.com/interviewace/apiserver/internal/client/capture"
	"github.com/interviewace/apiserver/internal/prompt"
	"github.com/interviewace/apiserver/types"
)

// trialSeconds is the time box of a free trial session.
const trialSeconds = 540

// Controller errors.
var (
	ErrBusy  = errors.New("session: still processing the previous answer")
	ErrEnded = errors.New("session: session has ended")
)

// Entry is one exchange in the client-side conversation log.
type Entry struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Processed  bool      `json:"processed"`
}

// Controller drives one rehearsal session end to end. The countdown
// ticks on its own goroutine, so all mutable state is guarded by mu.
type Controller struct {
	api         *api.Client
	gateway     *ai.Gateway
	cache       Cache
	transcriber *capture.Transcriber
	screen      *capture.Screen

	mu            sync.Mutex
	session       types.InterviewSession
	resume        *types.Resume
	conversation  []Entry
	timeRemaining int
	processing    bool
	ended         bool

	now func() time.Time

	// OnNotice receives user-facing status lines. Optional.
	OnNotice func(string)
}

// NewController wires a controller from its collaborators. transcriber
// and screen may be nil when the host has no capture support.
func NewController(apiClient *api.Client, gateway *ai.Gateway, cache Cache, transcriber *capture.Transcriber, screen *capture.Screen) *Controller {
	return &Controller{
		api:         apiClient,
		gateway:     gateway,
		cache:       cache,
		transcriber: transcriber,
		screen:      screen,
		now:         time.Now,
	}
}

// Start creates a new session on the server and prepares local state.
func (c *Controller) Start(ctx context.Context, req api.CreateSessionRequest) error {
	session, err := c.api.CreateSession(ctx, req)
	if err != nil {
		return err
	}
	resume := c.fetchResume(ctx, session.Metadata.ResumeID)

	c.mu.Lock()
	c.session = session
	c.resume = resume
	c.conversation = nil
	c.ended = false
	c.timeRemaining = 0
	if session.SessionType == types.SessionTypeTrial {
		c.timeRemaining = trialSeconds
	}
	c.saveState()
	c.mu.Unlock()

	c.notice(fmt.Sprintf("New session created! Interviewing for %s at %s.", session.Position, session.Company))
	return nil
}

// Resume reattaches to an existing session. The conversation comes from
// the server's question log; when the local cache still holds state for
// the same session the cached countdown and conversation win, since the
// server does not track elapsed seconds while a session is active.
func (c *Controller) Resume(ctx context.Context, sessionID int) error {
	session, err := c.api.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	questions, err := c.api.GetQuestions(ctx, sessionID)
	if err != nil {
		return err
	}
	conversation := make([]Entry, 0, len(questions))
	for _, q := range questions {
		confidence := q.Confidence
		if confidence == 0 {
			confidence = 0.8
		}
		conversation = append(conversation, Entry{
			Question:   q.Question,
			Answer:     q.Answer,
			Confidence: confidence,
			Timestamp:  q.Timestamp,
			Processed:  true,
		})
	}

	resume := c.fetchResume(ctx, session.Metadata.ResumeID)
	cached, haveCache := c.loadState()

	c.mu.Lock()
	c.session = session
	c.resume = resume
	c.conversation = conversation
	c.ended = types.TerminalStatus(session.Status)
	c.timeRemaining = 0
	if session.SessionType == types.SessionTypeTrial && !c.ended {
		c.timeRemaining = trialSeconds - session.Duration*60
		if c.timeRemaining < 0 {
			c.timeRemaining = 0
		}
		if haveCache && cached.SessionID == session.ID {
			c.timeRemaining = cached.TimeRemaining
		}
	}
	if haveCache && cached.SessionID == session.ID && !c.ended &&
		len(cached.Conversation) > len(c.conversation) {
		c.conversation = cached.Conversation
	}
	c.saveState()
	c.mu.Unlock()

	c.notice(fmt.Sprintf("Session loaded! Interviewing for %s at %s.", session.Position, session.Company))
	return nil
}

// fetchResume loads the session's resume, nil when there is none or the
// load fails. The session continues without resume grounding either way.
func (c *Controller) fetchResume(ctx context.Context, resumeID int) *types.Resume {
	if resumeID == 0 {
		return nil
	}
	resume, err := c.api.GetResume(ctx, resumeID)
	if err != nil {
		c.notice("Resume could not be loaded; answering from general qualifications.")
		return nil
	}
	return &resume
}

// Connect starts screen sharing and then transcription. A screen failure
// does not block transcription; the session continues voice-only.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return ErrEnded
	}

	if c.screen != nil && !c.screen.Sharing() {
		if err := c.screen.Start(ctx); err != nil {
			c.notice("Screen sharing failed. You can still use voice features.")
		} else {
			c.screen.OnStopped = func() {
				c.notice("Screen sharing stopped. Connect again to restart it.")
			}
		}
	}

	if c.transcriber == nil {
		return capture.ErrUnsupported
	}
	if c.transcriber.Listening() {
		return nil
	}
	return c.transcriber.Start(ctx)
}

// Disconnect stops transcription and screen sharing.
func (c *Controller) Disconnect() {
	if c.transcriber != nil && c.transcriber.Listening() {
		_ = c.transcriber.Stop()
	}
	if c.screen != nil && c.screen.Sharing() {
		_ = c.screen.Stop()
	}
}

// ProcessTranscript takes the accumulated transcript and processes it as
// the interviewer's question.
func (c *Controller) ProcessTranscript(ctx context.Context) (Entry, error) {
	if c.transcriber == nil {
		return Entry{}, capture.ErrUnsupported
	}
	text := c.transcriber.Take()
	if text == "" {
		return Entry{}, errors.New("session: transcript is empty")
	}
	return c.ProcessAnswer(ctx, text)
}

// ProcessAnswer generates a coached reply for one interviewer question
// and records the exchange on the server. Re-entry while a previous
// question is still processing is rejected.
func (c *Controller) ProcessAnswer(ctx context.Context, question string) (Entry, error) {
	req, sessionID, err := c.beginExchange(question, "")
	if err != nil {
		return Entry{}, err
	}
	defer c.endExchange()

	response, err := c.gateway.GenerateResponse(ctx, req)
	if err != nil {
		return Entry{}, err
	}

	return c.recordExchange(ctx, sessionID, question, response)
}

// AnalyzeScreen captures the shared screen and asks for coding guidance
// on whatever problem is visible.
func (c *Controller) AnalyzeScreen(ctx context.Context) (Entry, error) {
	if c.screen == nil {
		return Entry{}, capture.ErrUnsupported
	}

	const question = "Analyze this coding problem and provide solution guidance"
	req, sessionID, err := c.beginExchange(question, "screen")
	if err != nil {
		return Entry{}, err
	}
	defer c.endExchange()

	frame, err := c.screen.Snapshot(ctx)
	if errors.Is(err, capture.ErrNotReady) {
		// The source may have paused; poke it and try once more.
		if refreshErr := c.screen.Refresh(ctx); refreshErr == nil {
			frame, err = c.screen.Snapshot(ctx)
		}
	}
	if err != nil {
		return Entry{}, err
	}
	req.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(frame.PNG)

	response, err := c.gateway.GenerateResponse(ctx, req)
	if err != nil {
		return Entry{}, err
	}

	return c.recordExchange(ctx, sessionID, question, response)
}

// beginExchange takes the processing slot and assembles the model request
// from a snapshot of the session state. kind selects the system prompt.
func (c *Controller) beginExchange(question, kind string) (ai.Request, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return ai.Request{}, 0, ErrEnded
	}
	if c.processing {
		return ai.Request{}, 0, ErrBusy
	}
	c.processing = true

	systemPrompt := prompt.System(c.promptContext(), question)
	if kind == "screen" {
		systemPrompt = prompt.ScreenAnalysis(c.promptContext())
	}
	return ai.Request{
		Question:     question,
		SystemPrompt: systemPrompt,
		Model:        c.model(),
		JobRole:      c.session.Position,
		HasResume:    c.resume != nil,
	}, c.session.ID, nil
}

func (c *Controller) endExchange() {
	c.mu.Lock()
	c.processing = false
	c.mu.Unlock()
}

// recordExchange appends the exchange locally and saves it to the server.
// A server failure keeps the local entry and only surfaces a notice.
func (c *Controller) recordExchange(ctx context.Context, sessionID int, question string, response ai.Response) (Entry, error) {
	entry := Entry{
		Question:   question,
		Answer:     response.Answer,
		Confidence: response.Confidence,
		Timestamp:  c.now(),
		Processed:  true,
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return Entry{}, ErrEnded
	}
	c.conversation = append(c.conversation, entry)
	c.saveState()
	c.mu.Unlock()

	if _, err := c.api.AddQuestion(ctx, sessionID, types.SessionQuestion{
		Question:   entry.Question,
		Answer:     entry.Answer,
		Timestamp:  entry.Timestamp,
		Confidence: entry.Confidence,
	}); err != nil {
		c.notice("Failed to save the exchange to the server: " + err.Error())
	}
	return entry, nil
}

// Tick advances the trial countdown by one second. It reports whether the
// time box expired, in which case the session has been ended.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.ended || c.session.SessionType != types.SessionTypeTrial {
		c.mu.Unlock()
		return false, nil
	}
	if c.timeRemaining > 0 {
		c.timeRemaining--
	}
	expired := c.timeRemaining <= 0
	c.mu.Unlock()

	if !expired {
		return false, nil
	}
	return true, c.End(ctx)
}

// End completes the session on the server and clears the local cache.
// Calling End twice is a no-op. When the server call fails the controller
// stays usable so End can be retried.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	var duration *int
	if c.session.SessionType == types.SessionTypeTrial {
		minutes := (trialSeconds - c.timeRemaining) / 60
		duration = &minutes
	}
	sessionID := c.session.ID
	c.mu.Unlock()

	c.Disconnect()
	endTime := c.now()

	if _, err := c.api.CompleteSession(ctx, sessionID, api.CompleteSessionRequest{
		Status:   types.SessionStatusCompleted,
		EndTime:  &endTime,
		Duration: duration,
	}); err != nil {
		c.mu.Lock()
		c.ended = false
		c.mu.Unlock()
		return err
	}

	if c.cache != nil {
		_ = c.cache.Clear()
	}
	c.notice("Session completed.")
	return nil
}

// Session returns the current session record.
func (c *Controller) Session() types.InterviewSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Conversation returns a copy of the exchange log so far.
func (c *Controller) Conversation() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.conversation...)
}

// TimeRemaining returns the trial seconds left, 0 for premium sessions.
func (c *Controller) TimeRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeRemaining
}

// promptContext snapshots the session for prompt assembly. mu must be held.
func (c *Controller) promptContext() prompt.SessionContext {
	exchanges := make([]prompt.Exchange, 0, len(c.conversation))
	for _, entry := range c.conversation {
		if entry.Processed && entry.Answer != "" {
			exchanges = append(exchanges, prompt.Exchange{Question: entry.Question, Answer: entry.Answer})
		}
	}
	return prompt.SessionContext{
		Company:           c.session.Company,
		Position:          c.session.Position,
		Language:          c.session.Metadata.Language,
		SimpleEnglish:     c.session.Metadata.SimpleEnglish,
		ExtraInstructions: c.session.Metadata.ExtraInstructions,
		Resume:            c.resume,
		Exchanges:         exchanges,
	}
}

func (c *Controller) model() string {
	model := c.session.Metadata.AIModel
	if model == "gpt-4.1" {
		model = "gpt-4"
	}
	switch model {
	case "gpt-4", "claude-3.5", "gpt-3.5-turbo":
		return model
	default:
		return "gpt-4"
	}
}

// saveState writes the current state through to the cache. mu must be held.
func (c *Controller) saveState() {
	if c.cache == nil {
		return
	}
	err := c.cache.Save(State{
		SessionID:     c.session.ID,
		Conversation:  c.conversation,
		TimeRemaining: c.timeRemaining,
		Model:         c.model(),
	})
	if err != nil {
		c.notice("Failed to save session state locally: " + err.Error())
	}
}

func (c *Controller) loadState() (State, bool) {
	if c.cache == nil {
		return State{}, false
	}
	state, ok, err := c.cache.Load()
	if err != nil || !ok {
		return State{}, false
	}
	return state, true
}

func (c *Controller) notice(message string) {
	if c.OnNotice != nil {
		c.OnNotice(message)
	}
}
