package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/interviewace/apiserver/internal/events"
	"github.com/interviewace/apiserver/internal/store"
	"github.com/interviewace/apiserver/types"
)

// Credit cost per session type.
const (
	trialSessionCredits   = 0
	premiumSessionCredits = 1
)

const defaultQuestionConfidence = 0.8

// SessionRepository defines persistence operations for interview sessions.
type SessionRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.InterviewSession, error)
	Get(ctx context.Context, id, userID int) (types.InterviewSession, error)
	Create(ctx context.Context, session types.InterviewSession) (types.InterviewSession, error)
	AppendQuestion(ctx context.Context, id, userID int, question types.SessionQuestion) (types.InterviewSession, error)
	SetStatus(ctx context.Context, id, userID int, status string, endTime time.Time, duration int) (types.InterviewSession, error)
	UpdateFields(ctx context.Context, session types.InterviewSession) (types.InterviewSession, error)
	Delete(ctx context.Context, id, userID int) error
}

// sessionResumeReader is the slice of the resume repository the session
// service needs to verify resume ownership.
type sessionResumeReader interface {
	Get(ctx context.Context, id, userID int) (types.Resume, error)
}

// SessionUpdate carries the optional fields of a session update request.
// Nil fields are left untouched.
type SessionUpdate struct {
	Company  *string
	Position *string
	Status   *string
	EndTime  *time.Time
	Duration *int
	Feedback *string
	Rating   *int
	Metadata *types.SessionMetadata
	Question *types.SessionQuestion
}

// SessionMetrics counts session lifecycle activity. Implementations must
// be safe for concurrent use.
type SessionMetrics interface {
	RecordSessionStarted(sessionType string)
	RecordSessionEnded(status string)
	RecordQuestionAdded()
}

// SessionService encapsulates interview session use-cases.
type SessionService struct {
	repo      SessionRepository
	resumes   sessionResumeReader
	publisher events.Publisher
	metrics   SessionMetrics
	now       func() time.Time
}

func NewSessionService(repo SessionRepository, resumes sessionResumeReader, publisher events.Publisher, metrics SessionMetrics) *SessionService {
	return &SessionService{repo: repo, resumes: resumes, publisher: publisher, metrics: metrics, now: time.Now}
}

func (s *SessionService) List(ctx context.Context, userID int) ([]types.InterviewSession, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *SessionService) Get(ctx context.Context, id, userID int) (types.InterviewSession, error) {
	return s.repo.Get(ctx, id, userID)
}

// Create starts a new session for the user. The session begins in the
// active state; credits used follow the session type.
func (s *SessionService) Create(ctx context.Context, userID int, session types.InterviewSession) (types.InterviewSession, error) {
	switch session.SessionType {
	case types.SessionTypeTrial, types.SessionTypePremium:
	default:
		return types.InterviewSession{}, fmt.Errorf("%w: sessionType must be %q or %q",
			ErrValidation, types.SessionTypeTrial, types.SessionTypePremium)
	}
	if strings.TrimSpace(session.Company) == "" {
		return types.InterviewSession{}, fmt.Errorf("%w: company is required", ErrValidation)
	}
	if strings.TrimSpace(session.Position) == "" {
		return types.InterviewSession{}, fmt.Errorf("%w: position is required", ErrValidation)
	}

	if session.Metadata.ResumeID != 0 {
		if _, err := s.resumes.Get(ctx, session.Metadata.ResumeID, userID); err != nil {
			return types.InterviewSession{}, err
		}
	}
	if session.Metadata.Language == "" {
		session.Metadata.Language = "en"
	}
	if session.Metadata.AIModel == "" {
		session.Metadata.AIModel = "gpt-4"
	}

	session.UserID = userID
	session.Status = types.SessionStatusActive
	session.CreditsUsed = trialSessionCredits
	if session.SessionType == types.SessionTypePremium {
		session.CreditsUsed = premiumSessionCredits
	}
	if session.StartTime.IsZero() {
		session.StartTime = s.now()
	}
	session.EndTime = nil
	session.Duration = 0

	created, err := s.repo.Create(ctx, session)
	if err != nil {
		return types.InterviewSession{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordSessionStarted(created.SessionType)
	}
	return created, nil
}

// AppendQuestion records one question/answer exchange on an active session.
func (s *SessionService) AppendQuestion(ctx context.Context, id, userID int, question types.SessionQuestion) (types.InterviewSession, error) {
	if strings.TrimSpace(question.Question) == "" {
		return types.InterviewSession{}, fmt.Errorf("%w: question is required", ErrValidation)
	}
	if strings.TrimSpace(question.Answer) == "" {
		return types.InterviewSession{}, fmt.Errorf("%w: answer is required", ErrValidation)
	}
	if question.Timestamp.IsZero() {
		question.Timestamp = s.now()
	}
	if question.Confidence == 0 {
		question.Confidence = defaultQuestionConfidence
	}

	session, err := s.repo.AppendQuestion(ctx, id, userID, question)
	if err != nil {
		return types.InterviewSession{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordQuestionAdded()
	}
	s.publish(ctx, events.SessionEvent{
		Type:        events.TypeQuestionAdded,
		SessionID:   session.ID,
		UserID:      session.UserID,
		SessionType: session.SessionType,
		Status:      session.Status,
		Questions:   len(session.Questions),
	})
	return session, nil
}

// Complete moves an active session to a terminal status. When the caller
// supplies no end time or duration they are derived from the clock; the
// duration is the elapsed time rounded to whole minutes.
func (s *SessionService) Complete(ctx context.Context, id, userID int, status string, endTime *time.Time, duration *int) (types.InterviewSession, error) {
	if status == "" {
		status = types.SessionStatusCompleted
	}
	if !types.TerminalStatus(status) {
		return types.InterviewSession{}, fmt.Errorf("%w: status must be %q or %q",
			ErrValidation, types.SessionStatusCompleted, types.SessionStatusCancelled)
	}

	current, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return types.InterviewSession{}, err
	}
	if types.TerminalStatus(current.Status) {
		return types.InterviewSession{}, store.ErrInvalidTransition
	}

	end := s.now()
	if endTime != nil {
		end = *endTime
	}
	minutes := int(math.Round(end.Sub(current.StartTime).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	if duration != nil {
		minutes = *duration
	}

	session, err := s.repo.SetStatus(ctx, id, userID, status, end, minutes)
	if err != nil {
		return types.InterviewSession{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSessionEnded(session.Status)
	}
	eventType := events.TypeSessionCompleted
	if status == types.SessionStatusCancelled {
		eventType = events.TypeSessionCancelled
	}
	s.publish(ctx, events.SessionEvent{
		Type:        eventType,
		SessionID:   session.ID,
		UserID:      session.UserID,
		SessionType: session.SessionType,
		Status:      session.Status,
		Duration:    session.Duration,
		CreditsUsed: session.CreditsUsed,
		Questions:   len(session.Questions),
	})
	return session, nil
}

// Update applies a partial update. A question append and a status change
// route through their dedicated paths so the active-session gate holds.
func (s *SessionService) Update(ctx context.Context, id, userID int, update SessionUpdate) (types.InterviewSession, error) {
	if update.Question != nil {
		if _, err := s.AppendQuestion(ctx, id, userID, *update.Question); err != nil {
			return types.InterviewSession{}, err
		}
	}
	if update.Status != nil && *update.Status != types.SessionStatusActive {
		if _, err := s.Complete(ctx, id, userID, *update.Status, update.EndTime, update.Duration); err != nil {
			return types.InterviewSession{}, err
		}
	}

	session, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return types.InterviewSession{}, err
	}

	changed := false
	if update.Company != nil && strings.TrimSpace(*update.Company) != "" {
		session.Company = *update.Company
		changed = true
	}
	if update.Position != nil && strings.TrimSpace(*update.Position) != "" {
		session.Position = *update.Position
		changed = true
	}
	if update.Feedback != nil {
		session.Feedback = *update.Feedback
		changed = true
	}
	if update.Rating != nil {
		if *update.Rating < 1 || *update.Rating > 5 {
			return types.InterviewSession{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
		}
		session.Rating = *update.Rating
		changed = true
	}
	if update.Metadata != nil {
		session.Metadata = *update.Metadata
		changed = true
	}
	if !changed {
		return session, nil
	}
	return s.repo.UpdateFields(ctx, session)
}

func (s *SessionService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *SessionService) publish(ctx context.Context, event events.SessionEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishSessionEvent(ctx, event)
}
