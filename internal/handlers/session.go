package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/interviewace/apiserver/internal/services"
	"github.com/interviewace/apiserver/internal/store"
	"github.com/interviewace/apiserver/types"
)

// SessionHandler provides HTTP handlers for interview sessions.
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler constructs a handler with the provided service.
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// SessionRouter registers session routes on the given router. All routes
// require authentication and are scoped to the caller's own sessions.
func SessionRouter(r chi.Router, sessionService *services.SessionService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSessionHandler(sessionService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListSessions)
	r.Post("/", handler.CreateSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", handler.GetSession)
		r.Put("/", handler.UpdateSession)
		r.Delete("/", handler.DeleteSession)
		r.Get("/questions", handler.ListQuestions)
		r.Post("/questions", handler.AddQuestion)
		r.Put("/complete", handler.CompleteSession)
	})
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	sessions, err := h.sessionService.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	writeData(w, http.StatusOK, sessions)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch session")
		return
	}

	writeData(w, http.StatusOK, session)
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	session := types.InterviewSession{
		SessionType: req.SessionType,
		Company:     req.Company,
		Position:    req.Position,
		Metadata:    req.metadata(),
	}
	created, err := h.sessionService.Create(r.Context(), userID, session)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Resume not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create session")
		}
		return
	}

	writeData(w, http.StatusCreated, created)
}

func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	session, err := h.sessionService.Update(r.Context(), id, userID, services.SessionUpdate{
		Company:  req.Company,
		Position: req.Position,
		Status:   req.Status,
		EndTime:  req.EndTime,
		Duration: req.Duration,
		Feedback: req.Feedback,
		Rating:   req.Rating,
		Metadata: req.Metadata,
		Question: req.question(),
	})
	if err != nil {
		writeSessionError(w, err, "Failed to update session")
		return
	}

	writeData(w, http.StatusOK, session)
}

func (h *SessionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionService.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch session")
		return
	}

	writeData(w, http.StatusOK, session.Questions)
}

func (h *SessionHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var question types.SessionQuestion
	if err := json.NewDecoder(r.Body).Decode(&question); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	session, err := h.sessionService.AppendQuestion(r.Context(), id, userID, question)
	if err != nil {
		writeSessionError(w, err, "Failed to add question")
		return
	}

	writeData(w, http.StatusOK, session)
}

func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	session, err := h.sessionService.Complete(r.Context(), id, userID, req.Status, req.EndTime, req.Duration)
	if err != nil {
		writeSessionError(w, err, "Failed to complete session")
		return
	}

	writeData(w, http.StatusOK, session)
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessionService.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Success: true})
}

func writeSessionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Session already ended")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// CreateSessionRequest carries the session preferences as flat fields.
// A nested metadata object is also accepted and takes precedence.
type CreateSessionRequest struct {
	SessionType       string                 `json:"sessionType"`
	Company           string                 `json:"company"`
	Position          string                 `json:"position"`
	ResumeID          int                    `json:"resumeId"`
	Language          string                 `json:"language"`
	SimpleEnglish     bool                   `json:"simpleEnglish"`
	ExtraInstructions string                 `json:"extraInstructions"`
	AIModel           string                 `json:"aiModel"`
	Metadata          *types.SessionMetadata `json:"metadata"`
}

func (r CreateSessionRequest) metadata() types.SessionMetadata {
	if r.Metadata != nil {
		return *r.Metadata
	}
	return types.SessionMetadata{
		ResumeID:          r.ResumeID,
		Language:          r.Language,
		SimpleEnglish:     r.SimpleEnglish,
		ExtraInstructions: r.ExtraInstructions,
		AIModel:           r.AIModel,
	}
}

// UpdateSessionRequest carries a partial session update. A question
// append arrives as flat question/answer/confidence fields.
type UpdateSessionRequest struct {
	Company    *string                `json:"company"`
	Position   *string                `json:"position"`
	Status     *string                `json:"status"`
	EndTime    *time.Time             `json:"endTime"`
	Duration   *int                   `json:"duration"`
	Feedback   *string                `json:"feedback"`
	Rating     *int                   `json:"rating"`
	Metadata   *types.SessionMetadata `json:"metadata"`
	Question   *string                `json:"question"`
	Answer     *string                `json:"answer"`
	Confidence *float64               `json:"confidence"`
}

func (r UpdateSessionRequest) question() *types.SessionQuestion {
	if r.Question == nil {
		return nil
	}
	question := types.SessionQuestion{Question: *r.Question}
	if r.Answer != nil {
		question.Answer = *r.Answer
	}
	if r.Confidence != nil {
		question.Confidence = *r.Confidence
	}
	return &question
}

type CompleteSessionRequest struct {
	Status   string     `json:"status"`
	EndTime  *time.Time `json:"endTime"`
	Duration *int       `json:"duration"`
}
