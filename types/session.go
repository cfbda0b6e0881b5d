package types

import "time"

// Session types.
const (
	SessionTypeTrial   = "trial"
	SessionTypePremium = "premium"
)

// Session statuses. Completed and cancelled are terminal.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// SessionQuestion is one question/answer exchange in a session's log.
type SessionQuestion struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// SessionMetadata carries the wizard-collected preferences for a session.
type SessionMetadata struct {
	ResumeID          int    `json:"resumeId,omitempty"`
	Language          string `json:"language,omitempty"`
	SimpleEnglish     bool   `json:"simpleEnglish,omitempty"`
	ExtraInstructions string `json:"extraInstructions,omitempty"`
	AIModel           string `json:"aiModel,omitempty"`
}

// InterviewSession is one rehearsal session.
// The question log is append-only while the session is active; duration is
// derived in whole minutes from endTime-startTime on completion.
type InterviewSession struct {
	ID int `json:"id" db:"id"`

	// UserID is the owning user. All reads and writes are scoped to it.
	UserID int `json:"userId" db:"user_id"`

	// SessionType is "trial" (time-boxed, free) or "premium" (credit-consuming).
	SessionType string `json:"sessionType" db:"session_type"`

	Company  string `json:"company" db:"company"`
	Position string `json:"position" db:"position"`

	// Status is "active", "completed", or "cancelled". The latter two are
	// terminal; no transition out of them is permitted.
	Status string `json:"status" db:"status"`

	StartTime time.Time  `json:"startTime" db:"start_time"`
	EndTime   *time.Time `json:"endTime,omitempty" db:"end_time"`

	// Duration is the elapsed session time in whole minutes.
	Duration int `json:"duration" db:"duration"`

	// CreditsUsed is 0 for trial sessions and 1 for premium sessions.
	CreditsUsed int `json:"creditsUsed" db:"credits_used"`

	Questions []SessionQuestion `json:"questions" db:"questions"`

	Feedback string `json:"feedback,omitempty" db:"feedback"`

	// Rating is an optional 1-5 self assessment recorded after the session.
	Rating int `json:"rating,omitempty" db:"rating"`

	Metadata SessionMetadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TerminalStatus reports whether s is a status with no outgoing transitions.
func TerminalStatus(s string) bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}
