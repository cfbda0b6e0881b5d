package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/interviewace/apiserver/types"
)

// SessionRepository handles persistence for interview sessions. The question
// log and wizard metadata are stored as JSONB columns.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, session_type, company, position, status, start_time, end_time,
		duration, credits_used, questions, feedback, rating, metadata, created_at, updated_at`

func scanSession(row interface {
	Scan(dest ...any) error
}) (types.InterviewSession, error) {
	var session types.InterviewSession
	var questionsJSON, metadataJSON []byte
	var endTime sql.NullTime
	var rating sql.NullInt64
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.SessionType,
		&session.Company,
		&session.Position,
		&session.Status,
		&session.StartTime,
		&endTime,
		&session.Duration,
		&session.CreditsUsed,
		&questionsJSON,
		&session.Feedback,
		&rating,
		&metadataJSON,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return types.InterviewSession{}, err
	}

	if endTime.Valid {
		t := endTime.Time
		session.EndTime = &t
	}
	if rating.Valid {
		session.Rating = int(rating.Int64)
	}
	_ = json.Unmarshal(questionsJSON, &session.Questions)
	_ = json.Unmarshal(metadataJSON, &session.Metadata)
	return session, nil
}

func (r *SessionRepository) ListByOwner(ctx context.Context, userID int) ([]types.InterviewSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM interview_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]types.InterviewSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) Get(ctx context.Context, id, userID int) (types.InterviewSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM interview_sessions
		WHERE id = $1 AND user_id = $2`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.InterviewSession{}, ErrNotFound
		}
		return types.InterviewSession{}, err
	}
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session types.InterviewSession) (types.InterviewSession, error) {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.StartTime.IsZero() {
		session.StartTime = now
	}
	if session.Questions == nil {
		session.Questions = []types.SessionQuestion{}
	}

	questionsJSON, err := json.Marshal(session.Questions)
	if err != nil {
		return types.InterviewSession{}, err
	}
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return types.InterviewSession{}, err
	}

	const query = `
		INSERT INTO interview_sessions (user_id, session_type, company, position, status, start_time,
			duration, credits_used, questions, feedback, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		session.UserID,
		session.SessionType,
		session.Company,
		session.Position,
		session.Status,
		session.StartTime,
		session.Duration,
		session.CreditsUsed,
		questionsJSON,
		session.Feedback,
		metadataJSON,
		session.CreatedAt,
		session.UpdatedAt,
	).Scan(&session.ID); err != nil {
		return types.InterviewSession{}, err
	}
	return session, nil
}

// AppendQuestion atomically appends one entry to the question log of an
// active session. The jsonb concat runs as a single UPDATE so concurrent
// appends from multiple tabs interleave without losing entries.
func (r *SessionRepository) AppendQuestion(ctx context.Context, id, userID int, question types.SessionQuestion) (types.InterviewSession, error) {
	entryJSON, err := json.Marshal([]types.SessionQuestion{question})
	if err != nil {
		return types.InterviewSession{}, err
	}

	const query = `
		UPDATE interview_sessions
		SET questions = questions || $1::jsonb, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = 'active'`
	result, err := r.db.ExecContext(ctx, query, entryJSON, time.Now(), id, userID)
	if err != nil {
		return types.InterviewSession{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.InterviewSession{}, err
	}
	if affected == 0 {
		// Distinguish a missing session from a terminal one.
		session, err := r.Get(ctx, id, userID)
		if err != nil {
			return types.InterviewSession{}, err
		}
		if types.TerminalStatus(session.Status) {
			return types.InterviewSession{}, ErrInvalidTransition
		}
		return types.InterviewSession{}, ErrNotFound
	}
	return r.Get(ctx, id, userID)
}

// SetStatus transitions an active session into a terminal status, recording
// end time and duration. Transitions out of a terminal status are rejected.
func (r *SessionRepository) SetStatus(ctx context.Context, id, userID int, status string, endTime time.Time, duration int) (types.InterviewSession, error) {
	const query = `
		UPDATE interview_sessions
		SET status = $1, end_time = $2, duration = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6 AND status = 'active'`
	result, err := r.db.ExecContext(ctx, query, status, endTime, duration, time.Now(), id, userID)
	if err != nil {
		return types.InterviewSession{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.InterviewSession{}, err
	}
	if affected == 0 {
		session, err := r.Get(ctx, id, userID)
		if err != nil {
			return types.InterviewSession{}, err
		}
		if types.TerminalStatus(session.Status) {
			return types.InterviewSession{}, ErrInvalidTransition
		}
		return types.InterviewSession{}, ErrNotFound
	}
	return r.Get(ctx, id, userID)
}

// UpdateFields patches feedback, rating, and metadata on a session.
func (r *SessionRepository) UpdateFields(ctx context.Context, session types.InterviewSession) (types.InterviewSession, error) {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return types.InterviewSession{}, err
	}

	var rating sql.NullInt64
	if session.Rating > 0 {
		rating = sql.NullInt64{Int64: int64(session.Rating), Valid: true}
	}

	const query = `
		UPDATE interview_sessions
		SET company = $1,
			position = $2,
			feedback = $3,
			rating = $4,
			metadata = $5,
			updated_at = $6
		WHERE id = $7 AND user_id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		session.Company,
		session.Position,
		session.Feedback,
		rating,
		metadataJSON,
		time.Now(),
		session.ID,
		session.UserID,
	)
	if err != nil {
		return types.InterviewSession{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.InterviewSession{}, err
	}
	if affected == 0 {
		return types.InterviewSession{}, ErrNotFound
	}
	return r.Get(ctx, session.ID, session.UserID)
}

func (r *SessionRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM interview_sessions WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
