package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/interviewace/apiserver/types"
)

// ResumeRepository handles persistence for resumes. Nested sections are
// stored as JSONB columns.
type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

const resumeColumns = `id, user_id, title, personal_details, introduction, education, experience,
		other_experience, skills, languages, is_default, original_file_name, parsed_from_pdf,
		created_at, updated_at`

func scanResume(row interface {
	Scan(dest ...any) error
}) (types.Resume, error) {
	var resume types.Resume
	var detailsJSON, educationJSON, experienceJSON, otherJSON, skillsJSON, languagesJSON []byte
	err := row.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Title,
		&detailsJSON,
		&resume.Introduction,
		&educationJSON,
		&experienceJSON,
		&otherJSON,
		&skillsJSON,
		&languagesJSON,
		&resume.IsDefault,
		&resume.OriginalFileName,
		&resume.ParsedFromPDF,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	)
	if err != nil {
		return types.Resume{}, err
	}

	_ = json.Unmarshal(detailsJSON, &resume.PersonalDetails)
	_ = json.Unmarshal(educationJSON, &resume.Education)
	_ = json.Unmarshal(experienceJSON, &resume.Experience)
	_ = json.Unmarshal(otherJSON, &resume.OtherExperience)
	_ = json.Unmarshal(skillsJSON, &resume.Skills)
	_ = json.Unmarshal(languagesJSON, &resume.Languages)
	return resume, nil
}

func marshalResumeSections(resume types.Resume) (details, education, experience, other, skills, languages []byte, err error) {
	if details, err = json.Marshal(resume.PersonalDetails); err != nil {
		return
	}
	if education, err = json.Marshal(orEmpty(resume.Education)); err != nil {
		return
	}
	if experience, err = json.Marshal(orEmpty(resume.Experience)); err != nil {
		return
	}
	if other, err = json.Marshal(orEmpty(resume.OtherExperience)); err != nil {
		return
	}
	if skills, err = json.Marshal(orEmpty(resume.Skills)); err != nil {
		return
	}
	languages, err = json.Marshal(orEmpty(resume.Languages))
	return
}

// orEmpty keeps JSONB columns as [] instead of null for nil slices.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *ResumeRepository) ListByOwner(ctx context.Context, userID int) ([]types.Resume, error) {
	const query = `
		SELECT ` + resumeColumns + `
		FROM resumes
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := make([]types.Resume, 0)
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resumes, nil
}

func (r *ResumeRepository) Get(ctx context.Context, id, userID int) (types.Resume, error) {
	const query = `
		SELECT ` + resumeColumns + `
		FROM resumes
		WHERE id = $1 AND user_id = $2`
	resume, err := scanResume(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resume{}, ErrNotFound
		}
		return types.Resume{}, err
	}
	return resume, nil
}

func (r *ResumeRepository) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	now := time.Now()
	resume.CreatedAt = now
	resume.UpdatedAt = now

	details, education, experience, other, skills, languages, err := marshalResumeSections(resume)
	if err != nil {
		return types.Resume{}, err
	}

	const query = `
		INSERT INTO resumes (user_id, title, personal_details, introduction, education, experience,
			other_experience, skills, languages, is_default, original_file_name, parsed_from_pdf,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		resume.UserID,
		resume.Title,
		details,
		resume.Introduction,
		education,
		experience,
		other,
		skills,
		languages,
		resume.IsDefault,
		resume.OriginalFileName,
		resume.ParsedFromPDF,
		resume.CreatedAt,
		resume.UpdatedAt,
	).Scan(&resume.ID); err != nil {
		return types.Resume{}, err
	}

	if resume.IsDefault {
		if err := r.SetDefault(ctx, resume.ID, resume.UserID); err != nil {
			return types.Resume{}, err
		}
	}
	return resume, nil
}

func (r *ResumeRepository) Update(ctx context.Context, resume types.Resume) (types.Resume, error) {
	resume.UpdatedAt = time.Now()

	details, education, experience, other, skills, languages, err := marshalResumeSections(resume)
	if err != nil {
		return types.Resume{}, err
	}

	const query = `
		UPDATE resumes
		SET title = $1,
			personal_details = $2,
			introduction = $3,
			education = $4,
			experience = $5,
			other_experience = $6,
			skills = $7,
			languages = $8,
			updated_at = $9
		WHERE id = $10 AND user_id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		resume.Title,
		details,
		resume.Introduction,
		education,
		experience,
		other,
		skills,
		languages,
		resume.UpdatedAt,
		resume.ID,
		resume.UserID,
	)
	if err != nil {
		return types.Resume{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Resume{}, err
	}
	if affected == 0 {
		return types.Resume{}, ErrNotFound
	}

	if resume.IsDefault {
		if err := r.SetDefault(ctx, resume.ID, resume.UserID); err != nil {
			return types.Resume{}, err
		}
	}
	return r.Get(ctx, resume.ID, resume.UserID)
}

// SetDefault marks one resume as the owner's default and clears the flag on
// every other resume of the same owner. Both updates run in one transaction
// so concurrent calls cannot leave two defaults behind.
func (r *ResumeRepository) SetDefault(ctx context.Context, id, userID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	const clearQuery = `
		UPDATE resumes
		SET is_default = FALSE, updated_at = $1
		WHERE user_id = $2 AND id <> $3 AND is_default`
	if _, err := tx.ExecContext(ctx, clearQuery, now, userID, id); err != nil {
		return err
	}

	const setQuery = `
		UPDATE resumes
		SET is_default = TRUE, updated_at = $1
		WHERE id = $2 AND user_id = $3`
	result, err := tx.ExecContext(ctx, setQuery, now, id, userID)
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

	return tx.Commit()
}

// SetFile records the uploaded source document for a resume.
func (r *ResumeRepository) SetFile(ctx context.Context, id, userID int, fileName string, parsed bool) error {
	const query = `
		UPDATE resumes
		SET original_file_name = $1, parsed_from_pdf = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5`
	result, err := r.db.ExecContext(ctx, query, fileName, parsed, time.Now(), id, userID)
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

func (r *ResumeRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM resumes WHERE id = $1 AND user_id = $2`
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
