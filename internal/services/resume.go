package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/interviewace/apiserver/internal/storage"
	"github.com/interviewace/apiserver/types"
)

// MaxResumeFileSize bounds the size of an uploaded resume PDF.
const MaxResumeFileSize = 16 << 20

// ResumeRepository defines persistence operations for resumes.
type ResumeRepository interface {
	ListByOwner(ctx context.Context, userID int) ([]types.Resume, error)
	Get(ctx context.Context, id, userID int) (types.Resume, error)
	Create(ctx context.Context, resume types.Resume) (types.Resume, error)
	Update(ctx context.Context, resume types.Resume) (types.Resume, error)
	SetDefault(ctx context.Context, id, userID int) error
	SetFile(ctx context.Context, id, userID int, fileName string, parsed bool) error
	Delete(ctx context.Context, id, userID int) error
}

// ResumeService encapsulates resume use-cases. The storage backend holds
// the uploaded PDF documents and may be nil when no backend is configured.
type ResumeService struct {
	repo    ResumeRepository
	storage *storage.Storage
}

func NewResumeService(repo ResumeRepository, st *storage.Storage) *ResumeService {
	return &ResumeService{repo: repo, storage: st}
}

func (s *ResumeService) List(ctx context.Context, userID int) ([]types.Resume, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *ResumeService) Get(ctx context.Context, id, userID int) (types.Resume, error) {
	return s.repo.Get(ctx, id, userID)
}

// Create validates and stores a new resume for the user.
func (s *ResumeService) Create(ctx context.Context, userID int, resume types.Resume) (types.Resume, error) {
	if err := validateResume(resume); err != nil {
		return types.Resume{}, err
	}
	resume.UserID = userID
	return s.repo.Create(ctx, resume)
}

// Update replaces the editable fields of an existing resume.
func (s *ResumeService) Update(ctx context.Context, id, userID int, resume types.Resume) (types.Resume, error) {
	if err := validateResume(resume); err != nil {
		return types.Resume{}, err
	}
	resume.ID = id
	resume.UserID = userID
	return s.repo.Update(ctx, resume)
}

// SetDefault marks the resume as the user's default, clearing the flag on
// every other resume the user owns.
func (s *ResumeService) SetDefault(ctx context.Context, id, userID int) (types.Resume, error) {
	if err := s.repo.SetDefault(ctx, id, userID); err != nil {
		return types.Resume{}, err
	}
	return s.repo.Get(ctx, id, userID)
}

func (s *ResumeService) Delete(ctx context.Context, id, userID int) error {
	resume, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	if s.storage != nil && resume.OriginalFileName != "" {
		// Orphaned objects are harmless; deletion is best-effort.
		_ = s.storage.Delete(ctx, resumeObjectKey(userID, id))
	}
	return nil
}

// UploadFile stores the resume's PDF document and records the file name on
// the resume row.
func (s *ResumeService) UploadFile(ctx context.Context, id, userID int, fileName string, r io.Reader, size int64) error {
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	if size <= 0 || size > MaxResumeFileSize {
		return fmt.Errorf("%w: file size must be between 1 byte and %d bytes", ErrValidation, MaxResumeFileSize)
	}
	if _, err := s.repo.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.storage.Put(ctx, resumeObjectKey(userID, id), r, size, "application/pdf"); err != nil {
		return err
	}
	return s.repo.SetFile(ctx, id, userID, fileName, false)
}

// DownloadFile opens the resume's stored PDF document. The caller must
// close the returned reader.
func (s *ResumeService) DownloadFile(ctx context.Context, id, userID int) (io.ReadCloser, string, error) {
	if s.storage == nil {
		return nil, "", ErrStorageUnavailable
	}
	resume, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if resume.OriginalFileName == "" {
		return nil, "", fmt.Errorf("%w: resume has no uploaded file", ErrValidation)
	}
	rc, err := s.storage.Get(ctx, resumeObjectKey(userID, id))
	if err != nil {
		return nil, "", err
	}
	return rc, resume.OriginalFileName, nil
}

func resumeObjectKey(userID, id int) string {
	return fmt.Sprintf("resumes/%d/%d.pdf", userID, id)
}

func validateResume(resume types.Resume) error {
	if strings.TrimSpace(resume.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(resume.PersonalDetails.Name) == "" {
		return fmt.Errorf("%w: personal details name is required", ErrValidation)
	}
	if strings.TrimSpace(resume.PersonalDetails.Email) == "" {
		return fmt.Errorf("%w: personal details email is required", ErrValidation)
	}
	return nil
}
