package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/interviewace/apiserver/internal/services"
	"github.com/interviewace/apiserver/internal/store"
	"github.com/interviewace/apiserver/types"
)

const (
	maxResumeMultipartMemory = 8 << 20
	formFieldResumeFile      = "file"
)

// ResumeHandler provides HTTP handlers for resumes.
type ResumeHandler struct {
	resumeService *services.ResumeService
}

// NewResumeHandler constructs a handler with the provided service.
func NewResumeHandler(resumeService *services.ResumeService) *ResumeHandler {
	return &ResumeHandler{resumeService: resumeService}
}

// ResumeRouter registers resume routes on the given router. All routes
// require authentication and are scoped to the caller's own resumes.
func ResumeRouter(r chi.Router, resumeService *services.ResumeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewResumeHandler(resumeService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListResumes)
	r.Post("/", handler.CreateResume)
	r.Route("/{resumeID}", func(r chi.Router) {
		r.Get("/", handler.GetResume)
		r.Put("/", handler.UpdateResume)
		r.Delete("/", handler.DeleteResume)
		r.Put("/default", handler.SetDefaultResume)
		r.Post("/file", handler.UploadResumeFile)
		r.Get("/file", handler.DownloadResumeFile)
	})
}

func (h *ResumeHandler) ListResumes(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	resumes, err := h.resumeService.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resumes")
		return
	}

	writeData(w, http.StatusOK, resumes)
}

func (h *ResumeHandler) GetResume(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resume, err := h.resumeService.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Resume not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch resume")
		return
	}

	writeData(w, http.StatusOK, resume)
}

func (h *ResumeHandler) CreateResume(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var resume types.Resume
	if err := json.NewDecoder(r.Body).Decode(&resume); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	created, err := h.resumeService.Create(r.Context(), userID, resume)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create resume")
		return
	}

	writeData(w, http.StatusCreated, created)
}

func (h *ResumeHandler) UpdateResume(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resume types.Resume
	if err := json.NewDecoder(r.Body).Decode(&resume); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	updated, err := h.resumeService.Update(r.Context(), id, userID, resume)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Resume not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update resume")
		}
		return
	}

	writeData(w, http.StatusOK, updated)
}

func (h *ResumeHandler) SetDefaultResume(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resume, err := h.resumeService.SetDefault(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Resume not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to set default resume")
		return
	}

	writeData(w, http.StatusOK, resume)
}

func (h *ResumeHandler) DeleteResume(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.resumeService.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Resume not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete resume")
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Success: true})
}

func (h *ResumeHandler) UploadResumeFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := resumeFormFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	if err := h.resumeService.UploadFile(r.Context(), id, userID, header.Filename, file, header.Size); err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "File storage not available")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Resume not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to store file")
		}
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Success: true})
}

func (h *ResumeHandler) DownloadResumeFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	id, err := parseIDParam(r, "resumeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, fileName, err := h.resumeService.DownloadFile(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusNotFound, "Resume has no uploaded file")
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "File storage not available")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Resume not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to fetch file")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(fileName)+`"`)
	_, _ = io.Copy(w, rc)
}

func resumeFormFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxResumeMultipartMemory); err != nil {
		return nil, nil, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile(formFieldResumeFile)
	if err != nil {
		return nil, nil, errors.New("missing file field")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		file.Close()
		return nil, nil, errors.New("only PDF files are accepted")
	}
	return file, header, nil
}
