package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/jobs"
	"imagestudio/internal/middleware"
)

// JobService is the job lifecycle surface the HTTP layer drives.
type JobService interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*jobs.SubmitResult, error)
	Get(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context, limit int) ([]domain.Job, error)
	ListAssets(ctx context.Context, kind string, limit int) ([]domain.ImageAsset, error)
	DeleteAsset(ctx context.Context, id int64) error
	DeleteJob(ctx context.Context, id int64) error
}

// FileResolver maps a stored relative path to a servable file.
type FileResolver interface {
	Resolve(relPath string) (string, error)
}

// KeySource reports the model API key currently in effect.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Jobs         JobService
	Files        FileResolver
	Keys         KeySource
	DB           Pinger
	Logger       infra.Logger
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 32 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	JobID *int64 `json:"job_id,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: message, Code: code})
}

// fail writes err with the status its kind maps to. Job failures carry the
// job id; errors without a kind are logged and reported generically.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	var jobErr *jobs.JobError
	if errors.As(err, &jobErr) {
		resp.JobID = &jobErr.JobID
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, resp.Code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, jobs.ErrJobInProgress):
		status, resp.Code = http.StatusConflict, "job_in_progress"
	case errors.Is(err, domain.ErrCredential):
		resp.Code = "missing_api_key"
	case errors.Is(err, domain.ErrGeneration):
		resp.Code = "generation_failed"
	case errors.Is(err, domain.ErrStorage):
		resp.Code = "storage_error"
	default:
		resp.Code = "internal"
		if resp.JobID == nil {
			resp.Error = "internal server error"
		}
	}

	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	a.json(w, status, resp)
}

func (a *App) maxBodyBytes() int64 {
	if a.MaxBodyBytes > 0 {
		return a.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}
