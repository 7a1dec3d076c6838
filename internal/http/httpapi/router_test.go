package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
	"imagestudio/internal/http/handlers"
	"imagestudio/internal/jobs"
	"imagestudio/internal/middleware"
	"imagestudio/internal/storage"
)

type nopService struct{}

func (nopService) Submit(ctx context.Context, req jobs.SubmitRequest) (*jobs.SubmitResult, error) {
	return nil, domain.ErrPromptRequired
}
func (nopService) Get(ctx context.Context, id int64) (*domain.Job, error) {
	return &domain.Job{ID: id, Status: domain.JobStatusCompleted, Assets: []domain.ImageAsset{}}, nil
}
func (nopService) List(ctx context.Context, limit int) ([]domain.Job, error) {
	return []domain.Job{}, nil
}
func (nopService) ListAssets(ctx context.Context, kind string, limit int) ([]domain.ImageAsset, error) {
	return []domain.ImageAsset{}, nil
}
func (nopService) DeleteAsset(ctx context.Context, id int64) error { return nil }
func (nopService) DeleteJob(ctx context.Context, id int64) error   { return nil }

type noFiles struct{}

func (noFiles) Resolve(string) (string, error) { return "", storage.ErrNotFound }

type staticKey struct{}

func (staticKey) APIKey(context.Context) (string, error) { return "k", nil }

type okDB struct{}

func (okDB) Ping(context.Context) error { return nil }

func newTestRouter() http.Handler {
	app := &handlers.App{Jobs: nopService{}, Files: noFiles{}, Keys: staticKey{}, DB: okDB{}, Logger: zerolog.Nop()}
	return NewRouter(app, Options{
		Logger:         zerolog.Nop(),
		CORSOrigins:    []string{"*"},
		GenerateLimit:  1,
		GenerateWindow: time.Minute,
	})
}

func TestRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/api/health", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/jobs", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/jobs/1", want: http.StatusOK},
		{method: http.MethodDelete, path: "/api/jobs/1", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/jobs/1/archive", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/assets?kind=input", want: http.StatusOK},
		{method: http.MethodDelete, path: "/api/assets/4", want: http.StatusOK},
		{method: http.MethodGet, path: "/files/uploads/missing.png", want: http.StatusNotFound},
		{method: http.MethodPut, path: "/api/jobs/1", want: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.path, rr.Code, tc.want)
		}
		if rr.Header().Get(middleware.RequestIDHeader) == "" {
			t.Fatalf("%s %s: missing request id header", tc.method, tc.path)
		}
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	router := newTestRouter()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":""}`))
		req.RemoteAddr = "192.0.2.1:5000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [400 429]", codes)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status = %d", rr.Code)
	}
}
