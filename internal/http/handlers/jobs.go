package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"imagestudio/internal/domain"
	"imagestudio/internal/jobs"
	"imagestudio/pkg/zip"
)

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", jobs.DefaultJobLimit)
	list, err := a.Jobs.List(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, list)
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	job, err := a.Jobs.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

func (a *App) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Jobs.DeleteJob(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "deleted_id": id})
}

// JobArchive streams a zip of the job's stored images. Files that can no
// longer be resolved are left out.
func (a *App) JobArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	job, err := a.Jobs.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	entries := make([]zip.Entry, 0, len(job.Assets))
	for _, asset := range job.Assets {
		path, err := a.Files.Resolve(asset.FilePath)
		if err != nil {
			a.Logger.Warn().Err(err).Int64("job_id", id).Int64("asset_id", asset.ID).Msg("archive: asset file missing")
			continue
		}
		entries = append(entries, zip.Entry{Name: string(asset.Kind) + "/" + asset.FileName, Path: path})
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%d.zip", id))
	w.WriteHeader(http.StatusOK)
	if err := zip.WriteFiles(w, entries); err != nil {
		a.Logger.Error().Err(err).Int64("job_id", id).Msg("archive: write failed")
	}
}

func (a *App) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, falling back to def when it
// is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
