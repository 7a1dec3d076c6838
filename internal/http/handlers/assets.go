package handlers

import (
	"net/http"

	"imagestudio/internal/jobs"
)

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", jobs.DefaultAssetLimit)
	assets, err := a.Jobs.ListAssets(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, assets)
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Jobs.DeleteAsset(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "deleted_id": id})
}
