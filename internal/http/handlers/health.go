package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const healthTimeout = 3 * time.Second

type healthResponse struct {
	Status     string `json:"status"`
	APIKeySet  bool   `json:"api_key_set"`
	DatabaseOK bool   `json:"database_ok"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	if key, err := a.Keys.APIKey(ctx); err == nil && strings.TrimSpace(key) != "" {
		resp.APIKeySet = true
	}
	if err := a.DB.Ping(ctx); err == nil {
		resp.DatabaseOK = true
	} else {
		a.Logger.Warn().Err(err).Msg("health: database ping failed")
	}

	status := http.StatusOK
	if !resp.APIKeySet || !resp.DatabaseOK {
		status = http.StatusInternalServerError
		resp.Status = "error"
	}
	a.json(w, status, resp)
}
