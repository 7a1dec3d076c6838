// Package credentials persists third-party API keys so operators can rotate
// them without restarting the service.
package credentials

import (
	"context"
	"errors"
	"strings"

	"imagestudio/internal/infra"
	"imagestudio/internal/sqlinline"
)

const ProviderGemini = "gemini"

// ErrEmptyKey is returned when an empty key is stored.
var ErrEmptyKey = errors.New("api key is required")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored Gemini key, or "" when none is stored.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, ProviderGemini, key)
	return err
}

// DeleteGeminiAPIKey removes the stored key. It reports whether a key existed.
func (s *Store) DeleteGeminiAPIKey(ctx context.Context) (bool, error) {
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, ProviderGemini)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
