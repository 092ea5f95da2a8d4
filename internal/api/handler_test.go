package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofia-labs/sofia/internal/domain"
	"github.com/sofia-labs/sofia/internal/session"
	"github.com/sofia-labs/sofia/internal/store"
)

func TestHealthzOK(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := NewHandler(s, session.NewRegistry())
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

type deadStore struct{}

func (deadStore) Load(context.Context, string) (map[string]string, error) { return nil, nil }
func (deadStore) Get(context.Context, string, string) (string, error)     { return "", nil }
func (deadStore) Upsert(context.Context, string, string, string) error    { return nil }
func (deadStore) Ping(context.Context) error                              { return errors.New("unreachable") }
func (deadStore) Close() error                                            { return nil }

func TestHealthzDegraded(t *testing.T) {
	h := NewHandler(deadStore{}, session.NewRegistry())
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsCountsSessions(t *testing.T) {
	reg := session.NewRegistry()
	reg.Do("u1", func(*domain.UserSession) {})
	reg.Do("u2", func(*domain.UserSession) {})

	h := NewHandler(deadStore{}, reg)
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/ops/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions int `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Sessions)
}
