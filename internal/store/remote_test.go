package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteLoadAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/u1/facts":
			json.NewEncoder(w).Encode(map[string]string{"name": "Max", "level": "5"})
		case "/v1/users/u1/facts/name":
			json.NewEncoder(w).Encode(factPayload{Value: "Max"})
		case "/v1/users/u1/facts/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	ctx := context.Background()

	facts, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Max", "level": "5"}, facts)

	got, err := s.Get(ctx, "u1", "name")
	require.NoError(t, err)
	assert.Equal(t, "Max", got)

	got, err = s.Get(ctx, "u1", "missing")
	require.NoError(t, err)
	assert.Empty(t, got, "missing key is not an error")
}

func TestRemoteLoadUnknownUserIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	facts, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestRemoteUpsert(t *testing.T) {
	var gotBody factPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/users/u1/facts/city", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(upsertResponse{OK: true})
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	require.NoError(t, s.Upsert(context.Background(), "u1", "city", "Berlin"))
	assert.Equal(t, "Berlin", gotBody.Value)
}

func TestRemoteErrorsSurfaceToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	ctx := context.Background()

	_, err := s.Load(ctx, "u1")
	assert.Error(t, err)

	err = s.Upsert(ctx, "u1", "city", "Berlin")
	assert.Error(t, err)
}

func TestRemoteMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	_, err := s.Load(context.Background(), "u1")
	assert.Error(t, err)
}

func TestRemoteRejectedWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(upsertResponse{OK: false})
	}))
	defer srv.Close()

	s := NewRemote(srv.URL, 2*time.Second)
	err := s.Upsert(context.Background(), "u1", "city", "Berlin")
	assert.Error(t, err)
}
