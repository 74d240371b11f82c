package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setexpand/setexpand/internal/config"
	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/storage"
)

const appDump = `
title: Seed
types: object, int64
"k1", "5"
"k2", "7"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	return cfg
}

func TestApp_StartFetchesPublishedCorpus(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Corpus.ObjectPath = "corpus/tables.db"

	a, err := New(cfg)
	require.NoError(t, err)

	built := filepath.Join(t.TempDir(), "built.db")
	_, err = corpus.Ingest(ctx, strings.NewReader(appDump), built)
	require.NoError(t, err)
	st, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	_, err = storage.PublishCorpus(ctx, st, built, cfg.Corpus.ObjectPath)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	assert.FileExists(t, cfg.Corpus.Path)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keyword?keyword=k1", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Seed")
}

func TestApp_StartFailsWithoutCorpus(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)

	err = a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus")
}

func TestApp_StopRejectsNewRequests(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	_, err := corpus.Ingest(ctx, strings.NewReader(appDump), filepath.Join(cfg.DataDir, "corpus.db"))
	require.NoError(t, err)

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))

	h := a.Handler()
	require.NoError(t, a.Stop(ctx))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// A second Stop is a no-op.
	assert.NoError(t, a.Stop(ctx))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "tape"
	_, err := New(cfg)
	assert.Error(t, err)
}
