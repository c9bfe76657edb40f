package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/mediavault/internal/cache/memory"
	"github.com/prn-tf/mediavault/internal/dedup"
	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/extract"
	"github.com/prn-tf/mediavault/internal/lock"
	"github.com/prn-tf/mediavault/internal/metrics"
	"github.com/prn-tf/mediavault/internal/repository/sqlite"
	"github.com/prn-tf/mediavault/internal/service"
	"github.com/prn-tf/mediavault/internal/storage"
)

// newTestServer builds the full HTTP stack over an in-memory catalog.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	mediaRepo := sqlite.NewMediaRepository(db)
	collRepo := sqlite.NewCollectionRepository(db)
	metaRepo := sqlite.NewMetadataRepository(db)

	store, err := storage.NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	cache := memory.NewCache(time.Minute)
	t.Cleanup(cache.Stop)

	m := metrics.New(prometheus.NewRegistry())
	resolver := dedup.NewResolver(mediaRepo, cache, zerolog.Nop())
	pipeline := extract.NewPipeline(zerolog.Nop())

	mediaService := service.NewMediaService(
		mediaRepo, collRepo, metaRepo, store, resolver, pipeline, m,
		zerolog.Nop(), domain.PolicyReference,
	)
	collectionService := service.NewCollectionService(collRepo, mediaRepo, zerolog.Nop())

	gcConfig := service.DefaultGCConfig()
	gcConfig.GracePeriod = -time.Second
	gc := service.NewGarbageCollector(mediaRepo, store, lock.NewNoopLocker(), m, zerolog.Nop(), gcConfig)

	router := NewRouter(RouterConfig{
		MediaHandler:      NewMediaHandler(mediaService, zerolog.Nop()),
		CollectionHandler: NewCollectionHandler(collectionService, zerolog.Nop()),
		GCHandler:         NewGCHandler(gc, zerolog.Nop()),
		MetricsEnabled:    true,
		Logger:            zerolog.Nop(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, t.TempDir()
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func writeSource(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestRouter_Health(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_IngestAndFetch(t *testing.T) {
	server, srcDir := newTestServer(t)

	src := writeSource(t, srcDir, "note.txt", []byte("hello api"))

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": src,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var ingested struct {
		Media     *domain.Media `json:"media"`
		Duplicate bool          `json:"duplicate"`
		Action    string        `json:"action"`
	}
	decodeBody(t, resp, &ingested)
	assert.Equal(t, "stored", ingested.Action)
	require.NotNil(t, ingested.Media)

	// Fetch the compiled entry.
	resp, err := http.Get(server.URL + "/api/v1/media/" + ingested.Media.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var details struct {
		Media    *domain.Media          `json:"media"`
		Metadata []domain.MetadataEntry `json:"metadata"`
	}
	decodeBody(t, resp, &details)
	assert.Equal(t, ingested.Media.ID, details.Media.ID)
	assert.NotEmpty(t, details.Metadata)

	// Stream the content back.
	resp, err = http.Get(server.URL + "/api/v1/media/" + ingested.Media.ID + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var content bytes.Buffer
	_, err = content.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello api", content.String())
}

func TestRouter_IngestDuplicateReturnsOK(t *testing.T) {
	server, srcDir := newTestServer(t)

	first := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "a.txt", []byte("same")),
	})
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "b.txt", []byte("same")),
	})
	assert.Equal(t, http.StatusOK, second.StatusCode)

	var result struct {
		Duplicate bool   `json:"duplicate"`
		Action    string `json:"action"`
	}
	decodeBody(t, second, &result)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "linked", result.Action)
}

func TestRouter_IngestErrors(t *testing.T) {
	server, srcDir := newTestServer(t)

	// Missing source file.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": filepath.Join(srcDir, "missing.txt"),
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Invalid policy.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "a.txt", []byte("x")),
		"policy":      "KEEP_BOTH",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed body.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/media", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestRouter_Collections(t *testing.T) {
	server, srcDir := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/collections", map[string]string{
		"name":        "trips",
		"description": "travel",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var collection domain.Collection
	decodeBody(t, resp, &collection)
	assert.NotEmpty(t, collection.ID)

	// Duplicate name conflicts.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/collections", map[string]string{"name": "trips"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Ingest into the collection and list its members.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "a.txt", []byte("member")),
		"collection":  "trips",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := http.Get(server.URL + "/api/v1/collections/" + collection.ID + "/media")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var members struct {
		Media []*domain.Media `json:"media"`
	}
	decodeBody(t, listResp, &members)
	assert.Len(t, members.Media, 1)

	// Delete and confirm 404 afterwards.
	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/collections/"+collection.ID, nil)
	require.NoError(t, err)
	deleteResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	deleteResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, deleteResp.StatusCode)

	getResp, err := http.Get(server.URL + "/api/v1/collections/" + collection.ID)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestRouter_AddMetadata(t *testing.T) {
	server, srcDir := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "a.txt", []byte("x")),
	})
	var ingested struct {
		Media *domain.Media `json:"media"`
	}
	decodeBody(t, resp, &ingested)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/media/"+ingested.Media.ID+"/metadata", map[string]interface{}{
		"metadata": map[string]string{"rating": "5"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Metadata []domain.MetadataEntry `json:"metadata"`
	}
	decodeBody(t, resp, &result)
	require.Len(t, result.Metadata, 1)
	assert.Equal(t, "custom.rating", result.Metadata[0].Key)
	assert.Equal(t, domain.SourceAPI, result.Metadata[0].Source)
}

func TestRouter_SearchWithMetadataFilter(t *testing.T) {
	server, srcDir := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "a.txt", []byte("one")),
		"metadata":    map[string]string{"place": "Lisbon"},
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/media", map[string]interface{}{
		"source_path": writeSource(t, srcDir, "b.txt", []byte("two")),
	})
	resp.Body.Close()

	searchResp, err := http.Get(server.URL + "/api/v1/media?meta.custom.place=Lisbon")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, searchResp.StatusCode)

	var result struct {
		Media []*domain.Media `json:"media"`
	}
	decodeBody(t, searchResp, &result)
	assert.Len(t, result.Media, 1)
}

func TestRouter_GCEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	statsResp, err := http.Get(server.URL + "/api/v1/gc/stats")
	require.NoError(t, err)
	statsResp.Body.Close()
	assert.Equal(t, http.StatusOK, statsResp.StatusCode)

	runResp := doJSON(t, http.MethodPost, server.URL+"/api/v1/gc/run", nil)
	runResp.Body.Close()
	assert.Equal(t, http.StatusOK, runResp.StatusCode)
}
