package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// fakeQdrant is a minimal in-memory stand-in for the Qdrant REST API.
type fakeQdrant struct {
	hasCollection atomic.Bool
	points        chan map[string]interface{}
	lastSearch    map[string]interface{}
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{points: make(chan map[string]interface{}, 100)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/books", func(w http.ResponseWriter, r *http.Request) {
		if !fake.hasCollection.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /collections/books", func(w http.ResponseWriter, r *http.Request) {
		fake.hasCollection.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /collections/books/points", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, p := range body["points"].([]interface{}) {
			fake.points <- p.(map[string]interface{})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
	})
	mux.HandleFunc("POST /collections/books/points/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&fake.lastSearch)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"score": 0.83,
					"payload": map[string]interface{}{
						"chunk_id":    "c1",
						"book_id":     "book-a",
						"text":        "some chunk text",
						"source_file": "ch1.md",
						"position":    3,
						"chapter":     "Chapter 1",
					},
				},
			},
		})
	})
	mux.HandleFunc("POST /collections/books/points/count", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"count": 7},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, fake
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := &common.QdrantConfig{URL: url, Collection: "books", RequestTimeout: "5s"}
	client, err := NewClient(context.Background(), cfg, 8, common.GetLogger())
	require.NoError(t, err)
	return client
}

func TestNewClientCreatesMissingCollection(t *testing.T) {
	server, fake := newFakeServer(t)

	newTestClient(t, server.URL)

	assert.True(t, fake.hasCollection.Load())
}

func TestUpsertUsesDeterministicPointIDs(t *testing.T) {
	server, fake := newFakeServer(t)
	client := newTestClient(t, server.URL)

	chapter := "Chapter 1"
	point := interfaces.VectorPoint{
		ChunkID:    "c1",
		BookID:     "book-a",
		Vector:     make([]float32, 8),
		Text:       "text",
		SourceFile: "ch1.md",
		Chapter:    &chapter,
		Position:   0,
	}
	require.NoError(t, client.Upsert(context.Background(), []interfaces.VectorPoint{point}))
	require.NoError(t, client.Upsert(context.Background(), []interfaces.VectorPoint{point}))

	first := <-fake.points
	second := <-fake.points
	assert.Equal(t, first["id"], second["id"], "same chunk must map to the same point ID")
	assert.Equal(t, common.VectorPointID("c1"), first["id"])

	payload := first["payload"].(map[string]interface{})
	assert.Equal(t, "book-a", payload["book_id"])
	assert.Equal(t, "Chapter 1", payload["chapter"])
}

func TestSearchFiltersByBookAndParsesPayload(t *testing.T) {
	server, fake := newFakeServer(t)
	client := newTestClient(t, server.URL)

	points, err := client.Search(context.Background(), "book-a", make([]float32, 8), 15)

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "c1", points[0].ChunkID)
	assert.Equal(t, 0.83, points[0].Score)
	assert.Equal(t, 3, points[0].Position)
	require.NotNil(t, points[0].Chapter)
	assert.Equal(t, "Chapter 1", *points[0].Chapter)
	assert.Nil(t, points[0].Section)

	filter := fake.lastSearch["filter"].(map[string]interface{})
	must := filter["must"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "book_id", must["key"])
	assert.Equal(t, float64(15), fake.lastSearch["limit"])
}

func TestCount(t *testing.T) {
	server, _ := newFakeServer(t)
	client := newTestClient(t, server.URL)

	count, err := client.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/books", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/books/points/count", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"count": 1},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	count, err := client.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(3), calls.Load())
}
