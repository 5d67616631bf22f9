package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

const (
	maxAttempts   = 3
	retryBackoff  = 500 * time.Millisecond
	payloadChunk  = "chunk_id"
	payloadBookID = "book_id"
)

// Client talks to a Qdrant cluster over its REST API. Point IDs are
// deterministic UUIDs derived from chunk IDs, so upserting the same chunk
// twice overwrites rather than duplicates.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	http       *http.Client
	logger     arbor.ILogger
}

// NewClient creates a Qdrant client and ensures the collection exists with
// cosine distance at the embedding dimension.
func NewClient(ctx context.Context, cfg *common.QdrantConfig, dimension int, logger arbor.ILogger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required (set QDRANT_API_ENDPOINT or qdrant.url in config)")
	}

	client := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  dimension,
		http: &http.Client{
			Timeout: common.ParseDurationOr(cfg.RequestTimeout, 30*time.Second),
		},
		logger: logger,
	}

	if err := client.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// ensureCollection creates the collection when missing. An existing
// collection is left untouched even if its dimension differs; the first
// upsert would surface that misconfiguration.
func (c *Client) ensureCollection(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		c.logger.Debug().Str("collection", c.collection).Msg("Qdrant collection exists")
		return nil
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	status, respBody, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("creating collection %s: status %d: %s", c.collection, status, respBody)
	}

	c.logger.Info().Str("collection", c.collection).Int("dimension", c.dimension).Msg("Qdrant collection created")
	return nil
}

// Upsert writes points in one request, waiting for the write to be applied.
func (c *Client) Upsert(ctx context.Context, points []interfaces.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]map[string]interface{}, len(points))
	for i, p := range points {
		payload := map[string]interface{}{
			payloadChunk:  p.ChunkID,
			payloadBookID: p.BookID,
			"text":        p.Text,
			"source_file": p.SourceFile,
			"position":    p.Position,
		}
		if p.Chapter != nil {
			payload["chapter"] = *p.Chapter
		}
		if p.Section != nil {
			payload["section"] = *p.Section
		}
		qdrantPoints[i] = map[string]interface{}{
			"id":      common.VectorPointID(p.ChunkID),
			"vector":  p.Vector,
			"payload": payload,
		}
	}

	body := map[string]interface{}{"points": qdrantPoints}
	status, respBody, err := c.doWithRetry(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("upserting %d points: status %d: %s", len(points), status, respBody)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

// Search runs similarity search filtered to one book.
func (c *Client) Search(ctx context.Context, bookID string, queryVector []float32, topK int) ([]interfaces.ScoredPoint, error) {
	body := map[string]interface{}{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": payloadBookID, "match": map[string]interface{}{"value": bookID}},
			},
		},
	}

	status, respBody, err := c.doWithRetry(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("searching collection: status %d: %s", status, respBody)
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	points := make([]interfaces.ScoredPoint, 0, len(parsed.Result))
	for _, hit := range parsed.Result {
		points = append(points, scoredPointFromPayload(hit.Score, hit.Payload))
	}
	return points, nil
}

// DeleteBook removes every point belonging to a book.
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": payloadBookID, "match": map[string]interface{}{"value": bookID}},
			},
		},
	}

	status, respBody, err := c.doWithRetry(ctx, http.MethodPost, "/collections/"+c.collection+"/points/delete?wait=true", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("deleting points for book %s: status %d: %s", bookID, status, respBody)
	}
	return nil
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

// Count returns the total number of points in the collection.
func (c *Client) Count(ctx context.Context) (int, error) {
	body := map[string]interface{}{"exact": true}
	status, respBody, err := c.doWithRetry(ctx, http.MethodPost, "/collections/"+c.collection+"/points/count", body)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("counting points: status %d: %s", status, respBody)
	}

	var parsed countResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}
	return parsed.Result.Count, nil
}

// HealthCheck verifies the cluster responds and the collection exists.
func (c *Client) HealthCheck(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant collection %s: status %d", c.collection, status)
	}
	return nil
}

// doWithRetry retries transient failures (transport errors and 5xx) with a
// fixed backoff. 4xx responses are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, respBody, err := c.do(ctx, method, path, body)
		if err == nil && status < http.StatusInternalServerError {
			return status, respBody, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d: %s", status, respBody)
		}

		if attempt < maxAttempts {
			c.logger.Warn().
				Err(lastErr).
				Str("path", path).
				Int("attempt", attempt).
				Msg("Qdrant request failed, retrying")
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}
	return 0, nil, fmt.Errorf("qdrant request failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func scoredPointFromPayload(score float64, payload map[string]interface{}) interfaces.ScoredPoint {
	point := interfaces.ScoredPoint{Score: score}
	if v, ok := payload[payloadChunk].(string); ok {
		point.ChunkID = v
	}
	if v, ok := payload[payloadBookID].(string); ok {
		point.BookID = v
	}
	if v, ok := payload["text"].(string); ok {
		point.Text = v
	}
	if v, ok := payload["source_file"].(string); ok {
		point.SourceFile = v
	}
	if v, ok := payload["position"].(float64); ok {
		point.Position = int(v)
	}
	if v, ok := payload["chapter"].(string); ok {
		point.Chapter = &v
	}
	if v, ok := payload["section"].(string); ok {
		point.Section = &v
	}
	return point
}
