package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
)

const serviceName = "qdrant"

// Client talks to Qdrant over its REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return NewWithExecutor(baseURL, collection, nil)
}

func NewWithExecutor(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type restPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs/vectors mismatch: %d/%d", len(docs), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]restPoint, 0, len(docs))
	for i, doc := range docs {
		points = append(points, restPoint{
			ID:      pointID(doc.ID),
			Vector:  vectors[i],
			Payload: documentPayload(doc),
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.send(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Document, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.send(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		// The collection is created on first upsert; before that the index is empty.
		if statusErr, ok := asStatusError(err); ok && statusErr.StatusCode == http.StatusNotFound {
			return []domain.Document{}, nil
		}
		return nil, err
	}

	out := make([]domain.Document, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		doc := documentFromPayload(r.Payload)
		if doc.ID == "" {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	err := c.send(ctx, http.MethodPut, "/collections/"+c.collection, reqBody, nil, "ensure collection")
	if err != nil {
		// 409 when the collection already exists.
		if statusErr, ok := asStatusError(err); !ok || statusErr.StatusCode != http.StatusConflict {
			return err
		}
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) send(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError(serviceName, operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

func asStatusError(err error) (*resilience.HTTPStatusError, bool) {
	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
