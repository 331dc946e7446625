package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
)

const serviceName = "ollama"

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		resp, err := c.do(ctx, path, body, operation)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}

// openStream returns the body of a successful streaming response. The caller
// closes it.
func (c *Client) openStream(ctx context.Context, path string, payload any, operation string) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	open := func(ctx context.Context) (io.ReadCloser, error) {
		resp, err := c.do(ctx, path, body, operation)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	stream, err := resilience.Call(ctx, c.executor, "ollama."+operation, open, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama "+operation, err)
	}
	return stream, nil
}

func (c *Client) do(ctx context.Context, path string, body []byte, operation string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama %s request: %w", operation, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, resilience.NewHTTPStatusError(serviceName, operation, resp)
	}
	return resp, nil
}

type generateStreamLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func readGenerateStream(body io.Reader, onChunk func(string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg generateStreamLine
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("decode generate stream line: %w", err)
		}
		if strings.TrimSpace(msg.Error) != "" {
			return fmt.Errorf("ollama generate stream: %s", msg.Error)
		}
		if msg.Response != "" {
			if err := onChunk(msg.Response); err != nil {
				return err
			}
		}
		if msg.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read generate stream: %w", err)
	}
	return errors.New("ollama generate stream ended before done")
}
