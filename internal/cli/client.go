package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/stream"
)

// Client talks to a running whitelabel server.
type Client struct {
	BaseURL string // e.g. http://127.0.0.1:3000
	HTTP    *http.Client
	Logger  *slog.Logger
}

// ResponseError is a non-stream reply from the server.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + path
}

// Run posts envText to the run endpoint and follows the event stream. fn
// sees each event as it arrives. A reply that is not an event stream is
// returned as a *ResponseError carrying its error field.
func (c *Client) Run(ctx context.Context, envText string, fn func(runner.Event)) (stream.Outcome, error) {
	body, err := json.Marshal(map[string]string{"envContent": envText})
	if err != nil {
		return stream.Outcome{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/run-whitelabel"), bytes.NewReader(body))
	if err != nil {
		return stream.Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", stream.ContentType)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("contacting server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || mt != stream.ContentType {
		return stream.Outcome{}, readError(resp)
	}
	return stream.Collect(ctx, resp.Body, c.Logger, fn)
}

// LoadEnv fetches the values of the server's env file.
func (c *Client) LoadEnv(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/load-env"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	var out struct {
		Values map[string]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding load-env reply: %w", err)
	}
	return out.Values, nil
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	rerr := &ResponseError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, &body); err == nil {
		rerr.Message = body.Error
	}
	return rerr
}

// IsResponseError reports whether err came from a server error reply.
func IsResponseError(err error) bool {
	var rerr *ResponseError
	return errors.As(err, &rerr)
}
