package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Caller invokes a remote procedure and returns the raw response body.
type Caller interface {
	Call(ctx context.Context, procedure string, params map[string]any) ([]byte, error)
}

// HTTPCaller calls procedures over the hosted backend's REST RPC route,
// POST <endpoint>/rest/v1/rpc/<procedure>.
type HTTPCaller struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// maxResponse bounds how much of a response body is read.
const maxResponse = 4 << 20

// NewHTTPCaller returns a caller whose requests time out after timeout.
func NewHTTPCaller(endpoint, apiKey string, timeout time.Duration) *HTTPCaller {
	return &HTTPCaller{
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCaller) Call(ctx context.Context, procedure string, params map[string]any) ([]byte, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("no progress endpoint configured")
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	url := c.Endpoint + "/rest/v1/rpc/" + procedure
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", procedure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("call %s: %s", procedure, resp.Status)
	}
	return data, nil
}
