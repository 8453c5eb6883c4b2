// Package gateway adapts the hosted backend (PostgREST tables, RPC, auth and
// serverless report functions) to the application ports.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds gateway endpoints and the public API key
type Config struct {
	RESTURL      string
	AuthURL      string
	FunctionsURL string
	APIKey       string
	Timeout      time.Duration
}

// Client talks to the gateway over HTTP. Calls are never retried.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.RESTURL = strings.TrimRight(cfg.RESTURL, "/")
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.FunctionsURL = strings.TrimRight(cfg.FunctionsURL, "/")

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// APIError is a non-2xx or unsuccessful gateway response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("gateway %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// DisplayMessage returns the server-reported message
func (e *APIError) DisplayMessage() string {
	return e.Message
}

// errorBody covers the error shapes of PostgREST, auth and functions
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.ErrorDescription, b.Error, b.Message, b.Msg} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do sends one request and reads the whole body before returning. A 2xx body
// is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, url, token string, body, out interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err))
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("Gateway request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return resp.StatusCode, data, &APIError{StatusCode: resp.StatusCode, Message: eb.text(), Endpoint: endpointName(url)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, data, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, data, nil
}

// endpointName strips the query and host for error messages
func endpointName(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}
