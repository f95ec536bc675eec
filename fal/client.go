// Package fal is a client for the fal.ai queue API that hosts the try-on model.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-tryon/tryon"
)

// DefaultBaseURL is the queue endpoint of the fashn try-on model.
const DefaultBaseURL = "https://queue.fal.run/fashn/tryon"

// Client talks to one queue endpoint. It implements tryon.Synthesizer.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at another queue endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewClient builds a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Submit enqueues a job and returns its request id.
func (c *Client) Submit(ctx context.Context, req tryon.SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", tryon.NewError(tryon.CodeInvalidRequest, "could not encode submission", err)
	}

	var out submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", tryon.NewError(tryon.CodeInvalidResponse, "no request_id in submission response", nil)
	}
	return out.RequestID, nil
}

// Status returns the queue status of a job, for example IN_QUEUE or COMPLETED.
func (c *Client) Status(ctx context.Context, requestID string) (string, error) {
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/requests/"+requestID+"/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Result fetches the detail of a completed job.
func (c *Client) Result(ctx context.Context, requestID string) (*tryon.JobResult, error) {
	var out tryon.JobResult
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/requests/"+requestID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a result image and returns its bytes and content type.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", tryon.NewError(tryon.CodeInvalidResponse, fmt.Sprintf("invalid result url %q", url), err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", tryon.NewError(tryon.CodeNetwork, "could not download result image", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", tryon.NewError(tryon.CodeNetwork, "could not read result image", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", classify(resp.StatusCode, data)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return tryon.NewError(tryon.CodeInvalidRequest, "could not build request", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return tryon.NewError(tryon.CodeTimeout, "request to synthesis API was cut short", err)
		}
		return tryon.NewError(tryon.CodeNetwork, "synthesis API unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tryon.NewError(tryon.CodeNetwork, "could not read synthesis API response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return tryon.NewError(tryon.CodeInvalidResponse, "malformed synthesis API response", err)
	}
	return nil
}

// classify maps a non-2xx response to the try-on error taxonomy.
func classify(status int, body []byte) *tryon.Error {
	msg := bodyMessage(body)

	var e *tryon.Error
	switch {
	case status == http.StatusBadRequest:
		if msg == "" {
			msg = "the synthesis API rejected the request"
		}
		e = tryon.NewError(tryon.CodeInvalidRequest, "invalid request: "+msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = tryon.NewError(tryon.CodeAuth, "invalid API key", nil)
	case status == http.StatusTooManyRequests:
		e = tryon.NewError(tryon.CodeRateLimit, "rate limit exceeded, please try again later", nil)
	case status >= 500:
		if msg == "" {
			msg = http.StatusText(status)
		}
		e = tryon.NewError(tryon.CodeAPI, "synthesis API error: "+msg, nil)
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		e = tryon.NewError(tryon.CodeAPI, msg, nil)
	}
	e.StatusCode = status
	return e
}

// bodyMessage extracts error, message or detail from a JSON error body.
func bodyMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message", "detail"} {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		default:
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
	}
	return ""
}
