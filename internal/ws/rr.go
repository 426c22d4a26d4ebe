// Package ws talks to the scoring service over HTTP: one synchronous
// request-response call, or the staged batch flow with job polling.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-azml-client/internal/model"
)

const apiVersion = "2.0"

// maxErrorSnippet caps the response body carried inside a TransportError.
const maxErrorSnippet = 512

// RequestResponseClient performs one synchronous scoring call.
type RequestResponseClient struct {
	HTTPClient *http.Client
}

// Execute POSTs an encoded request body to the service's execution
// endpoint and returns the raw response body. No retry.
func (c *RequestResponseClient) Execute(ctx context.Context, baseURL, apiKey string, body []byte) ([]byte, error) {
	url := joinURL(baseURL, "/execute") + "?api-version=" + apiVersion + "&details=true"
	_, respBody, err := doJSON(ctx, c.HTTPClient, http.MethodPost, url, apiKey, body)
	return respBody, err
}

// doJSON performs one authenticated JSON exchange. Non-2xx responses
// become a ServiceError when the body carries the platform's error
// envelope, a TransportError otherwise.
func doJSON(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, serviceError(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// serviceError extracts the structured error payload if present.
func serviceError(status int, body []byte) error {
	var env model.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		return &ServiceError{
			Status:  status,
			Code:    env.Error.Code,
			Message: env.Error.Message,
			Details: env.Error.Details,
		}
	}
	snippet := string(body)
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet]
	}
	return &TransportError{Status: status, Body: snippet}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
