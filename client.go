package main

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

// CouncilAPI is the backend surface the session layer depends on. The
// editors and views only ever talk to the backend through this interface.
type CouncilAPI interface {
	GetSettings(ctx context.Context) (*SettingsResponse, error)
	GetDefaultSettings(ctx context.Context) (*DefaultSettingsResponse, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error)
	GetModels(ctx context.Context) ([]Model, error)
	TestTavilyKey(ctx context.Context, key string) (KeyTestResponse, error)
	TestBraveKey(ctx context.Context, key string) (KeyTestResponse, error)
	TestOpenRouterKey(ctx context.Context, key string) (KeyTestResponse, error)
}

// CouncilClient is the HTTP implementation of CouncilAPI
type CouncilClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewCouncilClient creates a client for the backend at baseURL
func NewCouncilClient(baseURL string) *CouncilClient {
	return &CouncilClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doJSON performs one request with an optional JSON body and decodes the
// JSON response into out. Non-2xx responses are turned into errors carrying
// the server's error message when one is present.
func (c *CouncilClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// GetSettings fetches the persisted settings view
func (c *CouncilClient) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	var settings SettingsResponse
	if err := c.doJSON(ctx, "GET", "/api/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetDefaultSettings fetches the server-configured default council
func (c *CouncilClient) GetDefaultSettings(ctx context.Context) (*DefaultSettingsResponse, error) {
	var defaults DefaultSettingsResponse
	if err := c.doJSON(ctx, "GET", "/api/settings/defaults", nil, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// UpdateSettings applies a partial settings update and returns the fresh
// persisted view
func (c *CouncilClient) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	var settings SettingsResponse
	if err := c.doJSON(ctx, "PUT", "/api/settings", req, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetModels fetches the model catalog. The backend reports fetch failures
// inside the payload; those surface as errors here so callers keep their
// current catalog.
func (c *CouncilClient) GetModels(ctx context.Context) ([]Model, error) {
	var resp ModelsResponse
	if err := c.doJSON(ctx, "GET", "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Models, nil
}

// TestTavilyKey asks the backend to verify a Tavily API key
func (c *CouncilClient) TestTavilyKey(ctx context.Context, key string) (KeyTestResponse, error) {
	return c.testKey(ctx, "/api/settings/test-key/tavily", key)
}

// TestBraveKey asks the backend to verify a Brave Search API key
func (c *CouncilClient) TestBraveKey(ctx context.Context, key string) (KeyTestResponse, error) {
	return c.testKey(ctx, "/api/settings/test-key/brave", key)
}

// TestOpenRouterKey asks the backend to verify an OpenRouter API key
func (c *CouncilClient) TestOpenRouterKey(ctx context.Context, key string) (KeyTestResponse, error) {
	return c.testKey(ctx, "/api/settings/test-key/openrouter", key)
}

func (c *CouncilClient) testKey(ctx context.Context, path, key string) (KeyTestResponse, error) {
	var result KeyTestResponse
	err := c.doJSON(ctx, "POST", path, KeyTestRequest{APIKey: key}, &result)
	if err != nil {
		return KeyTestResponse{}, err
	}
	return result, nil
}
