package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestHelper provides utilities for tests
type TestHelper struct {
	t       *testing.T
	tempDir string
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTempDir creates a temporary directory for testing
func (h *TestHelper) CreateTempDir() string {
	tempDir, err := os.MkdirTemp("", "llm-council-test-*")
	if err != nil {
		h.t.Fatalf("Failed to create temp dir: %v", err)
	}
	h.tempDir = tempDir
	return tempDir
}

// Cleanup removes the temporary directory
func (h *TestHelper) Cleanup() {
	if h.tempDir != "" {
		os.RemoveAll(h.tempDir)
	}
}

// WriteJSONFile writes JSON data to a file in the temp directory
func (h *TestHelper) WriteJSONFile(filename string, data interface{}) string {
	if h.tempDir == "" {
		h.CreateTempDir()
	}

	path := filepath.Join(h.tempDir, filename)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		h.t.Fatalf("Failed to marshal JSON: %v", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		h.t.Fatalf("Failed to write file: %v", err)
	}

	return path
}

// ReadJSONFile reads and unmarshals JSON from a file
func (h *TestHelper) ReadJSONFile(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("Failed to read file: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		h.t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, message string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", message, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(v interface{}, message string) {
	if v == nil {
		h.t.Errorf("%s: expected non-nil value", message)
	}
}

// AssertNil checks if a value is nil
func (h *TestHelper) AssertNil(v interface{}, message string) {
	if v != nil && !isNil(v) {
		h.t.Errorf("%s: expected nil, got %v", message, v)
	}
}

// isNil checks if an interface value is nil (handles typed nil pointers)
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	// Use type assertion to check for nil pointer
	switch v := v.(type) {
	case *Conversation:
		return v == nil
	default:
		return false
	}
}

// AssertNoError checks if an error is nil
func (h *TestHelper) AssertNoError(err error, message string) {
	if err != nil {
		h.t.Errorf("%s: unexpected error: %v", message, err)
	}
}

// AssertError checks if an error is not nil
func (h *TestHelper) AssertError(err error, message string) {
	if err == nil {
		h.t.Errorf("%s: expected error, got nil", message)
	}
}

// MockOpenRouterServer creates a mock HTTP server for OpenRouter API
func MockOpenRouterServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// CreateMockOpenRouterHandler creates a handler that returns successful responses
func CreateMockOpenRouterHandler(t *testing.T, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Verify headers
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}

		if r.Header.Get("Authorization") == "" {
			t.Errorf("Missing Authorization header")
		}

		// Return mock response
		apiResponse := OpenRouterAPIResponse{
			Choices: []struct {
				Message struct {
					Content          string      `json:"content"`
					ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
				} `json:"message"`
			}{
				{
					Message: struct {
						Content          string      `json:"content"`
						ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
					}{
						Content: response,
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(apiResponse)
	}
}

// CreateMockOpenRouterErrorHandler creates a handler that returns errors
func CreateMockOpenRouterErrorHandler(statusCode int, errorMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write([]byte(errorMsg))
	}
}

// SampleConversation creates a sample conversation for testing
func SampleConversation(id string) *Conversation {
	return &Conversation{
		ID:        id,
		CreatedAt: testTime(),
		Title:     "Test Conversation",
		Messages: []Message{
			{
				Role:    "user",
				Content: "What is Go?",
			},
			{
				Role: "assistant",
				Stage1: []Stage1Response{
					{Model: "test/model1", Response: "Go is a programming language."},
					{Model: "test/model2", Response: "Go is developed by Google."},
				},
				Stage2: []Stage2Ranking{
					{
						Model:         "test/model1",
						Ranking:       "FINAL RANKING:\n1. Response B\n2. Response A",
						ParsedRanking: []string{"Response B", "Response A"},
					},
				},
				Stage3: &Stage3Response{
					Model:    "test/chairman",
					Response: "Go is a programming language developed by Google.",
				},
				Metadata: &Metadata{
					LabelToModel: map[string]string{
						"Response A": "test/model1",
						"Response B": "test/model2",
					},
					AggregateRankings: []AggregateRanking{
						{Model: "test/model2", AverageRank: 1.0, RankingsCount: 1},
						{Model: "test/model1", AverageRank: 2.0, RankingsCount: 1},
					},
				},
			},
		},
	}
}

// testTime returns a fixed time for testing
func testTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// fakeCouncilAPI implements CouncilAPI with per-call hooks. Tests set only
// the hooks they expect; an unexpected call fails with a clear error.
type fakeCouncilAPI struct {
	getSettings        func(ctx context.Context) (*SettingsResponse, error)
	getDefaultSettings func(ctx context.Context) (*DefaultSettingsResponse, error)
	updateSettings     func(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error)
	getModels          func(ctx context.Context) ([]Model, error)
	testTavilyKey      func(ctx context.Context, key string) (KeyTestResponse, error)
	testBraveKey       func(ctx context.Context, key string) (KeyTestResponse, error)
	testOpenRouterKey  func(ctx context.Context, key string) (KeyTestResponse, error)
}

func (f *fakeCouncilAPI) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	if f.getSettings == nil {
		return nil, fmt.Errorf("unexpected GetSettings call")
	}
	return f.getSettings(ctx)
}

func (f *fakeCouncilAPI) GetDefaultSettings(ctx context.Context) (*DefaultSettingsResponse, error) {
	if f.getDefaultSettings == nil {
		return nil, fmt.Errorf("unexpected GetDefaultSettings call")
	}
	return f.getDefaultSettings(ctx)
}

func (f *fakeCouncilAPI) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	if f.updateSettings == nil {
		return nil, fmt.Errorf("unexpected UpdateSettings call")
	}
	return f.updateSettings(ctx, req)
}

func (f *fakeCouncilAPI) GetModels(ctx context.Context) ([]Model, error) {
	if f.getModels == nil {
		return nil, fmt.Errorf("unexpected GetModels call")
	}
	return f.getModels(ctx)
}

func (f *fakeCouncilAPI) TestTavilyKey(ctx context.Context, key string) (KeyTestResponse, error) {
	if f.testTavilyKey == nil {
		return KeyTestResponse{}, fmt.Errorf("unexpected TestTavilyKey call")
	}
	return f.testTavilyKey(ctx, key)
}

func (f *fakeCouncilAPI) TestBraveKey(ctx context.Context, key string) (KeyTestResponse, error) {
	if f.testBraveKey == nil {
		return KeyTestResponse{}, fmt.Errorf("unexpected TestBraveKey call")
	}
	return f.testBraveKey(ctx, key)
}

func (f *fakeCouncilAPI) TestOpenRouterKey(ctx context.Context, key string) (KeyTestResponse, error) {
	if f.testOpenRouterKey == nil {
		return KeyTestResponse{}, fmt.Errorf("unexpected TestOpenRouterKey call")
	}
	return f.testOpenRouterKey(ctx, key)
}

// sampleCatalogModels returns a small mixed catalog for editor tests
func sampleCatalogModels() []Model {
	return []Model{
		{ID: "openai/gpt-5.1", Name: "GPT-5.1", IsFree: false},
		{ID: "google/gemini-3-pro-preview", Name: "Gemini 3 Pro", IsFree: false},
		{ID: "meta/llama-3:free", Name: "Llama 3", IsFree: true},
		{ID: "mistral/small:free", Name: "Mistral Small", IsFree: true},
	}
}

// sampleSettingsResponse returns a masked settings view for editor tests
func sampleSettingsResponse() *SettingsResponse {
	return &SettingsResponse{
		SearchProvider:     ProviderDuckDuckGo,
		FullContentResults: 2,
		CouncilModels:      []string{"openai/gpt-5.1", "google/gemini-3-pro-preview"},
		ChairmanModel:      "google/gemini-3-pro-preview",
	}
}
