package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxQueryRetries is how many times a rate-limited model query is attempted
const MaxQueryRetries = 3

// errRateLimited marks a query that kept hitting 429 responses
var errRateLimited = errors.New("rate limited - too many requests")

// QueryModel queries a single model via OpenRouter API with the given timeout.
// Rate-limited requests (429) are retried with exponentially growing delays;
// all other failures return immediately.
// Returns the model's response or an error if the request fails.
func QueryModel(ctx context.Context, model string, messages []OpenRouterMessage, timeout time.Duration) (*OpenRouterResponse, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: timeout,
	}

	// Build request payload
	payload := OpenRouterRequest{
		Model:    model,
		Messages: messages,
	}

	// Marshal payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	delay := QueryRetryDelay
	for attempt := 0; attempt < MaxQueryRetries; attempt++ {
		// Create HTTP request (fresh body reader per attempt)
		req, err := http.NewRequestWithContext(ctx, "POST", OpenRouterAPIURL+"/chat/completions", bytes.NewReader(payloadBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// Set headers
		req.Header.Set("Authorization", "Bearer "+CurrentOpenRouterKey())
		req.Header.Set("Content-Type", "application/json")

		// Make the request
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to make request: %w", err)
		}

		// Back off and retry on rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == MaxQueryRetries-1 {
				break
			}
			log.Printf("Model %s rate limited, retrying in %v", model, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		// Check status code
		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
		}

		// Read response body
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		// Parse response
		var apiResponse OpenRouterAPIResponse
		if err := json.Unmarshal(bodyBytes, &apiResponse); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		// Extract message from response
		if len(apiResponse.Choices) == 0 {
			return nil, fmt.Errorf("no choices in response")
		}

		message := apiResponse.Choices[0].Message
		return &OpenRouterResponse{
			Content:          message.Content,
			ReasoningDetails: message.ReasoningDetails,
		}, nil
	}

	return nil, errRateLimited
}

// queryErrorMessage maps a query failure to the short message rendered
// inline for that model
func queryErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errRateLimited) {
		return "Rate limited - too many requests"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timed out"
	}
	return fmt.Sprintf("Model returned error: %v", err)
}

// QueryOutcome holds one model's result from a parallel query. A failed
// model carries its error so callers can render the failure inline instead
// of dropping the model.
type QueryOutcome struct {
	Response *OpenRouterResponse
	Err      error
}

// ErrorMessage returns the display message for a failed outcome
func (o QueryOutcome) ErrorMessage() string {
	return queryErrorMessage(o.Err)
}

// QueryModelsParallel queries multiple models in parallel using goroutines.
// Uses errgroup for parallel execution with graceful degradation: a failed
// model gets an error outcome in the results map while the other models
// proceed. The batch itself never fails.
func QueryModelsParallel(ctx context.Context, models []string, messages []OpenRouterMessage) (map[string]QueryOutcome, error) {
	// Create errgroup for parallel execution
	g, ctx := errgroup.WithContext(ctx)

	// Results map and mutex for thread-safe writes
	results := make(map[string]QueryOutcome)
	var mu sync.Mutex

	// Launch goroutine for each model
	for _, model := range models {
		model := model // Capture loop variable
		g.Go(func() error {
			response, err := QueryModel(ctx, model, messages, ModelQueryTimeout)

			// Graceful degradation: log error but don't fail entire request
			if err != nil {
				log.Printf("Error querying model %s: %v", model, err)
			}

			mu.Lock()
			results[model] = QueryOutcome{Response: response, Err: err}
			mu.Unlock()
			return nil // Don't propagate error, continue with other models
		})
	}

	// Wait for all goroutines to complete
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// FetchAvailableModels retrieves the model catalog from OpenRouter.
// Models are marked free when OpenRouter lists them with the ":free" suffix
// or with zero prompt and completion pricing.
func FetchAvailableModels(ctx context.Context) ([]Model, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", OpenRouterAPIURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+CurrentOpenRouterKey())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var listing OpenRouterModelsResponse
	if err := json.Unmarshal(bodyBytes, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	models := make([]Model, 0, len(listing.Data))
	for _, info := range listing.Data {
		name := info.Name
		if name == "" {
			name = info.ID
		}
		models = append(models, Model{
			ID:     info.ID,
			Name:   name,
			IsFree: isFreeModel(info),
		})
	}

	return models, nil
}

// isFreeModel reports whether OpenRouter lists the model as free to use
func isFreeModel(info OpenRouterModelInfo) bool {
	if strings.HasSuffix(info.ID, ":free") {
		return true
	}
	return isZeroPrice(info.Pricing.Prompt) && isZeroPrice(info.Pricing.Completion)
}

// isZeroPrice parses an OpenRouter price string and reports whether it is
// exactly zero. Missing prices are not treated as free.
func isZeroPrice(price string) bool {
	if price == "" {
		return false
	}
	v, err := strconv.ParseFloat(price, 64)
	return err == nil && v == 0
}

// VerifyOpenRouterKey checks an API key against the OpenRouter key endpoint
func VerifyOpenRouterKey(ctx context.Context, key string) KeyTestResponse {
	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", OpenRouterAPIURL+"/key", nil)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := client.Do(req)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not reach OpenRouter: %v", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return KeyTestResponse{Success: true, Message: "OpenRouter API key is valid"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return KeyTestResponse{Success: false, Message: "Invalid OpenRouter API key"}
	default:
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("OpenRouter returned status %d", resp.StatusCode)}
	}
}
