package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration constants
var (
	// OpenRouterAPIKey is the API key for OpenRouter loaded from the
	// environment. A key saved through the settings API takes precedence.
	OpenRouterAPIKey string

	// DefaultCouncilModels is the council roster used until settings are saved
	DefaultCouncilModels = []string{
		"openai/gpt-5.1",
		"google/gemini-3-pro-preview",
		"anthropic/claude-sonnet-4.5",
		"x-ai/grok-4",
	}

	// DefaultChairmanModel is the default model used for final synthesis
	DefaultChairmanModel = "google/gemini-3-pro-preview"

	// OpenRouterAPIURL is the base URL of the OpenRouter API
	OpenRouterAPIURL = "https://openrouter.ai/api/v1"

	// Search provider endpoints (overridable in tests)
	TavilyAPIURL     = "https://api.tavily.com/search"
	BraveAPIURL      = "https://api.search.brave.com/res/v1/web/search"
	DuckDuckGoAPIURL = "https://html.duckduckgo.com/html/"

	// DataDir is the directory for conversation storage
	DataDir = "data/conversations"

	// SettingsFile is the path of the persisted settings record
	SettingsFile = "data/settings.json"

	// Timeout constants
	ModelQueryTimeout = 120 * time.Second
	TitleGenTimeout   = 30 * time.Second

	// QueryRetryDelay is the initial backoff after a rate-limited model query.
	// It doubles on every retry.
	QueryRetryDelay = 2 * time.Second

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 << 20

	// ModelsCacheTTL is the time-to-live for the model catalog cache
	ModelsCacheTTL = 1 * time.Hour
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	// Try to find and load .env file
	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	// Get OpenRouter API key. Not fatal when missing: a key can also be
	// stored through the settings API, and the key saved there wins.
	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Printf("Warning: OPENROUTER_API_KEY not set; configure it in .env or via settings")
	}

	// Load CORS origins from environment if provided. Comma-separated:
	// origins carry a scheme, so the OS path list separator cannot be used.
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = []string{}
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}

	log.Println("Configuration loaded successfully")
}
