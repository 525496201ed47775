package main

import "time"

// Message represents a single message in a conversation
type Message struct {
	Role     string           `json:"role"`
	Content  string           `json:"content,omitempty"`
	Stage1   []Stage1Response `json:"stage1,omitempty"`
	Stage2   []Stage2Ranking  `json:"stage2,omitempty"`
	Stage3   *Stage3Response  `json:"stage3,omitempty"`
	Metadata *Metadata        `json:"metadata,omitempty"`
}

// Conversation represents a full conversation with all messages
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

// ConversationMetadata represents conversation list metadata
type ConversationMetadata struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}

// Stage1Response represents a single model's response in Stage 1.
// A failed model still gets an entry, with Error set and the response empty,
// so the frontend can render the failure inline alongside the successes.
type Stage1Response struct {
	Model        string `json:"model"`
	Response     string `json:"response,omitempty"`
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Stage2Ranking represents a model's ranking of other responses
type Stage2Ranking struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking,omitempty"`
	ParsedRanking []string `json:"parsed_ranking,omitempty"`
	Error         bool     `json:"error,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// Stage3Response represents the chairman's final synthesis
type Stage3Response struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// AggregateRanking represents the aggregate ranking across all models
type AggregateRanking struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// Metadata contains additional information about the council process
type Metadata struct {
	LabelToModel      map[string]string  `json:"label_to_model"`
	AggregateRankings []AggregateRanking `json:"aggregate_rankings"`
}

// Model describes one entry of the model catalog
type Model struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsFree bool   `json:"is_free"`
}

// ModelsResponse is the catalog payload. A fetch failure travels in Error so
// the frontend can keep showing its current catalog instead of blanking out.
type ModelsResponse struct {
	Models []Model `json:"models,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Settings is the server-side settings record as stored on disk.
// It contains raw API keys and must never be returned by the API directly;
// use MaskSettings for anything that leaves the process.
type Settings struct {
	SearchProvider     string   `json:"search_provider"`
	FullContentResults int      `json:"full_content_results"`
	CouncilModels      []string `json:"council_models"`
	ChairmanModel      string   `json:"chairman_model"`
	TavilyAPIKey       string   `json:"tavily_api_key,omitempty"`
	BraveAPIKey        string   `json:"brave_api_key,omitempty"`
	OpenRouterAPIKey   string   `json:"openrouter_api_key,omitempty"`
}

// SettingsResponse is the public view of Settings: key material is reduced
// to set/unset booleans.
type SettingsResponse struct {
	SearchProvider      string   `json:"search_provider"`
	FullContentResults  int      `json:"full_content_results"`
	CouncilModels       []string `json:"council_models"`
	ChairmanModel       string   `json:"chairman_model"`
	TavilyAPIKeySet     bool     `json:"tavily_api_key_set"`
	BraveAPIKeySet      bool     `json:"brave_api_key_set"`
	OpenRouterAPIKeySet bool     `json:"openrouter_api_key_set"`
}

// UpdateSettingsRequest is a partial settings update. Nil fields are left
// untouched; key fields are only present when the user actually typed a new
// value, never when the input still holds the masking placeholder.
type UpdateSettingsRequest struct {
	SearchProvider     *string  `json:"search_provider,omitempty"`
	FullContentResults *int     `json:"full_content_results,omitempty"`
	CouncilModels      []string `json:"council_models,omitempty"`
	ChairmanModel      *string  `json:"chairman_model,omitempty"`
	TavilyAPIKey       *string  `json:"tavily_api_key,omitempty"`
	BraveAPIKey        *string  `json:"brave_api_key,omitempty"`
	OpenRouterAPIKey   *string  `json:"openrouter_api_key,omitempty"`
}

// DefaultSettingsResponse carries the server-configured default council
type DefaultSettingsResponse struct {
	CouncilModels []string `json:"council_models"`
	ChairmanModel string   `json:"chairman_model"`
}

// KeyTestRequest is the body of a key test call
type KeyTestRequest struct {
	APIKey string `json:"api_key"`
}

// KeyTestResponse reports the outcome of testing an API key
type KeyTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SearchResult is one hit from a web search provider. Content is the full
// page text when available, Snippet the short provider-supplied summary.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Content string `json:"content,omitempty"`
}

// OpenRouterMessage represents a message for OpenRouter API
type OpenRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterRequest represents a request to OpenRouter API
type OpenRouterRequest struct {
	Model    string              `json:"model"`
	Messages []OpenRouterMessage `json:"messages"`
}

// OpenRouterResponse represents a response from OpenRouter API
type OpenRouterResponse struct {
	Content          string      `json:"content"`
	ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
}

// OpenRouterAPIResponse represents the full API response structure
type OpenRouterAPIResponse struct {
	Choices []struct {
		Message struct {
			Content          string      `json:"content"`
			ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterModelPricing holds the per-token prices OpenRouter reports.
// Prices arrive as decimal strings.
type OpenRouterModelPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// OpenRouterModelInfo is one entry of the OpenRouter model listing
type OpenRouterModelInfo struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Pricing OpenRouterModelPricing `json:"pricing"`
}

// OpenRouterModelsResponse is the OpenRouter model listing payload
type OpenRouterModelsResponse struct {
	Data []OpenRouterModelInfo `json:"data"`
}

// SendMessageRequest represents a request to send a message
type SendMessageRequest struct {
	Content      string `json:"content"`
	UseWebSearch bool   `json:"use_web_search,omitempty"`
}

// SendMessageResponse represents the response after sending a message
type SendMessageResponse struct {
	Stage1   []Stage1Response `json:"stage1"`
	Stage2   []Stage2Ranking  `json:"stage2"`
	Stage3   Stage3Response   `json:"stage3"`
	Metadata Metadata         `json:"metadata"`
}
