package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// EnsureDataDir ensures the data directory exists.
// Creates the directory with 0755 permissions if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir, 0755)
}

// GetConversationPath returns the file path for a conversation.
// Joins the data directory with the conversation ID and .json extension.
func GetConversationPath(conversationID string) string {
	return filepath.Join(DataDir, conversationID+".json")
}

// CreateConversation creates a new conversation with the given ID.
// Initializes an empty conversation with default title and saves it to disk.
// Returns the created conversation or an error if creation fails.
func CreateConversation(conversationID string) (*Conversation, error) {
	// Ensure data directory exists
	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Create new conversation
	conversation := &Conversation{
		ID:        conversationID,
		CreatedAt: time.Now().UTC(),
		Title:     "New Conversation",
		Messages:  []Message{},
	}

	// Save to file
	if err := SaveConversation(conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

// GetConversation loads a conversation from storage by ID.
// Returns nil without error if the conversation doesn't exist.
// Returns an error only if file reading or JSON parsing fails.
func GetConversation(conversationID string) (*Conversation, error) {
	path := GetConversationPath(conversationID)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // Not found, return nil without error
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file: %w", err)
	}

	// Parse JSON
	var conversation Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, fmt.Errorf("failed to parse conversation JSON: %w", err)
	}

	return &conversation, nil
}

// SaveConversation saves a conversation to storage.
// Writes the conversation as formatted JSON to disk.
// Returns an error if directory creation, marshaling, or writing fails.
func SaveConversation(conversation *Conversation) error {
	// Ensure data directory exists
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(conversation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	// Write to file
	path := GetConversationPath(conversation.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write conversation file: %w", err)
	}

	return nil
}

// ListConversations lists all conversations with metadata only.
// Returns a slice of conversation metadata sorted by creation time (newest first).
// Silently skips invalid or unreadable files. Returns empty slice if no conversations exist.
func ListConversations() ([]ConversationMetadata, error) {
	// Ensure data directory exists
	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Read directory
	entries, err := os.ReadDir(DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	// Collect metadata (initialize with empty slice to avoid null in JSON)
	conversations := make([]ConversationMetadata, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		// Read file
		path := filepath.Join(DataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue // Skip files we can't read
		}

		// Parse JSON (just enough to get metadata)
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue // Skip invalid JSON
		}

		// Extract metadata
		conversations = append(conversations, ConversationMetadata{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
		})
	}

	// Sort by creation time, newest first
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
	})

	return conversations, nil
}

// conversationsMu serializes read-modify-write updates to conversation
// files. The title goroutine and the council save path touch the same file;
// without this an interleaved load-then-save drops one of the writes.
var conversationsMu sync.Mutex

// AddUserMessage adds a user message to a conversation.
// Appends the message to the conversation's message history and saves to disk.
// Returns an error if the conversation doesn't exist or saving fails.
func AddUserMessage(conversationID string, content string) error {
	conversationsMu.Lock()
	defer conversationsMu.Unlock()

	// Load conversation
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	// Append user message
	conversation.Messages = append(conversation.Messages, Message{
		Role:    "user",
		Content: content,
	})

	// Save conversation
	return SaveConversation(conversation)
}

// AddAssistantMessage adds an assistant message with all 3 stages.
// Stores the complete council results plus the turn metadata (label mapping
// and aggregate rankings) as a single message, so history reloads can
// reconstruct the full council view.
// Returns an error if the conversation doesn't exist or saving fails.
func AddAssistantMessage(conversationID string, stage1 []Stage1Response, stage2 []Stage2Ranking, stage3 Stage3Response, metadata Metadata) error {
	conversationsMu.Lock()
	defer conversationsMu.Unlock()

	// Load conversation
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	// Append assistant message
	conversation.Messages = append(conversation.Messages, Message{
		Role:     "assistant",
		Stage1:   stage1,
		Stage2:   stage2,
		Stage3:   &stage3,
		Metadata: &metadata,
	})

	// Save conversation
	return SaveConversation(conversation)
}

// UpdateConversationTitle updates the title of a conversation.
// Loads the conversation, updates its title field, and saves back to disk.
// Returns an error if the conversation doesn't exist or saving fails.
func UpdateConversationTitle(conversationID string, title string) error {
	conversationsMu.Lock()
	defer conversationsMu.Unlock()

	// Load conversation
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	// Update title
	conversation.Title = title

	// Save conversation
	return SaveConversation(conversation)
}

// settingsMu guards the settings file against concurrent handler access
var settingsMu sync.RWMutex

// DefaultSettings returns the settings used before anything was saved
func DefaultSettings() *Settings {
	return &Settings{
		SearchProvider:     ProviderDuckDuckGo,
		FullContentResults: 2,
		CouncilModels:      append([]string{}, DefaultCouncilModels...),
		ChairmanModel:      DefaultChairmanModel,
	}
}

// GetSettings loads the persisted settings. A missing settings file is not
// an error: the defaults apply until the first save.
func GetSettings() (*Settings, error) {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return readSettingsLocked()
}

func readSettingsLocked() (*Settings, error) {
	data, err := os.ReadFile(SettingsFile)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}

	// Backfill fields a hand-edited or older file may lack
	if settings.SearchProvider == "" {
		settings.SearchProvider = ProviderDuckDuckGo
	}
	if len(settings.CouncilModels) == 0 {
		settings.CouncilModels = append([]string{}, DefaultCouncilModels...)
	}
	if settings.ChairmanModel == "" {
		settings.ChairmanModel = DefaultChairmanModel
	}

	return &settings, nil
}

// SaveSettings writes the settings record to disk. The file carries raw API
// keys, hence the restrictive permissions.
func SaveSettings(settings *Settings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	return writeSettingsLocked(settings)
}

func writeSettingsLocked(settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(SettingsFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(SettingsFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// UpdateSettings merges a partial update into the persisted settings and
// saves the result. Nil fields keep their current values; a provided key
// overwrites the stored one, including clearing it with an empty string.
// Field validation happens at the API boundary; the empty-roster rule is
// enforced here as well.
func UpdateSettings(req *UpdateSettingsRequest) (*Settings, error) {
	if req.CouncilModels != nil && len(req.CouncilModels) == 0 {
		return nil, fmt.Errorf("at least one council model is required")
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	current, err := readSettingsLocked()
	if err != nil {
		return nil, err
	}

	if req.SearchProvider != nil {
		current.SearchProvider = *req.SearchProvider
	}
	if req.FullContentResults != nil {
		current.FullContentResults = *req.FullContentResults
	}
	if req.CouncilModels != nil {
		current.CouncilModels = append([]string{}, req.CouncilModels...)
	}
	if req.ChairmanModel != nil {
		current.ChairmanModel = *req.ChairmanModel
	}
	if req.TavilyAPIKey != nil {
		current.TavilyAPIKey = *req.TavilyAPIKey
	}
	if req.BraveAPIKey != nil {
		current.BraveAPIKey = *req.BraveAPIKey
	}
	if req.OpenRouterAPIKey != nil {
		current.OpenRouterAPIKey = *req.OpenRouterAPIKey
	}

	if err := writeSettingsLocked(current); err != nil {
		return nil, err
	}

	return current, nil
}

// MaskSettings converts stored settings to the public response shape.
// Key material never leaves the server; only set/unset flags do.
func MaskSettings(settings *Settings) SettingsResponse {
	return SettingsResponse{
		SearchProvider:      settings.SearchProvider,
		FullContentResults:  settings.FullContentResults,
		CouncilModels:       append([]string{}, settings.CouncilModels...),
		ChairmanModel:       settings.ChairmanModel,
		TavilyAPIKeySet:     settings.TavilyAPIKey != "",
		BraveAPIKeySet:      settings.BraveAPIKey != "",
		OpenRouterAPIKeySet: settings.OpenRouterAPIKey != "",
	}
}

// CurrentOpenRouterKey returns the OpenRouter key saved in settings when one
// exists, falling back to the environment-configured key.
func CurrentOpenRouterKey() string {
	settings, err := GetSettings()
	if err == nil && settings.OpenRouterAPIKey != "" {
		return settings.OpenRouterAPIKey
	}
	return OpenRouterAPIKey
}
