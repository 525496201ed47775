package main

import (
	"context"
	"fmt"
)

// MaskedKeyPlaceholder stands in for a stored API key. The server never
// returns key material, so a configured key renders as this sentinel until
// the user types over it. A value equal to the sentinel is never persisted.
const MaskedKeyPlaceholder = "••••••••"

// Key field identifiers
const (
	KeyTavily     = "tavily"
	KeyBrave      = "brave"
	KeyOpenRouter = "openrouter"
)

// KeyFieldState is the lifecycle state of one secret key input
type KeyFieldState int

const (
	KeyUnset KeyFieldState = iota
	KeyMasked
	KeyEditing
	KeyTestedOK
	KeyTestedFailed
)

// String returns a human-readable state name
func (s KeyFieldState) String() string {
	switch s {
	case KeyUnset:
		return "unset"
	case KeyMasked:
		return "masked"
	case KeyEditing:
		return "editing"
	case KeyTestedOK:
		return "tested-ok"
	case KeyTestedFailed:
		return "tested-failed"
	default:
		return "unknown"
	}
}

// KeyField tracks one secret input through its edit and test lifecycle
type KeyField struct {
	value       string
	state       KeyFieldState
	testMessage string
	testing     bool
}

// Value returns the current input buffer
func (f *KeyField) Value() string {
	return f.value
}

// State returns the field's lifecycle state
func (f *KeyField) State() KeyFieldState {
	return f.state
}

// TestMessage returns the message from the last key test, if any
func (f *KeyField) TestMessage() string {
	return f.testMessage
}

// load initializes the field from the persisted set/unset flag
func (f *KeyField) load(set bool) {
	f.testMessage = ""
	f.testing = false
	if set {
		f.value = MaskedKeyPlaceholder
		f.state = KeyMasked
	} else {
		f.value = ""
		f.state = KeyUnset
	}
}

// Type records user input. Any keystroke voids a previous test result.
func (f *KeyField) Type(value string) {
	f.value = value
	f.state = KeyEditing
	f.testMessage = ""
}

// pendingValue returns the value to persist and whether the user actually
// entered one. An empty buffer or the untouched mask means nothing changed.
func (f *KeyField) pendingValue() (string, bool) {
	if f.value == "" || f.value == MaskedKeyPlaceholder {
		return "", false
	}
	return f.value, true
}

// SettingsEditor reconciles persisted settings with local draft edits and
// the transient state of the secret key fields. Owned by the UI event loop;
// not safe for concurrent use.
type SettingsEditor struct {
	api     CouncilAPI
	catalog *ModelCatalog
	roster  *RosterEditor

	persisted *SettingsResponse

	searchProvider     string
	fullContentResults int

	tavilyKey     KeyField
	braveKey      KeyField
	openRouterKey KeyField

	loading bool
	saving  bool

	loadError string
	saveError string
}

// NewSettingsEditor creates a settings editor talking to the given API
func NewSettingsEditor(api CouncilAPI) *SettingsEditor {
	catalog := &ModelCatalog{}
	return &SettingsEditor{
		api:            api,
		catalog:        catalog,
		roster:         NewRosterEditor(api, catalog),
		searchProvider: ProviderDuckDuckGo,
	}
}

// Catalog returns the model catalog backing the editor's dropdowns
func (e *SettingsEditor) Catalog() *ModelCatalog {
	return e.catalog
}

// Roster returns the council roster editor
func (e *SettingsEditor) Roster() *RosterEditor {
	return e.roster
}

// Open loads persisted settings and then the model catalog. Settings come
// first so the roster has its values before the catalog-backed dropdowns
// populate. A failed load keeps whatever was shown before and records the
// error for the inline banner.
func (e *SettingsEditor) Open(ctx context.Context) error {
	if e.loading {
		return nil
	}
	e.loading = true
	defer func() { e.loading = false }()

	settings, err := e.api.GetSettings(ctx)
	if err != nil {
		e.loadError = fmt.Sprintf("Failed to load settings: %v", err)
		return err
	}
	e.apply(settings)

	models, err := e.api.GetModels(ctx)
	if err != nil {
		e.loadError = fmt.Sprintf("Failed to load models: %v", err)
		return err
	}
	e.catalog.Replace(models)

	e.loadError = ""
	return nil
}

// apply resets the draft to freshly persisted values
func (e *SettingsEditor) apply(s *SettingsResponse) {
	e.persisted = s
	e.searchProvider = s.SearchProvider
	e.fullContentResults = s.FullContentResults
	e.roster.Load(s.CouncilModels, s.ChairmanModel)
	e.tavilyKey.load(s.TavilyAPIKeySet)
	e.braveKey.load(s.BraveAPIKeySet)
	e.openRouterKey.load(s.OpenRouterAPIKeySet)
}

// SearchProvider returns the draft search provider
func (e *SettingsEditor) SearchProvider() string {
	return e.searchProvider
}

// SetSearchProvider updates the draft search provider
func (e *SettingsEditor) SetSearchProvider(provider string) {
	e.searchProvider = provider
}

// FullContentResults returns the draft full-article fetch count
func (e *SettingsEditor) FullContentResults() int {
	return e.fullContentResults
}

// SetFullContentResults updates the draft fetch count, clamped to the
// supported range
func (e *SettingsEditor) SetFullContentResults(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxFullContentResults {
		n = MaxFullContentResults
	}
	e.fullContentResults = n
}

// ShowsKeySection reports whether the current provider has an API key
// section at all. DuckDuckGo works without a key, so it has none.
func (e *SettingsEditor) ShowsKeySection() bool {
	return ProviderNeedsKey(e.searchProvider)
}

// ShowsFullContentControl reports whether the full-article-fetch setting
// applies to the current provider. Tavily results already include page
// content, so the control is hidden there.
func (e *SettingsEditor) ShowsFullContentControl() bool {
	return !ProviderIncludesFullContent(e.searchProvider)
}

// Key returns the field for one of the key identifiers, or nil for an
// unknown name
func (e *SettingsEditor) Key(name string) *KeyField {
	switch name {
	case KeyTavily:
		return &e.tavilyKey
	case KeyBrave:
		return &e.braveKey
	case KeyOpenRouter:
		return &e.openRouterKey
	}
	return nil
}

// TypeKey records input into a key field
func (e *SettingsEditor) TypeKey(name, value string) {
	if f := e.Key(name); f != nil {
		f.Type(value)
	}
}

// TestKey verifies the key currently typed into a field. An empty or still
// masked field fails locally, without a network call. Repeated triggers
// while a test is running are ignored.
func (e *SettingsEditor) TestKey(ctx context.Context, name string) {
	f := e.Key(name)
	if f == nil || f.testing {
		return
	}

	if f.value == "" || f.value == MaskedKeyPlaceholder {
		f.state = KeyTestedFailed
		f.testMessage = "Please enter an API key first"
		return
	}

	f.testing = true
	defer func() { f.testing = false }()

	var result KeyTestResponse
	var err error
	switch name {
	case KeyTavily:
		result, err = e.api.TestTavilyKey(ctx, f.value)
	case KeyBrave:
		result, err = e.api.TestBraveKey(ctx, f.value)
	case KeyOpenRouter:
		result, err = e.api.TestOpenRouterKey(ctx, f.value)
	}
	if err != nil {
		f.state = KeyTestedFailed
		f.testMessage = fmt.Sprintf("Test failed: %v", err)
		return
	}

	if result.Success {
		f.state = KeyTestedOK
	} else {
		f.state = KeyTestedFailed
	}
	f.testMessage = result.Message
}

// LoadError returns the persistent inline error from the last failed load
func (e *SettingsEditor) LoadError() string {
	return e.loadError
}

// SaveError returns the inline error from the last failed save
func (e *SettingsEditor) SaveError() string {
	return e.saveError
}

// Saving reports whether a save is in flight
func (e *SettingsEditor) Saving() bool {
	return e.saving
}

// Save persists the draft. The non-secret fields always travel; key fields
// only when the user typed a fresh value, so untouched masks and empty
// inputs never reach the server. An empty council roster refuses the save
// outright. After a successful save the key buffers are dropped and the
// editor reloads from the returned settings, re-deriving the placeholders
// from fresh set/unset flags. A failed save leaves the whole draft intact.
func (e *SettingsEditor) Save(ctx context.Context) error {
	if e.saving {
		return nil
	}

	members := e.roster.Members()
	if len(members) == 0 {
		e.saveError = "At least one council model is required"
		return fmt.Errorf("council roster is empty")
	}

	e.saving = true
	defer func() { e.saving = false }()

	provider := e.searchProvider
	fullContent := e.fullContentResults
	chairman := e.roster.Chairman()
	req := &UpdateSettingsRequest{
		SearchProvider:     &provider,
		FullContentResults: &fullContent,
		CouncilModels:      members,
		ChairmanModel:      &chairman,
	}
	if v, ok := e.tavilyKey.pendingValue(); ok {
		req.TavilyAPIKey = &v
	}
	if v, ok := e.braveKey.pendingValue(); ok {
		req.BraveAPIKey = &v
	}
	if v, ok := e.openRouterKey.pendingValue(); ok {
		req.OpenRouterAPIKey = &v
	}

	updated, err := e.api.UpdateSettings(ctx, req)
	if err != nil {
		e.saveError = fmt.Sprintf("Failed to save settings: %v", err)
		return err
	}

	e.apply(updated)
	e.saveError = ""
	return nil
}
