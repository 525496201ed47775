package main

import (
	"context"
	"fmt"
)

// ChairmanOption is one entry of the chairman dropdown. NotRecommended marks
// a free model that is only listed because a legacy settings file still has
// it selected.
type ChairmanOption struct {
	Model          Model
	NotRecommended bool
}

// RosterEditor edits a draft council roster against the current model
// catalog. Edits stay local until the settings are saved. Owned by the UI
// event loop; not safe for concurrent use.
type RosterEditor struct {
	api     CouncilAPI
	catalog *ModelCatalog

	members  []string
	chairman string
	freeOnly bool

	resetting bool
}

// NewRosterEditor creates a roster editor backed by the given API and catalog
func NewRosterEditor(api CouncilAPI, catalog *ModelCatalog) *RosterEditor {
	return &RosterEditor{
		api:     api,
		catalog: catalog,
	}
}

// Load replaces the draft with persisted roster values
func (e *RosterEditor) Load(councilModels []string, chairman string) {
	e.members = make([]string, len(councilModels))
	copy(e.members, councilModels)
	e.chairman = chairman
}

// Members returns a copy of the draft roster
func (e *RosterEditor) Members() []string {
	out := make([]string, len(e.members))
	copy(out, e.members)
	return out
}

// Chairman returns the draft chairman selection
func (e *RosterEditor) Chairman() string {
	return e.chairman
}

// SetChairman updates the draft chairman selection
func (e *RosterEditor) SetChairman(modelID string) {
	e.chairman = modelID
}

// FreeOnly reports whether the free-models-only filter is active
func (e *RosterEditor) FreeOnly() bool {
	return e.freeOnly
}

// SetFreeOnly toggles the free-models-only filter for the member slots
func (e *RosterEditor) SetFreeOnly(on bool) {
	e.freeOnly = on
}

// SetMember assigns a model to slot i. Out-of-range slots are ignored.
// The same model may fill several slots.
func (e *RosterEditor) SetMember(i int, modelID string) {
	if i < 0 || i >= len(e.members) {
		return
	}
	e.members[i] = modelID
}

// AddMember appends a new slot preset to the first selectable model.
// Nothing happens when the (possibly filtered) catalog is empty.
func (e *RosterEditor) AddMember() {
	options := e.MemberOptions()
	if len(options) == 0 {
		return
	}
	e.members = append(e.members, options[0].ID)
}

// RemoveMember deletes slot i and reports whether it did. The last remaining
// member cannot be removed: a council needs at least one model.
func (e *RosterEditor) RemoveMember(i int) bool {
	if i < 0 || i >= len(e.members) {
		return false
	}
	if len(e.members) == 1 {
		return false
	}
	e.members = append(e.members[:i], e.members[i+1:]...)
	return true
}

// ResetToDefaults replaces the draft roster and chairman with the
// server-configured defaults
func (e *RosterEditor) ResetToDefaults(ctx context.Context) error {
	if e.resetting {
		return nil
	}
	e.resetting = true
	defer func() { e.resetting = false }()

	defaults, err := e.api.GetDefaultSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load default settings: %w", err)
	}

	e.Load(defaults.CouncilModels, defaults.ChairmanModel)
	return nil
}

// MemberOptions returns the models selectable in a council slot: the whole
// catalog, or only the free models when the filter is on.
func (e *RosterEditor) MemberOptions() []Model {
	if e.freeOnly {
		return e.catalog.Free()
	}
	return e.catalog.All()
}

// ChairmanOptions returns the models selectable as chairman. Synthesis needs
// a capable model, so only paid models are offered. A free chairman from a
// legacy settings file stays listed while selected, flagged not recommended,
// and drops out as soon as the selection moves off it.
func (e *RosterEditor) ChairmanOptions() []ChairmanOption {
	paid := e.catalog.Paid()
	options := make([]ChairmanOption, 0, len(paid)+1)
	for _, m := range paid {
		options = append(options, ChairmanOption{Model: m})
	}
	if m, ok := e.catalog.Lookup(e.chairman); ok && m.IsFree {
		options = append(options, ChairmanOption{Model: m, NotRecommended: true})
	}
	return options
}
