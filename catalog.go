package main

// ModelCatalog holds the models available for council membership. The catalog
// is replaced wholesale on every load; there is no incremental sync. The zero
// value is an empty catalog.
//
// Like the rest of the session layer it is owned by the event loop driving
// the UI and is not safe for concurrent use.
type ModelCatalog struct {
	models []Model
}

// Replace swaps the catalog contents for a freshly fetched model list
func (mc *ModelCatalog) Replace(models []Model) {
	mc.models = make([]Model, len(models))
	copy(mc.models, models)
}

// All returns every catalog entry in listing order
func (mc *ModelCatalog) All() []Model {
	out := make([]Model, len(mc.models))
	copy(out, mc.models)
	return out
}

// Free returns the free-tier models only
func (mc *ModelCatalog) Free() []Model {
	var out []Model
	for _, m := range mc.models {
		if m.IsFree {
			out = append(out, m)
		}
	}
	return out
}

// Paid returns the paid models only
func (mc *ModelCatalog) Paid() []Model {
	var out []Model
	for _, m := range mc.models {
		if !m.IsFree {
			out = append(out, m)
		}
	}
	return out
}

// Lookup finds a model by ID
func (mc *ModelCatalog) Lookup(id string) (Model, bool) {
	for _, m := range mc.models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Len returns the number of models in the catalog
func (mc *ModelCatalog) Len() int {
	return len(mc.models)
}
