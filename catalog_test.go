package main

import (
	"testing"
)

// TestModelCatalog tests the catalog filters and lookups
func TestModelCatalog(t *testing.T) {
	t.Run("zero value is empty", func(t *testing.T) {
		var catalog ModelCatalog

		if catalog.Len() != 0 {
			t.Errorf("Len() = %d, want 0", catalog.Len())
		}
		if len(catalog.All()) != 0 {
			t.Errorf("All() returned %d models, want 0", len(catalog.All()))
		}
		if _, ok := catalog.Lookup("openai/gpt-5.1"); ok {
			t.Error("Lookup should miss on an empty catalog")
		}
	})

	t.Run("replace and list", func(t *testing.T) {
		var catalog ModelCatalog
		catalog.Replace(sampleCatalogModels())

		if catalog.Len() != 4 {
			t.Errorf("Len() = %d, want 4", catalog.Len())
		}

		all := catalog.All()
		if len(all) != 4 {
			t.Fatalf("All() returned %d models, want 4", len(all))
		}
		// Listing order is preserved
		if all[0].ID != "openai/gpt-5.1" {
			t.Errorf("All()[0].ID = %q, want 'openai/gpt-5.1'", all[0].ID)
		}
	})

	t.Run("free and paid filters", func(t *testing.T) {
		var catalog ModelCatalog
		catalog.Replace(sampleCatalogModels())

		free := catalog.Free()
		if len(free) != 2 {
			t.Fatalf("Free() returned %d models, want 2", len(free))
		}
		for _, m := range free {
			if !m.IsFree {
				t.Errorf("Free() returned paid model %s", m.ID)
			}
		}

		paid := catalog.Paid()
		if len(paid) != 2 {
			t.Fatalf("Paid() returned %d models, want 2", len(paid))
		}
		for _, m := range paid {
			if m.IsFree {
				t.Errorf("Paid() returned free model %s", m.ID)
			}
		}
	})

	t.Run("lookup", func(t *testing.T) {
		var catalog ModelCatalog
		catalog.Replace(sampleCatalogModels())

		m, ok := catalog.Lookup("meta/llama-3:free")
		if !ok {
			t.Fatal("Lookup should find an existing model")
		}
		if m.Name != "Llama 3" {
			t.Errorf("Name = %q, want 'Llama 3'", m.Name)
		}

		if _, ok := catalog.Lookup("unknown/model"); ok {
			t.Error("Lookup should miss on an unknown ID")
		}
	})

	t.Run("replace is wholesale", func(t *testing.T) {
		var catalog ModelCatalog
		catalog.Replace(sampleCatalogModels())
		catalog.Replace([]Model{{ID: "only/one", Name: "Only One"}})

		if catalog.Len() != 1 {
			t.Errorf("Len() = %d, want 1 after replace", catalog.Len())
		}
		if _, ok := catalog.Lookup("openai/gpt-5.1"); ok {
			t.Error("Old models should be gone after replace")
		}
	})

	t.Run("callers cannot mutate the catalog", func(t *testing.T) {
		var catalog ModelCatalog
		source := sampleCatalogModels()
		catalog.Replace(source)

		// Neither the input slice nor a returned slice is shared
		source[0].ID = "mutated/input"
		out := catalog.All()
		out[1].ID = "mutated/output"

		if m, _ := catalog.Lookup("openai/gpt-5.1"); m.ID != "openai/gpt-5.1" {
			t.Error("Catalog should be unaffected by input slice mutation")
		}
		fresh := catalog.All()
		if fresh[1].ID != "google/gemini-3-pro-preview" {
			t.Errorf("All()[1].ID = %q, want 'google/gemini-3-pro-preview'", fresh[1].ID)
		}
	})
}
