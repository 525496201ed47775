// +build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Simple test program to verify the council client and settings editor work
// against a running backend. Start the server first, then:
// Run with: go run test_council_client.go client.go models.go settings.go roster.go catalog.go search.go storage.go config.go
func main() {
	fmt.Println("=== Council Client Test ===\n")

	client := NewCouncilClient("http://localhost:8001")
	ctx := context.Background()

	// Test 1: Fetch settings
	fmt.Println("Test 1: Fetching settings...")
	start := time.Now()
	settings, err := client.GetSettings(ctx)
	elapsed := time.Since(start)

	if err != nil {
		log.Fatalf("❌ GetSettings failed (is the backend running on :8001?): %v", err)
	}

	fmt.Printf("✅ Success! (%.2fs)\n", elapsed.Seconds())
	fmt.Printf("Search provider: %s\n", settings.SearchProvider)
	fmt.Printf("Council models: %d\n", len(settings.CouncilModels))
	fmt.Printf("OpenRouter key set: %v\n\n", settings.OpenRouterAPIKeySet)

	// Test 2: Fetch model catalog
	fmt.Println("Test 2: Fetching model catalog...")
	start = time.Now()
	models, err := client.GetModels(ctx)
	elapsed = time.Since(start)

	if err != nil {
		log.Fatalf("❌ GetModels failed: %v", err)
	}

	freeCount := 0
	for _, m := range models {
		if m.IsFree {
			freeCount++
		}
	}
	fmt.Printf("✅ Success! (%.2fs)\n", elapsed.Seconds())
	fmt.Printf("Models: %d total, %d free\n\n", len(models), freeCount)

	// Test 3: Drive the settings editor end to end
	fmt.Println("Test 3: Opening settings editor...")
	editor := NewSettingsEditor(client)
	if err := editor.Open(ctx); err != nil {
		log.Fatalf("❌ Editor load failed: %s", editor.LoadError())
	}

	roster := editor.Roster()
	fmt.Printf("✅ Editor loaded: %d council members, chairman %s\n", len(roster.Members()), roster.Chairman())

	roster.SetFreeOnly(true)
	fmt.Printf("Free-only member options: %d\n", len(roster.MemberOptions()))
	roster.SetFreeOnly(false)

	// A key test with nothing typed must fail locally, without a request
	editor.TestKey(ctx, KeyTavily)
	if field := editor.Key(KeyTavily); field != nil {
		fmt.Printf("Empty key test: state=%s message=%q\n", field.State(), field.TestMessage())
	}

	// Save the unchanged draft; the editor reloads from the response
	if err := editor.Save(ctx); err != nil {
		log.Fatalf("❌ Save failed: %s", editor.SaveError())
	}
	fmt.Printf("✅ Save round-trip succeeded\n")

	fmt.Println("\n=== Test Complete ===")
}
