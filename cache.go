package main

import (
	"sync"
	"time"
)

// ModelsCache provides thread-safe caching for the OpenRouter model catalog.
// The catalog changes rarely, so one upstream fetch per TTL is plenty.
type ModelsCache struct {
	mu          sync.RWMutex
	models      []Model
	lastUpdated time.Time
	ttl         time.Duration
}

// NewModelsCache creates a new model catalog cache with the specified TTL
func NewModelsCache(ttl time.Duration) *ModelsCache {
	return &ModelsCache{
		ttl: ttl,
	}
}

// Get retrieves the catalog from cache if not expired
// Returns the models and a boolean indicating if the cache hit was successful
func (c *ModelsCache) Get() ([]Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Check if cache is empty
	if len(c.models) == 0 {
		return nil, false
	}

	// Check if cache has expired
	if time.Since(c.lastUpdated) > c.ttl {
		return nil, false
	}

	// Return cached models (make a copy to prevent external modifications)
	modelsCopy := make([]Model, len(c.models))
	copy(modelsCopy, c.models)

	return modelsCopy, true
}

// Set updates the cache with a freshly fetched catalog
func (c *ModelsCache) Set(models []Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Store models (make a copy to prevent external modifications)
	c.models = make([]Model, len(models))
	copy(c.models, models)
	c.lastUpdated = time.Now()
}

// Clear removes all models from the cache
func (c *ModelsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = nil
	c.lastUpdated = time.Time{}
}

// GetLastUpdated returns when the cache was last updated
func (c *ModelsCache) GetLastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdated
}

// IsExpired checks if the cache has expired
func (c *ModelsCache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.models) == 0 {
		return true
	}

	return time.Since(c.lastUpdated) > c.ttl
}

// GetSize returns the number of models in the cache
func (c *ModelsCache) GetSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.models)
}
