package credentials

import "sync"

// Entry holds the provider credentials stored for a region
type Entry struct {
	AccessKeyID string `json:"accessKeyID" yaml:"accessKeyID"`
	SecretKey   string `json:"secretKey" yaml:"secretKey"`
}

// Store looks up stored credentials by region
type Store interface {
	// Lookup returns the entry for region and whether one exists
	Lookup(region string) (Entry, bool)
}

// Memory is a Store backed by a map
type Memory struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// NewMemory creates a Memory store seeded with entries
func NewMemory(entries map[string]Entry) *Memory {
	m := &Memory{entries: make(map[string]Entry, len(entries))}
	for region, entry := range entries {
		m.entries[region] = entry
	}
	return m
}

// Lookup returns the entry for region
func (m *Memory) Lookup(region string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[region]
	return entry, ok
}

// Set stores entry for region
func (m *Memory) Set(region string, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[region] = entry
}
