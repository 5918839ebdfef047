package medium

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/tickstore/address"
)

// SeedEntry describes a record to preload into a MemoryMedium.
type SeedEntry struct {
	Position address.Position `json:"position"`
	Slots    map[int]string   `json:"slots"`
}

// LoadSeed reads JSON seed data from disk. The file is expected to contain
// an array of SeedEntry objects.
func LoadSeed(path string) ([]SeedEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("medium: read seed: %w", err)
	}
	var entries []SeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("medium: decode seed: %w", err)
	}
	return entries, nil
}
