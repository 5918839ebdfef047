package store

import (
	"fmt"

	"github.com/tailored-agentic-units/tickstore/address"
	"github.com/tailored-agentic-units/tickstore/medium"
)

const (
	// MaxSlotCount is the number of value slots per key; one record slot
	// holds the key tag.
	MaxSlotCount = medium.RecordCapacity - 1

	// MaxDescriptionLength bounds keys and values, in characters.
	MaxDescriptionLength = 476

	// RateCeiling is the measured number of medium reads per agent per cycle
	// above which the medium starts rejecting calls. PerAgentLimit must stay
	// below it.
	RateCeiling = 276

	defaultAgents = 1
)

// Config holds engine parameters. YLimit and Base are part of the storage
// format together with the address package constants.
type Config struct {
	YLimit        int               `json:"y_limit,omitempty"`
	PerAgentLimit int               `json:"per_agent_limit,omitempty"`
	Agents        int               `json:"agents,omitempty"`
	Base          *address.Position `json:"base,omitempty"`
	Observer      string            `json:"observer,omitempty"`
}

// DefaultConfig returns a Config with one agent, a 32-deep probe chain and a
// per-agent budget of one full chain plus one.
func DefaultConfig() Config {
	base := address.DefaultBase
	return Config{
		YLimit:        address.DefaultYLimit,
		PerAgentLimit: address.DefaultYLimit + 1,
		Agents:        defaultAgents,
		Base:          &base,
		Observer:      "slog",
	}
}

// Merge applies non-zero values from source into c. Raising YLimit without
// an explicit PerAgentLimit lifts the per-agent limit to YLimit+1 when it
// would otherwise no longer cover a full chain.
func (c *Config) Merge(source *Config) {
	if source.YLimit > 0 {
		c.YLimit = source.YLimit
		if source.PerAgentLimit == 0 && c.PerAgentLimit <= c.YLimit {
			c.PerAgentLimit = c.YLimit + 1
		}
	}
	if source.PerAgentLimit > 0 {
		c.PerAgentLimit = source.PerAgentLimit
	}
	if source.Agents > 0 {
		c.Agents = source.Agents
	}
	if source.Base != nil {
		base := *source.Base
		c.Base = &base
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// Validate checks the budget invariants: at least one full probe chain per
// agent per cycle, and never at or above the medium's rate ceiling.
func (c *Config) Validate() error {
	if c.YLimit <= 0 {
		return fmt.Errorf("%w: y_limit must be positive, got %d", ErrInvalidConfig, c.YLimit)
	}
	if c.PerAgentLimit <= c.YLimit {
		return fmt.Errorf("%w: per_agent_limit %d must exceed y_limit %d", ErrInvalidConfig, c.PerAgentLimit, c.YLimit)
	}
	if c.PerAgentLimit >= RateCeiling {
		return fmt.Errorf("%w: per_agent_limit %d must stay below %d", ErrInvalidConfig, c.PerAgentLimit, RateCeiling)
	}
	if c.Agents < 0 {
		return fmt.Errorf("%w: agents must not be negative, got %d", ErrInvalidConfig, c.Agents)
	}
	return nil
}

func (c *Config) base() address.Position {
	if c.Base == nil {
		return address.DefaultBase
	}
	return *c.Base
}
