package medium

import "fmt"

// Medium kinds accepted by Config.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindBolt   = "bolt"
)

// Config selects and parameterizes a backend.
type Config struct {
	Kind       string `json:"kind,omitempty"`        // memory, file or bolt.
	Path       string `json:"path,omitempty"`        // Root directory (file) or database file (bolt).
	RegionSize int    `json:"region_size,omitempty"` // Memory only; 0 keeps every region available.
	Seed       string `json:"seed,omitempty"`        // Memory only; JSON seed file.
}

// DefaultConfig returns an in-memory configuration with regions disabled.
func DefaultConfig() Config {
	return Config{Kind: KindMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Kind != "" {
		c.Kind = source.Kind
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.RegionSize > 0 {
		c.RegionSize = source.RegionSize
	}
	if source.Seed != "" {
		c.Seed = source.Seed
	}
}

// New creates the backend described by cfg.
func New(cfg *Config) (Backend, error) {
	switch cfg.Kind {
	case KindMemory, "":
		var opts []MemoryOption
		if cfg.RegionSize > 0 {
			opts = append(opts, WithRegions(cfg.RegionSize))
		}
		m := NewMemoryMedium(opts...)
		entries, err := LoadSeed(cfg.Seed)
		if err != nil {
			return nil, err
		}
		if err := m.Seed(entries); err != nil {
			return nil, err
		}
		return m, nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("medium: file backend requires a path")
		}
		return NewFileMedium(cfg.Path), nil
	case KindBolt:
		if cfg.Path == "" {
			return nil, fmt.Errorf("medium: bolt backend requires a path")
		}
		b, err := OpenBoltMedium(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Kind)
	}
}
