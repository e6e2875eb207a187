// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

const (
	BackendMemory  = "memory"
	BackendDurable = "durable"

	ShelfFile = "file"
	ShelfBolt = "bolt"
)

// Config selects and configures a PropertyManager.
type Config struct {
	// Backend is BackendMemory (the default) or BackendDurable.
	Backend string `mapstructure:"backend"`
	// StoragePath is where a durable backend keeps its shelf.
	StoragePath string `mapstructure:"storage_path"`
	// Shelf is ShelfFile (the default) or ShelfBolt.
	Shelf string `mapstructure:"shelf"`
	// ReadOnly opens the shelf for reading only.
	ReadOnly bool `mapstructure:"read_only"`
	// Verbose is the diagnostic level, see WithVerbose.
	Verbose int `mapstructure:"verbose"`
}

// DecodeConfig builds a Config out of generic settings, such as those read
// from a configuration file. Unknown keys are an error.
func DecodeConfig(raw map[string]any) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("propstore: decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the backend and shelf are known, and that a durable
// backend has somewhere to live.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory:
	case BackendDurable:
		if c.StoragePath == "" {
			return fmt.Errorf("propstore: backend %q needs a storage_path", c.Backend)
		}
	default:
		return fmt.Errorf("propstore: unknown backend %q", c.Backend)
	}
	if _, err := c.shelfOpener(); err != nil {
		return err
	}
	return nil
}

func (c Config) shelfOpener() (ShelfOpener, error) {
	switch c.Shelf {
	case "", ShelfFile:
		if c.ReadOnly {
			return OpenFileShelfReadOnly, nil
		}
		return OpenFileShelf, nil
	case ShelfBolt:
		if c.ReadOnly {
			return OpenBoltShelfReadOnly, nil
		}
		return OpenBoltShelf, nil
	default:
		return nil, fmt.Errorf("propstore: unknown shelf %q", c.Shelf)
	}
}

// New returns the PropertyManager described by cfg. Options given here take
// precedence over those derived from cfg.
func New[V any](cfg Config, opts ...Option) (PropertyManager[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithVerbose(cfg.Verbose)}, opts...)

	if cfg.Backend == BackendDurable {
		open, err := cfg.shelfOpener()
		if err != nil {
			return nil, err
		}
		m, err := NewDurable[V](cfg.StoragePath, append([]Option{WithShelf(open)}, opts...)...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return NewMemory[V](opts...), nil
}
