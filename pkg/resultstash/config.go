package resultstash

import (
	"fmt"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/afero"
)

type Config struct {
	// Maximum size of the stash.
	// When the size is exceeded, least recently used results are removed.
	// Supported suffixes: K, Ki, M, Mi, G, Gi, ...
	Size string `mapstructure:"size"`
	// Storage type: "memory" or "disk"
	StorageType string `mapstructure:"storage"`
	// Path to store result files (for disk storage)
	Path string `mapstructure:"path"`
}

func (c *Config) MaxSize() int64 {
	size, _ := utils.ParseSize(c.Size)
	return size
}

func (c *Config) SetDefaults() {
	if c.StorageType == "" {
		c.StorageType = "memory"
	}
	if c.Size == "" {
		c.Size = "1GiB"
	}
}

func (c *Config) Validate() error {
	if _, err := utils.ParseSize(c.Size); err != nil {
		return fmt.Errorf("invalid result stash size: %w", err)
	}
	switch c.StorageType {
	case "memory":
	case "disk":
		if c.Path == "" {
			return fmt.Errorf("no path configured for result stash disk storage")
		}
	default:
		return fmt.Errorf("invalid result stash storage type configured: %s", c.StorageType)
	}
	return nil
}

func (c *Config) CreateFs() (utils.Fs, error) {
	switch c.StorageType {
	case "disk":
		if c.Path == "" {
			return nil, fmt.Errorf("no path configured for result stash disk storage")
		}

		os := afero.NewOsFs()
		if err := os.MkdirAll(c.Path, 0o777); err != nil {
			return nil, err
		}

		log.Info("Results stored in", c.Path)
		return afero.NewBasePathFs(os, c.Path), nil

	case "", "memory":
		log.Info("Results stored in memory")
		return afero.NewMemMapFs(), nil

	default:
		return nil, fmt.Errorf("invalid result stash storage type configured: %s", c.StorageType)
	}
}

func (c *Config) Log() {
	log.Info("  Result stash configuration:")
	log.Infof("    storage = %s", c.StorageType)
	log.Infof("    size = %s", utils.HumanByteSize(c.MaxSize()))
	if c.StorageType == "disk" {
		log.Infof("    path = %s", c.Path)
	}
}
