package blocksource

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

var (
	ErrBlockchainIDRequired = errors.New("blockchain ID is required but was not set")
	ErrTableRequired        = errors.New("blocks table is required but was not set")
)

// Config selects the table and chain a Source reads from.
type Config struct {
	Database     string `env:"BLOCKSOURCE_DATABASE" envDefault:"default"`
	Table        string `env:"BLOCKSOURCE_TABLE" envDefault:"raw_blocks"`
	BlockchainID string `env:"BLOCKSOURCE_BLOCKCHAIN_ID"`
}

// LoadConfig loads the block source configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse block source config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BlockchainID == "" {
		return ErrBlockchainIDRequired
	}
	if c.Table == "" {
		return ErrTableRequired
	}
	return nil
}
