package main

import (
	"fmt"

	"github.com/jscience/grid/pkg/utils"
	"github.com/jscience/grid/pkg/worker"
	"github.com/spf13/viper"
)

// Reads the worker configuration from flags, environment and worker.yaml,
// fills in defaults and validates the result.
func LoadConfig() (*worker.WorkerConfig, error) {
	var config worker.WorkerConfig

	if err := utils.UnmarshalConfig(*viper.GetViper(), &config); err != nil {
		return nil, fmt.Errorf("worker configuration: %w", err)
	}

	config.SetDefaults()
	config.Log()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
