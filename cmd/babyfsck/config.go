package main

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const envVarPrefix = "BABYFS"

// Config carries the checker's defaults, loadable from a YAML file and
// overridable from the environment.
type Config struct {
	ImageDir string `envconfig:"BABYFS_IMAGE_DIR" yaml:"imageDir"`
	LogLevel string `envconfig:"BABYFS_LOG_LEVEL" default:"error"    yaml:"logLevel"`
}

func LoadConfig() (*Config, error) {
	config := new(Config)

	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, _ := os.UserHomeDir()
		configFile = filepath.Join(home, ".babyfsck.yaml")
	}

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(envVarPrefix, config); err != nil {
		return nil, err
	}

	return config, nil
}
