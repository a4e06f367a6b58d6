// Package config provides configuration loading for the txncat service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mchalk/txncat/internal/common"
)

// Defaults for the HTTP server and model loading.
const (
	DefaultAddress           = "127.0.0.1:8010"
	DefaultMaxSequenceLength = 512
)

// Config is the resolved service configuration.
type Config struct {
	Server ServerConfig
	Model  ModelConfig
	Fina   FinaConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address string
}

// ModelConfig locates the local classification model.
type ModelConfig struct {
	// Path is a directory holding model.onnx, tokenizer.json and config.json.
	Path string
	// ONNXRuntimeLibrary optionally points at the ONNX Runtime shared library.
	ONNXRuntimeLibrary string
	MaxSequenceLength  int
}

// FinaConfig holds upstream categorization API settings. Empty credential
// fields fall back to the fina package defaults.
type FinaConfig struct {
	URL       string
	APIKey    string
	PartnerID string
	Timeout   time.Duration
}

// Load resolves configuration from Viper (config file plus TXNCAT_ env vars).
func Load() (*Config, error) {
	viper.SetDefault("server.address", DefaultAddress)
	viper.SetDefault("model.max_sequence_length", DefaultMaxSequenceLength)

	cfg := &Config{
		Server: ServerConfig{
			Address: viper.GetString("server.address"),
		},
		Model: ModelConfig{
			Path:               ExpandPath(viper.GetString("model.path")),
			ONNXRuntimeLibrary: ExpandPath(viper.GetString("model.onnxruntime_library")),
			MaxSequenceLength:  viper.GetInt("model.max_sequence_length"),
		},
		Fina: FinaConfig{
			URL:       viper.GetString("fina.url"),
			APIKey:    viper.GetString("fina.api_key"),
			PartnerID: viper.GetString("fina.partner_id"),
			Timeout:   viper.GetDuration("fina.timeout"),
		},
	}

	if cfg.Server.Address == "" {
		return nil, fmt.Errorf("server.address: %w", common.ErrInvalidConfig)
	}
	if cfg.Model.MaxSequenceLength <= 0 {
		return nil, fmt.Errorf("model.max_sequence_length must be positive: %w", common.ErrInvalidConfig)
	}

	return cfg, nil
}

// ValidateModel checks that the model directory is configured. Commands that
// run local inference call this before loading the backend.
func (c *Config) ValidateModel() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path: %w", common.ErrMissingConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
