// Package config loads and validates diffanalyze configuration from an
// optional YAML file and DIFFANALYZE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers = errors.New("analysis workers must not be negative")
	ErrInvalidTimeout = errors.New("extractor timeout must be positive")
)

// Default configuration values.
const (
	defaultWorkers          = 4
	defaultExtractorTimeout = 30 * time.Second
	defaultCloneDirectory   = "repo"
)

// Config holds all configuration for diffanalyze.
type Config struct {
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Clone     CloneConfig     `mapstructure:"clone"`
}

// ExtractorConfig configures the external symbol extractor.
type ExtractorConfig struct {
	// Path overrides PATH lookup of the ctags executable.
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AnalysisConfig configures the attribution pipeline.
type AnalysisConfig struct {
	// Workers bounds concurrent extractor processes per commit.
	Workers int `mapstructure:"workers"`
	// Languages restricts attribution eligibility. Empty means the
	// extractor's supported set.
	Languages []string `mapstructure:"languages"`
	// PathFilter is an optional regexp restricting which files are
	// considered.
	PathFilter string `mapstructure:"path_filter"`
}

// CloneConfig configures where remote repositories are cloned.
type CloneConfig struct {
	Directory string `mapstructure:"directory"`
}

// Load reads configuration. With an empty path the file is searched as
// .diffanalyze.yaml in the working directory and $HOME; a missing file is not
// an error.
func Load(path string) (*Config, error) {
	viperCfg := viper.New()

	viperCfg.SetDefault("extractor.timeout", defaultExtractorTimeout)
	viperCfg.SetDefault("analysis.workers", defaultWorkers)
	viperCfg.SetDefault("clone.directory", defaultCloneDirectory)

	viperCfg.SetEnvPrefix("DIFFANALYZE")
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if path != "" {
		viperCfg.SetConfigFile(path)
	} else {
		viperCfg.SetConfigName(".diffanalyze")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	err := viperCfg.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	err = viperCfg.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Analysis.Workers)
	}

	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Extractor.Timeout)
	}

	return nil
}
