// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "DETECTIVE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for analyst workstations.
	Development Environment = "development"
	// Production is for shared scanning hosts.
	Production Environment = "production"
)

// Config is the master configuration for Detective.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Paths configures file and directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Digest selects the hash algorithm and digest size.
	Digest DigestConfig `yaml:"digest"`

	// Analysis configures variant detection.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Batch configures parallel hashing and scanning.
	Batch BatchConfig `yaml:"batch"`

	// Compat holds switches for importing legacy data.
	Compat CompatConfig `yaml:"compat"`

	// Quarantine configures the encrypted sample vault.
	Quarantine QuarantineConfig `yaml:"quarantine"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Analysis   *AnalysisConfig   `yaml:"analysis,omitempty"`
	Batch      *BatchConfig      `yaml:"batch,omitempty"`
	Compat     *CompatConfig     `yaml:"compat,omitempty"`
	Quarantine *QuarantineConfig `yaml:"quarantine,omitempty"`
}

// PathsConfig configures file and directory locations.
type PathsConfig struct {
	// Root is the base directory for Detective data.
	Root string `yaml:"root"`

	// Catalog is the SQLite signature catalog.
	// Default: ${DETECTIVE_ROOT}/catalog.db
	Catalog string `yaml:"catalog"`

	// Samples is where quarantined samples are stored.
	// Default: ${DETECTIVE_ROOT}/samples
	Samples string `yaml:"samples"`
}

// DigestConfig selects the hash function.
type DigestConfig struct {
	// Algorithm is "blake3" or "blake2b".
	Algorithm string `yaml:"algorithm"`

	// Size is the digest size in bytes, 1 through 64.
	Size int `yaml:"size"`
}

// AnalysisConfig configures variant detection.
type AnalysisConfig struct {
	// Threshold is the minimum similarity reported by analyze.
	// Default: 0.85
	Threshold float64 `yaml:"threshold"`

	// HashLength is the number of leading digest bytes compared.
	// Zero compares the full target length.
	HashLength int `yaml:"hash_length"`

	// By selects what analyze compares: "fingerprint" (content
	// fingerprints, meaningful for variants) or "digest".
	By string `yaml:"by"`

	// Bands are the verdict boundaries used by compare and analyze.
	Bands BandsConfig `yaml:"bands"`
}

// BandsConfig holds the minimum score for each verdict.
type BandsConfig struct {
	Identical float64 `yaml:"identical"`
	Variant   float64 `yaml:"variant"`
	Related   float64 `yaml:"related"`
}

// BatchConfig configures parallelism.
type BatchConfig struct {
	// Workers bounds worker goroutines. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// CompatConfig holds legacy-compatibility switches.
type CompatConfig struct {
	// LossyHex stores signatures with unparseable hex as empty
	// digests instead of rejecting them.
	LossyHex bool `yaml:"lossy_hex"`
}

// QuarantineConfig configures the sample vault.
type QuarantineConfig struct {
	// Enabled stores an encrypted copy of each added sample.
	Enabled bool `yaml:"enabled"`

	// IdentityFile holds the vault's age identity. It is created
	// with mode 0600 on first use.
	// Default: ${DETECTIVE_ROOT}/quarantine.key
	IdentityFile string `yaml:"identity_file"`
}

// Analysis values accepted in AnalysisConfig.By.
const (
	ByFingerprint = "fingerprint"
	ByDigest      = "digest"
)

// Default returns the default configuration. LoadFile merges the file
// over these values, and Resolve uses them when no file is configured.
// Derived paths reference ${DETECTIVE_ROOT}, so overriding paths.root
// alone moves everything.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "detective")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:    defaultRoot,
			Catalog: "${DETECTIVE_ROOT}/catalog.db",
			Samples: "${DETECTIVE_ROOT}/samples",
		},
		Digest: DigestConfig{
			Algorithm: "blake3",
			Size:      32,
		},
		Analysis: AnalysisConfig{
			Threshold: 0.85,
			By:        ByFingerprint,
			Bands: BandsConfig{
				Identical: 0.95,
				Variant:   0.85,
				Related:   0.70,
			},
		},
		Quarantine: QuarantineConfig{
			Enabled:      true,
			IdentityFile: "${DETECTIVE_ROOT}/quarantine.key",
		},
	}
}

// Load loads configuration from the DETECTIVE_CONFIG environment
// variable. It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your detective.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// Resolve returns the configuration the CLI should run with: the file
// at path if non-empty, else the file named by DETECTIVE_CONFIG, else
// Default with variables expanded.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path.
//
// The file is the single source of truth. The only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{}
		}
		// Production never stores unparseable signatures, whatever
		// the base section says.
		c.Compat.LossyHex = false
		if overrides.Compat != nil {
			overrides.Compat.LossyHex = false
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Catalog != "" {
			c.Paths.Catalog = overrides.Paths.Catalog
		}
		if overrides.Paths.Samples != "" {
			c.Paths.Samples = overrides.Paths.Samples
		}
	}

	if overrides.Analysis != nil {
		if overrides.Analysis.Threshold != 0 {
			c.Analysis.Threshold = overrides.Analysis.Threshold
		}
		if overrides.Analysis.HashLength != 0 {
			c.Analysis.HashLength = overrides.Analysis.HashLength
		}
		if overrides.Analysis.By != "" {
			c.Analysis.By = overrides.Analysis.By
		}
		if overrides.Analysis.Bands.Identical != 0 {
			c.Analysis.Bands.Identical = overrides.Analysis.Bands.Identical
		}
		if overrides.Analysis.Bands.Variant != 0 {
			c.Analysis.Bands.Variant = overrides.Analysis.Bands.Variant
		}
		if overrides.Analysis.Bands.Related != 0 {
			c.Analysis.Bands.Related = overrides.Analysis.Bands.Related
		}
	}

	if overrides.Batch != nil && overrides.Batch.Workers != 0 {
		c.Batch.Workers = overrides.Batch.Workers
	}

	if overrides.Compat != nil {
		// LossyHex is a bool, so it is always applied from overrides.
		c.Compat.LossyHex = overrides.Compat.LossyHex
	}

	if overrides.Quarantine != nil {
		c.Quarantine.Enabled = overrides.Quarantine.Enabled
		if overrides.Quarantine.IdentityFile != "" {
			c.Quarantine.IdentityFile = overrides.Quarantine.IdentityFile
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DETECTIVE_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["DETECTIVE_ROOT"] = c.Paths.Root

	c.Paths.Catalog = expandVars(c.Paths.Catalog, vars)
	c.Paths.Samples = expandVars(c.Paths.Samples, vars)
	c.Quarantine.IdentityFile = expandVars(c.Quarantine.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Catalog == "" {
		errs = append(errs, fmt.Errorf("paths.catalog is required"))
	}

	algorithms := []string{"blake3", "blake2b"}
	if !slices.Contains(algorithms, c.Digest.Algorithm) {
		errs = append(errs, fmt.Errorf("digest.algorithm must be one of: %v", algorithms))
	}
	if c.Digest.Size < 1 || c.Digest.Size > 64 {
		errs = append(errs, fmt.Errorf("digest.size must be between 1 and 64, got %d", c.Digest.Size))
	}

	if c.Analysis.Threshold < 0 || c.Analysis.Threshold > 1 {
		errs = append(errs, fmt.Errorf("analysis.threshold must be between 0 and 1, got %v", c.Analysis.Threshold))
	}
	if c.Analysis.HashLength < 0 || c.Analysis.HashLength > 64 {
		errs = append(errs, fmt.Errorf("analysis.hash_length must be between 0 and 64, got %d", c.Analysis.HashLength))
	}
	byValues := []string{ByFingerprint, ByDigest}
	if !slices.Contains(byValues, c.Analysis.By) {
		errs = append(errs, fmt.Errorf("analysis.by must be one of: %v", byValues))
	}
	bands := c.Analysis.Bands
	if !(0 <= bands.Related && bands.Related <= bands.Variant && bands.Variant <= bands.Identical && bands.Identical <= 1) {
		errs = append(errs, fmt.Errorf("analysis.bands must satisfy 0 <= related <= variant <= identical <= 1, got %v/%v/%v",
			bands.Related, bands.Variant, bands.Identical))
	}

	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers))
	}

	if c.Quarantine.Enabled {
		if c.Paths.Samples == "" {
			errs = append(errs, fmt.Errorf("paths.samples is required when quarantine is enabled"))
		}
		if c.Quarantine.IdentityFile == "" {
			errs = append(errs, fmt.Errorf("quarantine.identity_file is required when quarantine is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		filepath.Dir(c.Paths.Catalog),
	}
	if c.Quarantine.Enabled {
		paths = append(paths, c.Paths.Samples, filepath.Dir(c.Quarantine.IdentityFile))
	}

	for _, path := range paths {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
