// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the fold.yaml run configuration.
//
// A configuration file only needs the keys it changes; everything else keeps
// the value from Default:
//
//	run:
//	  model: lexicon
//	  folds: 10
//	  parallelism: 4
//	params:
//	  language: en
//	  cutoff: "3"
//	storage:
//	  path: ~/.aleutian/fold/db
//
// Validation uses go-playground/validator. Every failure is reported as a
// configuration-kind cverrors.Error so callers can stop before any fold runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianFold/pkg/logging"
	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

// DefaultFileName is the configuration file looked up in the base directory.
const DefaultFileName = "fold.yaml"

// =============================================================================
// Shared Validator Instance
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("corpusname", validateCorpusName)
	_ = validate.RegisterValidation("confidence", validateConfidence)
}

// validateConfidence accepts the levels metric.Summarize has tables for.
func validateConfidence(fl validator.FieldLevel) bool {
	return metric.IsSupportedLevel(fl.Field().Float())
}

// validateCorpusName accepts the names storage.NewCorpus accepts, plus the
// empty string for "no corpus configured".
func validateCorpusName(fl validator.FieldLevel) bool {
	return !strings.Contains(fl.Field().String(), "/")
}

// =============================================================================
// Types
// =============================================================================

// Config is the complete run configuration.
type Config struct {
	Run       RunConfig         `yaml:"run"`
	Params    map[string]string `yaml:"params"`
	Storage   StorageConfig     `yaml:"storage"`
	Logging   LoggingConfig     `yaml:"logging"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Retry     RetryConfig       `yaml:"retry"`
}

// RunConfig controls the cross-validation run.
type RunConfig struct {
	// Model is the registered model family.
	Model string `yaml:"model" validate:"required"`

	// Corpus is the default stored corpus name.
	Corpus string `yaml:"corpus" validate:"corpusname"`

	// Folds is k.
	Folds int `yaml:"folds" validate:"min=1"`

	// Parallelism is the number of folds evaluated at once.
	Parallelism int `yaml:"parallelism" validate:"min=1,max=256"`

	// EmptyFoldPolicy is "evaluate" or "skip".
	EmptyFoldPolicy string `yaml:"empty_fold_policy" validate:"oneof=evaluate skip"`

	// ConfidenceLevel of the per-fold F-measure interval: 0.9, 0.95 or 0.99.
	ConfidenceLevel float64 `yaml:"confidence_level" validate:"confidence"`

	// Buffered reads the corpus into memory once instead of per fold.
	Buffered bool `yaml:"buffered"`

	// RequiredParams must be present in Params.
	RequiredParams []string `yaml:"required_params,omitempty"`
}

// StorageConfig locates the badger database.
type StorageConfig struct {
	Path       string        `yaml:"path" validate:"required_without=InMemory"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"min=0"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	// Tracing is "none", "stdout" or "otlp".
	Tracing string `yaml:"tracing" validate:"oneof=none stdout otlp"`

	// OTLPEndpoint is the collector address for Tracing "otlp".
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Tracing otlp"`

	// Metrics is "none", "prometheus" or "stdout".
	Metrics string `yaml:"metrics" validate:"oneof=none prometheus stdout"`

	// TextfilePath, when set, receives run metrics in the Prometheus text
	// format for node_exporter's textfile collector.
	TextfilePath string `yaml:"textfile_path"`
}

// RetryConfig controls re-opening of file corpora.
type RetryConfig struct {
	MaxRetries uint64        `yaml:"max_retries" validate:"max=20"`
	Base       time.Duration `yaml:"base" validate:"min=0"`
}

// =============================================================================
// Defaults
// =============================================================================

// BaseDir returns ~/.aleutian/fold, or ./.aleutian/fold without a home
// directory.
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aleutian", "fold")
	}
	return filepath.Join(home, ".aleutian", "fold")
}

// Default returns the built-in configuration: ten folds of the lexicon
// model, sequential, default training parameters.
func Default() *Config {
	base := BaseDir()
	return &Config{
		Run: RunConfig{
			Model:           "lexicon",
			Folds:           10,
			Parallelism:     1,
			EmptyFoldPolicy: crossval.EmptyFoldEvaluate.String(),
			ConfidenceLevel: crossval.DefaultConfidenceLevel,
		},
		Params: crossval.DefaultParams("en"),
		Storage: StorageConfig{
			Path:       filepath.Join(base, "db"),
			GCInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(base, "logs"),
		},
		Telemetry: TelemetryConfig{
			Tracing: "none",
			Metrics: "none",
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			Base:       500 * time.Millisecond,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads path over Default and validates the result. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "load config", err)
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML over Default and validates the result. An empty
// document yields Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and cross-field rule.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return cverrors.New(cverrors.KindConfiguration, "validate config", "%s", strings.Join(msgs, "; "))
		}
		return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "validate config", err)
	}
	return crossval.Params(c.Params).Require(c.Run.RequiredParams...)
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// =============================================================================
// Conversions
// =============================================================================

// LoggerConfig returns the logging configuration for service.
func (c *Config) LoggerConfig(service string) logging.Config {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: service,
		JSON:    c.Logging.JSON,
	}
}

// StorageConfig returns the badger configuration.
func (c *Config) StorageConfig() storage.Config {
	if c.Storage.InMemory {
		return storage.InMemoryConfig()
	}
	cfg := storage.DefaultConfig(expandPath(c.Storage.Path))
	cfg.SyncWrites = c.Storage.SyncWrites
	cfg.GCInterval = c.Storage.GCInterval
	return cfg
}

// RetryConfig returns the file corpus retry policy.
func (c *Config) RetryConfig() sample.RetryConfig {
	return sample.RetryConfig{MaxRetries: c.Retry.MaxRetries, Base: c.Retry.Base}
}

// DriverOptions returns the driver options the run section describes.
func (c *Config) DriverOptions() ([]crossval.Option, error) {
	policy, err := crossval.ParseEmptyFoldPolicy(c.Run.EmptyFoldPolicy)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "driver options", err)
	}
	opts := []crossval.Option{
		crossval.WithParams(c.Params),
		crossval.WithRequiredParams(c.Run.RequiredParams...),
		crossval.WithEmptyFoldPolicy(policy),
		crossval.WithParallelism(c.Run.Parallelism),
		crossval.WithConfidenceLevel(c.Run.ConfidenceLevel),
	}
	if c.Run.Buffered {
		opts = append(opts, crossval.WithBufferedCorpus())
	}
	return opts, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
