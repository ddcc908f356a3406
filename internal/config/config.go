/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "github.com/clientIO/joint-sub027/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type PaperConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	GridSize   float64 `yaml:"grid_size"`
	BatchSize  int     `yaml:"batch_size"` // views per update flush, 0 = all
	Background string  `yaml:"background"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Paper         PaperConfig   `yaml:"paper"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Paper:         PaperConfig{Width: 800, Height: 600, GridSize: 10, BatchSize: 1000, Background: "#ffffff"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JG"

// Env var names used as overrides.
const (
	EnvConfigDir        = "JG_CONFIG_DIR"
	EnvBackendURL       = "JG_BACKEND_URL"
	EnvBackendTimeoutMs = "JG_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "JG_TLS_INSECURE"
	EnvPaperGridSize    = "JG_PAPER_GRID_SIZE"
	EnvPaperBatchSize   = "JG_PAPER_BATCH_SIZE"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "JG_LOG_LEVEL"
	EnvLogFormat = "JG_LOG_FORMAT"
	EnvLogSource = "JG_LOG_SOURCE"
	EnvLogFile   = "JG_LOG_FILE"
)

// envOverrides is filled by envconfig; nil fields were not set.
type envOverrides struct {
	BackendURL       *string  `envconfig:"BACKEND_URL"`
	BackendTimeoutMs *int     `envconfig:"BACKEND_TIMEOUT_MS"`
	TLSInsecure      *bool    `envconfig:"TLS_INSECURE"`
	PaperGridSize    *float64 `envconfig:"PAPER_GRID_SIZE"`
	PaperBatchSize   *int     `envconfig:"PAPER_BATCH_SIZE"`
	LogLevel         *string  `envconfig:"LOG_LEVEL"`
	LogFormat        *string  `envconfig:"LOG_FORMAT"`
	LogSource        *bool    `envconfig:"LOG_SOURCE"`
	LogFile          *string  `envconfig:"LOG_FILE"`
}

// Service/keys for OS keyring.
const (
	keyringService = "jointgeo"
	keyringToken   = "backend_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. JG_CONFIG_DIR replaces
// the platform directory.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "JointGeo")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "JointGeo")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "jointgeo")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The backend token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applog.WithComponent("config").Warn("ignoring unreadable config file", "path", path, "err", err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the backend token from the keyring.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Paper.Width > 0 {
		dst.Paper.Width = src.Paper.Width
	}
	if src.Paper.Height > 0 {
		dst.Paper.Height = src.Paper.Height
	}
	if src.Paper.GridSize > 0 {
		dst.Paper.GridSize = src.Paper.GridSize
	}
	if src.Paper.BatchSize != 0 {
		dst.Paper.BatchSize = max(src.Paper.BatchSize, 0)
	}
	if strings.TrimSpace(src.Paper.Background) != "" {
		dst.Paper.Background = strings.TrimSpace(src.Paper.Background)
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if env.BackendURL != nil && strings.TrimSpace(*env.BackendURL) != "" {
		cfg.Backend.BaseURL = strings.TrimSpace(*env.BackendURL)
	}
	if env.BackendTimeoutMs != nil {
		cfg.Backend.TimeoutMs = *env.BackendTimeoutMs
	}
	if env.TLSInsecure != nil {
		cfg.Backend.TLSInsecure = *env.TLSInsecure
	}
	if env.PaperGridSize != nil && *env.PaperGridSize > 0 {
		cfg.Paper.GridSize = *env.PaperGridSize
	}
	if env.PaperBatchSize != nil {
		cfg.Paper.BatchSize = max(*env.PaperBatchSize, 0)
	}
	// logging overrides
	if env.LogLevel != nil && *env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(*env.LogLevel)
	}
	if env.LogFormat != nil && *env.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(*env.LogFormat)
	}
	if env.LogSource != nil {
		cfg.Logging.Source = *env.LogSource
	}
	if env.LogFile != nil && *env.LogFile != "" {
		cfg.Logging.File = *env.LogFile
	}
	return nil
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"backend.base_url":     EnvBackendURL,
		"backend.timeout_ms":   EnvBackendTimeoutMs,
		"backend.tls_insecure": EnvBackendTLSInsec,
		"paper.grid_size":      EnvPaperGridSize,
		"paper.batch_size":     EnvPaperBatchSize,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
