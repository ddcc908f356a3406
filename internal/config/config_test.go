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
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("backend.base_url"); !ok || name != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q %v", name, ok)
	}
}

func TestEnvOverridesPaper(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPaperGridSize, "20")
	t.Setenv(EnvPaperBatchSize, "-5")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Paper.GridSize != 20 || cfg.Paper.BatchSize != 0 {
		t.Fatalf("paper = %+v", cfg.Paper)
	}
}

func TestEnvOverridesInvalid(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendTimeoutMs, "soon")
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected an error for a non-numeric timeout")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/jg.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/jg.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsPaperDefaults(t *testing.T) {
	dst := Defaults()
	mergeInto(&dst, &AppConfig{Paper: PaperConfig{Width: 1024}})
	if dst.Paper.Width != 1024 || dst.Paper.Height != 600 || dst.Paper.GridSize != 10 {
		t.Fatalf("paper = %+v", dst.Paper)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/jg.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/jg.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	opts := cfg.Logging.LogOptions()
	if opts.Level != "error" || !opts.AddSource {
		t.Fatalf("log options = %+v", opts)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults()
	cfg.Paper.Background = "#000000"
	cfg.Backend.TimeoutMs = 500
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Paper.Background != "#000000" || got.Backend.Timeout().Milliseconds() != 500 || tok != "secret" {
		t.Fatalf("round trip = %+v token %q", got, tok)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("second ClearToken: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token survived ClearToken: %q", tok)
	}
}
