/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in CLI usage events and crash reports.
// Nothing is sent unless JG_TELEMETRY_OPT_IN is set and a URL is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/version"
)

// Config is read from the environment with the JG prefix:
//
//	JG_TELEMETRY_OPT_IN      enable events and crash uploads
//	JG_TELEMETRY_URL         endpoint for JSON events
//	JG_CRASH_UPLOAD_URL      endpoint for crash reports
//	JG_TELEMETRY_TIMEOUT     request timeout, default 1500ms
//	JG_TELEMETRY_DEBUG       log every send attempt
type Config struct {
	OptIn     bool          `envconfig:"TELEMETRY_OPT_IN"`
	EventsURL string        `envconfig:"TELEMETRY_URL"`
	CrashURL  string        `envconfig:"CRASH_UPLOAD_URL"`
	Timeout   time.Duration `envconfig:"TELEMETRY_TIMEOUT" default:"1500ms"`
	Debug     bool          `envconfig:"TELEMETRY_DEBUG"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("JG", &cfg); err != nil {
		return Config{}, fmt.Errorf("telemetry env: %w", err)
	}
	return cfg, nil
}

// Client posts events from a bounded queue on a background goroutine and
// drops them when the queue is full or a send fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan map[string]any
	pending sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process client, built from the environment on first
// use. A bad environment yields a disabled client.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		cfg, err := FromEnv()
		if err != nil {
			applog.WithComponent("telemetry").Warn("telemetry disabled", slog.Any("err", err))
			cfg = Config{}
		}
		defaultClient = New(cfg)
	}
	return defaultClient
}

// SetDefault replaces the process client and returns the previous one.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a JSON event. props must not carry paths, names or graph
// content.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Done()
	}
}

// Command records one CLI command run.
func (c *Client) Command(name string, err error, took time.Duration) {
	c.Event("command", map[string]any{
		"command": name,
		"ok":      err == nil,
		"ms":      took.Milliseconds(),
	})
}

// Flush waits until queued events are sent or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the sender; queued events are dropped.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
			c.pending.Done()
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.post(context.Background(), c.cfg.EventsURL, "application/json", buf); err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	if c.cfg.Debug {
		c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry: %s returned %s", url, resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report and waits for the answer, since the
// process exits right after a crash. It is a no-op without opt-in.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		return fmt.Errorf("crash upload: %w", err)
	}
	if c.cfg.Debug {
		c.log.Debug("crash report uploaded")
	}
	return nil
}
