/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  []map[string]any
	crashes []string
}

func newSink(t *testing.T) (*sink, *httptest.Server) {
	t.Helper()
	s := &sink{}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		s.mu.Lock()
		s.events = append(s.events, m)
		s.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, string(b))
		s.mu.Unlock()
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestCommandEventFlushes(t *testing.T) {
	s, srv := newSink(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: 2 * time.Second})
	defer c.Close()

	c.Command("render", nil, 1500*time.Millisecond)
	c.Command("import", errors.New("bad graph"), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.events))
	}
	first := s.events[0]
	if first["name"] != "command" || first["command"] != "render" || first["ok"] != true || first["ms"] != float64(1500) {
		t.Fatalf("first event = %v", first)
	}
	if s.events[1]["ok"] != false {
		t.Fatalf("failed command reported ok: %v", s.events[1])
	}
	if _, ok := first["version"].(string); !ok {
		t.Fatalf("missing version: %v", first)
	}
}

func TestUploadCrash(t *testing.T) {
	s, srv := newSink(t)
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash"})
	defer c.Close()

	if err := c.UploadCrash(context.Background(), []byte("Panic: boom")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	s.mu.Lock()
	got := s.crashes
	s.mu.Unlock()
	if len(got) != 1 || got[0] != "Panic: boom" {
		t.Fatalf("crashes = %q", got)
	}

	down := New(Config{OptIn: true, CrashURL: srv.URL + "/down"})
	defer down.Close()
	if err := down.UploadCrash(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	s, srv := newSink(t)
	c := New(Config{EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("client without opt-in is enabled")
	}
	c.Command("layout", nil, 0)
	c.Flush(context.Background())
	if err := c.UploadCrash(context.Background(), []byte("x")); err != nil {
		t.Fatalf("upload without opt-in: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 0 || len(s.crashes) != 0 {
		t.Fatalf("sent without opt-in: %v %v", s.events, s.crashes)
	}

	var nilClient *Client
	nilClient.Command("x", nil, 0)
	nilClient.Flush(context.Background())
	nilClient.Close()
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("JG_TELEMETRY_OPT_IN", "true")
	t.Setenv("JG_TELEMETRY_URL", "http://127.0.0.1:1/events")
	t.Setenv("JG_TELEMETRY_TIMEOUT", "250ms")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}

	prev := SetDefault(nil)
	defer SetDefault(prev)
	d := Default()
	defer d.Close()
	if !d.Enabled() {
		t.Fatalf("default client should follow the environment")
	}

	t.Setenv("JG_TELEMETRY_OPT_IN", "maybe")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for bad bool")
	}
}
