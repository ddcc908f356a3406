/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up slog for the jointgeo packages and binaries.
//
// Every record carries app and ver. Loggers from WithComponent and
// WithOperation add component and op; ForDocument, ForCell and ForView add
// the diagram the record is about. The same diagram attributes can ride on a
// context (WithDocument, WithView) and are added by the handler to records
// logged with the *Context methods, which is how request handlers tag logs
// without threading a logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/clientIO/joint-sub027/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values come from the config file or from the environment:
//   - JG_LOG_LEVEL=debug|info|warn|error
//   - JG_LOG_FORMAT=console|json
//   - JG_LOG_FILE=<path> (enables file logging with rotation)
//   - JG_LOG_SOURCE=true|false (include source)
//
// If File is set, a rotating file writer will be used.
// Defaults: INFO level, console format, no source.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string // optional path for file logging (rotated)
}

// AppName is the static app attribute of every record.
const AppName = "jointgeo"

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
)

// L returns the default application logger, initializing from env if needed.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	// lazy init from env
	Init(FromEnv())
	defaultLoggerMu.RLock()
	l = defaultLogger
	defaultLoggerMu.RUnlock()
	return l
}

// Init builds the process logger from opts and makes it slog's default.
// With opts.File set, records also go as JSON to a rotating file.
func Init(opts Options) {
	console := New(os.Stderr, opts).Handler()
	if strings.TrimSpace(opts.File) == "" {
		setDefault(slog.New(console))
		return
	}
	rot := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
	file := newDiagramHandler(slog.NewJSONHandler(rot, &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.AddSource}))
	setDefault(slog.New(fanOut(console, file.WithAttrs(staticAttrs()))))
}

// New returns a logger writing to w in the console or json format of opts,
// with the static and diagram attributes. opts.File is ignored.
func New(w io.Writer, opts Options) *slog.Logger {
	lvl := parseLevel(opts.Level)
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		h = &consoleHandler{level: lvl, source: opts.AddSource, w: w, mu: &sync.Mutex{}}
	}
	return slog.New(newDiagramHandler(h).WithAttrs(staticAttrs()))
}

func staticAttrs() []slog.Attr {
	return []slog.Attr{slog.String("app", AppName), slog.String("ver", version.String())}
}

func setDefault(l *slog.Logger) {
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
	slog.SetDefault(l)
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("JG_LOG_LEVEL", "info"),
		Format:    getenv("JG_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("JG_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("JG_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// parseLevel accepts level names and slog's numeric levels ("-4", "8").
func parseLevel(s string) slog.Leveler {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n)
	}
	return slog.LevelInfo
}
