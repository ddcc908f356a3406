/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fanOut sends each record to every handler that accepts its level.
func fanOut(handlers ...slog.Handler) slog.Handler { return multi(handlers) }

type multi []slog.Handler

func (m multi) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multi) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multi) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make(multi, len(m))
	for i, h := range m {
		res[i] = h.WithAttrs(attrs)
	}
	return res
}

func (m multi) WithGroup(name string) slog.Handler {
	res := make(multi, len(m))
	for i, h := range m {
		res[i] = h.WithGroup(name)
	}
	return res
}

// consoleHandler writes one line per record:
//
//	15:04:05.000 INF paper/flush: views updated doc=d1 views=12
//
// component and op move into the prefix; app and ver are left to the JSON
// outputs.
type consoleHandler struct {
	level     slog.Leveler
	source    bool
	w         io.Writer
	mu        *sync.Mutex
	component string
	op        string
	attrs     []slog.Attr
	prefix    string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	lvl := slog.LevelInfo
	if h.level != nil {
		lvl = h.level.Level()
	}
	return level >= lvl
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	b := &strings.Builder{}
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	b.WriteString(t.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelString(r.Level))
	b.WriteByte(' ')

	component, op := h.component, h.op
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		switch {
		case h.prefix == "" && a.Key == "component":
			component = a.Value.String()
		case h.prefix == "" && a.Key == "op":
			op = a.Value.String()
		default:
			rest = append(rest, a)
		}
		return true
	})
	if component != "" {
		b.WriteString(component)
		if op != "" {
			b.WriteByte('/')
			b.WriteString(op)
		}
		b.WriteString(": ")
	}
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(b, "", a)
	}
	for _, a := range rest {
		writeAttr(b, h.prefix, a)
	}
	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" src=")
			b.WriteString(f.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(f.Line))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		switch {
		case h.prefix == "" && a.Key == "component":
			nh.component = a.Value.String()
		case h.prefix == "" && a.Key == "op":
			nh.op = a.Value.String()
		case h.prefix == "" && (a.Key == "app" || a.Key == "ver"):
		default:
			a.Key = h.prefix + a.Key
			nh.attrs = append(nh.attrs, a)
		}
	}
	return &nh
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			writeAttr(b, p, g)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(attrValueString(a.Value))
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}

// attrValueString formats numbers compactly and quotes strings that would
// break key=value parsing.
func attrValueString(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		if err, ok := v.Any().(error); ok && err != nil {
			s = err.Error()
		} else {
			s = v.String()
		}
	}
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		return strconv.Quote(s)
	}
	return s
}
