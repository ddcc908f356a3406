/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsole_ComponentPrefixAndDiagramAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: "debug"})
	l = ForView(WithOperation(l.With(slog.String("component", "paper")), "flush"), "view_7", "cell-b")
	l.Debug("views updated", slog.Int("views", 12), slog.Duration("took", 1500*time.Millisecond))

	out := strings.TrimSpace(buf.String())
	if !strings.Contains(out, " DBG paper/flush: views updated ") {
		t.Fatalf("prefix missing: %q", out)
	}
	for _, want := range []string{"view=view_7", "cell=cell-b", "views=12", "took=1.5s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing from %q", want, out)
		}
	}
	if strings.Contains(out, "app=") || strings.Contains(out, "ver=") || strings.Contains(out, "component=") {
		t.Fatalf("console line repeats static attrs: %q", out)
	}
}

func TestConsole_QuotesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{})
	l.WithGroup("bbox").Info("element moved",
		slog.Float64("x", 12.5), slog.String("label", "Start node"), slog.Any("err", errors.New("a=b")))

	out := buf.String()
	for _, want := range []string{"bbox.x=12.5", `bbox.label="Start node"`, `bbox.err="a=b"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing from %q", want, out)
		}
	}
	if strings.Contains(out, "bbox.app") {
		t.Fatalf("static attrs ended up in group: %q", out)
	}
}

func TestConsole_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: "warn"})
	l.Info("dropped")
	l.Error("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, " ERR kept") {
		t.Fatalf("level filter: %q", out)
	}
}

func TestDiagramHandler_LoggerAttrsWinOverContext(t *testing.T) {
	var buf bytes.Buffer
	l := ForDocument(New(&buf, Options{}), "doc_logger")
	ctx := WithDocument(context.Background(), "doc_ctx")
	l.InfoContext(ctx, "graph saved")

	out := buf.String()
	if strings.Count(out, "doc=") != 1 || !strings.Contains(out, "doc=doc_logger") {
		t.Fatalf("doc attr duplicated or replaced: %q", out)
	}
}

func TestForHelpers_EmptyIDsLeaveLoggerAlone(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, Options{})
	if ForDocument(base, "") != base || ForCell(base, "") != base || ForView(base, "", "") != base {
		t.Fatalf("empty ids should not wrap the logger")
	}
}

func TestFanOut_PerHandlerLevels(t *testing.T) {
	var quiet, loud bytes.Buffer
	q := New(&quiet, Options{Level: "error"}).Handler()
	v := New(&loud, Options{Level: "debug"}).Handler()
	l := slog.New(fanOut(q, v))
	l.Debug("layout ports", slog.Int("ports", 4))
	if quiet.Len() != 0 {
		t.Fatalf("error-level sink got debug: %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "ports=4") {
		t.Fatalf("debug sink missed record: %q", loud.String())
	}
}
