/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and an autosave of the open document.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/telemetry"
	"github.com/clientIO/joint-sub027/internal/version"
)

// uploadTimeout bounds the crash upload; the process exits right after.
const uploadTimeout = 3 * time.Second

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the open document (if provided).
//
// Usage: defer crash.Recover(h)
func Recover(h *storage.Handle) {
	if r := recover(); r != nil {
		handlePanic(h, r)
	}
}

// RecoverFrom is Recover for a handle that is opened after the defer
// statement runs.
func RecoverFrom(hp **storage.Handle) {
	if r := recover(); r != nil {
		var h *storage.Handle
		if hp != nil {
			h = *hp
		}
		handlePanic(h, r)
	}
}

func handlePanic(h *storage.Handle, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, _ := writeReport(h, r, stack)
	uploadReport(h, r, stack)
	if h != nil {
		if path, err := storage.AutosaveCrashSnapshot(h); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// Exit with a non-zero code to indicate failure in CLI context.
	exitFn(2)
}

func writeReport(h *storage.Handle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if h != nil && h.Root != "" {
		dir = filepath.Join(h.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	fname := fmt.Sprintf("crash-%s.log", stamp)
	path := filepath.Join(dir, fname)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	body := reportBody(h, panicVal, stack, true)
	// write to file
	if _, err := f.Write(body); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}

// reportBody renders a crash report. Without paths the document root and
// name are left out, which is the form that leaves the machine.
func reportBody(h *storage.Handle, panicVal any, stack []byte, withPaths bool) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "JointGeo Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h != nil {
		if withPaths {
			_, _ = fmt.Fprintf(&buf, "DocumentRoot: %s\n", h.Root)
			_, _ = fmt.Fprintf(&buf, "Document: %s (%s)\n", h.Doc.Name, h.Doc.ID)
		} else {
			_, _ = fmt.Fprintf(&buf, "Document: %s\n", h.Doc.ID)
		}
		_, _ = fmt.Fprintf(&buf, "GraphBytes: %d\n", len(h.Doc.Graph))
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	return buf.Bytes()
}

// uploadReport sends the anonymized report when telemetry is opted in.
func uploadReport(h *storage.Handle, panicVal any, stack []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	if err := telemetry.Default().UploadCrash(ctx, reportBody(h, panicVal, stack, false)); err != nil {
		applog.WithComponent("crash").Warn("crash report upload failed", slog.Any("err", err))
	}
}
