/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/clientIO/joint-sub027/internal/config"
	"github.com/clientIO/joint-sub027/internal/crash"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/telemetry"
	"github.com/clientIO/joint-sub027/internal/version"
)

// errUsage marks bad arguments; main prints usage and exits with 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "jointgeo: diagram geometry toolkit")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  jointgeo version|-v|--version                 Show version")
	fmt.Fprintln(w, "  jointgeo init <dir> <name>                     Create a diagram document at <dir>")
	fmt.Fprintln(w, "  jointgeo validate <graph.json>                 Check a graph JSON file")
	fmt.Fprintln(w, "  jointgeo import <dir> <graph.json>             Replace the graph of a document")
	fmt.Fprintln(w, "  jointgeo layout <dir>                          Print element, port and link geometry as JSON")
	fmt.Fprintln(w, "  jointgeo move [-snap] <dir> <id> <x> <y>       Move an element")
	fmt.Fprintln(w, "  jointgeo apply <dir> <ops.json>                Run an edit script (move, resize, attr, undo, ...)")
	fmt.Fprintln(w, "  jointgeo render [-scale n] [-grid] <dir> <out> Render to .svg, .png or .pdf")
	fmt.Fprintln(w, "  jointgeo batch [-formats svg,png] <dir> <preset>  Export a preset (web, print)")
	fmt.Fprintln(w, "  jointgeo search [-type t] <dir> <text>         Search cell labels")
	fmt.Fprintln(w, "  jointgeo snapshot save|list|prune <dir> [keep] Manage graph snapshots")
	fmt.Fprintln(w, "  jointgeo serve [-memory]                       Run the graph server")
	fmt.Fprintln(w, "  jointgeo login [-key k] <subject>              Get a server token into the keychain")
	fmt.Fprintln(w, "  jointgeo logout                                Remove the stored token")
	fmt.Fprintln(w, "  jointgeo push <dir> | pull <dir> <id>          Sync a document with the server")
}

func main() {
	cfg, token, err := config.Load()
	if err != nil {
		// logging is not up yet; fall back to defaults
		fmt.Fprintln(os.Stderr, "Warning:", err)
		cfg = config.Defaults()
	}
	opts := cfg.Logging.LogOptions()
	applog.Init(opts)
	l := applog.WithComponent("cli")

	// set by commands that open a document so a panic can autosave it
	var h *storage.Handle
	defer crash.RecoverFrom(&h)

	args := os.Args[1:]
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(os.Stdout)
		return
	}
	app := &app{cfg: cfg, token: token, out: os.Stdout, log: l, handle: &h}
	start := time.Now()
	err = app.run(args)
	report(args[0], err, time.Since(start))
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "Error:", err)
		usage(os.Stderr)
		os.Exit(2)
	default:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// report sends the opt-in command event before main exits; os.Exit skips
// deferred calls.
func report(cmd string, err error, took time.Duration) {
	tc := telemetry.Default()
	defer tc.Close()
	if !tc.Enabled() {
		return
	}
	tc.Command(cmd, err, took)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	tc.Flush(ctx)
}
