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
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clientIO/joint-sub027/internal/backend"
	"github.com/clientIO/joint-sub027/internal/config"
	"github.com/clientIO/joint-sub027/internal/domain"
	"github.com/clientIO/joint-sub027/internal/export"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/textlayout"
	"github.com/clientIO/joint-sub027/internal/version"
)

type app struct {
	cfg    config.AppConfig
	token  string
	out    io.Writer
	log    *slog.Logger
	handle **storage.Handle
}

func (a *app) run(args []string) error {
	cmd, rest := args[0], args[1:]
	ctx := context.Background()
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(a.out, version.String())
		return nil
	case "help", "-h", "--help":
		usage(a.out)
		return nil
	case "init":
		return a.initDoc(rest)
	case "validate":
		return a.validate(rest)
	case "import":
		return a.importGraph(rest)
	case "layout":
		return a.layout(rest)
	case "apply":
		return a.applyOps(rest)
	case "move":
		return a.move(rest)
	case "render":
		return a.render(rest)
	case "batch":
		return a.batch(rest)
	case "search":
		return a.search(ctx, rest)
	case "snapshot":
		return a.snapshot(ctx, rest)
	case "serve":
		return a.serve(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Token removed.")
		return nil
	case "push":
		return a.push(ctx, rest)
	case "pull":
		return a.pull(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s", errUsage, what)
	}
	return nil
}

// open loads the document at dir and registers it for crash autosave.
func (a *app) open(dir string) (*storage.Handle, error) {
	abs, _ := filepath.Abs(dir)
	h, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	*a.handle = h
	a.log = applog.ForDocument(a.log, h.Doc.ID)
	return h, nil
}

// openPaper loads the document at dir and renders its graph.
func (a *app) openPaper(dir string) (*storage.Handle, *graph.Graph, *paper.Paper, error) {
	h, err := a.open(dir)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := h.LoadGraph(graph.Options{Logger: applog.ForDocument(applog.WithComponent("graph"), h.Doc.ID)})
	if err != nil {
		return nil, nil, nil, err
	}
	p := paper.New(g, paper.Options{
		Logger:    applog.ForDocument(applog.WithComponent("paper"), h.Doc.ID),
		Width:     h.Doc.Paper.Width,
		Height:    h.Doc.Paper.Height,
		GridSize:  h.Doc.Paper.GridSize,
		BatchSize: a.cfg.Paper.BatchSize,
		Text:      textlayout.GoRegular(),
	})
	p.UpdateViews()
	return h, g, p, nil
}

func (a *app) initDoc(args []string) error {
	if err := need(args, 2, "init requires <dir> and <name>"); err != nil {
		return err
	}
	abs, _ := filepath.Abs(args[0])
	pc := a.cfg.Paper
	doc := domain.NewDocument(args[1], domain.PaperSettings{
		Width:      pc.Width,
		Height:     pc.Height,
		GridSize:   pc.GridSize,
		Background: pc.Background,
	})
	a.log.Info("init document", slog.String("root", abs), slog.String("name", doc.Name))
	h, err := storage.InitDocument(abs, doc)
	if err != nil {
		return err
	}
	*a.handle = h
	fmt.Fprintln(a.out, "Created document at", abs)
	return nil
}

func (a *app) validate(args []string) error {
	if err := need(args, 1, "validate requires <graph.json>"); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	g := graph.New(graph.Options{})
	if err := g.FromJSON(data); err != nil {
		return err
	}
	var elements, links int
	for _, c := range g.Cells() {
		if c.IsLink() {
			links++
		} else {
			elements++
		}
	}
	fmt.Fprintf(a.out, "OK: %d elements, %d links\n", elements, links)
	return nil
}

func (a *app) importGraph(args []string) error {
	if err := need(args, 2, "import requires <dir> and <graph.json>"); err != nil {
		return err
	}
	h, err := a.open(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	g := graph.New(graph.Options{})
	if err := g.FromJSON(data); err != nil {
		return err
	}
	if err := h.SetGraph(g); err != nil {
		return err
	}
	if err := storage.Save(h); err != nil {
		return err
	}
	if err := storage.IndexGraph(context.Background(), h.Root, g); err != nil {
		a.log.Warn("index update failed", slog.Any("err", err))
	}
	fmt.Fprintf(a.out, "Imported %d cells.\n", len(g.Cells()))
	return nil
}

type layoutOut struct {
	ID    string              `json:"id"`
	Type  string              `json:"type"`
	BBox  *geometry.Rect      `json:"bbox,omitempty"`
	Angle float64             `json:"angle,omitempty"`
	Ports []portOut           `json:"ports,omitempty"`
	Link  *paper.LinkGeometry `json:"link,omitempty"`
	Error string              `json:"error,omitempty"`
}

type portOut struct {
	ID     string         `json:"id"`
	Group  string         `json:"group,omitempty"`
	Center geometry.Point `json:"center"`
	Angle  float64        `json:"angle,omitempty"`
	Label  geometry.Point `json:"label"`
}

func (a *app) layout(args []string) error {
	if err := need(args, 1, "layout requires <dir>"); err != nil {
		return err
	}
	_, _, p, err := a.openPaper(args[0])
	if err != nil {
		return err
	}
	defer p.Close()
	var out []layoutOut
	for _, v := range p.Views() {
		c := v.Cell()
		o := layoutOut{ID: c.ID, Type: c.Type}
		if v.Err != nil {
			o.Error = v.Err.Error()
		}
		if c.IsLink() {
			lg := v.Link
			o.Link = &lg
		} else {
			bb := v.Element.BBox
			o.BBox = &bb
			o.Angle = v.Element.Angle
			for _, pv := range v.Element.Ports {
				o.Ports = append(o.Ports, portOut{ID: pv.ID, Group: pv.Group, Center: pv.Center, Angle: pv.Angle, Label: pv.LabelAt})
			}
		}
		out = append(out, o)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (a *app) render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	scale := fs.Float64("scale", 1, "pixels per paper unit (png, svg size)")
	grid := fs.Bool("grid", false, "draw the paper grid")
	noHL := fs.Bool("no-highlights", false, "leave highlighter overlays out")
	margin := fs.Float64("margin", 0, "margin around the content, 0 for the default")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := need(fs.Args(), 2, "render requires <dir> and <out>"); err != nil {
		return err
	}
	h, _, p, err := a.openPaper(fs.Arg(0))
	if err != nil {
		return err
	}
	defer p.Close()
	opt := export.RenderOptions{Scale: *scale, Title: h.Doc.Name}
	opt.IncludeGrid = *grid
	opt.SkipHighlights = *noHL
	opt.Margin = *margin
	opt.Background = h.Doc.Paper.Background
	path, err := export.ExportFile(h.Root, p, fs.Arg(1), opt)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Wrote", path)
	return nil
}

func (a *app) batch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	formats := fs.String("formats", "", "comma separated formats, default per preset")
	name := fs.String("name", "", "file base name")
	scale := fs.Float64("scale", 0, "raster scale override")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := need(fs.Args(), 2, "batch requires <dir> and <preset>"); err != nil {
		return err
	}
	h, _, p, err := a.openPaper(fs.Arg(0))
	if err != nil {
		return err
	}
	defer p.Close()
	opt := export.BatchOptions{Preset: export.PresetName(fs.Arg(1)), Name: *name, Scale: *scale}
	if *formats != "" {
		opt.Formats = strings.Split(*formats, ",")
	}
	paths, err := export.BatchExport(h.Root, p, opt)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintln(a.out, "Wrote", path)
	}
	return nil
}

type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	var types multiFlag
	fs.Var(&types, "type", "cell type filter, repeatable")
	limit := fs.Int("limit", 20, "max results")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := need(fs.Args(), 2, "search requires <dir> and <text>"); err != nil {
		return err
	}
	h, g, p, err := a.openPaper(fs.Arg(0))
	if err != nil {
		return err
	}
	p.Close()
	if _, err := storage.DetectAndRebuildIndex(ctx, h.Root, g); err != nil {
		return err
	}
	res, err := storage.SearchCells(ctx, h.Root, storage.SearchQuery{
		Text:  strings.Join(fs.Args()[1:], " "),
		Types: types,
		Limit: *limit,
	})
	if err != nil {
		return err
	}
	if len(res) == 0 {
		fmt.Fprintln(a.out, "No matches.")
		return nil
	}
	for _, r := range res {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", r.ID, r.Type, r.Snippet)
	}
	return nil
}

func (a *app) snapshot(ctx context.Context, args []string) error {
	if err := need(args, 2, "snapshot requires save|list|prune and <dir>"); err != nil {
		return err
	}
	h, err := a.open(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "save":
		s, err := storage.SaveSnapshot(ctx, h, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved snapshot %s (%d cells)\n", s.ID, s.Cells)
	case "list":
		list, err := storage.ListSnapshots(ctx, h, 0)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Fprintf(a.out, "%s\t%s\t%d cells\n", s.ID, s.TS.Format(time.RFC3339), s.Cells)
		}
	case "prune":
		keep := 10
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				return fmt.Errorf("%w: keep must be a non-negative number", errUsage)
			}
			keep = n
		}
		n, err := storage.PruneSnapshots(ctx, h, keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Pruned %d snapshots.\n", n)
	default:
		return fmt.Errorf("%w: unknown snapshot action %q", errUsage, args[0])
	}
	return nil
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	memory := fs.Bool("memory", false, "keep graphs in memory instead of postgres")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	cfg, err := backend.LoadConfig()
	if err != nil {
		return err
	}
	var store backend.GraphStore
	if *memory {
		store = backend.NewMemStore()
	} else {
		pg, err := backend.OpenStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		store = pg
	}
	return backend.NewServer(cfg, store, nil).Run(ctx)
}

func (a *app) client() *backend.Client {
	return backend.NewClient(a.cfg.Backend, a.token)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	key := fs.String("key", os.Getenv("JG_AUTH_KEY"), "server key when the server has a secret")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	subject := fs.Arg(0)
	if subject == "" {
		subject = os.Getenv("USER")
	}
	tok, exp, err := a.client().IssueToken(ctx, subject, *key, *ttl)
	if err != nil {
		return err
	}
	if err := config.Save(a.cfg, tok); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s until %s.\n", subject, exp.Local().Format(time.RFC1123))
	return nil
}

func (a *app) push(ctx context.Context, args []string) error {
	if err := need(args, 1, "push requires <dir>"); err != nil {
		return err
	}
	h, err := a.open(args[0])
	if err != nil {
		return err
	}
	c := a.client()
	var ver int64
	cur, err := c.GetGraph(ctx, h.Doc.ID)
	switch {
	case err == nil:
		ver = cur.Version
	case !errors.Is(err, backend.ErrNotFound):
		return err
	}
	rec, err := c.PutGraph(ctx, h.Doc.ID, h.Doc.Name, h.Doc.Graph, ver)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pushed %s version %d.\n", rec.ID, rec.Version)
	return nil
}

func (a *app) pull(ctx context.Context, args []string) error {
	if err := need(args, 2, "pull requires <dir> and <id>"); err != nil {
		return err
	}
	h, err := a.open(args[0])
	if err != nil {
		return err
	}
	rec, err := a.client().GetGraph(ctx, args[1])
	if err != nil {
		return err
	}
	g := graph.New(graph.Options{})
	if err := g.FromJSON(rec.Graph); err != nil {
		return err
	}
	if err := h.SetGraph(g); err != nil {
		return err
	}
	if err := storage.Save(h); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pulled %s version %d (%d cells).\n", rec.ID, rec.Version, len(g.Cells()))
	return nil
}
