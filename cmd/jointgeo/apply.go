/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/undo"
)

// editOp is one step of an edit script:
//
//	[{"op":"move","id":"a","x":10,"y":20,"snap":true},
//	 {"op":"attr","id":"a","path":"label/text","value":"Renamed"},
//	 {"op":"undo"}]
type editOp struct {
	Op    string  `json:"op"`
	ID    string  `json:"id,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	W     float64 `json:"width,omitempty"`
	H     float64 `json:"height,omitempty"`
	Angle float64 `json:"angle,omitempty"`
	Path  string  `json:"path,omitempty"`
	Value any     `json:"value,omitempty"`
	// Snap aligns a moved element to the grid and then to other elements.
	Snap bool `json:"snap,omitempty"`
}

// editor applies edit ops to a rendered graph with undo tracking.
type editor struct {
	g       *graph.Graph
	p       *paper.Paper
	tracker *undo.Tracker
	out     func(format string, args ...any)
}

func newEditor(h *storage.Handle, g *graph.Graph, p *paper.Paper, out func(string, ...any)) (*editor, error) {
	m := undo.NewManager(undo.Config{MaxPerDoc: 100, MinInterval: time.Nanosecond})
	t, err := undo.Track(m, g, h.Doc.ID)
	if err != nil {
		return nil, err
	}
	return &editor{g: g, p: p, tracker: t, out: out}, nil
}

func (e *editor) cell(id string) (*graph.Cell, error) {
	c := e.g.Cell(id)
	if c == nil {
		return nil, fmt.Errorf("no cell %q", id)
	}
	return c, nil
}

func (e *editor) apply(op editOp) error {
	switch op.Op {
	case "move":
		c, err := e.cell(op.ID)
		if err != nil {
			return err
		}
		pos := geometry.Pt(op.X, op.Y)
		if op.Snap {
			pos = e.p.Snap(pos)
			e.p.UpdateViews()
			r, guides := e.p.SnapLines(c.ID, geometry.R(pos.X, pos.Y, c.Size.Width, c.Size.Height), paper.SnapOptions{Edges: true, Centers: true})
			pos = r.Origin()
			for _, g := range guides {
				e.out("guide %s %s at %s\n", g.Orientation, g.Kind, strconv.FormatFloat(g.Position, 'f', -1, 64))
			}
		}
		c.SetPosition(pos.X, pos.Y)
	case "resize":
		c, err := e.cell(op.ID)
		if err != nil {
			return err
		}
		c.Resize(op.W, op.H)
	case "rotate":
		c, err := e.cell(op.ID)
		if err != nil {
			return err
		}
		c.Rotate(op.Angle, true)
	case "attr":
		c, err := e.cell(op.ID)
		if err != nil {
			return err
		}
		c.SetAttr(op.Path, op.Value)
	case "remove":
		c, err := e.cell(op.ID)
		if err != nil {
			return err
		}
		c.Remove(graph.RemoveOptions{})
	case "undo":
		ok, err := e.tracker.Undo()
		if err != nil {
			return err
		}
		if !ok {
			e.out("nothing to undo\n")
		}
	case "redo":
		ok, err := e.tracker.Redo()
		if err != nil {
			return err
		}
		if !ok {
			e.out("nothing to redo\n")
		}
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	e.p.UpdateViews()
	return nil
}

// applyOps runs an edit script file against a document and saves it.
func (a *app) applyOps(args []string) error {
	if err := need(args, 2, "apply requires <dir> and <ops.json>"); err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	var ops []editOp
	if err := json.Unmarshal(data, &ops); err != nil {
		return fmt.Errorf("read ops: %w", err)
	}
	return a.edit(args[0], ops)
}

// move is the one-op shorthand of apply.
func (a *app) move(args []string) error {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	snap := fs.Bool("snap", false, "snap to the grid and to other elements")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := need(fs.Args(), 4, "move requires <dir> <id> <x> <y>"); err != nil {
		return err
	}
	x, errX := strconv.ParseFloat(fs.Arg(2), 64)
	y, errY := strconv.ParseFloat(fs.Arg(3), 64)
	if errX != nil || errY != nil {
		return fmt.Errorf("%w: x and y must be numbers", errUsage)
	}
	return a.edit(fs.Arg(0), []editOp{{Op: "move", ID: fs.Arg(1), X: x, Y: y, Snap: *snap}})
}

func (a *app) edit(dir string, ops []editOp) error {
	h, g, p, err := a.openPaper(dir)
	if err != nil {
		return err
	}
	defer p.Close()
	e, err := newEditor(h, g, p, func(format string, args ...any) { fmt.Fprintf(a.out, format, args...) })
	if err != nil {
		return err
	}
	defer e.tracker.Close()
	for i, op := range ops {
		if err := e.apply(op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i+1, op.Op, err)
		}
	}
	if err := h.SetGraph(g); err != nil {
		return err
	}
	if err := storage.Save(h); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Applied %d ops.\n", len(ops))
	return nil
}
