/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clientIO/joint-sub027/internal/ids"
)

// This file defines the on-disk document: a graph in its JSON form plus the
// paper settings it is displayed with.

// DocumentVersion is the current document format version.
const DocumentVersion = 1

// EmptyGraph is the JSON of a graph without cells.
var EmptyGraph = json.RawMessage(`{"cells":[]}`)

var ErrInvalidDocument = errors.New("domain: invalid document")

// Document is a saved diagram. Graph holds the graph JSON ({"cells": [...]})
// untouched so cells round-trip exactly.
type Document struct {
	Version   int             `json:"version"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt,omitzero"`
	Paper     PaperSettings   `json:"paper"`
	Graph     json.RawMessage `json:"graph"`
}

// PaperSettings are the display settings of a document.
type PaperSettings struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	GridSize   float64 `json:"gridSize,omitempty"`
	Background string  `json:"background,omitempty"`
}

// NewDocument returns an empty document with a fresh id.
func NewDocument(name string, paper PaperSettings) Document {
	return Document{
		Version:   DocumentVersion,
		ID:        ids.NewCellID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Paper:     paper,
		Graph:     append(json.RawMessage(nil), EmptyGraph...),
	}
}

// Validate checks the envelope only; the graph is validated by its loader.
func (d Document) Validate() error {
	switch {
	case d.Version < 1 || d.Version > DocumentVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, d.Version)
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDocument)
	case d.Paper.Width < 0 || d.Paper.Height < 0 || d.Paper.GridSize < 0:
		return fmt.Errorf("%w: negative paper size", ErrInvalidDocument)
	case len(d.Graph) == 0 || !json.Valid(d.Graph):
		return fmt.Errorf("%w: graph is not JSON", ErrInvalidDocument)
	}
	return nil
}
