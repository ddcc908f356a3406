/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema of a graph document.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "graph",
  "type": "object",
  "required": ["cells"],
  "properties": {
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "id": {"type": "string"},
          "z": {"type": "number"},
          "position": {"$ref": "#/definitions/point"},
          "size": {
            "type": "object",
            "properties": {
              "width": {"type": "number", "minimum": 0},
              "height": {"type": "number", "minimum": 0}
            }
          },
          "angle": {"type": "number"},
          "parent": {"type": "string"},
          "embeds": {"type": "array", "items": {"type": "string"}},
          "source": {"$ref": "#/definitions/end"},
          "target": {"$ref": "#/definitions/end"},
          "vertices": {"type": "array", "items": {"$ref": "#/definitions/point"}},
          "router": {"$ref": "#/definitions/named"},
          "connector": {"$ref": "#/definitions/named"},
          "labels": {"type": "array", "items": {"type": "object"}},
          "attrs": {"type": "object"},
          "ports": {
            "type": "object",
            "properties": {
              "groups": {"type": "object"},
              "items": {
                "type": "array",
                "items": {"type": "object", "properties": {"id": {"type": "string"}, "group": {"type": "string"}}}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "named": {
      "type": "object",
      "required": ["name"],
      "properties": {"name": {"type": "string", "minLength": 1}, "args": {"type": "object"}}
    },
    "point": {
      "type": "object",
      "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
    },
    "end": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "port": {"type": "string"},
        "x": {"type": "number"},
        "y": {"type": "number"},
        "anchor": {"type": "object", "properties": {"name": {"type": "string"}}},
        "connectionPoint": {"type": "object", "properties": {"name": {"type": "string"}}}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

type document struct {
	Cells []*Cell `json:"cells"`
}

// ToJSON encodes the graph as {"cells": [...]} in z order.
func (g *Graph) ToJSON() ([]byte, error) {
	cells := g.cells
	if cells == nil {
		cells = []*Cell{}
	}
	b, err := json.Marshal(document{Cells: cells})
	if err != nil {
		return nil, fmt.Errorf("graph: encode: %w", err)
	}
	return b, nil
}

func (g *Graph) MarshalJSON() ([]byte, error) { return g.ToJSON() }

// Validate checks data against Schema.
func Validate(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, ok := top["cells"]; !ok {
		return ErrMissingCells
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// FromJSON validates data and replaces all cells with the decoded ones.
// Nothing changes when an error is returned.
func (g *Graph) FromJSON(data []byte) error {
	l := g.log.With(slog.String("op", "fromJSON"))
	if err := Validate(data); err != nil {
		l.Warn("graph JSON rejected", slog.Any("err", err))
		return err
	}
	var raw struct {
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	cells := make([]*Cell, 0, len(raw.Cells))
	for i, rc := range raw.Cells {
		c, err := g.registry.BuildJSON(rc)
		if err != nil {
			l.Warn("cell rejected", slog.Int("index", i), slog.Any("err", err))
			return fmt.Errorf("graph: cell %d: %w", i, err)
		}
		cells = append(cells, c)
	}
	if err := g.Reset(cells); err != nil {
		return err
	}
	l.Info("graph loaded", slog.Int("cells", len(cells)))
	return nil
}
