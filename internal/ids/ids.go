/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ids generates identifiers: uuids for cells (persisted) and
// prefixed typeids for runtime objects such as views and highlighters.
package ids

import (
	"fmt"

	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
)

const (
	PrefixView        = "view"
	PrefixHighlighter = "hl"
	PrefixSnapshot    = "snap"
)

// NewCellID returns a random (v4) uuid string.
func NewCellID() string { return uuid.NewString() }

// IsUUID reports whether s parses as a uuid.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewViewCID() string       { return New(PrefixView) }
func NewHighlighterID() string { return New(PrefixHighlighter) }
func NewSnapshotID() string    { return New(PrefixSnapshot) }

// Validate checks that id is a typeid with the expected prefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
