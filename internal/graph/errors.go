/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCells       = errors.New("graph JSON must contain cells array")
	ErrInvalidDocument    = errors.New("graph: invalid graph JSON")
	ErrRecursiveEmbedding = errors.New("graph: recursive embedding not allowed")
	ErrAlreadyEmbedded    = errors.New("graph: embedding of already embedded cells is not allowed")
	ErrDuplicateID        = errors.New("graph: duplicate cell id")
	ErrInvalidType        = errors.New("graph: invalid cell type")
	ErrForeignCell        = errors.New("graph: cell belongs to another graph")
	ErrUnknownPort        = errors.New("graph: unknown port")
	ErrDuplicatePort      = errors.New("graph: duplicate port id")
)

// ConfigurationError reports a cell type that is not in the registry.
type ConfigurationError struct {
	Type string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("graph: no cell type %q in the registry", e.Type)
}
