/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clientIO/joint-sub027/internal/graph"
	"github.com/clientIO/joint-sub027/internal/ids"
)

func TestSnapshotsCRUD(t *testing.T) {
	h := newHandle(t)
	ctx := context.Background()

	if s, err := LatestSnapshot(ctx, h); err != nil || s != nil {
		t.Fatalf("LatestSnapshot on empty index = %v %v", s, err)
	}
	first, err := SaveSnapshot(ctx, h, time.Now())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := ids.Validate(first.ID, ids.PrefixSnapshot); err != nil || first.Cells != 0 {
		t.Fatalf("snapshot = %+v (%v)", first, err)
	}

	if err := h.SetGraph(sampleGraph(t)); err != nil {
		t.Fatalf("SetGraph: %v", err)
	}
	base := time.Now()
	for i := range 5 {
		if _, err := SaveSnapshot(ctx, h, base.Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	latest, err := LatestSnapshot(ctx, h)
	if err != nil || latest == nil || latest.Cells != 3 {
		t.Fatalf("LatestSnapshot = %+v (%v)", latest, err)
	}
	g := graph.New(graph.Options{})
	if err := g.FromJSON(latest.Graph); err != nil || g.Cell("l") == nil {
		t.Fatalf("snapshot graph does not load: %v", err)
	}

	list, err := ListSnapshots(ctx, h, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	if !list[0].TS.After(list[len(list)-1].TS) {
		t.Fatalf("snapshots not newest first")
	}
	n, err := PruneSnapshots(ctx, h, 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneSnapshots = %d (%v)", n, err)
	}
	list, err = ListSnapshots(ctx, h, 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSnapshots after prune got %d err %v", len(list), err)
	}

	h.Doc.Graph = []byte("nope")
	if _, err := SaveSnapshot(ctx, h, time.Now()); err == nil || !strings.Contains(err.Error(), "snapshot graph") {
		t.Fatalf("expected graph error, got %v", err)
	}
}
