/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package schedule queues view update requests by priority and drains them
// in batches.
//
// A lower priority value is more urgent. Requests for a view that is already
// queued merge their flags into the queued entry. Requests made while a flush
// runs are held back until the flush ends, so one flush always visits
// priorities in ascending order.
package schedule

import (
	"container/heap"
	"slices"
)

// Flags is a bit set of pending update kinds; its meaning is up to the view.
type Flags uint32

// View is anything that can be updated through the queue.
type View interface {
	// ConfirmUpdate applies flags and returns the flags it could not handle
	// yet. Leftover flags are queued again for the next flush.
	ConfirmUpdate(flags Flags) Flags
}

type entry struct {
	view     View
	flags    Flags
	priority int
	seq      uint64
	index    int // position in the heap
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Stats describes one flush.
type Stats struct {
	// Updated counts views whose update completed.
	Updated int
	// Postponed counts views that returned leftover flags.
	Postponed int
	// Priorities lists the priorities visited, ascending.
	Priorities []int
	// Empty reports that nothing is queued after the flush.
	Empty bool
}

type request struct {
	view     View
	flags    Flags
	priority int
}

// Queue is a priority queue of pending view updates. It is not safe for
// concurrent use.
type Queue struct {
	heap    entryHeap
	byView  map[View]*entry
	seq     uint64
	frozen  map[string]int
	running bool
	held    []request

	// Progress, when set, is called after every flush with the number of
	// views updated so far and the total seen since the queue last ran
	// empty. A postponed view counts once, when its update completes.
	Progress func(done bool, processed, total int)

	processed int
	total     int
}

func New() *Queue {
	return &Queue{byView: map[View]*entry{}, frozen: map[string]int{}}
}

// Request queues flags for v at priority. Flags merge into an existing entry;
// a more urgent priority moves the entry. Zero flags and nil views are
// ignored.
func (q *Queue) Request(v View, flags Flags, priority int) {
	if v == nil || flags == 0 {
		return
	}
	if q.running {
		q.held = append(q.held, request{view: v, flags: flags, priority: priority})
		return
	}
	q.request(v, flags, priority, true)
}

// request queues v. count adds a new entry to the progress total; postponed
// views are already counted.
func (q *Queue) request(v View, flags Flags, priority int, count bool) {
	if e, ok := q.byView[v]; ok {
		e.flags |= flags
		if priority < e.priority {
			q.seq++
			e.priority, e.seq = priority, q.seq
			heap.Fix(&q.heap, e.index)
		}
		return
	}
	q.seq++
	e := &entry{view: v, flags: flags, priority: priority, seq: q.seq}
	q.byView[v] = e
	heap.Push(&q.heap, e)
	if count {
		q.total++
	}
}

// Cancel drops the queued request of v.
func (q *Queue) Cancel(v View) {
	if e, ok := q.byView[v]; ok {
		heap.Remove(&q.heap, e.index)
		delete(q.byView, v)
		q.total--
	}
	q.held = slices.DeleteFunc(q.held, func(r request) bool { return r.view == v })
}

// Pending returns the queued flags of v.
func (q *Queue) Pending(v View) (Flags, bool) {
	e, ok := q.byView[v]
	if !ok {
		return 0, false
	}
	return e.flags, true
}

// Len counts the queued views, including requests held during a flush.
func (q *Queue) Len() int { return len(q.heap) + len(q.held) }

// Freeze stops flushing until every key frozen is unfrozen. Requests keep
// being queued.
func (q *Queue) Freeze(key string) { q.frozen[key]++ }

func (q *Queue) Unfreeze(key string) {
	if q.frozen[key] <= 1 {
		delete(q.frozen, key)
		return
	}
	q.frozen[key]--
}

func (q *Queue) IsFrozen() bool { return len(q.frozen) > 0 }

// Reset drops every queued request without updating any view.
func (q *Queue) Reset() {
	q.heap = nil
	q.byView = map[View]*entry{}
	q.held = nil
	q.processed, q.total = 0, 0
}

// Flush drains up to batchSize views (all when batchSize <= 0) in ascending
// priority order. A frozen queue drains nothing.
func (q *Queue) Flush(batchSize int) Stats {
	if q.IsFrozen() || q.running {
		return Stats{Empty: q.Len() == 0}
	}
	q.running = true
	defer func() { q.running = false }()
	var stats Stats
	var postponed []request
	for len(q.heap) > 0 && (batchSize <= 0 || stats.Updated+stats.Postponed < batchSize) {
		e := heap.Pop(&q.heap).(*entry)
		delete(q.byView, e.view)
		if n := len(stats.Priorities); n == 0 || stats.Priorities[n-1] != e.priority {
			stats.Priorities = append(stats.Priorities, e.priority)
		}
		left := e.view.ConfirmUpdate(e.flags)
		if left != 0 {
			stats.Postponed++
			postponed = append(postponed, request{view: e.view, flags: left, priority: e.priority})
			continue
		}
		q.processed++
		stats.Updated++
	}
	q.running = false

	for _, r := range postponed {
		q.request(r.view, r.flags, r.priority, false)
	}
	held := q.held
	q.held = nil
	for _, r := range held {
		q.request(r.view, r.flags, r.priority, true)
	}

	stats.Empty = len(q.heap) == 0
	if q.Progress != nil {
		q.Progress(stats.Empty, q.processed, q.total)
	}
	if stats.Empty {
		q.processed, q.total = 0, 0
	}
	return stats
}
