/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Live event types.
const (
	EventGraphUpdated = "graph:updated"
	EventGraphDeleted = "graph:deleted"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Message is one live event pushed to subscribers of a graph.
type Message struct {
	Type    string `json:"type"`
	GraphID string `json:"graphId"`
	Version int64  `json:"version,omitempty"`
	By      string `json:"by,omitempty"`
}

// Hub fans graph events out to websocket subscribers, grouped by graph id.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscriber]struct{}
	logger *slog.Logger
}

type subscriber struct {
	conn    *websocket.Conn
	graphID string
	subject string
	send    chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{rooms: map[string]map[*subscriber]struct{}{}, logger: logger}
}

// Subscribers returns how many connections follow graphID.
func (h *Hub) Subscribers(graphID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[graphID])
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[s.graphID]
	if !ok {
		room = map[*subscriber]struct{}{}
		h.rooms[s.graphID] = room
	}
	room[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("subscriber joined", slog.String("graph", s.graphID), slog.String("sub", s.subject))
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[s.graphID]
	if ok {
		if _, member := room[s]; member {
			delete(room, s)
			close(s.send)
		}
		if len(room) == 0 {
			delete(h.rooms, s.graphID)
		}
	}
	h.mu.Unlock()
	h.logger.Info("subscriber left", slog.String("graph", s.graphID), slog.String("sub", s.subject))
}

// Broadcast sends msg to every subscriber of msg.GraphID. Slow subscribers
// whose buffer is full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", slog.Any("err", err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[msg.GraphID] {
		select {
		case s.send <- data:
		default:
			h.logger.Warn("send buffer full, dropping message", slog.String("graph", msg.GraphID), slog.String("sub", s.subject))
		}
	}
}

// Serve runs one accepted connection until the peer or ctx closes it.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, graphID, subject string) {
	s := &subscriber{conn: conn, graphID: graphID, subject: subject, send: make(chan []byte, sendBuffer)}
	h.add(s)
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		h.remove(s)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()
	go h.writePump(ctx, s)
	h.readPump(ctx, s)
}

// readPump drains client frames; subscribers only listen, so anything they
// send is ignored.
func (h *Hub) readPump(ctx context.Context, s *subscriber) {
	s.conn.SetReadLimit(maxMsgSize)
	for {
		if _, _, err := s.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug("read error", slog.Any("err", err), slog.String("sub", s.subject))
			}
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug("write error", slog.Any("err", err), slog.String("sub", s.subject))
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
