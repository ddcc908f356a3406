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
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/clientIO/joint-sub027/internal/export"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/version"
)

const maxBody = 8 << 20

// Server exposes a GraphStore over HTTP.
type Server struct {
	cfg    Config
	store  GraphStore
	hub    *Hub
	secret []byte
	log    *slog.Logger
}

// NewServer wires store behind the HTTP API. A nil logger uses the
// "backend" component logger.
func NewServer(cfg Config, store GraphStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = applog.WithComponent("backend")
	}
	secret, dev := cfg.secret()
	if dev {
		logger.Warn("JG_AUTH_SECRET not set; using insecure dev secret")
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		hub:    NewHub(logger.With(slog.String("sub", "hub"))),
		secret: secret,
		log:    logger,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.ready).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/token", s.issueToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware(s.secret))
	api.HandleFunc("/graphs", s.listGraphs).Methods(http.MethodGet)
	api.HandleFunc("/graphs/{id}", s.getGraph).Methods(http.MethodGet)
	api.HandleFunc("/graphs/{id}", s.putGraph).Methods(http.MethodPut)
	api.HandleFunc("/graphs/{id}", s.deleteGraph).Methods(http.MethodDelete)
	api.HandleFunc("/graphs/{id}/svg", s.graphSVG).Methods(http.MethodGet)
	api.HandleFunc("/graphs/{id}/connection-point", s.connectionPoint).Methods(http.MethodPost)

	r.HandleFunc("/ws/graphs/{id}", s.serveWS)
	return r
}

// Run listens on cfg.Addr until ctx is cancelled or SIGINT/SIGTERM arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	pinger, ok := s.store.(interface{ Ping(context.Context) error })
	if ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// issueToken handles POST /api/auth/token with {subject, ttl_seconds, key}.
// With a configured secret the key must match it.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
		Key        string `json:"key"`
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	// an empty body asks for a default token
	if len(bytes.TrimSpace(b)) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid token request: %w", err))
			return
		}
	}
	if s.cfg.AuthSecret != "" && subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.cfg.AuthSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, errors.New("invalid key"))
		return
	}
	if req.Subject == "" {
		req.Subject = "dev"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

// listGraphs handles GET /api/graphs. With ?q= or ?type= it searches instead
// and returns search results.
func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	if qv.Has("q") || qv.Has("type") {
		q := storage.SearchQuery{Text: qv.Get("q"), Types: qv["type"]}
		q.Limit, _ = strconv.Atoi(qv.Get("limit"))
		q.Offset, _ = strconv.Atoi(qv.Get("offset"))
		res, err := s.store.Search(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if res == nil {
			res = []storage.SearchResult{}
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []GraphRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PutGraphRequest is the body of PUT /api/graphs/{id}. Version is the
// version the client last saw, zero to create.
type PutGraphRequest struct {
	Name    string          `json:"name"`
	Version int64           `json:"version"`
	Graph   json.RawMessage `json:"graph"`
}

func (s *Server) putGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req PutGraphRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	// a full load catches what the schema cannot, like duplicate ids
	if err := graph.New(graph.Options{}).FromJSON(req.Graph); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	rec, err := s.store.Put(r.Context(), id, req.Name, req.Graph, req.Version)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sub := SubjectFromContext(r.Context())
	s.log.InfoContext(applog.WithDocument(r.Context(), id), "graph saved", slog.Int64("version", rec.Version), slog.String("sub", sub))
	s.hub.Broadcast(Message{Type: EventGraphUpdated, GraphID: id, Version: rec.Version, By: sub})
	status := http.StatusOK
	if req.Version == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.hub.Broadcast(Message{Type: EventGraphDeleted, GraphID: id, By: SubjectFromContext(r.Context())})
	w.WriteHeader(http.StatusNoContent)
}

// loadPaper reads graph id from the store and renders it.
func (s *Server) loadPaper(ctx context.Context, id string) (*graph.Graph, *paper.Paper, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	g := graph.New(graph.Options{})
	if err := g.FromJSON(rec.Graph); err != nil {
		return nil, nil, err
	}
	p := paper.New(g, paper.Options{Logger: applog.ForDocument(s.log.With(slog.String("sub", "paper")), id)})
	return g, p, nil
}

func (s *Server) graphSVG(w http.ResponseWriter, r *http.Request) {
	_, p, err := s.loadPaper(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer p.Close()
	opt := export.RenderOptions{Scale: 1}
	opt.IncludeGrid = r.URL.Query().Get("grid") == "1"
	b, err := export.RenderBytes(p, export.FormatSVG, opt)
	if errors.Is(err, export.ErrNothingToExport) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// ConnectionPointRequest asks where a link between two ends of a stored graph
// would start and end.
type ConnectionPointRequest struct {
	Source   graph.Endpoint   `json:"source"`
	Target   graph.Endpoint   `json:"target"`
	Vertices []geometry.Point `json:"vertices,omitempty"`
}

// connectionPoint routes a throwaway link through the stored graph and
// returns its geometry. The stored graph is not changed.
func (s *Server) connectionPoint(w http.ResponseWriter, r *http.Request) {
	var req ConnectionPointRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	g, p, err := s.loadPaper(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer p.Close()
	attrs := graph.Attributes{
		"type":   graph.TypeLink,
		"id":     "scratch-" + uuid.NewString(),
		"source": req.Source,
		"target": req.Target,
	}
	if len(req.Vertices) > 0 {
		attrs["vertices"] = req.Vertices
	}
	c, err := g.AddCell(attrs)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	p.UpdateViews()
	v := p.FindView(c.ID)
	if v == nil {
		writeError(w, http.StatusInternalServerError, paper.ErrUnknownCell)
		return
	}
	if v.Err != nil {
		writeError(w, http.StatusUnprocessableEntity, v.Err)
		return
	}
	writeJSON(w, http.StatusOK, v.Link)
}

// serveWS upgrades GET /ws/graphs/{id}?token= and streams graph events.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	sub, err := verifyToken(s.secret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.OriginPatterns})
	if err != nil {
		s.log.ErrorContext(applog.WithDocument(r.Context(), id), "websocket accept", slog.Any("err", err))
		return
	}
	s.hub.Serve(r.Context(), conn, id, sub)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrVersionConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, graph.ErrInvalidDocument), errors.Is(err, graph.ErrMissingCells):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
