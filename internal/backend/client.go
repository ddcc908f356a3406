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
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clientIO/joint-sub027/internal/config"
	"github.com/clientIO/joint-sub027/internal/storage"
)

// Client talks to the graph API for the CLI.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a client from the backend section of the app config.
// A trailing slash on the base URL is dropped.
func NewClient(cfg config.BackendConfig, token string) *Client {
	hc := &http.Client{Timeout: cfg.Timeout()}
	if cfg.TLSInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Token:   token,
		client:  hc,
	}
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Status)
}

// Is maps 404 and 409 answers to the store errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrVersionConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &StatusError{Method: method, Path: u.Path, Status: resp.StatusCode, Message: e.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// IssueToken asks the server for a bearer token and stores it on the client.
func (c *Client) IssueToken(ctx context.Context, subject, key string, ttl time.Duration) (string, time.Time, error) {
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second), "key": key}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", time.Time{}, err
	}
	if resp.Token == "" {
		return "", time.Time{}, errors.New("server returned no token")
	}
	exp, _ := time.Parse(time.RFC3339, resp.ExpiresAt)
	c.Token = resp.Token
	return resp.Token, exp, nil
}

// ListGraphs returns the stored graphs without documents.
func (c *Client) ListGraphs(ctx context.Context) ([]GraphRecord, error) {
	var list []GraphRecord
	if err := c.do(ctx, http.MethodGet, "/api/graphs", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchGraphs runs a server side search.
func (c *Client) SearchGraphs(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	for _, t := range q.Types {
		v.Add("type", t)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", fmt.Sprint(q.Offset))
	}
	var res []storage.SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/graphs?"+v.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetGraph(ctx context.Context, id string) (GraphRecord, error) {
	var rec GraphRecord
	err := c.do(ctx, http.MethodGet, "/api/graphs/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// PutGraph uploads graph JSON. version is the last seen version, zero to
// create.
func (c *Client) PutGraph(ctx context.Context, id, name string, graph json.RawMessage, version int64) (GraphRecord, error) {
	var rec GraphRecord
	body := PutGraphRequest{Name: name, Version: version, Graph: graph}
	err := c.do(ctx, http.MethodPut, "/api/graphs/"+url.PathEscape(id), body, &rec)
	return rec, err
}

func (c *Client) DeleteGraph(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/graphs/"+url.PathEscape(id), nil, nil)
}
