package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/clientIO/joint-sub027/internal/config"
	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
)

const sampleGraph = `{"cells":[
	{"type":"standard.Rectangle","id":"a","position":{"x":0,"y":0},"size":{"width":100,"height":50},"attrs":{"label":{"text":"Order service"}}},
	{"type":"standard.Rectangle","id":"b","position":{"x":300,"y":0},"size":{"width":100,"height":50},"attrs":{"label":{"text":"Billing"}}}
]}`

func newTestServer(t *testing.T) (*Server, *httptest.Server, *Client) {
	t.Helper()
	s := NewServer(Config{TokenTTL: time.Hour}, NewMemStore(), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	c := NewClient(config.BackendConfig{BaseURL: ts.URL + "/", TimeoutMs: 5000}, "")
	if _, _, err := c.IssueToken(context.Background(), "tester", "", time.Hour); err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return s, ts, c
}

func TestAuth_RequiresBearer(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/graphs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	bad := NewClient(config.BackendConfig{BaseURL: ts.URL}, "not-a-token")
	if _, err := bad.ListGraphs(context.Background()); err == nil {
		t.Fatalf("expected error for invalid token")
	}
}

func TestAuth_KeyRequiredWithSecret(t *testing.T) {
	s := NewServer(Config{AuthSecret: "s3cret"}, NewMemStore(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	c := NewClient(config.BackendConfig{BaseURL: ts.URL}, "")
	var se *StatusError
	if _, _, err := c.IssueToken(context.Background(), "x", "wrong", 0); !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("wrong key: err = %v", err)
	}
	if _, _, err := c.IssueToken(context.Background(), "x", "s3cret", 0); err != nil {
		t.Fatalf("right key: %v", err)
	}
	if _, err := c.ListGraphs(context.Background()); err != nil {
		t.Fatalf("list with token: %v", err)
	}
}

func TestIssueToken_MalformedBody(t *testing.T) {
	_, ts, _ := newTestServer(t)
	for _, body := range []string{"{", `{"subject":42}`, "not json"} {
		resp, err := http.Post(ts.URL+"/api/auth/token", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
		if _, ok := out["token"]; ok {
			t.Fatalf("body %q: token issued", body)
		}
	}

	resp, err := http.Post(ts.URL+"/api/auth/token", "application/json", nil)
	if err != nil {
		t.Fatalf("post empty: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty body: status = %d, want 200 in open mode", resp.StatusCode)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("k")
	tok, err := signToken(secret, "alice", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := verifyToken(secret, tok)
	if err != nil || sub != "alice" {
		t.Fatalf("verify = %q, %v", sub, err)
	}
	if _, err := verifyToken([]byte("other"), tok); err == nil {
		t.Fatalf("expected signature error")
	}
	expired, _ := signToken(secret, "alice", time.Now().Add(-time.Minute))
	if _, err := verifyToken(secret, expired); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestGraphCRUD(t *testing.T) {
	_, _, c := newTestServer(t)
	ctx := context.Background()

	rec, err := c.PutGraph(ctx, "g1", "Orders", json.RawMessage(sampleGraph), 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Version != 1 {
		t.Fatalf("version = %d, want 1", rec.Version)
	}
	if _, err := c.PutGraph(ctx, "g1", "Orders", json.RawMessage(sampleGraph), 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second create: err = %v, want conflict", err)
	}
	rec, err = c.PutGraph(ctx, "g1", "Orders v2", json.RawMessage(sampleGraph), 1)
	if err != nil || rec.Version != 2 {
		t.Fatalf("update: %+v, %v", rec, err)
	}
	if _, err := c.PutGraph(ctx, "g1", "stale", json.RawMessage(sampleGraph), 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: err = %v, want conflict", err)
	}
	if _, err := c.PutGraph(ctx, "nope", "x", json.RawMessage(sampleGraph), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: err = %v, want not found", err)
	}

	got, err := c.GetGraph(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Orders v2" || got.Version != 2 || !strings.Contains(string(got.Graph), "Billing") {
		t.Fatalf("get = %+v", got)
	}

	list, err := c.ListGraphs(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "g1" || len(list[0].Graph) != 0 {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if err := c.DeleteGraph(ctx, "g1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetGraph(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: err = %v", err)
	}
	if err := c.DeleteGraph(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: err = %v", err)
	}
}

func TestPutGraph_RejectsInvalid(t *testing.T) {
	_, _, c := newTestServer(t)
	ctx := context.Background()
	for _, doc := range []string{`{"nodes":[]}`, `{"cells":[{"id":"no-type"}]}`} {
		_, err := c.PutGraph(ctx, "bad", "bad", json.RawMessage(doc), 0)
		var se *StatusError
		if !errors.As(err, &se) || se.Status != http.StatusUnprocessableEntity {
			t.Fatalf("%s: err = %v, want 422", doc, err)
		}
	}
}

func TestSearchGraphs(t *testing.T) {
	_, _, c := newTestServer(t)
	ctx := context.Background()
	if _, err := c.PutGraph(ctx, "g1", "Orders", json.RawMessage(sampleGraph), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := c.PutGraph(ctx, "g2", "Empty", json.RawMessage(`{"cells":[]}`), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	res, err := c.SearchGraphs(ctx, storage.SearchQuery{Text: "billing"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 1 || res[0].ID != "g1" || res[0].Type != "graph" {
		t.Fatalf("search = %+v", res)
	}
	res, err = c.SearchGraphs(ctx, storage.SearchQuery{Types: []string{"standard.Rectangle"}})
	if err != nil || len(res) != 1 {
		t.Fatalf("type search = %+v, %v", res, err)
	}
	res, err = c.SearchGraphs(ctx, storage.SearchQuery{Text: "nothing-like-this"})
	if err != nil || len(res) != 0 {
		t.Fatalf("miss = %+v, %v", res, err)
	}
}

func TestGraphSVG(t *testing.T) {
	_, ts, c := newTestServer(t)
	if _, err := c.PutGraph(context.Background(), "g1", "Orders", json.RawMessage(sampleGraph), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/graphs/g1/svg", nil)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(string(body), "<?xml") && !strings.Contains(string(body), "<svg") {
		t.Fatalf("not svg: %.80s", body)
	}
	if !strings.Contains(string(body), "Order service") {
		t.Fatalf("label missing from svg")
	}
}

func TestConnectionPoint(t *testing.T) {
	_, ts, c := newTestServer(t)
	if _, err := c.PutGraph(context.Background(), "g1", "Orders", json.RawMessage(sampleGraph), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	body := `{"source":{"id":"a"},"target":{"id":"b"}}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/graphs/g1/connection-point", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var g paper.LinkGeometry
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-6 }
	if !near(g.SourcePoint.X, 100) || !near(g.SourcePoint.Y, 25) {
		t.Fatalf("source point = %+v, want (100,25)", g.SourcePoint)
	}
	if !near(g.TargetPoint.X, 300) || !near(g.TargetPoint.Y, 25) {
		t.Fatalf("target point = %+v, want (300,25)", g.TargetPoint)
	}

	// the scratch link is not stored
	rec, err := c.GetGraph(context.Background(), "g1")
	if err != nil || strings.Contains(string(rec.Graph), "scratch-") {
		t.Fatalf("stored graph changed: %v", err)
	}
}

func TestWebsocket_GraphEvents(t *testing.T) {
	s, ts, c := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/graphs/g1?token=" + c.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for s.Hub().Subscribers("g1") == 0 {
		if ctx.Err() != nil {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.PutGraph(ctx, "g1", "Orders", json.RawMessage(sampleGraph), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != EventGraphUpdated || msg.GraphID != "g1" || msg.Version != 1 || msg.By != "tester" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestWebsocket_RequiresToken(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/ws/graphs/g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
