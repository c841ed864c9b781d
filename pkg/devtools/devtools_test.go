package devtools_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vstore/pkg/devtools"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/tree"
	"github.com/vango-dev/vstore/pkg/vtest"
)

func newServer(t *testing.T) (*store.Store, *devtools.Server, *httptest.Server) {
	t.Helper()
	s := vtest.NewStore(t, map[string]any{
		"text":  "a",
		"num":   1,
		"todos": []any{map[string]any{"title": "milk", "done": false}},
	}, store.WithName("devtools-test"))
	srv := devtools.New(s, devtools.WithMetricsHandler(promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})))
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return s, srv, ts
}

func do(t *testing.T, method, url, contentType, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestHealth(t *testing.T) {
	_, _, ts := newServer(t)
	code, body := do(t, "GET", ts.URL+"/healthz", "", "")
	if code != http.StatusOK || body != "ok" {
		t.Errorf("GET /healthz = %d %q", code, body)
	}
}

func TestState(t *testing.T) {
	_, _, ts := newServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantVal  string
	}{
		{"root", "/state", http.StatusOK, `"text":"a"`},
		{"key", "/state/text", http.StatusOK, `"value":"a"`},
		{"index", "/state/todos/0/title", http.StatusOK, `"value":"milk"`},
		{"missing", "/state/nope", http.StatusNotFound, `path not found`},
		{"bad index", "/state/todos/9", http.StatusNotFound, `path not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, "GET", ts.URL+tt.path, "", "")
			if code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", code, tt.wantCode, body)
			}
			if !strings.Contains(body, tt.wantVal) {
				t.Errorf("body %s does not contain %s", body, tt.wantVal)
			}
		})
	}
}

func TestPatch(t *testing.T) {
	s, _, ts := newServer(t)

	code, body := do(t, "POST", ts.URL+"/patch", devtools.ContentTypeJSONPatch,
		`[{"op":"replace","path":"/text","value":"b"},{"op":"add","path":"/todos/-","value":{"title":"eggs"}}]`)
	if code != http.StatusOK {
		t.Fatalf("patch = %d %s", code, body)
	}
	var resp devtools.PatchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != 1 || len(resp.Writes) == 0 {
		t.Errorf("response = %+v", resp)
	}
	vtest.ExpectValue(t, s, "$.text", "b")
	vtest.ExpectValue(t, s, "$.todos[1].title", "eggs")

	code, body = do(t, "POST", ts.URL+"/patch", devtools.ContentTypeMergePatch, `{"num":null,"extra":true}`)
	if code != http.StatusOK {
		t.Fatalf("merge = %d %s", code, body)
	}
	if _, ok := s.Current().Root.Child("num"); ok {
		t.Error("merge patch null should remove num")
	}
	vtest.ExpectValue(t, s, "$.extra", true)
}

func TestPatchErrors(t *testing.T) {
	s, _, ts := newServer(t)

	tests := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"invalid json", devtools.ContentTypeJSONPatch, `[`, http.StatusBadRequest},
		{"unknown op", devtools.ContentTypeJSONPatch, `[{"op":"shove","path":"/a"}]`, http.StatusBadRequest},
		{"missing path", devtools.ContentTypeJSONPatch, `[{"op":"remove","path":"/nope"}]`, http.StatusUnprocessableEntity},
		{"test failed", devtools.ContentTypeJSONPatch, `[{"op":"test","path":"/text","value":"z"}]`, http.StatusConflict},
		{"bad merge", devtools.ContentTypeMergePatch, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, "POST", ts.URL+"/patch", tt.ct, tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, body)
			}
		})
	}
	if v := s.Current().Version; v != 0 {
		t.Errorf("failed patches published version %d", v)
	}
}

func TestMetricsRoute(t *testing.T) {
	_, _, ts := newServer(t)
	code, _ := do(t, "GET", ts.URL+"/metrics", "", "")
	if code != http.StatusOK {
		t.Errorf("GET /metrics = %d", code)
	}
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) devtools.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f devtools.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatch(t *testing.T) {
	s, srv, ts := newServer(t)
	conn := dial(t, ts, "?path=$.text")

	f := readFrame(t, conn)
	if f.Type != devtools.FrameSnapshot || f.Client == "" {
		t.Fatalf("first frame = %+v", f)
	}
	if got, _ := f.Values.Child("$.text"); got == nil || !tree.Equal(got, tree.String("a")) {
		t.Errorf("snapshot values = %s", mustJSON(t, f.Values))
	}
	waitFor(t, "client registered", func() bool { return srv.ClientCount() == 1 })

	// An unwatched write sends nothing; the next watched write does.
	vtest.MustUpdate(t, s, vtest.Set("$.num", 2))
	vtest.MustUpdate(t, s, vtest.Set("$.text", "b"))

	f = readFrame(t, conn)
	if f.Type != devtools.FrameChange {
		t.Fatalf("frame type = %s, want change", f.Type)
	}
	if f.Version != 2 {
		t.Errorf("frame version = %d, want 2", f.Version)
	}
	if string(f.Patch) != `{"$.text":"b"}` {
		t.Errorf("patch = %s", f.Patch)
	}

	listeners := s.ListenerCount()
	conn.Close()
	waitFor(t, "client removed", func() bool { return srv.ClientCount() == 0 })
	waitFor(t, "listener removed", func() bool { return s.ListenerCount() == listeners-1 })
}

func TestWatchBadPath(t *testing.T) {
	_, _, ts := newServer(t)
	code, _ := do(t, "GET", ts.URL+"/watch?path=$.a[x]", "", "")
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, srv, ts := newServer(t)
	conn := dial(t, ts, "")
	readFrame(t, conn)
	waitFor(t, "client registered", func() bool { return srv.ClientCount() == 1 })

	srv.Close()
	waitFor(t, "clients closed", func() bool { return srv.ClientCount() == 0 && s.ListenerCount() == 0 })
}

func mustJSON(t *testing.T, n *tree.Node) string {
	t.Helper()
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
