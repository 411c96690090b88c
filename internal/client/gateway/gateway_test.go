package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/notekeep-go/internal/client/session"
	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/storage/memory"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
)

// fakeBackend serves the API and the refresh endpoint from one server.
// The API accepts only the bearer in valid; refresh answers with
// refreshBody after refreshDelay.
type fakeBackend struct {
	srv *httptest.Server

	mu           sync.Mutex
	valid        string
	authSeen     []string
	bodies       [][]byte
	refreshBody  string
	refreshCode  int
	refreshDelay time.Duration
	refreshDrop  bool
	onAPI        func(r *http.Request)

	apiCalls     atomic.Int64
	refreshCalls atomic.Int64
}

func newFakeBackend(t *testing.T, valid string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{valid: valid, refreshBody: `{"token":"T2"}`, refreshCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", fb.serveAPI)
	mux.HandleFunc("/auth/refresh", fb.serveRefresh)
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) serveAPI(w http.ResponseWriter, r *http.Request) {
	fb.apiCalls.Add(1)
	body, _ := io.ReadAll(r.Body)

	fb.mu.Lock()
	fb.authSeen = append(fb.authSeen, r.Header.Get("Authorization"))
	fb.bodies = append(fb.bodies, body)
	valid, hook := fb.valid, fb.onAPI
	fb.mu.Unlock()

	if hook != nil {
		hook(r)
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/missing"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Note not found","code":404}`))
	case strings.HasSuffix(r.URL.Path, "/huge"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Repeat("x", maxBodyBytes+1)))
	case strings.HasSuffix(r.URL.Path, "/boom"):
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	case r.Header.Get("Authorization") == "Bearer "+valid:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	default:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
	}
}

func (fb *fakeBackend) serveRefresh(w http.ResponseWriter, r *http.Request) {
	fb.refreshCalls.Add(1)

	fb.mu.Lock()
	delay, code, body, drop := fb.refreshDelay, fb.refreshCode, fb.refreshBody, fb.refreshDrop
	fb.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	time.Sleep(delay)
	if drop {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func (fb *fakeBackend) seen() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.authSeen...)
}

func newTestGateway(t *testing.T, fb *fakeBackend, cred domain.Credential, cfgs ...func(*Config)) (*Gateway, *session.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := session.New(ctx, memory.New(), session.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if !cred.IsZero() {
		if err := store.Login(ctx, cred, domain.Identity{ID: "u1", Name: "Alice", Email: "a@example.com"}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{
		BaseURL:    fb.srv.URL + "/api",
		RefreshURL: fb.srv.URL + "/auth/refresh",
		UserAgent:  "notekeep-test",
		Timeout:    5 * time.Second,
	}
	for _, fn := range cfgs {
		fn(&cfg)
	}

	g, err := New(cfg, store, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	return g, store
}

func metricsText(t *testing.T, g *Gateway) string {
	t.Helper()
	var buf bytes.Buffer
	if err := g.Metrics().WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestNew_RequiresURLs(t *testing.T) {
	if _, err := New(Config{RefreshURL: "x"}, nil); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("missing base url: got %v", err)
	}
	if _, err := New(Config{BaseURL: "x"}, nil); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("missing refresh url: got %v", err)
	}
}

func TestSend_AttachesHeaders(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	var got http.Header
	fb.onAPI = func(r *http.Request) { got = r.Header.Clone() }
	g, _ := newTestGateway(t, fb, "T1")

	req, _ := NewJSONRequest(http.MethodPost, "/notes", map[string]string{"title": "abc"})
	resp, err := g.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got.Get("Authorization") != "Bearer T1" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/json" || got.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content headers %v", got)
	}
	if got.Get("User-Agent") != "notekeep-test" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if id := got.Get(HeaderRequestID); len(id) != 26 || id != resp.RequestID {
		t.Errorf("X-Request-ID = %q, response id %q", id, resp.RequestID)
	}

	var out struct {
		Data struct{ OK bool } `json:"data"`
	}
	if err := resp.Decode(&out); err != nil || !out.Data.OK {
		t.Errorf("Decode() = %+v, %v", out, err)
	}
}

func TestSend_AnonymousOmitsAuthorization(t *testing.T) {
	fb := newFakeBackend(t, "")
	g, _ := newTestGateway(t, fb, "")

	_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes/public"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Send() = %v, want ErrUnauthorized", err)
	}
	if seen := fb.seen(); len(seen) != 1 || seen[0] != "" {
		t.Errorf("authorization headers = %q, want one empty", seen)
	}
	if n := fb.refreshCalls.Load(); n != 0 {
		t.Errorf("anonymous 401 triggered %d refreshes", n)
	}
}

func TestSend_RefreshAndRetry(t *testing.T) {
	fb := newFakeBackend(t, "T2")
	g, store := newTestGateway(t, fb, "T1")

	req, _ := NewFormRequest(http.MethodPut, "/notes/n1", map[string]string{"title": "abc", "content": "0123456789"})
	if _, err := g.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got := fb.seen(); len(got) != 2 || got[0] != "Bearer T1" || got[1] != "Bearer T2" {
		t.Errorf("authorization sequence = %q", got)
	}
	if !bytes.Equal(fb.bodies[0], fb.bodies[1]) || len(fb.bodies[0]) == 0 {
		t.Error("retry must replay the identical body")
	}
	if store.Credential() != "T2" {
		t.Errorf("store credential = %q, want T2", store.Credential())
	}
	if n := fb.refreshCalls.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}

	out := metricsText(t, g)
	for _, want := range []string{
		`notekeep_gateway_refresh_total{result="success"} 1`,
		`notekeep_gateway_retries_total{outcome="succeeded"} 1`,
		`notekeep_gateway_requests_total{code="401",method="PUT"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

// Two requests hit a 401 together; one refresh yields T2 and both are
// replayed with Bearer T2.
func TestSend_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	for _, n := range []int{2, 16} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			fb := newFakeBackend(t, "T2")
			fb.refreshDelay = 50 * time.Millisecond

			// Hold every T1 request until all n have arrived so they all
			// fail with the same credential.
			var arrived atomic.Int64
			barrier := make(chan struct{})
			fb.onAPI = func(r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer T1" {
					return
				}
				if arrived.Add(1) == int64(n) {
					close(barrier)
				}
				select {
				case <-barrier:
				case <-time.After(5 * time.Second):
				}
			}

			g, _ := newTestGateway(t, fb, "T1")

			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = g.Send(context.Background(), NewRequest(http.MethodGet, fmt.Sprintf("/notes/%d", i)))
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Errorf("request %d: %v", i, err)
				}
			}
			if got := fb.refreshCalls.Load(); got != 1 {
				t.Errorf("refresh calls = %d, want exactly 1", got)
			}

			var t1, t2 int
			for _, h := range fb.seen() {
				switch h {
				case "Bearer T1":
					t1++
				case "Bearer T2":
					t2++
				}
			}
			if t1 != n || t2 != n {
				t.Errorf("saw %d T1 and %d T2 requests, want %d each", t1, t2, n)
			}
		})
	}
}

func TestSend_AtMostOneRetry(t *testing.T) {
	fb := newFakeBackend(t, "never")
	g, _ := newTestGateway(t, fb, "T1")

	_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Send() = %v, want ErrUnauthorized", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("terminal error should carry the 401 response, got %v", err)
	}
	if n := fb.apiCalls.Load(); n != 2 {
		t.Errorf("api calls = %d, want 2", n)
	}
	if n := fb.refreshCalls.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if !strings.Contains(metricsText(t, g), `notekeep_gateway_retries_total{outcome="unauthorized"} 1`) {
		t.Error("expected unauthorized retry to be counted")
	}
}

func TestSend_RefreshNetworkError(t *testing.T) {
	fb := newFakeBackend(t, "T2")
	fb.refreshDrop = true
	g, store := newTestGateway(t, fb, "T1")
	ctx := context.Background()

	_, err := g.Send(ctx, NewRequest(http.MethodGet, "/notes"))
	if !errors.Is(err, domain.ErrUnauthorized) || !errors.Is(err, domain.ErrRefreshFailed) {
		t.Fatalf("Send() = %v, want ErrUnauthorized wrapping ErrRefreshFailed", err)
	}
	if n := fb.apiCalls.Load(); n != 1 {
		t.Errorf("refresher should not replay after a failed refresh, api calls = %d", n)
	}
	if store.Credential() != "T1" {
		t.Errorf("failed refresh changed the credential to %q", store.Credential())
	}

	// The coordinator is idle again: the next request re-enters refresh.
	_, err = g.Send(ctx, NewRequest(http.MethodGet, "/notes"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("second Send() = %v", err)
	}
	if n := fb.refreshCalls.Load(); n != 2 {
		t.Errorf("refresh calls = %d, want 2", n)
	}
	if g.coord.inFlight() != nil {
		t.Error("coordinator should be idle")
	}
}

func TestSend_FailedRefreshReleasesWaiters(t *testing.T) {
	const n = 8

	fb := newFakeBackend(t, "T2")
	fb.refreshCode = http.StatusInternalServerError
	fb.refreshBody = `{"message":"refresh down"}`
	fb.refreshDelay = 100 * time.Millisecond
	g, _ := newTestGateway(t, fb, "T1")

	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes"))
			done <- err
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case err := <-done:
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("caller %d: got %v, want ErrUnauthorized", i, err)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("callers deadlocked behind a failed refresh")
		}
	}
	// Each caller joins an in-flight refresh or starts at most one.
	if c := fb.refreshCalls.Load(); c < 1 || c > n {
		t.Errorf("refresh calls = %d, want between 1 and %d", c, n)
	}
	if c := fb.apiCalls.Load(); c != n {
		t.Errorf("api calls = %d, want %d (no replay after failed refresh)", c, n)
	}
	if g.coord.inFlight() != nil {
		t.Error("coordinator should be idle")
	}
}

func TestSend_RejectsOversizedResponse(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	g, _ := newTestGateway(t, fb, "T1")

	resp, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes/huge"))
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("Send() = %v, want ErrResponseTooLarge", err)
	}
	if resp != nil {
		t.Errorf("response should be nil, got %d bytes", len(resp.Body))
	}
	if n := fb.refreshCalls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
}

func TestSend_RefreshWithoutToken(t *testing.T) {
	fb := newFakeBackend(t, "T2")
	fb.refreshBody = `{"status":"ok"}`
	g, store := newTestGateway(t, fb, "T1")

	_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes"))
	if !errors.Is(err, domain.ErrRefreshNoCredential) {
		t.Fatalf("Send() = %v, want ErrRefreshNoCredential in chain", err)
	}
	if store.Credential() != "T1" {
		t.Errorf("credential = %q, want unchanged T1", store.Credential())
	}
}

func TestSend_AlreadyRotatedSkipsRefresh(t *testing.T) {
	fb := newFakeBackend(t, "T3")
	g, store := newTestGateway(t, fb, "T1")

	// Another caller rotates the credential while this request is in flight.
	var once sync.Once
	fb.onAPI = func(*http.Request) {
		once.Do(func() {
			if err := store.Rotate(context.Background(), "T3"); err != nil {
				t.Error(err)
			}
		})
	}

	if _, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n := fb.refreshCalls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
	if got := fb.seen(); len(got) != 2 || got[1] != "Bearer T3" {
		t.Errorf("authorization sequence = %q", got)
	}
}

func TestSend_PassesThroughOtherErrors(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	g, _ := newTestGateway(t, fb, "T1")
	ctx := context.Background()

	_, err := g.Send(ctx, NewRequest(http.MethodGet, "/notes/missing"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Send() = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 404 || apiErr.Message != "Note not found" || apiErr.Code != "404" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(404) should match")
	}

	_, err = g.Send(ctx, NewRequest(http.MethodGet, "/notes/boom"))
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Errorf("Send() = %v, want 500 APIError", err)
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("message should fall back to status text, got %q", err)
	}

	if n := fb.apiCalls.Load(); n != 2 {
		t.Errorf("api calls = %d, want 2 (no retries)", n)
	}
	if n := fb.refreshCalls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
}

func TestSend_TransportError(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	g, _ := newTestGateway(t, fb, "T1")
	fb.srv.Close()

	_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes"))
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("transport error misclassified: %v", err)
	}
}

func TestSend_RateLimit(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	g, _ := newTestGateway(t, fb, "T1", func(c *Config) {
		c.RateLimit = 0.1
		c.RateBurst = 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := g.Send(ctx, NewRequest(http.MethodGet, "/notes")); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if _, err := g.Send(ctx, NewRequest(http.MethodGet, "/notes")); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("second Send() = %v, want rate limit error", err)
	}
}

func TestSend_WaitsBehindInFlightRefresh(t *testing.T) {
	fb := newFakeBackend(t, "T1")
	g, _ := newTestGateway(t, fb, "T1")

	_, f := g.coord.join("T1", func() domain.Credential { return "T1" })

	result := make(chan error, 1)
	go func() {
		_, err := g.Send(context.Background(), NewRequest(http.MethodGet, "/notes"))
		result <- err
	}()

	select {
	case err := <-result:
		t.Fatalf("Send() returned during refresh: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if n := fb.apiCalls.Load(); n != 0 {
		t.Fatalf("request dispatched during refresh (%d calls)", n)
	}

	g.coord.finish(f)
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Send() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send() never resumed")
	}
}

func TestNewFormRequest(t *testing.T) {
	req, err := NewFormRequest(http.MethodPost, "/notes", map[string]string{"title": "abc", "content": "0123456789"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(req.ContentType, "multipart/form-data; boundary=") {
		t.Errorf("ContentType = %q", req.ContentType)
	}

	httpReq := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(req.Body))
	httpReq.Header.Set("Content-Type", req.ContentType)
	if err := httpReq.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	if httpReq.FormValue("title") != "abc" || httpReq.FormValue("content") != "0123456789" {
		t.Errorf("form = %v", httpReq.MultipartForm.Value)
	}
}

func TestRequestURL(t *testing.T) {
	tests := []struct {
		base, path, want string
		query            map[string]string
	}{
		{"http://h/api", "/notes", "http://h/api/notes", nil},
		{"http://h/api/", "notes/1", "http://h/api/notes/1", nil},
		{"http://h/api", "https://other/x", "https://other/x", nil},
		{"http://h/api", "/notes", "http://h/api/notes?page=2", map[string]string{"page": "2"}},
	}
	for _, tt := range tests {
		r := NewRequest(http.MethodGet, tt.path)
		for k, v := range tt.query {
			if r.Query == nil {
				r.Query = map[string][]string{}
			}
			r.Query.Set(k, v)
		}
		got, err := r.url(tt.base)
		if err != nil || got != tt.want {
			t.Errorf("url(%q, %q) = %q, %v; want %q", tt.base, tt.path, got, err, tt.want)
		}
	}
}

func TestParseRefresh(t *testing.T) {
	tests := []struct {
		body string
		want domain.Credential
		ok   bool
	}{
		{`{"token":"T2"}`, "T2", true},
		{`{"data":{"token":"T3"}}`, "T3", true},
		{`{"token":" T4 "}`, "T4", true},
		{`{"access_token":"T5"}`, "", false},
		{`{"data":null}`, "", false},
		{`{"data":"T6"}`, "", false},
		{`not json`, "", false},
		{``, "", false},
	}
	for _, tt := range tests {
		got, err := parseRefresh([]byte(tt.body))
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("parseRefresh(%s) = %q, %v; want %q", tt.body, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, domain.ErrRefreshNoCredential) {
			t.Errorf("parseRefresh(%s) error = %v, want ErrRefreshNoCredential", tt.body, err)
		}
	}
}

func TestAPIError(t *testing.T) {
	e := newAPIError(400, []byte(`{"error":"bad input","code":"E42"}`), "rid")
	if e.Message != "bad input" || e.Code != "E42" || e.RequestID != "rid" {
		t.Errorf("unexpected %+v", e)
	}
	raw, _ := json.Marshal(map[string]any{"message": "nope"})
	if got := newAPIError(403, raw, "").Error(); got != "api error 403: nope" {
		t.Errorf("Error() = %q", got)
	}
}
