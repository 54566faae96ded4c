package moonraker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type warnings struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warnings) sink(msg string) {
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
}

func (w *warnings) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

func newTestClient(t *testing.T, serverURL string, opts Options) *Client {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	c, err := NewClient(u.Hostname(), u.Port(), opts)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestParseBaseURL_BuildsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("192.168.1.50", "")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != "http://192.168.1.50:7125" {
		t.Fatalf("url = %q, want http://192.168.1.50:7125", u.String())
	}

	u, err = parseBaseURL("http://printer.local:8080/path?x=1#frag", "7125")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.Host != "printer.local:8080" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("  ", "7125"); err == nil {
		t.Fatal("parseBaseURL with empty host returned nil error")
	}
}

func TestExecute_SuccessClearsUnconnected(t *testing.T) {
	var gotUserAgent, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{})
	if !c.Unconnected() {
		t.Fatal("Unconnected = false before any request, want true")
	}

	res := c.Execute(context.Background(), http.MethodGet, "/server/info")
	if res.Outcome != OutcomeSuccess || !res.Succeeded() {
		t.Fatalf("outcome = %v, want success", res)
	}
	if res.Body != `{"result":"ok"}` || res.StatusCode != http.StatusOK || res.Attempts != 1 {
		t.Fatalf("result = %#v", res)
	}
	if c.Unconnected() {
		t.Fatal("Unconnected = true after 2xx, want false")
	}
	if !strings.HasPrefix(gotUserAgent, "roost/") || gotAccept != "application/json" {
		t.Fatalf("headers UA=%q Accept=%q", gotUserAgent, gotAccept)
	}
}

func TestExecute_EncodesSpaces(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{})
	c.Execute(context.Background(), http.MethodGet, "/printer/objects/query?gcode_macro _CROWPANEL_STATUS")
	if rawQuery != "gcode_macro%20_CROWPANEL_STATUS" {
		t.Fatalf("raw query = %q, want spaces as %%20", rawQuery)
	}
}

func TestExecute_ServiceUnavailableRetriesWithGrowingDelay(t *testing.T) {
	const base = 40 * time.Millisecond

	var mu sync.Mutex
	var hits []time.Time
	healthy := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		hits = append(hits, time.Now())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{RetryDelay: base})
	res := c.Execute(context.Background(), http.MethodGet, PathPrinter)

	if res.Outcome != OutcomeAbandoned || res.Succeeded() {
		t.Fatalf("outcome = %v, want abandoned", res)
	}
	if res.Attempts != 3 || res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("attempts/status = %d/%d, want 3/503", res.Attempts, res.StatusCode)
	}

	mu.Lock()
	got := append([]time.Time(nil), hits...)
	healthy = true
	mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(got))
	}
	first, second := got[1].Sub(got[0]), got[2].Sub(got[1])
	if first < base {
		t.Fatalf("first retry gap = %v, want >= %v", first, base)
	}
	if second < 2*base {
		t.Fatalf("second retry gap = %v, want >= %v", second, 2*base)
	}

	if res := c.Execute(context.Background(), http.MethodGet, PathPrinter); res.Outcome != OutcomeSuccess {
		t.Fatalf("follow-up outcome = %v, want success", res)
	}
	if c.Unconnected() {
		t.Fatal("Unconnected = true after a 2xx, want false")
	}
}

func TestExecute_LogsOnlyRealRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestClient(t, server.URL, Options{Logger: zap.New(core)})
	res := c.Execute(context.Background(), http.MethodGet, PathPrinter)
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}

	retries := logs.FilterMessage("retrying request").All()
	if len(retries) != 2 {
		t.Fatalf("retry entries = %d, want 2", len(retries))
	}
	for i, e := range retries {
		if got := e.ContextMap()["attempt"]; got != uint64(i+1) {
			t.Fatalf("entry %d attempt = %v, want %d", i, got, i+1)
		}
	}
	if logs.FilterMessage("request abandoned").Len() != 1 {
		t.Fatal("abandoned request not logged once")
	}
}

func TestRetryDelayStrictlyIncreases(t *testing.T) {
	prev := time.Duration(0)
	for attempt := uint(1); attempt <= 5; attempt++ {
		d := retryDelay(attempt, defaultRetryDelay)
		if d <= prev {
			t.Fatalf("retryDelay(%d) = %v, want > %v", attempt, d, prev)
		}
		prev = d
	}
	if got := retryDelay(1, defaultRetryDelay); got != 500*time.Millisecond {
		t.Fatalf("retryDelay(1) = %v, want 500ms", got)
	}
}

func TestExecute_RequestTimeoutIsRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{})
	res := c.Execute(context.Background(), http.MethodPost, GcodePath("G28"))
	if res.Outcome != OutcomeSuccess || res.Attempts != 2 {
		t.Fatalf("result = %v attempts=%d, want success after 2", res, res.Attempts)
	}
}

func TestExecute_OtherClientErrorsAreNotRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{})
	res := c.Execute(context.Background(), http.MethodGet, "/missing")
	if res.Outcome != OutcomeAbandoned || res.Attempts != 1 {
		t.Fatalf("result = %v attempts=%d, want abandoned after 1", res, res.Attempts)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("server calls = %d, want 1", calls)
	}
}

func TestExecute_BadRequestForwardsWarningWithoutRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad macro"}}`))
	}))
	t.Cleanup(server.Close)

	var sink warnings
	c := newTestClient(t, server.URL, Options{Warnings: sink.sink})
	res := c.Execute(context.Background(), http.MethodPost, GcodePath("FOO"))

	if res.Outcome != OutcomeApplicationError || !res.Succeeded() {
		t.Fatalf("outcome = %v, want application error", res)
	}
	if res.Attempts != 1 || res.Message != "bad macro" {
		t.Fatalf("attempts/message = %d/%q, want 1/bad macro", res.Attempts, res.Message)
	}
	if got := sink.all(); len(got) != 1 || got[0] != "bad macro" {
		t.Fatalf("warnings = %q, want [bad macro]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("server calls = %d, want 1", calls)
	}
	if c.Unconnected() {
		t.Fatal("Unconnected = true after a 400 response, want false")
	}
}

func TestExecute_BadRequestWithoutEnvelopeStaysQuiet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`not json`))
	}))
	t.Cleanup(server.Close)

	var sink warnings
	c := newTestClient(t, server.URL, Options{Warnings: sink.sink})
	res := c.Execute(context.Background(), http.MethodPost, GcodePath("FOO"))
	if res.Outcome != OutcomeApplicationError || res.Message != "" {
		t.Fatalf("result = %#v, want application error without message", res)
	}
	if got := sink.all(); len(got) != 0 {
		t.Fatalf("warnings = %q, want none", got)
	}
}

func TestExecute_TransportFailureRaisesUnconnectedOnlyForGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c := newTestClient(t, server.URL, Options{})

	if res := c.Execute(context.Background(), http.MethodGet, PathReadiness); res.Outcome != OutcomeSuccess {
		t.Fatalf("warm-up outcome = %v, want success", res)
	}
	server.Close()
	c.CloseIdleConnections()

	post := c.Execute(context.Background(), http.MethodPost, GcodePath("G28"))
	if post.Outcome != OutcomeAbandoned || post.StatusCode != 0 || post.Attempts != 3 {
		t.Fatalf("POST result = %v attempts=%d, want abandoned after 3", post, post.Attempts)
	}
	if c.Unconnected() {
		t.Fatal("Unconnected = true after POST transport failure, want false")
	}

	get := c.Execute(context.Background(), http.MethodGet, PathReadiness)
	if get.Outcome != OutcomeAbandoned || get.Err == nil {
		t.Fatalf("GET result = %v, want abandoned with error", get)
	}
	if !c.Unconnected() {
		t.Fatal("Unconnected = false after GET transport failure, want true")
	}
}

func TestExecute_TimeoutDependsOnMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{
		GetTimeout:  30 * time.Millisecond,
		PostTimeout: 5 * time.Second,
		Attempts:    1,
	})

	if res := c.Execute(context.Background(), http.MethodGet, PathPrinter); res.Outcome != OutcomeAbandoned {
		t.Fatalf("GET outcome = %v, want abandoned on short timeout", res)
	}
	if res := c.Execute(context.Background(), http.MethodPost, GcodePath("G28")); res.Outcome != OutcomeSuccess {
		t.Fatalf("POST outcome = %v, want success under long timeout", res)
	}
}

func TestExecute_CancelledContextStopsRetrying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Options{RetryDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := c.Execute(ctx, http.MethodGet, PathPrinter)
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("Execute took %v, want it to stop with the context", elapsed)
	}
	if res.Outcome != OutcomeAbandoned || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("result = %v, want abandoned with deadline exceeded", res)
	}
}

func TestCleanErrorMessage(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "bad macro", "bad macro"},
		{"envelope single quotes", `{'error': 'WebRequestError', 'message': 'Unknown command:"FOO"'}`, `Unknown command:"FOO"`},
		{"envelope double quotes", `{'error': 'WebRequestError', 'message': "Must home axis first: 0.000 0.000"}`, "Must home axis first: 0.000 0.000"},
		{"escaped newlines", `{'error': 'WebRequestError', 'message': 'line one\nline two'}`, "line one\nline two"},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanErrorMessage(tt.in); got != tt.want {
				t.Fatalf("cleanErrorMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want Outcome
	}{
		{200, OutcomeSuccess},
		{204, OutcomeSuccess},
		{400, OutcomeApplicationError},
		{401, OutcomeAbandoned},
		{404, OutcomeAbandoned},
		{408, OutcomeRetryable},
		{500, OutcomeRetryable},
		{503, OutcomeRetryable},
		{302, OutcomeAbandoned},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.code); got != tt.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
