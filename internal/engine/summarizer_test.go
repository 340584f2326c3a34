package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// recordingServer counts requests per method.
type recordingServer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingServer) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req.Method+" "+req.URL.Path)
}

func (r *recordingServer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestNewHTTPSummarizer_TrimsTrailingSlash(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPSummarizer(" " + srv.URL + "/ ").Summarize(context.Background()); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if calls := rec.Calls(); len(calls) != 1 || calls[0] != "POST /summarize" {
		t.Errorf("calls = %v, want [POST /summarize]", calls)
	}
}

func TestSummarize_PostSuccess(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":3,"status":"done"}`))
	}))
	defer srv.Close()

	out, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}
	if !strings.Contains(string(out.Raw), `"status":"done"`) {
		t.Errorf("Raw = %s, want full body", out.Raw)
	}
	if calls := rec.Calls(); len(calls) != 1 || calls[0] != "POST /summarize" {
		t.Errorf("calls = %v, want [POST /summarize]", calls)
	}
}

func TestSummarize_404FallsBackToGet(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if r.Method == http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Cache-Control"); !strings.Contains(got, "no-cache") {
			t.Errorf("GET Cache-Control = %q, want no-cache", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":5}`))
	}))
	defer srv.Close()

	out, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out.Count != 5 {
		t.Errorf("Count = %d, want 5 (from GET body)", out.Count)
	}
	calls := rec.Calls()
	want := []string{"POST /summarize", "GET /summarize"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestSummarize_HTMLErrorPageFallsBack(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusMethodNotAllowed)
			w.Write([]byte("<html><body>Method Not Allowed</body></html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1}`))
	}))
	defer srv.Close()

	out, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}
	if n := len(rec.Calls()); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestSummarize_500NoFallback(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error is not *UpstreamError: %T", err)
	}
	if ue.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", ue.StatusCode)
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("error %q should carry the body", err)
	}
	if n := len(rec.Calls()); n != 1 {
		t.Errorf("calls = %d, want 1 (no fallback on 500)", n)
	}
}

func TestSummarize_FallbackGetFails(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		body   string
	}{
		{"get 500", http.StatusInternalServerError, "application/json", `{"error":"down"}`},
		{"get html ok", http.StatusOK, "text/html", "<html>login</html>"},
		{"get 404", http.StatusNotFound, "text/plain", "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingServer{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec.record(r)
				if r.Method == http.MethodPost {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", tt.ctype)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
			code, ok := StatusCode(err)
			if !ok {
				t.Fatalf("expected *UpstreamError, got %v", err)
			}
			if code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			if n := len(rec.Calls()); n != 2 {
				t.Errorf("calls = %d, want exactly 2", n)
			}
		})
	}
}

func TestSummarize_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSummarizer(url).Summarize(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !IsUnreachable(err) {
		t.Fatalf("error is not *UnreachableError: %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "Is the summarization service running?") {
		t.Errorf("error %q should carry the reachability hint", err)
	}
}

func TestSummarize_InvalidJSONOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewHTTPSummarizer(srv.URL).Summarize(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
	if IsUnreachable(err) {
		t.Error("decode failure should not be reported as unreachable")
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		ctype string
		want  bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/json", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHTML(tt.ctype); got != tt.want {
			t.Errorf("isHTML(%q) = %v, want %v", tt.ctype, got, tt.want)
		}
	}
}
