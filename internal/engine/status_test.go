package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStatusQuery_PassesThroughPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %s, want /status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"idle","recent_emails":[]}`))
	}))
	defer srv.Close()

	rep := NewStatusQuery(srv.URL+"/", nil).Query(context.Background())
	if rep.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", rep.StatusCode)
	}
	if rep.IsError() {
		t.Error("report should not be an error")
	}
	if !strings.Contains(string(rep.Body), `"recent_emails"`) {
		t.Errorf("Body = %s, want verbatim payload", rep.Body)
	}
}

func TestStatusQuery_UpstreamStatusKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"busy"}`))
	}))
	defer srv.Close()

	rep := NewStatusQuery(srv.URL, nil).Query(context.Background())
	if rep.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", rep.StatusCode)
	}
}

func TestStatusQuery_FailureBecomesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	rep := NewStatusQuery(url, nil).Query(context.Background())
	if rep.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", rep.StatusCode)
	}
	if !rep.IsError() {
		t.Fatalf("report should be an error payload: %s", rep.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rep.Body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "error" || body["error"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusQuery_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	rep := NewStatusQuery(srv.URL, nil).Query(context.Background())
	if !rep.IsError() {
		t.Errorf("non-JSON status should become an error payload, got %s", rep.Body)
	}
}

func TestStatusQuery_SharedCallOutlivesCanceledCaller(t *testing.T) {
	hit := make(chan struct{}, 4)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"idle"}`))
	}))
	defer srv.Close()
	q := NewStatusQuery(srv.URL, nil)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan StatusReport, 1)
	go func() { firstDone <- q.Query(first) }()
	<-hit

	secondDone := make(chan StatusReport, 1)
	go func() { secondDone <- q.Query(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if rep := <-firstDone; !rep.IsError() {
		t.Errorf("canceled caller got %s, want error payload", rep.Body)
	}

	close(release)
	rep := <-secondDone
	if rep.IsError() || rep.StatusCode != http.StatusOK {
		t.Errorf("second caller got %d %s, want the shared ok payload", rep.StatusCode, rep.Body)
	}
}
