package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	statusPath = "/status"

	// statusTimeout bounds one shared upstream request.
	statusTimeout = 30 * time.Second
)

// StatusReport is the summarization service's status payload, or an error
// payload of the form {"status":"error","error":...}.
type StatusReport struct {
	StatusCode int
	Body       json.RawMessage
}

// IsError reports whether the query itself failed.
func (r StatusReport) IsError() bool {
	var doc struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(r.Body, &doc) != nil {
		return false
	}
	return doc.Status == "error" && doc.Error != ""
}

// StatusQuery reads the summarization service's /status endpoint. Failures
// are reported in the returned payload, never raised. Concurrent callers
// share one upstream request.
type StatusQuery struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewStatusQuery creates a status query against baseURL. A nil client gets a
// default one.
func NewStatusQuery(baseURL string, client *http.Client) *StatusQuery {
	if client == nil {
		client = &http.Client{Timeout: statusTimeout}
	}
	return &StatusQuery{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
	}
}

// Query fetches the current status. The shared request is detached from any
// single caller's ctx; a caller whose ctx ends stops waiting on its own.
func (q *StatusQuery) Query(ctx context.Context) StatusReport {
	ch := q.group.DoChan(statusPath, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
		defer cancel()
		return q.fetch(fctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return errorReport(res.Err)
		}
		return res.Val.(StatusReport)
	case <-ctx.Done():
		return errorReport(ctx.Err())
	}
}

func (q *StatusQuery) fetch(ctx context.Context) (StatusReport, error) {
	endpoint := q.baseURL + statusPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StatusReport{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return StatusReport{}, &UnreachableError{Op: "status endpoint", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return StatusReport{}, fmt.Errorf("read status response: %w", err)
	}
	var doc json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		if !isSuccess(resp.StatusCode) {
			return StatusReport{}, NewUpstreamError("status endpoint", endpoint, resp.StatusCode, body)
		}
		return StatusReport{}, fmt.Errorf("decode status response: %w", err)
	}

	code := resp.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	return StatusReport{StatusCode: code, Body: doc}, nil
}

func errorReport(err error) StatusReport {
	body, _ := json.Marshal(map[string]string{"status": "error", "error": err.Error()})
	return StatusReport{StatusCode: http.StatusInternalServerError, Body: body}
}
