package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/yangwenmai/mailbrief/internal/model"
)

const (
	summarizePath = "/summarize"
	// maxResponseBody caps summarization response bodies (5 MB).
	maxResponseBody = 5 * 1024 * 1024

	reachabilityHint = "Is the summarization service running?"
)

// HTTPSummarizer calls the remote summarization service. The endpoint may be
// registered for POST or GET depending on deployment, so a 404 or an HTML
// error page on POST falls back to exactly one GET.
type HTTPSummarizer struct {
	baseURL    string
	httpClient *http.Client
}

// SummarizerOption configures an HTTPSummarizer.
type SummarizerOption func(*HTTPSummarizer)

// WithSummarizerClient sets the HTTP client used for summarization calls.
func WithSummarizerClient(c *http.Client) SummarizerOption {
	return func(s *HTTPSummarizer) { s.httpClient = c }
}

// NewHTTPSummarizer creates a summarizer for the service at baseURL.
func NewHTTPSummarizer(baseURL string, opts ...SummarizerOption) *HTTPSummarizer {
	s := &HTTPSummarizer{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize runs the summarization. Transport failures return
// *UnreachableError; error responses return *UpstreamError.
func (s *HTTPSummarizer) Summarize(ctx context.Context) (*model.SummarizationOutcome, error) {
	endpoint := s.baseURL + summarizePath

	status, ctype, body, err := s.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, &UnreachableError{Op: "summarization service", URL: s.baseURL, Hint: reachabilityHint, Err: err}
	}

	if !isSuccess(status) && (status == http.StatusNotFound || isHTML(ctype)) {
		slog.Info("summarize POST not accepted, falling back to GET", "status", status, "content_type", ctype)
		return s.fallback(ctx, endpoint)
	}
	if !isSuccess(status) {
		return nil, NewUpstreamError("summarization service", endpoint, status, body)
	}
	return decodeOutcome(body)
}

func (s *HTTPSummarizer) fallback(ctx context.Context, endpoint string) (*model.SummarizationOutcome, error) {
	status, ctype, body, err := s.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, &UnreachableError{Op: "summarization service (GET)", URL: s.baseURL, Hint: reachabilityHint, Err: err}
	}
	if !isSuccess(status) || isHTML(ctype) {
		return nil, NewUpstreamError("summarization endpoint "+endpoint, endpoint, status, body)
	}
	return decodeOutcome(body)
}

// do performs one request and reads the whole body. Only transport failures
// are returned as errors.
func (s *HTTPSummarizer) do(ctx context.Context, method, endpoint string) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.Header.Set("Cache-Control", "no-cache, no-store")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil && isSuccess(resp.StatusCode) {
		return 0, "", nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

func decodeOutcome(body []byte) (*model.SummarizationOutcome, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode summarize response: %w", err)
	}
	count, _ := model.Structured(raw).Count()
	return &model.SummarizationOutcome{Count: count, Raw: raw}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// isHTML reports whether a content type names an HTML document.
func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mt == "text/html"
}
