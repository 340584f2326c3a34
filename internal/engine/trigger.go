package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yangwenmai/mailbrief/internal/model"
	"golang.org/x/oauth2"
)

// maxTriggerBody limits how much of the trigger response is read (1 MB).
const maxTriggerBody = 1 << 20

// HTTPTrigger fires the external source-refresh action with a single GET.
// A disabled or unconfigured trigger is a no-op.
type HTTPTrigger struct {
	enabled           bool
	url               string
	forwardCredential bool
	httpClient        *http.Client
}

// TriggerOption configures an HTTPTrigger.
type TriggerOption func(*HTTPTrigger)

// WithTriggerClient sets the HTTP client used for the trigger call.
func WithTriggerClient(c *http.Client) TriggerOption {
	return func(t *HTTPTrigger) { t.httpClient = c }
}

// WithForwardCredential attaches the caller's bearer token to the trigger call.
func WithForwardCredential(forward bool) TriggerOption {
	return func(t *HTTPTrigger) { t.forwardCredential = forward }
}

// NewHTTPTrigger creates a trigger for url. enabled=false or an empty url
// make every call a skip.
func NewHTTPTrigger(enabled bool, url string, opts ...TriggerOption) *HTTPTrigger {
	t := &HTTPTrigger{
		enabled: enabled,
		url:     strings.TrimSpace(url),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configured reports whether calls will reach the network.
func (t *HTTPTrigger) Configured() bool {
	return t.enabled && t.url != ""
}

// Trigger performs the refresh call. It never returns an error: failures are
// reported as a skipped, unsuccessful outcome.
func (t *HTTPTrigger) Trigger(ctx context.Context, cred model.Credential) model.TriggerOutcome {
	if !t.Configured() {
		return model.SkippedTrigger()
	}

	failed := func(msg string) model.TriggerOutcome {
		slog.Warn("source trigger failed", "error", msg)
		return model.TriggerOutcome{Attempted: true, Skipped: true, Error: msg}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return failed(fmt.Sprintf("source trigger: create request: %v", err))
	}

	resp, err := t.client(ctx, cred).Do(req)
	if err != nil {
		return failed(fmt.Sprintf("source trigger: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := "(could not read error body)"
		if body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxTriggerBody)); rerr == nil {
			detail = sanitizeBody(body)
		}
		return failed(fmt.Sprintf("source trigger failed: %d - %s", resp.StatusCode, detail))
	}

	// An unreadable success body still counts as success; it just carries no data.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTriggerBody))
	data := model.ParsePayload(body)
	count, _ := data.Count()

	return model.TriggerOutcome{
		Attempted: true,
		Succeeded: true,
		Count:     count,
		Data:      data,
	}
}

func (t *HTTPTrigger) client(ctx context.Context, cred model.Credential) *http.Client {
	if !t.forwardCredential || cred.Empty() {
		return t.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(cred.OAuth2Token()))
}
