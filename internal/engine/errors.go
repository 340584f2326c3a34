package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a summarization run is already in progress")

// UnreachableError means the transport failed before any response arrived
// (connection refused, DNS failure, timeout).
type UnreachableError struct {
	Op   string
	URL  string
	Hint string
	Err  error
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("could not reach %s at %s.", e.Op, e.URL)
	if e.Hint != "" {
		msg += " " + e.Hint
	}
	return fmt.Sprintf("%s (%v)", msg, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from a remote service.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s failed: status %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += " body: " + e.Body
	}
	return msg
}

// NewUpstreamError builds an UpstreamError with a redacted, truncated body.
func NewUpstreamError(op, url string, status int, body []byte) *UpstreamError {
	return &UpstreamError{Op: op, URL: url, StatusCode: status, Body: sanitizeBody(body)}
}

// StepError wraps an error with the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName reports the failed step.
func (e *StepError) StepName() string { return e.Step }

// IsUnreachable reports whether err carries a transport failure.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}

// StatusCode extracts the upstream HTTP status from err, if any.
func StatusCode(err error) (int, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode, true
	}
	return 0, false
}

// Message returns the user-facing text for err, without the step prefix.
func Message(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token)\b\s*[:=]\s*[^\s"',}]+`)
)

// maxErrorBody caps how much of an upstream body ends up in an error.
const maxErrorBody = 512

// sanitizeBody redacts obvious secrets and truncates the body for use in
// error strings.
func sanitizeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	b := body
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	s := bearerTokenRe.ReplaceAllString(string(b), "Bearer <redacted>")
	s = apiKeyKVRe.ReplaceAllString(s, "<redacted_kv>")
	s = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
	if len(body) > maxErrorBody {
		s += "..."
	}
	return s
}
