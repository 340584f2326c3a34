// Package records holds the remote record store backends that the retrieval
// stage reads summaries from.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

const (
	DefaultAirtableURL   = "https://api.airtable.com/v0"
	DefaultAirtableTable = "AutomationData"

	// maxBodySize caps the record list response (5 MB).
	maxBodySize = 5 * 1024 * 1024
)

// AirtableClient reads summary rows from an Airtable table.
type AirtableClient struct {
	apiKey     string
	baseID     string
	table      string
	apiURL     string
	httpClient *http.Client
}

// AirtableOption configures the Airtable client.
type AirtableOption func(*AirtableClient)

// WithAPIURL overrides the API root (default: https://api.airtable.com/v0).
func WithAPIURL(u string) AirtableOption {
	return func(c *AirtableClient) { c.apiURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) AirtableOption {
	return func(c *AirtableClient) { c.httpClient = hc }
}

// NewAirtableClient creates a client for table in base baseID. An empty table
// name selects DefaultAirtableTable.
func NewAirtableClient(apiKey, baseID, table string, opts ...AirtableOption) *AirtableClient {
	if strings.TrimSpace(table) == "" {
		table = DefaultAirtableTable
	}
	c := &AirtableClient{
		apiKey: strings.TrimSpace(apiKey),
		baseID: strings.TrimSpace(baseID),
		table:  table,
		apiURL: DefaultAirtableURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the API key and base ID are present.
func (c *AirtableClient) Configured() bool {
	return c.apiKey != "" && c.baseID != ""
}

type listResponse struct {
	Records []struct {
		ID          string         `json:"id"`
		CreatedTime string         `json:"createdTime"`
		Fields      map[string]any `json:"fields"`
	} `json:"records"`
}

// Recent fetches up to limit rows in the table's default order. An
// unconfigured client returns no rows.
func (c *AirtableClient) Recent(ctx context.Context, limit int) ([]model.SummaryRecord, error) {
	if !c.Configured() {
		return []model.SummaryRecord{}, nil
	}

	endpoint := c.endpoint(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &engine.UnreachableError{Op: "record store", URL: c.apiURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read record store response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, engine.NewUpstreamError("record store fetch", endpoint, resp.StatusCode, body)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode record store response: %w", err)
	}

	out := make([]model.SummaryRecord, 0, len(list.Records))
	for _, r := range list.Records {
		out = append(out, model.NormalizeRecord(r.ID, r.CreatedTime, r.Fields))
	}
	return out, nil
}

func (c *AirtableClient) endpoint(limit int) string {
	u := c.apiURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(c.table)
	if limit > 0 {
		u += "?maxRecords=" + strconv.Itoa(limit)
	}
	return u
}
