package model

import (
	"encoding/json"
	"strings"

	"golang.org/x/oauth2"
)

// Credential is the caller's pre-issued bearer token. It is passed through to
// stages untouched.
type Credential struct {
	AccessToken string
}

func (c Credential) Empty() bool { return strings.TrimSpace(c.AccessToken) == "" }

// OAuth2Token returns the credential as a bearer token for oauth2 clients.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer"}
}

// TriggerOutcome reports what the source trigger did. A failed trigger is
// recorded here, never raised.
type TriggerOutcome struct {
	Attempted bool    `json:"attempted"`
	Skipped   bool    `json:"skipped"`
	Succeeded bool    `json:"succeeded"`
	Count     int     `json:"count"`
	Error     string  `json:"error,omitempty"`
	Data      Payload `json:"data"`
}

// SkippedTrigger is the outcome when the trigger is disabled or unconfigured.
func SkippedTrigger() TriggerOutcome {
	return TriggerOutcome{Skipped: true, Succeeded: true}
}

// SummarizationOutcome is the decoded response of the summarization service.
type SummarizationOutcome struct {
	Count int             `json:"count"`
	Raw   json.RawMessage `json:"raw"`
}

// PipelineResult is the aggregate of one successful run.
type PipelineResult struct {
	EmailsProcessed    int             `json:"emailsProcessed"`
	SummariesGenerated int             `json:"summariesGenerated"`
	Emails             []SummaryRecord `json:"emails"`
}

// NewPipelineResult assembles the run result from the stage outcomes.
func NewPipelineResult(trigger TriggerOutcome, summary SummarizationOutcome, emails []SummaryRecord) PipelineResult {
	if emails == nil {
		emails = []SummaryRecord{}
	}
	processed := trigger.Count
	if trigger.Skipped {
		processed = 0
	}
	return PipelineResult{
		EmailsProcessed:    processed,
		SummariesGenerated: summary.Count,
		Emails:             emails,
	}
}
