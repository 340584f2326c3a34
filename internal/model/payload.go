package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// PayloadKind tells whether a response body decoded as JSON.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadStructured
	PayloadRaw
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadStructured:
		return "structured"
	case PayloadRaw:
		return "raw"
	default:
		return "empty"
	}
}

// Payload is a best-effort decoded response body: either Structured JSON or
// the Raw text it failed to parse as.
type Payload struct {
	kind PayloadKind
	json json.RawMessage
	text string
}

// Structured wraps a JSON document.
func Structured(doc json.RawMessage) Payload {
	return Payload{kind: PayloadStructured, json: doc}
}

// Raw wraps text that is not JSON.
func Raw(text string) Payload {
	return Payload{kind: PayloadRaw, text: text}
}

// ParsePayload classifies body. An empty (or whitespace-only) body yields an
// empty payload.
func ParsePayload(body []byte) Payload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Payload{}
	}
	if !json.Valid(trimmed) {
		return Raw(string(body))
	}
	return Structured(json.RawMessage(trimmed))
}

func (p Payload) Kind() PayloadKind { return p.kind }

func (p Payload) IsStructured() bool { return p.kind == PayloadStructured }

// Text returns the raw text, or "" for structured/empty payloads.
func (p Payload) Text() string { return p.text }

// Count reports an integral "count" member of a structured JSON object.
func (p Payload) Count() (int, bool) {
	if p.kind != PayloadStructured {
		return 0, false
	}
	return countMember(p.json)
}

// MarshalJSON renders structured payloads verbatim and raw text under a
// diagnostic envelope.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PayloadStructured:
		return p.json, nil
	case PayloadRaw:
		return json.Marshal(struct {
			Message string `json:"message"`
			Raw     string `json:"raw"`
		}{Message: "No JSON response", Raw: p.text})
	default:
		return []byte("null"), nil
	}
}

func countMember(doc json.RawMessage) (int, bool) {
	var obj struct {
		Count *float64 `json:"count"`
	}
	if err := json.Unmarshal(doc, &obj); err != nil || obj.Count == nil {
		return 0, false
	}
	c := *obj.Count
	// float64(math.MaxInt) rounds up, so it is already out of range.
	if c < 0 || c != math.Trunc(c) || c >= math.MaxInt {
		return 0, false
	}
	return int(c), true
}
