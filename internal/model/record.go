package model

// Record field names as written by the summarization service.
const (
	FieldSubject = "Subject"
	FieldFrom    = "From"
	FieldSource  = "Source"
	FieldSnippet = "Snippet/Text"
	FieldSummary = "Summary"
)

// Defaults applied to missing record fields.
const (
	DefaultSubject = "No Subject"
	DefaultFrom    = "Unknown Sender"
	DefaultSource  = "Email"
	DefaultSnippet = ""
	DefaultSummary = "Processing..."
)

// SummaryRecord is one processed item read back from the record store.
type SummaryRecord struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	Source    string `json:"source"`
	Snippet   string `json:"snippet"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created"`
}

// NormalizeRecord maps a raw store row into a SummaryRecord, filling defaults
// for absent fields. Present fields and createdAt are copied verbatim.
func NormalizeRecord(id, createdAt string, fields map[string]any) SummaryRecord {
	return SummaryRecord{
		ID:        id,
		Subject:   stringField(fields, FieldSubject, DefaultSubject),
		From:      stringField(fields, FieldFrom, DefaultFrom),
		Source:    stringField(fields, FieldSource, DefaultSource),
		Snippet:   stringField(fields, FieldSnippet, DefaultSnippet),
		Summary:   stringField(fields, FieldSummary, DefaultSummary),
		CreatedAt: createdAt,
	}
}

// DedupeRecords drops records whose ID was already seen, keeping the first.
func DedupeRecords(recs []SummaryRecord) []SummaryRecord {
	out := make([]SummaryRecord, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func stringField(fields map[string]any, key, fallback string) string {
	v, ok := fields[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
