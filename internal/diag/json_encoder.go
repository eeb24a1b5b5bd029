package diag

import (
	"encoding/json"

	"github.com/hivellm/tmlc/internal/ast"
)

// jsonPos/jsonSpan/jsonNote/jsonDiagnostic give Diagnostic a stable,
// versioned JSON shape for machine consumers (the build driver, an
// editor integration), independent of the Go struct layout, matching
// the teacher's own errors/json_encoder.go split between the Go error
// type and its wire format.
type jsonPos struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonSpan struct {
	Start jsonPos `json:"start"`
	End   jsonPos `json:"end"`
}

type jsonNote struct {
	Message string   `json:"message"`
	Span    jsonSpan `json:"span"`
}

type jsonDiagnostic struct {
	Schema   string     `json:"schema"`
	Code     string     `json:"code"`
	Phase    string     `json:"phase"`
	Category string     `json:"category"`
	Message  string     `json:"message"`
	Span     jsonSpan   `json:"span"`
	Notes    []jsonNote `json:"notes,omitempty"`
}

const jsonSchema = "tmlc.diagnostic/v1"

func toJSONSpan(s ast.Span) jsonSpan {
	return jsonSpan{
		Start: jsonPos{File: s.Start.File, Line: s.Start.Line, Column: s.Start.Column},
		End:   jsonPos{File: s.End.File, Line: s.End.Line, Column: s.End.Column},
	}
}

// EncodeJSON renders a Diagnostic as the stable wire format described
// above.
func EncodeJSON(d Diagnostic) ([]byte, error) {
	info, _ := Lookup(d.Code)
	jd := jsonDiagnostic{
		Schema:   jsonSchema,
		Code:     d.Code,
		Phase:    string(info.Phase),
		Category: info.Category,
		Message:  d.Message,
		Span:     toJSONSpan(d.Span),
	}
	for _, n := range d.Notes {
		jd.Notes = append(jd.Notes, jsonNote{Message: n.Message, Span: toJSONSpan(n.Span)})
	}
	return json.Marshal(jd)
}

// EncodeJSONAll renders a slice of diagnostics as a JSON array, in the
// order given (callers typically pass Accumulator.SortedByPhase()).
func EncodeJSONAll(ds []Diagnostic) ([]byte, error) {
	items := make([]jsonDiagnostic, 0, len(ds))
	for _, d := range ds {
		info, _ := Lookup(d.Code)
		jd := jsonDiagnostic{
			Schema:   jsonSchema,
			Code:     d.Code,
			Phase:    string(info.Phase),
			Category: info.Category,
			Message:  d.Message,
			Span:     toJSONSpan(d.Span),
		}
		for _, n := range d.Notes {
			jd.Notes = append(jd.Notes, jsonNote{Message: n.Message, Span: toJSONSpan(n.Span)})
		}
		items = append(items, jd)
	}
	return json.Marshal(items)
}
