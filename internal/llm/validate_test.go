package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func conceptSchema() *Schema {
	return &Schema{
		Name: "concept-draft",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":      map[string]any{"type": "string"},
				"difficulty": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
				"kind":       map[string]any{"type": "string", "enum": []any{"fundamental", "derived"}},
				"requires": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"title", "difficulty"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"complete", `{"title":"Limits","difficulty":3,"kind":"derived","requires":["functions"]}`, true},
		{"optional omitted", `{"title":"Sets","difficulty":1}`, true},
		{"missing required", `{"title":"Limits"}`, false},
		{"wrong type", `{"title":"Limits","difficulty":"three"}`, false},
		{"out of range", `{"title":"Limits","difficulty":11}`, false},
		{"bad enum", `{"title":"Limits","difficulty":2,"kind":"advanced"}`, false},
		{"bad item type", `{"title":"Limits","difficulty":2,"requires":[1,2]}`, false},
		{"malformed", `{not json}`, false},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(conceptSchema(), json.RawMessage(tt.raw))
			if tt.valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var inv *InvalidResponseError
			if !errors.As(err, &inv) {
				t.Fatalf("expected InvalidResponseError, got %T (%v)", err, err)
			}
			if inv.Schema != "concept-draft" || string(inv.Content) != tt.raw {
				t.Fatalf("error fields = %q, %q", inv.Schema, inv.Content)
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResponse_SameNameDifferentDefinition(t *testing.T) {
	loose := &Schema{Name: "verdict", Definition: map[string]any{"type": "object"}}
	strict := &Schema{Name: "verdict", Definition: map[string]any{
		"type":     "object",
		"required": []any{"passed"},
	}}
	raw := json.RawMessage(`{}`)
	if err := validateResponse(loose, raw); err != nil {
		t.Fatalf("loose: %v", err)
	}
	if err := validateResponse(strict, raw); err == nil {
		t.Fatal("strict schema served from the loose cache entry")
	}
}
