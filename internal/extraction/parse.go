package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/conceptree/internal/catalog"
)

// ErrUnparseable is returned when no JSON object can be recovered from a
// model response.
var ErrUnparseable = errors.New("extraction response is not a JSON object")

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse recovers an extraction result from model output. Markdown
// fences are stripped, and when the remainder is not valid JSON the outermost
// {...} span is tried instead. Malformed concepts and relationships are
// skipped and listed in Skipped; only an unrecoverable document is an error.
func ParseResponse(raw string) (*catalog.ExtractionResult, error) {
	cleaned := stripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		m := jsonObject.FindString(cleaned)
		if m == "" {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		if err := json.Unmarshal([]byte(m), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	}
	return fromTree(doc)
}

// ParseDocument reads an extraction result authored by hand as YAML or JSON.
// The same tolerance rules as ParseResponse apply to its entries.
func ParseDocument(data []byte) (*catalog.ExtractionResult, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse extraction document: %w", err)
	}
	return fromTree(doc)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func fromTree(doc any) (*catalog.ExtractionResult, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T", ErrUnparseable, doc)
	}

	res := &catalog.ExtractionResult{
		Category:     str(root["category"]),
		Summary:      str(root["summary"]),
		LearningPath: str(root["learning_path"]),
	}

	for i, item := range list(root["concepts"]) {
		m, ok := item.(map[string]any)
		if !ok {
			res.Skipped = append(res.Skipped, fmt.Sprintf("concepts[%d]: not an object", i))
			continue
		}
		title := str(m["title"])
		if title == "" {
			res.Skipped = append(res.Skipped, fmt.Sprintf("concepts[%d]: missing title", i))
			continue
		}
		res.Concepts = append(res.Concepts, catalog.ConceptDraft{
			ID:          str(m["concept_id"]),
			Title:       title,
			Description: str(m["description"]),
			Difficulty:  integer(m["difficulty_level"]),
			Fundamental: boolean(m["is_fundamental"]),
		})
	}

	for i, item := range list(root["relationships"]) {
		m, ok := item.(map[string]any)
		if !ok {
			res.Skipped = append(res.Skipped, fmt.Sprintf("relationships[%d]: not an object", i))
			continue
		}
		rel := catalog.Relationship{
			Concept:      str(m["concept"]),
			Prerequisite: str(m["prerequisite"]),
			Reason:       str(m["reason"]),
		}
		if rel.Concept == "" || rel.Prerequisite == "" {
			res.Skipped = append(res.Skipped, fmt.Sprintf("relationships[%d]: missing concept or prerequisite", i))
			continue
		}
		res.Relationships = append(res.Relationships, rel)
	}
	return res, nil
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	case float64, int, bool:
		return fmt.Sprint(t)
	}
	return ""
}

// integer accepts numbers and numeric strings; anything else is 0, which
// the ingest pipeline treats as "use the default difficulty".
func integer(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}
