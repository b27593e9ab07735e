// Package interpolate fills gaps in extracted concept lists by synthesizing
// missing foundational prerequisites from a keyword rule table.
package interpolate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/logger"
)

// MaxIDLength bounds generated concept ids.
const MaxIDLength = 30

// Interpolator applies an ordered rule table to concept drafts.
type Interpolator struct {
	rules []Rule
	log   *logger.Logger
}

// New returns an Interpolator using rules, or DefaultRules when rules is empty.
func New(rules []Rule, log *logger.Logger) *Interpolator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	norm := make([]Rule, len(rules))
	for i, r := range rules {
		norm[i] = Rule{Keyword: strings.ToLower(r.Keyword), Prerequisites: r.Prerequisites}
	}
	return &Interpolator{rules: norm, log: logger.OrNop(log)}
}

// Rules returns a copy of the active rule table.
func (in *Interpolator) Rules() []Rule {
	out := make([]Rule, len(in.rules))
	copy(out, in.rules)
	return out
}

// Match returns the first rule whose keyword appears in title.
func (in *Interpolator) Match(title string) (Rule, bool) {
	t := strings.ToLower(title)
	for _, r := range in.rules {
		if strings.Contains(t, r.Keyword) {
			return r, true
		}
	}
	return Rule{}, false
}

// Interpolate returns the synthesized foundational drafts, in discovery
// order, followed by the input drafts. Titles are matched case-insensitively
// and no id appears twice. Drafts without a title are dropped; drafts without
// an id get one generated from the title. Only input drafts are matched
// against the rule table.
func (in *Interpolator) Interpolate(drafts []catalog.ConceptDraft) []catalog.ConceptDraft {
	titles := make(map[string]bool, len(drafts))
	ids := make(map[string]bool, len(drafts))

	originals := make([]catalog.ConceptDraft, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			in.log.Warn("skipping draft without title", "concept_id", d.ID)
			continue
		}
		if d.ID == "" {
			d.ID = GenerateID(d.Title)
		}
		d.ID = catalog.NormalizeID(d.ID)
		if ids[d.ID] {
			in.log.Warn("skipping draft with duplicate id", "concept_id", d.ID, "title", d.Title)
			continue
		}
		ids[d.ID] = true
		titles[strings.ToLower(strings.TrimSpace(d.Title))] = true
		originals = append(originals, d)
	}

	var synthesized []catalog.ConceptDraft
	for _, d := range originals {
		rule, ok := in.Match(d.Title)
		if !ok {
			continue
		}
		for _, prereq := range rule.Prerequisites {
			key := strings.ToLower(strings.TrimSpace(prereq))
			id := GenerateID(prereq)
			if titles[key] || ids[id] || id == "" {
				continue
			}
			titles[key] = true
			ids[id] = true
			synthesized = append(synthesized, catalog.ConceptDraft{
				ID:          id,
				Title:       capitalize(strings.TrimSpace(prereq)),
				Description: "Foundational concept for " + d.Title,
				Difficulty:  catalog.MinDifficulty,
				Fundamental: true,
			})
			in.log.Debug("interpolated prerequisite", "concept_id", id, "required_by", d.ID, "keyword", rule.Keyword)
		}
	}

	return append(synthesized, originals...)
}

// GenerateID derives a concept id from a title: lowercased, runs of
// non-alphanumeric characters collapsed to a single underscore, truncated to
// MaxIDLength.
func GenerateID(title string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	id := b.String()
	if len(id) > MaxIDLength {
		id = strings.TrimRight(id[:MaxIDLength], "_")
	}
	return id
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
