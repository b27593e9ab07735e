package interpolate

import "strings"

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "General Knowledge"

type categoryKeywords struct {
	name     string
	keywords []string
}

var categoryTable = []categoryKeywords{
	{"Linear Algebra", []string{"matrix", "vector", "eigenvalue", "determinant", "linear", "span", "basis"}},
	{"Calculus", []string{"derivative", "integral", "limit", "continuity", "calculus", "differential"}},
	{"Algebra", []string{"polynomial", "equation", "quadratic", "factor", "exponent"}},
	{"Geometry", []string{"angle", "triangle", "circle", "polygon", "spatial", "symmetry"}},
	{"Statistics", []string{"probability", "distribution", "variance", "mean", "correlation", "hypothesis"}},
	{"Computer Science", []string{"algorithm", "data structure", "complexity", "graph", "sorting"}},
	{"Physics", []string{"force", "energy", "momentum", "field", "quantum", "mechanics"}},
}

// InferCategory picks the category whose keywords occur most often in text.
// Ties go to the earlier category in the table.
func InferCategory(text string) string {
	t := strings.ToLower(text)
	best, bestHits := DefaultCategory, 0
	for _, c := range categoryTable {
		hits := 0
		for _, kw := range c.keywords {
			if strings.Contains(t, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c.name, hits
		}
	}
	return best
}
