package interpolate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Rule maps a lowercase keyword or phrase to the titles of the foundational
// concepts any concept mentioning it requires.
type Rule struct {
	Keyword       string   `yaml:"keyword" validate:"required"`
	Prerequisites []string `yaml:"prerequisites" validate:"required,min=1,dive,required"`
}

// DefaultRules returns the built-in mathematics rule table. Order matters:
// the first rule whose keyword appears in a title wins.
func DefaultRules() []Rule {
	return []Rule{
		{"l'hôpital's rule", []string{"derivatives", "limits"}},
		{"fundamental theorem of calculus", []string{"integration", "derivatives", "antiderivatives"}},
		{"chain rule", []string{"derivatives", "composition"}},
		{"product rule", []string{"derivatives", "multiplication"}},
		{"quotient rule", []string{"derivatives", "division"}},
		{"eigenvalues", []string{"matrix operations", "determinants", "linear transformations"}},
		{"eigenvectors", []string{"eigenvalues", "matrix operations"}},
		{"diagonalization", []string{"eigenvalues", "eigenvectors", "linear transformations"}},
		{"singular value decomposition", []string{"matrix operations", "linear algebra"}},
		{"rank", []string{"linear independence", "matrix operations"}},
		{"span", []string{"linear combinations", "vectors"}},
		{"linear independence", []string{"vectors", "linear combinations"}},
		{"basis", []string{"span", "linear independence"}},
		{"dimension", []string{"basis", "vector spaces"}},
		{"vector space", []string{"vectors", "linear algebra"}},
		{"matrix multiplication", []string{"matrices", "dot product"}},
		{"determinant", []string{"matrices", "linear transformations"}},
	}
}

type rulesFile struct {
	Rules []Rule `yaml:"rules" validate:"required,min=1,dive"`
}

var validate = validator.New()

// ParseRules decodes a YAML rule table of the form
//
//	rules:
//	  - keyword: eigenvalues
//	    prerequisites: [matrix operations, determinants]
func ParseRules(r io.Reader) ([]Rule, error) {
	var f rulesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	for i := range f.Rules {
		f.Rules[i].Keyword = strings.ToLower(strings.TrimSpace(f.Rules[i].Keyword))
	}
	return f.Rules, nil
}

// LoadRules reads a rule table from path. An empty path yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	return ParseRules(f)
}
