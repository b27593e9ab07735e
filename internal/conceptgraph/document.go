package conceptgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/conceptree/internal/catalog"
)

// DocumentVersion is written to exported catalog documents. Documents with
// the same major version can be imported.
const DocumentVersion = "v1.0.0"

// ErrUnsupportedVersion is returned for catalog documents of another major
// version.
var ErrUnsupportedVersion = errors.New("unsupported catalog document version")

// CatalogDocument is the YAML interchange form of a catalog.
type CatalogDocument struct {
	Version    string       `yaml:"version" validate:"required"`
	ExportedAt time.Time    `yaml:"exported_at,omitempty"`
	Concepts   []DocConcept `yaml:"concepts" validate:"omitempty,dive"`
}

// DocConcept is one concept in a CatalogDocument.
type DocConcept struct {
	ID            string   `yaml:"id" validate:"required"`
	Title         string   `yaml:"title" validate:"required"`
	Description   string   `yaml:"description,omitempty"`
	Category      string   `yaml:"category,omitempty"`
	Difficulty    int      `yaml:"difficulty" validate:"omitempty,min=1,max=10"`
	Prerequisites []string `yaml:"prerequisites,omitempty" validate:"omitempty,dive,required"`
	Fundamental   bool     `yaml:"fundamental,omitempty"`
}

// CatalogImportReport describes the result of ImportCatalog.
type CatalogImportReport struct {
	Created    []string                 `json:"created"`
	Existing   []string                 `json:"existing"`
	Edges      int                      `json:"edges_added"`
	Skipped    []string                 `json:"skipped,omitempty"`
	Validation catalog.ValidationReport `json:"validation"`
}

var validate = validator.New()

// ExportCatalog writes the catalog as a YAML document.
func (s *Service) ExportCatalog(w io.Writer) error {
	doc := CatalogDocument{
		Version:    DocumentVersion,
		ExportedAt: time.Now().UTC(),
	}
	for _, c := range s.catalog.All() {
		doc.Concepts = append(doc.Concepts, DocConcept{
			ID:            c.ID,
			Title:         c.Title,
			Description:   c.Description,
			Category:      c.Category,
			Difficulty:    c.Difficulty,
			Prerequisites: c.Prerequisites,
			Fundamental:   c.Fundamental,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

// ParseCatalogDocument decodes and validates a catalog document.
func ParseCatalogDocument(r io.Reader) (*CatalogDocument, error) {
	var doc CatalogDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid catalog document: %w", err)
	}
	if !semver.IsValid(doc.Version) || semver.Major(doc.Version) != semver.Major(DocumentVersion) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

// ImportCatalog merges a catalog document into the catalog. Concepts whose
// id already exists are left unchanged; prerequisite edges that are unknown
// or would close a cycle are skipped.
func (s *Service) ImportCatalog(ctx context.Context, r io.Reader) (*CatalogImportReport, error) {
	doc, err := ParseCatalogDocument(r)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	report := &CatalogImportReport{}
	for _, dc := range doc.Concepts {
		con, created, err := s.catalog.AddConcept(catalog.Concept{
			ID:          dc.ID,
			Title:       dc.Title,
			Description: dc.Description,
			Category:    dc.Category,
			Difficulty:  dc.Difficulty,
			Fundamental: dc.Fundamental,
		})
		switch {
		case err != nil:
			report.Skipped = append(report.Skipped, fmt.Sprintf("concept %q: %v", dc.ID, err))
		case created:
			report.Created = append(report.Created, con.ID)
		default:
			report.Existing = append(report.Existing, con.ID)
		}
	}

	// Documents need not be topologically ordered.
	for _, dc := range doc.Concepts {
		for _, p := range dc.Prerequisites {
			if slices.Contains(s.catalog.PrerequisiteIDs(dc.ID), catalog.NormalizeID(p)) {
				continue
			}
			if err := s.catalog.AddPrerequisite(dc.ID, p); err != nil {
				report.Skipped = append(report.Skipped, fmt.Sprintf("prerequisite %q -> %q: %v", dc.ID, p, err))
				continue
			}
			report.Edges++
		}
	}

	validation, err := s.commitLocked(ctx, true)
	if err != nil {
		return nil, err
	}
	report.Validation = validation
	s.log.Info("catalog imported",
		"version", doc.Version,
		"created", len(report.Created),
		"existing", len(report.Existing),
		"edges", report.Edges,
	)
	return report, nil
}
