package llm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemas caches compiled schemas. Keys include a digest of the definition
// so two schemas sharing a name never collide.
var schemas = &schemaRegistry{compiled: map[string]*jsonschema.Schema{}}

type schemaRegistry struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// validateResponse checks raw against schema. A nil schema accepts anything.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	invalid := func(err error) error {
		return &InvalidResponseError{Schema: schema.Name, Content: raw, Err: err}
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return invalid(fmt.Errorf("invalid JSON: %w", err))
	}
	compiled, err := schemas.get(schema)
	if err != nil {
		return invalid(err)
	}
	if err := compiled.Validate(inst); err != nil {
		return invalid(fmt.Errorf("schema validation failed: %w", err))
	}
	return nil
}

func (r *schemaRegistry) get(schema *Schema) (*jsonschema.Schema, error) {
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", schema.Name, err)
	}
	sum := sha256.Sum256(def)
	key := schema.Name + "@" + hex.EncodeToString(sum[:8])

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.compiled[key]; ok {
		return c, nil
	}

	// The compiler wants a decoded document, not bytes; decoding through
	// jsonschema keeps numbers exact.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", schema.Name, err)
	}
	url := "mem://schemas/" + key + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", schema.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	r.compiled[key] = compiled
	return compiled, nil
}
