// Package schema compiles JSON Schema documents and validates credential
// subjects against them.
//
// Schemas are compiled from in-memory values only. Documents that reference
// other documents through a non-local $ref are rejected, so validation
// never reaches the network.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// MetaSchemaURI is the schema id that roots the trust chain: credentials
// declaring it are validated against the embedded meta-schema.
const MetaSchemaURI = "https://json-schema.org/draft/2020-12/schema"

//go:embed metaschema.json
var metaSchemaJSON string

var loadMetaSchema = sync.OnceValues(func() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(metaSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile meta-schema: %w", err)
	}
	return &Validator{schema: s}, nil
})

// Violation is one failed constraint. Path is a JSON pointer into the
// validated instance; the empty string is the document root.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("Schema validation error: %s At: %s", v.Message, v.Path)
}

// ValidationError aggregates every violation found in one validation run.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

// Validator is a compiled schema. It is immutable and safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// Compile compiles a schema document given as a generic JSON value.
func Compile(document interface{}) (*Validator, error) {
	switch document.(type) {
	case map[string]interface{}, bool:
	default:
		return nil, fmt.Errorf("schema must be a JSON object or boolean, got %T", document)
	}
	if err := checkLocalRefs(document, ""); err != nil {
		return nil, err
	}

	loader := gojsonschema.NewSchemaLoader()
	s, err := loader.Compile(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// MetaSchema returns the compiled embedded meta-schema.
func MetaSchema() (*Validator, error) {
	return loadMetaSchema()
}

// Validate checks instance and returns a *ValidationError listing every
// violation, or nil when the instance conforms.
func (v *Validator) Validate(instance interface{}) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(instance))
	if err != nil {
		return fmt.Errorf("failed to validate instance: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, Violation{
			Path:    instancePath(desc),
			Message: desc.Description(),
		})
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Path < violations[j].Path
	})
	return &ValidationError{Violations: violations}
}

// instancePath converts gojsonschema's "(root).a.0" context into "/a/0".
// Missing required properties point at the property itself.
func instancePath(desc gojsonschema.ResultError) string {
	path := ""
	if ctx := desc.Context(); ctx != nil {
		path = strings.TrimPrefix(ctx.String("/"), gojsonschema.STRING_CONTEXT_ROOT)
	}
	if desc.Type() == "required" {
		if property, ok := desc.Details()["property"].(string); ok {
			path += "/" + property
		}
	}
	return path
}

// checkLocalRefs rejects any $ref that does not point inside the document.
func checkLocalRefs(node interface{}, at string) error {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, v := range n {
			if k == "$ref" {
				if ref, ok := v.(string); ok && !strings.HasPrefix(ref, "#") {
					return fmt.Errorf("schema references external document %q at %s/$ref", ref, at)
				}
				continue
			}
			if err := checkLocalRefs(v, at+"/"+k); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, v := range n {
			if err := checkLocalRefs(v, fmt.Sprintf("%s/%d", at, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
