package extraction

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Schema is a named structural schema for model output.
type Schema struct {
	Name string
	root *openapi3.Schema
}

var (
	ExtractionSchema     = mustLoadSchema("extraction")
	CategorizationSchema = mustLoadSchema("categorization")
	SearchSchema         = mustLoadSchema("search")
	IDCardSchema         = mustLoadSchema("id_card")
)

func mustLoadSchema(name string) *Schema {
	data, err := schemaFiles.ReadFile("schemas/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("extraction: missing schema %s: %v", name, err))
	}
	var root openapi3.Schema
	if err := json.Unmarshal(data, &root); err != nil {
		panic(fmt.Sprintf("extraction: invalid schema %s: %v", name, err))
	}
	return &Schema{Name: name, root: &root}
}

// ErrNoJSONObject is returned when the output contains no '{' ... '}' span.
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// ParseFailure means the model output held no parseable JSON object.
type ParseFailure struct {
	Raw string
	Err error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// SchemaViolation means the output was valid JSON of the wrong shape.
type SchemaViolation struct {
	Schema string
	Issues []string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("model output does not match %s schema: %s", e.Schema, strings.Join(e.Issues, "; "))
}

// ExtractJSONObject returns the substring from the first '{' to the last '}'.
// Models often wrap their JSON in prose or code fences.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return raw[start : end+1], nil
}

// Validate parses raw model output, checks it against schema and decodes it
// into out. It returns a *ParseFailure or *SchemaViolation on failure, in
// which case out must be discarded.
func Validate(raw string, schema *Schema, out interface{}) error {
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return &ParseFailure{Raw: raw, Err: err}
	}

	var value interface{}
	if err := json.Unmarshal([]byte(object), &value); err != nil {
		return &ParseFailure{Raw: raw, Err: err}
	}
	if _, ok := value.(map[string]interface{}); !ok {
		return &ParseFailure{Raw: raw, Err: ErrNoJSONObject}
	}

	// A null field is treated as absent.
	value = dropNulls(value)

	if err := schema.root.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return &SchemaViolation{Schema: schema.Name, Issues: issues(err)}
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to re-encode model output: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return &SchemaViolation{Schema: schema.Name, Issues: []string{err.Error()}}
	}
	return nil
}

func dropNulls(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(child)
		}
		return t
	case []interface{}:
		kept := t[:0]
		for _, child := range t {
			if child != nil {
				kept = append(kept, dropNulls(child))
			}
		}
		return kept
	default:
		return v
	}
}

// issues flattens kin-openapi errors into "path: reason" strings.
func issues(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		var multi openapi3.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi {
				walk(e)
			}
			return
		}
		var se *openapi3.SchemaError
		if errors.As(err, &se) {
			path := "/" + strings.Join(se.JSONPointer(), "/")
			out = append(out, path+": "+se.Reason)
			return
		}
		out = append(out, err.Error())
	}
	walk(err)
	sort.Strings(out)
	return out
}

// asAppError classifies validator failures for the HTTP layer.
func asAppError(err error) error {
	var pf *ParseFailure
	if errors.As(err, &pf) {
		return apperr.Wrap(apperr.UpstreamParse, "The model returned output that is not valid JSON", err).
			WithDetails(map[string]string{"raw": pf.Raw})
	}
	var sv *SchemaViolation
	if errors.As(err, &sv) {
		return apperr.Wrap(apperr.UpstreamSchema, "The model returned output that does not match the expected schema", err).
			WithDetails(map[string][]string{"issues": sv.Issues})
	}
	return err
}
