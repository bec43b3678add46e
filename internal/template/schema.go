package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildTemplateJSONSchema returns the JSON-Schema (draft 2020-12 subset) a
// persisted template must satisfy. ocr_language is optional for backward
// compatibility with templates created before language support existed.
func buildTemplateJSONSchema() map[string]any {
	region := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page": map[string]any{"type": "integer", "minimum": 0},
			"x0":   coordProp(),
			"y0":   coordProp(),
			"x1":   coordProp(),
			"y1":   coordProp(),
		},
		"required": []string{"page", "x0", "y0", "x1", "y1"},
	}

	fieldMapping := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":                map[string]any{"type": "string", "minLength": 1},
			"value":               region,
			"header":              region,
			"header_text":         map[string]any{"type": "string"},
			"recurring":           map[string]any{"type": "boolean"},
			"detected_type":       map[string]any{"type": "string"},
			"detected_confidence": map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
		},
		"required": []string{"name", "value"},
	}

	column := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":  map[string]any{"type": "string", "minLength": 1},
			"start": coordProp(),
			"end":   coordProp(),
		},
		"required": []string{"name", "start", "end"},
	}

	tableMapping := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "minLength": 1},
			"region":     region,
			"columns":    map[string]any{"type": "array", "items": column, "minItems": 1},
			"header_row": map[string]any{"type": "integer", "minimum": 0},
			"has_header": map[string]any{"type": "boolean"},
		},
		"required": []string{"name", "region", "columns"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"version":            map[string]any{"type": "integer", "minimum": 1},
			"cluster_id":         map[string]any{"type": "string", "minLength": 1},
			"reference_id":       map[string]any{"type": "string", "minLength": 1},
			"ocr_language":       map[string]any{"type": "string"},
			"field_mappings":     map[string]any{"type": "array", "items": fieldMapping},
			"table_mappings":     map[string]any{"type": "array", "items": tableMapping},
			"needs_revalidation": map[string]any{"type": "boolean"},
		},
		"required": []string{"cluster_id", "reference_id", "field_mappings", "table_mappings"},
	}
}

func coordProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "maximum": 1000}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// validateSchema validates raw template JSON against the compiled schema.
func validateSchema(data []byte) error {
	schemaOnce.Do(func() {
		b, err := json.Marshal(buildTemplateJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("template.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("template.json")
	})
	if schemaErr != nil {
		return schemaErr
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
