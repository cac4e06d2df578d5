package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docverify/constants"
)

// RequestSchema describes an extraction request body.
func RequestSchema() map[string]any {
	types := make([]any, 0, 3)
	for _, t := range constants.DocumentTypesAsStrings() {
		types = append(types, t)
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"filePath", "documentType"},
		"properties": map[string]any{
			"filePath":     map[string]any{"type": "string", "minLength": 1},
			"documentType": map[string]any{"type": "string", "enum": types},
		},
	}
}

// ResponseSchema describes Response as serialized by encoding/json.
func ResponseSchema() map[string]any {
	nullableString := map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"success", "extractedText", "confidence"},
		"properties": map[string]any{
			"success":             map[string]any{"type": "boolean"},
			"error":               map[string]any{"type": "string"},
			"extractedText":       map[string]any{"type": "string"},
			"confidence":          map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"textLength":          map[string]any{"type": "integer", "minimum": 0},
			"wordCount":           map[string]any{"type": "integer", "minimum": 0},
			"lineCount":           map[string]any{"type": "integer", "minimum": 0},
			"processedPages":      map[string]any{"type": "integer", "minimum": 0},
			"pages":               map[string]any{"type": "integer", "minimum": 1},
			"detectedInstitution": nullableString,
			"detectedInfo": map[string]any{
				"type":                 []any{"object", "null"},
				"additionalProperties": map[string]any{"type": "string"},
			},
			"confidenceFlag": map[string]any{"enum": []any{"low", "medium", "high"}},
			"method":         map[string]any{"enum": []any{"direct", "ocr", "partial"}},
		},
	}
}

var (
	compileOnce sync.Once
	requestSch  *jsonschema.Schema
	responseSch *jsonschema.Schema
	compileErr  error
)

func compiled() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		requestSch, compileErr = compileSchema("request.json", RequestSchema())
		if compileErr != nil {
			return
		}
		responseSch, compileErr = compileSchema("response.json", ResponseSchema())
	})
	return requestSch, responseSch, compileErr
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateRequest validates a JSON request body.
func ValidateRequest(data []byte) error {
	req, _, err := compiled()
	if err != nil {
		return err
	}
	return validate(req, data)
}

// ValidateResponse validates a Response after JSON round-trip.
func ValidateResponse(r Response) error {
	_, resp, err := compiled()
	if err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return validate(resp, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
