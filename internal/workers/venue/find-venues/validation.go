// internal/workers/venue/find-venues/validation.go
package findvenues

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

var inputSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"placeQuery", "requestId"},
	"properties": map[string]interface{}{
		"placeQuery": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"capacityHint": map[string]interface{}{
			"type":    "integer",
			"minimum": 0,
		},
		"requestId": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
}

// ValidateInput checks the raw job variables against the task contract before
// any upstream is touched.
func ValidateInput(variables map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(inputSchema)
	documentLoader := gojsonschema.NewGoLoader(variables)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("input validation failed: %v", errs)
	}

	return nil
}
