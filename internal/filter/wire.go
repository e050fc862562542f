package filter

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed request.schema.json
var requestSchemaJSON string

var requestSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(requestSchemaJSON))
})

// WireViolation is one structural problem found in a request document.
type WireViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidateWire checks a request document (object or bare list) against the
// wire JSON Schema. Decoding is lenient and skips malformed entries; this is
// the strict check for callers that want to reject them instead.
//
// The returned error is non-nil only when the document could not be read.
func ValidateWire(data []byte) ([]WireViolation, error) {
	schema, err := requestSchema()
	if err != nil {
		return nil, fmt.Errorf("load request schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]WireViolation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, WireViolation{
			Field:       re.Field(),
			Description: re.Description(),
		})
	}
	return violations, nil
}
