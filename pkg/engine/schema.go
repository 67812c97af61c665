package engine

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

func compileSchema(schemaStr string) (*gojsonschema.Schema, error) {
	if schemaStr == "" {
		return nil, nil
	}
	loader := gojsonschema.NewStringLoader(schemaStr)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, domain.Configurationf("invalid json schema: %v", err)
	}
	return schema, nil
}

// validate checks doc against the collection schema, if any
func (c *Collection) validate(doc domain.Document) error {
	if c.schema == nil {
		return nil
	}

	result, err := c.schema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(doc)))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return &domain.ValidationError{Violations: violations}
	}
	return nil
}
