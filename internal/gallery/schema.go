package gallery

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const savedImagesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["preview", "url"],
		"properties": {
			"preview": {"type": "string"},
			"url": {"type": "string", "minLength": 1}
		}
	}
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func getSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(savedImagesSchema))
	})
	return schema, schemaErr
}

// validate reports why raw is not a valid serialized gallery, or nil.
func validate(raw string) error {
	s, err := getSchema()
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return err
	}
	if !result.Valid() {
		return &SchemaError{Details: result.Errors()}
	}
	return nil
}

type SchemaError struct {
	Details []gojsonschema.ResultError
}

func (e *SchemaError) Error() string {
	if len(e.Details) == 0 {
		return "gallery does not match schema"
	}
	return "gallery does not match schema: " + e.Details[0].String()
}
