package inventory

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// ErrInvalidRequest is returned for request bodies that are not valid JSON
// or do not match their schema
var ErrInvalidRequest = errors.New("invalid request")

// Request schemas, by file name under schemas/
const (
	schemaCreateStock   = "stock_create.json"
	schemaUpdateStock   = "stock_update.json"
	schemaBatchUpdate   = "stock_batch.json"
	schemaValidateItems = "items_validate.json"
	schemaApplyBill     = "bill_apply.json"
	schemaBillText      = "bill_text.json"
)

// requestSchemas holds the compiled request body schemas
type requestSchemas map[string]*jsonschema.Schema

func compileSchemas() (requestSchemas, error) {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("reading schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	for _, e := range entries {
		data, err := schemaFiles.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", e.Name(), err)
		}
		if err := compiler.AddResource(e.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", e.Name(), err)
		}
	}

	schemas := make(requestSchemas, len(entries))
	for _, e := range entries {
		schema, err := compiler.Compile(e.Name())
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", e.Name(), err)
		}
		schemas[e.Name()] = schema
	}
	return schemas, nil
}

// decode validates body against the named schema, then unmarshals it into dst
func (rs requestSchemas) decode(name string, body []byte, dst any) error {
	schema, ok := rs[name]
	if !ok {
		return fmt.Errorf("unknown schema %s", name)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describeViolation(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// describeViolation reports the innermost failure, which names the field
func describeViolation(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.InstanceLocation, ve.Message)
}
