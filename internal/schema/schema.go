// Package schema validates inbound JSON documents against JSON Schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid is returned for documents that are not JSON or do not match
// their schema.
var ErrInvalid = errors.New("document does not match schema")

// Validator holds one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Compile compiles source under the given resource name.
func Compile(name, source string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: s}, nil
}

// MustCompile is Compile for schemas embedded in the binary.
func MustCompile(name, source string) *Validator {
	v, err := Compile(name, source)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks data against the schema.
func (v *Validator) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, v.name, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
