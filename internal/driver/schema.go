package driver

import (
	"bytes"
	"fmt"
	"io"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const schemaURL = "inline://schema"

// compileSchema compiles a resource parameter schema. An empty schema accepts
// everything.
func compileSchema(schema string) (*jsonschema.Schema, error) {
	if schema == "" {
		return nil, nil
	}
	if !gjson.Valid(schema) {
		return nil, ErrBadSchema.New("schema is not valid JSON")
	}
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		if url == schemaURL {
			return io.NopCloser(bytes.NewReader([]byte(schema))), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", url)
	}
	if err := compiler.AddResource(schemaURL, bytes.NewReader([]byte(schema))); err != nil {
		return nil, ErrBadSchema.MsgErr(err.Error(), err)
	}
	s, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, ErrBadSchema.MsgErr(err.Error(), err)
	}
	return s, nil
}

// validateParams checks params against s. Values are passed through their JSON
// form so that integers decoded from YAML validate like JSON numbers.
func validateParams(s *jsonschema.Schema, params map[string]any) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return ErrSchema.MsgErr(err.Error(), err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ErrSchema.MsgErr(err.Error(), err)
	}
	if err := s.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return ErrSchema.New(leafMessage(ve)).Err(err)
		}
		return ErrSchema.MsgErr(err.Error(), err)
	}
	return nil
}

// leafMessage returns the most specific cause of a validation failure.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}

// Canonical returns the RFC 8785 form of v.
func Canonical(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(data)
}

// Equal reports whether a and b have the same canonical JSON form.
func Equal(a, b any) (bool, error) {
	ca, err := Canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}
