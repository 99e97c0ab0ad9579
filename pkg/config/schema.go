package config

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed toastpack.schema.json
var schemaData []byte

const schemaURL = "mem://schemas/toastpack.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			schemaErr = errors.Wrap(err, "decode config schema")
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = errors.Wrap(err, "register config schema")
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks a JSON configuration document against the embedded schema.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "decode configuration")
	}
	return sch.Validate(inst)
}
