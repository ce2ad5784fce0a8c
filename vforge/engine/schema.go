package engine

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
)

// GenerateSchema derives the model-facing JSON schema (draft-07) from the
// declared arguments. Constants and session context never appear here; the
// model only sees what it is allowed to supply.
func GenerateSchema(args []agentdef.ArgumentSpec) ([]byte, error) {
	properties := make(map[string]any, len(args))
	required := make([]string, 0, len(args))
	for i := range args {
		a := &args[i]
		prop := map[string]any{"type": a.Type}
		if a.Description != "" {
			prop["description"] = a.Description
		}
		if len(a.Enum) > 0 {
			prop["enum"] = a.Enum
		}
		if a.Pattern != "" {
			prop["pattern"] = a.Pattern
		}
		if a.MinLength != nil {
			prop["minLength"] = *a.MinLength
		}
		if a.MaxLength != nil {
			prop["maxLength"] = *a.MaxLength
		}
		if a.Minimum != nil {
			prop["minimum"] = *a.Minimum
		}
		if a.Maximum != nil {
			prop["maximum"] = *a.Maximum
		}
		if a.Type == "array" && a.Items != "" {
			prop["items"] = map[string]any{"type": a.Items}
		}
		properties[a.Name] = prop
		if a.Required {
			required = append(required, a.Name)
		}
	}
	schema := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, configErrf("marshal argument schema: %v", err)
	}
	return b, nil
}

// ArgumentValidator checks model-supplied arguments against a compiled
// schema. Compilation happens once at build time; Validate is cheap and safe
// for concurrent use.
type ArgumentValidator struct {
	schema *gojsonschema.Schema
}

// NewArgumentValidator compiles the schema bytes produced by GenerateSchema.
func NewArgumentValidator(schemaJSON []byte) (*ArgumentValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, configErrf("compile argument schema: %v", err)
	}
	return &ArgumentValidator{schema: schema}, nil
}

// Validate returns an ArgumentError describing the first violation, or nil.
func (v *ArgumentValidator) Validate(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return argErrf("validate arguments: %v", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return argErrf("%s", errs[0].String())
		}
		return argErrf("arguments failed schema validation")
	}
	return nil
}
