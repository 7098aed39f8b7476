package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Schema is the subset of JSON Schema used to describe tool parameters and
// structured LLM responses (routing decisions, triage reports).
type Schema struct {
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items describes the element schema of an array.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties is false for closed objects or a *Schema for maps.
	AdditionalProperties any   `json:"additionalProperties,omitempty"`
	Enum                 []any `json:"enum,omitempty"`
}

// GenerateJSONSchema derives a schema from the Go type T.
//
// Struct fields are named after their json tag. A field is required unless its
// json tag carries omitempty. The jsonschema tag accepts "description=..." and
// repeated "enum=..." items separated by ';'.
//
//	type Decision struct {
//	    NextSteps []string `json:"next_steps" jsonschema:"description=Agents to run next"`
//	    Reasoning string   `json:"reasoning"`
//	}
//	schema, err := jsonschema.GenerateJSONSchema[Decision]()
func GenerateJSONSchema[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	return generate(t, map[reflect.Type]bool{})
}

func generate(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), inProgress)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %v is not supported", t.Key())
		}
		// Interface-valued maps stay open: any JSON value is accepted.
		if t.Elem().Kind() == reflect.Interface {
			return &Schema{Type: "object"}, nil
		}
		values, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		return generateStruct(t, inProgress)
	case reflect.Interface:
		return &Schema{}, nil
	default:
		return nil, fmt.Errorf("type %v is not supported", t)
	}
}

func generateStruct(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	if inProgress[t] {
		return nil, fmt.Errorf("recursive type %v is not supported", t)
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	schema := &Schema{
		Type:                 "object",
		Properties:           make(map[string]*Schema, t.NumField()),
		AdditionalProperties: false,
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fieldSchema, err := generate(field.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if err := applyTag(field, fieldSchema); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		schema.Properties[name] = fieldSchema
		if !omitEmpty {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema, nil
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, option := range parts[1:] {
		if option == "omitempty" || option == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTag reads the jsonschema struct tag. Items are separated by ';' so that
// descriptions may contain commas.
func applyTag(field reflect.StructField, schema *Schema) error {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return nil
	}

	for _, item := range strings.Split(tag, ";") {
		key, value, found := strings.Cut(item, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "description":
			schema.Description = value
		case "enum":
			if schema.Type != "string" {
				return fmt.Errorf("enum tag requires a string field, got %s", schema.Type)
			}
			schema.Enum = append(schema.Enum, value)
		}
	}
	return nil
}

// Parameter describes one argument of a tool declared in configuration rather
// than in Go code.
type Parameter struct {
	Name        string
	Type        string
	Description string
}

// FromParameters builds an object schema from declared parameters. Type names
// follow the endpoint configuration format: "str", "int", "float" and "bool";
// anything else is treated as a string. Every parameter is required.
func FromParameters(parameters []Parameter) *Schema {
	schema := &Schema{
		Type:                 "object",
		Properties:           make(map[string]*Schema, len(parameters)),
		AdditionalProperties: false,
	}

	for _, parameter := range parameters {
		propertyType := "string"
		switch strings.ToLower(parameter.Type) {
		case "int", "integer":
			propertyType = "integer"
		case "float", "number":
			propertyType = "number"
		case "bool", "boolean":
			propertyType = "boolean"
		}

		schema.Properties[parameter.Name] = &Schema{
			Type:        propertyType,
			Description: parameter.Description,
		}
		schema.Required = append(schema.Required, parameter.Name)
	}

	return schema
}

// JsonString converts the Schema to its JSON representation. Pass true to
// indent the output.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var (
		jsonBytes []byte
		err       error
	)

	if len(indent) > 0 && indent[0] {
		jsonBytes, err = json.MarshalIndent(s, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(s)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// String returns the compact JSON representation of the schema.
func (s *Schema) String() string {
	jsonStr, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return jsonStr
}
