package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema wraps a JSON Schema document describing a tool's arguments.
// Validation covers the subset tools in this module rely on: an object
// with typed properties, required names, enums and additionalProperties.
type Schema struct {
	raw json.RawMessage
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema that accepts any input.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{}`)}
}

// ObjectSchema returns a schema for an object with the given properties.
func ObjectSchema(properties map[string]json.RawMessage, required []string) Schema {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return Schema{raw: raw}
}

// Prop builds a property schema of the given JSON type.
func Prop(typ, description string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"type": typ, "description": description})
	return raw
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	return s.raw
}

// IsEmpty returns true if the schema is empty or nil.
func (s Schema) IsEmpty() bool {
	trimmed := bytes.TrimSpace(s.raw)
	return len(trimmed) == 0 || string(trimmed) == "{}" || string(trimmed) == "null"
}

type propertySpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum"`
}

type objectSpec struct {
	Type                 string                  `json:"type"`
	Properties           map[string]propertySpec `json:"properties"`
	Required             []string                `json:"required"`
	AdditionalProperties *bool                   `json:"additionalProperties"`
}

func (s Schema) parse() (*objectSpec, error) {
	if s.IsEmpty() {
		return nil, nil
	}
	var obj objectSpec
	if err := json.Unmarshal(s.raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if obj.Type != "" && obj.Type != "object" {
		return nil, fmt.Errorf("%w: arguments must be an object, got %q", ErrInvalidSchema, obj.Type)
	}
	return &obj, nil
}

// Properties returns the declared property names, sorted.
func (s Schema) Properties() []string {
	obj, err := s.parse()
	if err != nil || obj == nil {
		return nil
	}
	names := make([]string, 0, len(obj.Properties))
	for name := range obj.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Required returns the required property names.
func (s Schema) Required() []string {
	obj, err := s.parse()
	if err != nil || obj == nil {
		return nil
	}
	return append([]string(nil), obj.Required...)
}

// Describe renders a compact signature such as "query: string, num_results?: integer".
func (s Schema) Describe() string {
	obj, err := s.parse()
	if err != nil || obj == nil {
		return ""
	}
	required := make(map[string]bool, len(obj.Required))
	for _, r := range obj.Required {
		required[r] = true
	}
	parts := make([]string, 0, len(obj.Properties))
	for _, name := range s.Properties() {
		marker := "?"
		if required[name] {
			marker = ""
		}
		typ := obj.Properties[name].Type
		if typ == "" {
			typ = "any"
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", name, marker, typ))
	}
	return strings.Join(parts, ", ")
}

// ValidationError lists every problem found in an argument object.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid tool input: " + strings.Join(e.Issues, "; ")
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Validate checks data against the schema.
func (s Schema) Validate(data json.RawMessage) error {
	obj, err := s.parse()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage(`{}`)
	}
	if obj == nil {
		if !json.Valid(data) {
			return &ValidationError{Issues: []string{"arguments are not valid JSON"}}
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return &ValidationError{Issues: []string{"arguments must be a JSON object"}}
	}

	var issues []string
	for _, name := range obj.Required {
		if v, ok := args[name]; !ok || v == nil {
			issues = append(issues, fmt.Sprintf("missing required argument %q", name))
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, declared := obj.Properties[name]
		if !declared {
			if obj.AdditionalProperties != nil && !*obj.AdditionalProperties {
				issues = append(issues, fmt.Sprintf("unexpected argument %q", name))
			}
			continue
		}
		value := args[name]
		if value == nil {
			continue
		}
		if prop.Type != "" && !matchesType(prop.Type, value) {
			issues = append(issues, fmt.Sprintf("argument %q must be of type %s", name, prop.Type))
			continue
		}
		if len(prop.Enum) > 0 && !inEnum(prop.Enum, value) {
			issues = append(issues, fmt.Sprintf("argument %q must be one of %v", name, prop.Enum))
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func matchesType(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(json.Number)
		return ok
	case "integer":
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

func inEnum(enum []any, v any) bool {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return false
		}
		v = f
	}
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}
