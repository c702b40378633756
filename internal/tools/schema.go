package tools

import (
	"bytes"
	"encoding/json"
)

// Schema is a JSON Schema node. Object properties keep their declaration
// order when serialized.
type Schema struct {
	Type        string
	Description string
	Enum        []string
	Default     interface{}
	Items       *Schema
	Properties  []Property
	Required    []string
}

type Property struct {
	Name   string
	Schema *Schema
}

// Object returns an object node. A nil props list still serializes as an
// empty "properties" member.
func Object(props ...Property) *Schema {
	return &Schema{Type: "object", Properties: append([]Property{}, props...)}
}

func String(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

func ArrayOf(items *Schema, description string) *Schema {
	return &Schema{Type: "array", Items: items, Description: description}
}

// FreeForm is an object node with no declared properties.
func FreeForm(description string) *Schema {
	return &Schema{Type: "object", Description: description}
}

func Prop(name string, schema *Schema) Property {
	return Property{Name: name, Schema: schema}
}

func (s *Schema) WithEnum(values ...string) *Schema {
	s.Enum = append([]string(nil), values...)
	return s
}

func (s *Schema) WithDefault(value interface{}) *Schema {
	s.Default = value
	return s
}

func (s *Schema) WithRequired(names ...string) *Schema {
	s.Required = append([]string(nil), names...)
	return s
}

// Clone returns a deep copy of s. Default values are scalars and are
// shared.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}

	c := *s
	c.Enum = append([]string(nil), s.Enum...)
	c.Required = append([]string(nil), s.Required...)
	c.Items = s.Items.Clone()
	if s.Properties != nil {
		c.Properties = make([]Property, len(s.Properties))
		for i, p := range s.Properties {
			c.Properties[i] = Property{Name: p.Name, Schema: p.Schema.Clone()}
		}
	}
	return &c
}

// Property looks up a declared property by name.
func (s *Schema) Property(name string) (*Schema, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	field := func(key string, value interface{}) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	if err := field("type", s.Type); err != nil {
		return nil, err
	}
	if s.Description != "" {
		if err := field("description", s.Description); err != nil {
			return nil, err
		}
	}
	if len(s.Enum) > 0 {
		if err := field("enum", s.Enum); err != nil {
			return nil, err
		}
	}
	if s.Default != nil {
		if err := field("default", s.Default); err != nil {
			return nil, err
		}
	}
	if s.Items != nil {
		if err := field("items", s.Items); err != nil {
			return nil, err
		}
	}
	if s.Properties != nil {
		props, err := marshalProperties(s.Properties)
		if err != nil {
			return nil, err
		}
		if err := field("properties", json.RawMessage(props)); err != nil {
			return nil, err
		}
	}
	if len(s.Required) > 0 {
		if err := field("required", s.Required); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalProperties(props []Property) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range props {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
