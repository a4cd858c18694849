package llm

import (
	"github.com/google/generative-ai-go/genai"
)

// Type is a JSON schema type.
type Type string

const (
	Object  Type = "object"
	Array   Type = "array"
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
)

// Schema is the subset of JSON schema both providers accept. Every property of an
// object is required.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	// Order fixes property order; properties not listed follow in map order.
	Order []string
	Items *Schema
	Enum  []string
}

func (s *Schema) propertyNames() []string {
	names := append([]string(nil), s.Order...)
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n] = true
	}
	for n := range s.Properties {
		if !listed[n] {
			names = append(names, n)
		}
	}
	return names
}

// JSON renders the schema in the strict JSON-schema dialect (no additional
// properties, all properties required).
func (s *Schema) JSON() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	switch s.Type {
	case Object:
		props := make(map[string]any, len(s.Properties))
		names := s.propertyNames()
		for _, n := range names {
			props[n] = s.Properties[n].JSON()
		}
		out["properties"] = props
		out["required"] = names
		out["additionalProperties"] = false
	case Array:
		out["items"] = s.Items.JSON()
	}
	return out
}

// Genai converts the schema for the Gemini SDK.
func (s *Schema) Genai() *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{Description: s.Description, Enum: s.Enum}
	switch s.Type {
	case Object:
		gs.Type = genai.TypeObject
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		names := s.propertyNames()
		for _, n := range names {
			gs.Properties[n] = s.Properties[n].Genai()
		}
		gs.Required = names
	case Array:
		gs.Type = genai.TypeArray
		gs.Items = s.Items.Genai()
	case String:
		gs.Type = genai.TypeString
	case Number:
		gs.Type = genai.TypeNumber
	case Integer:
		gs.Type = genai.TypeInteger
	case Boolean:
		gs.Type = genai.TypeBoolean
	}
	if len(s.Enum) > 0 {
		gs.Format = "enum"
	}
	return gs
}

// StringList is an array of strings.
func StringList(desc string) *Schema {
	return &Schema{Type: Array, Description: desc, Items: &Schema{Type: String}}
}

// Obj builds an object schema whose properties keep the given order.
func Obj(desc string, props ...Prop) *Schema {
	s := &Schema{Type: Object, Description: desc, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Order = append(s.Order, p.Name)
	}
	return s
}

// Prop is a named object property.
type Prop struct {
	Name   string
	Schema *Schema
}

// P is shorthand for Prop{name, schema}.
func P(name string, schema *Schema) Prop { return Prop{Name: name, Schema: schema} }
