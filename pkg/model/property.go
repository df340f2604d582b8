package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MNumberKey is the JSON member holding a property's identity.
const MNumberKey = "m-number"

// Field is one named value of a Property. Value holds whatever the JSON
// decoder produced (string, json.Number, bool, nil, []any, map[string]any).
type Field struct {
	Name  string
	Value any
}

// Property is a JSON object identified by its "m-number". Members other than
// the identity are kept in document order so that a stored property
// serializes back exactly as it was read.
type Property struct {
	MNumber string
	Fields  []Field
}

// Get returns the value of the named field.
func (p *Property) Get(name string) (any, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the named field or appends it.
func (p *Property) Set(name string, value any) {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			p.Fields[i].Value = value
			return
		}
	}
	p.Fields = append(p.Fields, Field{Name: name, Value: value})
}

// MarshalJSON writes "m-number" first, then the fields in order.
func (p Property) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, MNumberKey, p.MNumber); err != nil {
		return nil, err
	}
	for _, f := range p.Fields {
		buf.WriteByte(',')
		if err := writeMember(&buf, f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, name string, value any) error {
	k, err := json.Marshal(name)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", name, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// UnmarshalJSON reads an object keeping member order. Numbers are kept as
// json.Number so that values compare by their literal text.
func (p *Property) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("property: expected object, got %v", tok)
	}

	*p = Property{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("property: unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("property member %q: %w", name, err)
		}
		if name == MNumberKey {
			p.MNumber = ScalarString(value)
			continue
		}
		p.Set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Canonical returns a comparable form of the whole property: JSON with
// object keys sorted at every level.
func (p *Property) Canonical() string {
	m := make(map[string]any, len(p.Fields)+1)
	m[MNumberKey] = p.MNumber
	for _, f := range p.Fields {
		m[f.Name] = f.Value
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(b)
}

// Format renders the property as "name: value | name: value" without the
// identity.
func (p *Property) Format() string {
	return FormatFields(p.Fields)
}

// FormatFields renders name/value pairs joined with " | ".
func FormatFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == MNumberKey {
			continue
		}
		parts = append(parts, f.Name+": "+DisplayString(f.Value))
	}
	return strings.Join(parts, " | ")
}

// ScalarString converts a decoded JSON scalar to its text form.
func ScalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// DisplayString renders a value for humans: lists are comma separated,
// objects are shown as JSON.
func DisplayString(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = DisplayString(item)
		}
		return strings.Join(parts, ",")
	}
	return ScalarString(v)
}
