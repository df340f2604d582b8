package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// valuesKey is the member of a raw property holding its named values.
const valuesKey = "values"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// documentKey carries the members every ingested document must have.
type documentKey struct {
	TM   string `json:"tm" validate:"required"`
	GLN  string `json:"gln" validate:"required"`
	GTIN string `json:"gtin" validate:"required"`
	TICS string `json:"tics" validate:"required"`
}

// ParseDocument parses one JSON document. Malformed text is a *ParseError;
// anything that is not a non-empty object carrying tm, gln, gtin and tics is
// a *ValidationError. Properties come back normalized.
func ParseDocument(source string, data []byte) (*model.Document, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &ParseError{Source: source, Err: err}
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, &ValidationError{Source: source, Reason: "document is not a JSON object"}
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if len(members) == 0 {
		return nil, &ValidationError{Source: source, Reason: "document is empty"}
	}

	var key documentKey
	for name, dst := range map[string]*string{"tm": &key.TM, "gln": &key.GLN, "gtin": &key.GTIN, "tics": &key.TICS} {
		v, err := keyValue(members[name])
		if err != nil {
			return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("%s: %v", name, err)}
		}
		*dst = v
	}
	if err := validate.Struct(key); err != nil {
		return nil, &ValidationError{Source: source, Reason: describeValidation(err)}
	}

	doc := &model.Document{TM: key.TM, GLN: key.GLN, GTIN: key.GTIN, TICS: key.TICS}

	if raw, ok := members["properties"]; ok && !isNull(raw) {
		var props []model.Property
		if err := json.Unmarshal(raw, &props); err != nil {
			return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("properties: %v", err)}
		}
		doc.Properties = NormalizeProperties(props)
	}
	if raw, ok := members["csv"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.CSV); err != nil {
			return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("csv: %v", err)}
		}
	}
	return doc, nil
}

// keyValue accepts a JSON string or number; numbers keep their literal text
// (GTINs are frequently written as bare numbers).
func keyValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	sort.Strings(missing)
	return "missing required field(s): " + strings.Join(missing, ", ")
}

// NormalizeProperties collapses every raw property into its flat form.
func NormalizeProperties(props []model.Property) []model.Property {
	out := make([]model.Property, len(props))
	for i := range props {
		out[i] = NormalizeProperty(props[i])
	}
	return out
}

// NormalizeProperty turns {"m-number", "values": ...} into
// {"m-number", <name>: <value>}. A list of {name, value} pairs folds repeated
// names into a list in order of appearance; an object is copied member by
// member in key order. Anything else is already flat and is returned
// unchanged, including a flat property holding a value named "values".
func NormalizeProperty(p model.Property) model.Property {
	if !isRaw(p) {
		return model.Property{MNumber: p.MNumber, Fields: append([]model.Field(nil), p.Fields...)}
	}
	values := p.Fields[0].Value

	out := model.Property{MNumber: p.MNumber}
	switch t := values.(type) {
	case []any:
		for _, item := range t {
			pair, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rawName, ok := pair["name"]
			if !ok {
				continue
			}
			name := model.ScalarString(rawName)
			value := pair["value"]
			if existing, ok := out.Get(name); ok {
				if list, isList := existing.([]any); isList {
					out.Set(name, append(list, value))
				} else {
					out.Set(name, []any{existing, value})
				}
				continue
			}
			out.Set(name, value)
		}
	case map[string]any:
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out.Set(name, t[name])
		}
	}
	return out
}

// isRaw reports whether p is in raw form: "values" is its only member and
// holds either a list of {name, value} objects or an object.
func isRaw(p model.Property) bool {
	if len(p.Fields) != 1 || p.Fields[0].Name != valuesKey {
		return false
	}
	switch t := p.Fields[0].Value.(type) {
	case map[string]any:
		return true
	case []any:
		for _, item := range t {
			pair, ok := item.(map[string]any)
			if !ok {
				return false
			}
			if _, ok := pair["name"]; !ok {
				return false
			}
		}
		return true
	}
	return false
}
