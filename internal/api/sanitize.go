package api

import "math"

// FieldType declares the expected JSON shape of a sanitized field.
type FieldType int

const (
	// TypeAny is the wildcard: any JSON value passes.
	TypeAny FieldType = iota
	TypeString
	TypeInt
	TypeBool
	TypeObject
	TypeList
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeBool:
		return "boolean"
	case TypeObject:
		return "object"
	case TypeList:
		return "list"
	default:
		return "any"
	}
}

// FieldSpec is one (field, type, default) triple describing the shape of an
// incoming payload field.
type FieldSpec struct {
	Name string
	Type FieldType
	// Default fills the field when it is absent. A nil Default marks the
	// field as required.
	Default interface{}
}

// Sanitize filters an arbitrary decoded JSON document down to the declared
// fields, applying defaults for missing optional fields and rejecting
// missing required ones. It accepts a single object or a list of objects;
// any other document shape is a malformed payload.
func Sanitize(doc interface{}, spec []FieldSpec) ([]map[string]interface{}, error) {
	switch d := doc.(type) {
	case map[string]interface{}:
		out, err := sanitizeObject(d, spec)
		if err != nil {
			return nil, err
		}
		return []map[string]interface{}{out}, nil
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(d))
		for _, entry := range d {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return nil, &Error{Kind: KindMalformedPayload, Message: "Document type not supported."}
			}
			clean, err := sanitizeObject(obj, spec)
			if err != nil {
				return nil, err
			}
			out = append(out, clean)
		}
		return out, nil
	default:
		return nil, &Error{Kind: KindMalformedPayload, Message: "Document type not supported."}
	}
}

func sanitizeObject(doc map[string]interface{}, spec []FieldSpec) (map[string]interface{}, error) {
	clean := make(map[string]interface{}, len(spec))
	for _, f := range spec {
		v, present := doc[f.Name]
		if !present {
			if f.Default == nil {
				return nil, ValidationFailed("The %s field is required.", f.Name)
			}
			clean[f.Name] = f.Default
			continue
		}
		if !matchesType(v, f.Type) {
			return nil, ValidationFailed("The value of the %s field must be a %s.", f.Name, f.Type)
		}
		clean[f.Name] = v
	}
	return clean, nil
}

// matchesType checks a decoded JSON value against a declared type. JSON
// numbers decode as float64; integers must have no fractional part.
func matchesType(v interface{}, t FieldType) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		f, ok := v.(float64)
		return ok && f == math.Trunc(f)
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	case TypeList:
		_, ok := v.([]interface{})
		return ok
	default:
		return false
	}
}

// intField reads an integer out of a sanitized object.
func intField(doc map[string]interface{}, name string) int {
	switch v := doc[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
