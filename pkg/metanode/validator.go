package metanode

import (
	"fmt"
	"strconv"

	"github.com/riglab/metanode/pkg/types"
)

// Validator kind tags. The tag is what a field descriptor records in the
// persisted schema blob, so renaming one is a breaking schema change.
const (
	KindInt    = "integer"
	KindFloat  = "float"
	KindBool   = "boolean"
	KindString = "string"
	KindMatrix = "matrix"
	KindEnum   = "enum"
	KindNode   = "node"
	KindJSON   = "json"
)

// Validator is a stateless codec for one value kind. It converts between
// the domain value held by a field, the raw value kept in the attribute
// store, and the JSON-safe shape used by serialization.
//
// Adding a value kind means implementing Validator and registering it on
// the Context; no other component changes.
type Validator interface {
	// Kind returns the tag recorded in field descriptors.
	Kind() string

	// Default returns the value a field starts with when the declaration
	// supplies none. Mutable defaults (maps, slices) are fresh per call.
	Default() any

	// Decode converts a raw store value to the domain value.
	Decode(raw any) (any, error)

	// Encode converts the domain value to a raw store value. It may fail
	// for kinds with partial domains, wrapping types.ErrEncode.
	Encode(v any) (any, error)

	// SerializeValue converts the domain value to a JSON-safe shape. For
	// composite kinds this differs from Encode.
	SerializeValue(v any) (any, error)

	// Spec translates declaration-time params into the slot creation spec.
	Spec(params map[string]any) types.AttrSpec
}

func encodeErr(kind string, v any) error {
	return fmt.Errorf("%s: %w: %T(%v)", kind, types.ErrEncode, v, v)
}

// toInt64 coerces the numeric shapes stores and JSON decoding produce.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// intValidator handles whole-number fields. Raw form is int64.
type intValidator struct{}

func (intValidator) Kind() string { return KindInt }
func (intValidator) Default() any { return int64(0) }

func (intValidator) Decode(raw any) (any, error) {
	n, ok := toInt64(raw)
	if !ok {
		return nil, fmt.Errorf("%s: cannot decode %T", KindInt, raw)
	}
	return n, nil
}

func (intValidator) Encode(v any) (any, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, encodeErr(KindInt, v)
	}
	return n, nil
}

func (intValidator) SerializeValue(v any) (any, error) { return v, nil }

func (intValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrInteger}
}

// floatValidator handles floating-point fields. Raw form is float64.
type floatValidator struct{}

func (floatValidator) Kind() string { return KindFloat }
func (floatValidator) Default() any { return float64(0) }

func (floatValidator) Decode(raw any) (any, error) {
	f, ok := toFloat64(raw)
	if !ok {
		return nil, fmt.Errorf("%s: cannot decode %T", KindFloat, raw)
	}
	return f, nil
}

func (floatValidator) Encode(v any) (any, error) {
	f, ok := toFloat64(v)
	if !ok {
		return nil, encodeErr(KindFloat, v)
	}
	return f, nil
}

func (floatValidator) SerializeValue(v any) (any, error) { return v, nil }

func (floatValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrFloat}
}

// boolValidator handles boolean fields.
type boolValidator struct{}

func (boolValidator) Kind() string { return KindBool }
func (boolValidator) Default() any { return false }

func (boolValidator) Decode(raw any) (any, error) {
	switch b := raw.(type) {
	case bool:
		return b, nil
	default:
		if n, ok := toInt64(raw); ok {
			return n != 0, nil
		}
	}
	return nil, fmt.Errorf("%s: cannot decode %T", KindBool, raw)
}

func (boolValidator) Encode(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	default:
		if n, ok := toInt64(v); ok {
			return n != 0, nil
		}
	}
	return nil, encodeErr(KindBool, v)
}

func (boolValidator) SerializeValue(v any) (any, error) { return v, nil }

func (boolValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrBoolean}
}

// stringValidator handles text fields.
type stringValidator struct{}

func (stringValidator) Kind() string { return KindString }
func (stringValidator) Default() any { return "" }

func (stringValidator) Decode(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return fmt.Sprint(raw), nil
}

func (stringValidator) Encode(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func (stringValidator) SerializeValue(v any) (any, error) { return v, nil }

func (stringValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrText}
}

// matrixValidator handles 4x4 transform fields. The domain and raw value is
// types.Matrix4; serialization flattens to 16 numbers.
type matrixValidator struct{}

func (matrixValidator) Kind() string { return KindMatrix }
func (matrixValidator) Default() any { return types.Identity() }

func (matrixValidator) Decode(raw any) (any, error) {
	if m, ok := coerceMatrix(raw); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%s: cannot decode %T", KindMatrix, raw)
}

func (matrixValidator) Encode(v any) (any, error) {
	if m, ok := coerceMatrix(v); ok {
		return m, nil
	}
	return nil, encodeErr(KindMatrix, v)
}

func (matrixValidator) SerializeValue(v any) (any, error) {
	m, ok := coerceMatrix(v)
	if !ok {
		return nil, encodeErr(KindMatrix, v)
	}
	return m.Slice(), nil
}

func (matrixValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrMatrix}
}

func coerceMatrix(v any) (types.Matrix4, bool) {
	switch m := v.(type) {
	case types.Matrix4:
		return m, true
	case []float64:
		return types.MatrixFromSlice(m)
	case []any:
		if len(m) != 16 {
			return types.Matrix4{}, false
		}
		flat := make([]float64, 16)
		for i, e := range m {
			f, ok := toFloat64(e)
			if !ok {
				return types.Matrix4{}, false
			}
			flat[i] = f
		}
		return types.MatrixFromSlice(flat)
	}
	return types.Matrix4{}, false
}

// enumValidator handles enumeration fields stored as a label index. The
// declaration must carry a "choices" param with the ordered label list.
type enumValidator struct{}

func (enumValidator) Kind() string { return KindEnum }
func (enumValidator) Default() any { return int64(0) }

func (enumValidator) Decode(raw any) (any, error) {
	n, ok := toInt64(raw)
	if !ok {
		return nil, fmt.Errorf("%s: cannot decode %T", KindEnum, raw)
	}
	return n, nil
}

func (enumValidator) Encode(v any) (any, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, encodeErr(KindEnum, v)
	}
	return n, nil
}

func (enumValidator) SerializeValue(v any) (any, error) { return v, nil }

func (enumValidator) Spec(params map[string]any) types.AttrSpec {
	return types.AttrSpec{
		Type:     types.AttrEnum,
		EnumSpec: types.JoinEnumLabels(choicesParam(params)),
	}
}

// choicesParam extracts the label list, accepting both the declared
// []string shape and the []any shape a schema blob round-trip produces.
func choicesParam(params map[string]any) []string {
	raw, ok := params["choices"]
	if !ok {
		return []string{}
	}
	switch c := raw.(type) {
	case []string:
		return c
	case []any:
		labels := make([]string, 0, len(c))
		for _, e := range c {
			labels = append(labels, fmt.Sprint(e))
		}
		return labels
	}
	return []string{}
}
