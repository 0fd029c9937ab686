package types

import "strings"

// Attribute value types understood by Store implementations.
const (
	AttrInteger = "integer"
	AttrFloat   = "float"
	AttrBoolean = "boolean"
	AttrText    = "text"
	AttrMatrix  = "matrix"
	AttrEnum    = "enum"
)

// validAttrTypes is the set of recognized attribute types.
var validAttrTypes = map[string]bool{
	AttrInteger: true,
	AttrFloat:   true,
	AttrBoolean: true,
	AttrText:    true,
	AttrMatrix:  true,
	AttrEnum:    true,
}

// IsValidAttrType reports whether the given string is a recognized
// attribute type.
func IsValidAttrType(t string) bool {
	return validAttrTypes[t]
}

// AttrSpec describes a slot to create on an entity.
type AttrSpec struct {
	Type      string `json:"type"`
	Multi     bool   `json:"multi,omitempty"`
	EnumSpec  string `json:"enum_spec,omitempty"`
	Displayed bool   `json:"displayed,omitempty"` // surfaced in the host UI
}

// AttrZero returns the value a freshly created scalar slot of the given
// type reads back before any write. Numeric, boolean, and enum slots are
// zero-initialized by the store; text and matrix slots stay empty (nil)
// until written.
func AttrZero(attrType string) any {
	switch attrType {
	case AttrInteger, AttrEnum:
		return int64(0)
	case AttrFloat:
		return float64(0)
	case AttrBoolean:
		return false
	default:
		return nil
	}
}

// EnumSpecSeparator joins enumeration labels in an AttrSpec.
const EnumSpecSeparator = ":"

// JoinEnumLabels builds the EnumSpec accepted by stores from an ordered
// label list. The result carries a trailing separator: "X:Y:Z:".
func JoinEnumLabels(labels []string) string {
	return strings.Join(labels, EnumSpecSeparator) + EnumSpecSeparator
}

// SplitEnumSpec is the inverse of JoinEnumLabels. An empty spec yields an
// empty label list.
func SplitEnumSpec(spec string) []string {
	spec = strings.TrimSuffix(spec, EnumSpecSeparator)
	if spec == "" {
		return []string{}
	}
	return strings.Split(spec, EnumSpecSeparator)
}

// CreateOptions carries parameters for Store.CreateEntity.
type CreateOptions struct {
	// Name is the display name for the new entity. When empty the store
	// assigns one derived from the native kind.
	Name string

	// ID forces a specific durable id. When empty the store generates
	// one. A malformed id fails with ErrInvalidID, a taken one with
	// ErrDuplicateID.
	ID string
}
