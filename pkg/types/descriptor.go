package types

import (
	"encoding/json"
	"fmt"
)

// Access says who may write a field between flushes.
//
// Public fields are interactive: single scalar slots, surfaced in the host
// UI, never locked, written through on every Set. Private fields belong to
// the node, stay locked between writes, and buffer in memory until an
// explicit flush.
type Access string

const (
	AccessPrivate Access = "private"
	AccessPublic  Access = "public"
)

// Valid reports whether the access value is one of the two recognized
// levels.
func (a Access) Valid() bool {
	return a == AccessPrivate || a == AccessPublic
}

// FieldDescriptor describes one declared field of a node. The set of
// descriptors for a node is its schema, persisted as a JSON blob on the
// entity itself so any process can rebuild the field set from the entity
// alone.
type FieldDescriptor struct {
	Name      string         `json:"-"` // blob key, not repeated in the value
	Validator string         `json:"validator"`
	Multi     bool           `json:"multi"`
	Access    Access         `json:"access"`
	Params    map[string]any `json:"params,omitempty"`
}

// Validate checks the descriptor shape. Validator-kind membership is
// checked against the live registry by pkg/metanode; this covers everything
// else so malformed schema data fails at deserialization.
func (d FieldDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("field descriptor: %w: empty name", ErrConfiguration)
	}
	if d.Validator == "" {
		return fmt.Errorf("field %q: %w: empty validator", d.Name, ErrUnknownValidator)
	}
	if !d.Access.Valid() {
		return fmt.Errorf("field %q: %w: access %q", d.Name, ErrConfiguration, d.Access)
	}
	if d.Multi && d.Access == AccessPublic {
		return fmt.Errorf("field %q: %w: an array field cannot be public", d.Name, ErrConfiguration)
	}
	return nil
}

// DecodeSchema parses a schema blob value (the decoded JSON field value,
// a map of field name to descriptor) into validated descriptors.
func DecodeSchema(blob map[string]any) (map[string]FieldDescriptor, error) {
	out := make(map[string]FieldDescriptor, len(blob))
	for name, raw := range blob {
		// Round-trip through JSON so blob entries decoded as generic maps
		// land in the typed descriptor.
		buf, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("schema entry %q: %w", name, err)
		}
		var d FieldDescriptor
		if err := json.Unmarshal(buf, &d); err != nil {
			return nil, fmt.Errorf("schema entry %q: %w", name, err)
		}
		d.Name = name
		if err := d.Validate(); err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

// SchemaEntry returns the blob value for this descriptor, shaped exactly
// like the persisted JSON.
func (d FieldDescriptor) SchemaEntry() map[string]any {
	entry := map[string]any{
		"validator": d.Validator,
		"multi":     d.Multi,
		"access":    string(d.Access),
	}
	if len(d.Params) > 0 {
		entry["params"] = d.Params
	}
	return entry
}
