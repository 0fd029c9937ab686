package metanode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/riglab/metanode/pkg/types"
)

// Reserved field names. These exist on every metanode-backed entity before
// any custom field.
const (
	// SchemaField holds the JSON-encoded schema blob: one descriptor per
	// declared field, keyed by name.
	SchemaField = "metanode_fields"

	// KindTagField holds the kind tag naming the wrapper to reconstruct.
	KindTagField = "metanode_type"

	// InitField flags that one-time initialization already ran.
	InitField = "is_initialized"
)

// reservedFields are declared by bootstrap itself, never from the schema
// blob.
var reservedFields = map[string]bool{
	SchemaField:  true,
	KindTagField: true,
	InitField:    true,
}

// Node is the persistent object: it owns the declared fields of one backing
// entity and keeps the entity self-describing by persisting the schema as
// data. Concrete kinds embed a *Node (see Base) and add their own fields in
// DeclareFields.
type Node struct {
	ctx     *Context
	id      string
	kindTag string

	// order preserves declaration order for bulk reads, writes, and
	// serialization.
	order  []string
	fields map[string]Field
}

// ID returns the durable id of the backing entity.
func (n *Node) ID() string { return n.id }

// KindTag returns the kind tag this node was resolved to.
func (n *Node) KindTag() string { return n.kindTag }

// Context returns the owning context.
func (n *Node) Context() *Context { return n.ctx }

// Name returns the display name of the backing entity.
func (n *Node) Name() (string, error) {
	return n.ctx.store.EntityName(n.id)
}

// Equal reports handle equality: two nodes are the same iff they share a
// durable id.
func (n *Node) Equal(other *Node) bool {
	return other != nil && n.id == other.id
}

// Field returns the declared field by name, or nil.
func (n *Node) Field(name string) Field {
	return n.fields[name]
}

// Array returns the declared array field by name, or nil when the name is
// unknown or not an array field.
func (n *Node) Array(name string) ArrayField {
	f, _ := n.fields[name].(ArrayField)
	return f
}

// FieldNames returns the declared field names in declaration order.
func (n *Node) FieldNames() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// AddField declares a field: it builds the matching field variant, creates
// the backing slot if absent, and merges the descriptor into the persisted
// schema blob, overwriting any prior entry of the same name.
//
// Declaring an already-declared name is a no-op returning the existing
// field. A public array field is rejected with types.ErrConfiguration.
func (n *Node) AddField(validatorKind, name string, access types.Access, multi bool, params map[string]any) (Field, error) {
	if f, ok := n.fields[name]; ok {
		return f, nil
	}

	v, ok := n.ctx.validators[validatorKind]
	if !ok {
		return nil, fmt.Errorf("field %q: %w: %q", name, types.ErrUnknownValidator, validatorKind)
	}

	desc := types.FieldDescriptor{
		Name:      name,
		Validator: validatorKind,
		Multi:     multi,
		Access:    access,
		Params:    params,
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	f, err := newField(n, v, desc)
	if err != nil {
		return nil, err
	}
	n.fields[name] = f
	n.order = append(n.order, name)

	if err := n.recordField(desc); err != nil {
		return nil, err
	}
	return f, nil
}

// recordField merges a descriptor into the schema blob and flushes the blob
// when its persisted form actually changed. The dirty check keeps repeated
// bootstraps of an unchanged schema from mutating the store.
func (n *Node) recordField(desc types.FieldDescriptor) error {
	sf := n.fields[SchemaField]
	if sf == nil {
		// Bootstrap declares the schema field first; anything else is a
		// caller adding fields to a node that never bootstrapped.
		return fmt.Errorf("field %q: %w: schema field missing", desc.Name, types.ErrConfiguration)
	}

	cur, err := sf.Get()
	if err != nil {
		return err
	}
	blob, ok := cur.(map[string]any)
	if !ok {
		blob = map[string]any{}
	}
	blob[desc.Name] = desc.SchemaEntry()
	if err := sf.Set(blob); err != nil {
		return err
	}
	return n.flushSchema(sf)
}

// flushSchema writes the schema blob through unless the stored text already
// matches.
func (n *Node) flushSchema(sf Field) error {
	cur, err := sf.Get()
	if err != nil {
		return err
	}
	encoded, err := jsonValidator{}.Encode(cur)
	if err != nil {
		return err
	}
	stored, err := n.ctx.store.GetAttribute(n.id, SchemaField)
	if err != nil {
		return err
	}
	if s, ok := stored.(string); ok && s == encoded {
		return nil
	}
	return sf.Write()
}

// declareStoredFields re-declares every field described by the persisted
// schema blob. Malformed blob entries fail here, at deserialization, not at
// first use.
//
// The blob is an unordered map, so reloaded fields are declared in
// lexicographic name order; the declaring process's original order is not
// recorded. WriteFields and Serialize follow this reload order after a
// restart.
func (n *Node) declareStoredFields() error {
	sf := n.fields[SchemaField]
	cur, err := sf.Get()
	if err != nil {
		return err
	}
	blob, ok := cur.(map[string]any)
	if !ok || len(blob) == 0 {
		return nil
	}

	descs, err := types.DecodeSchema(blob)
	if err != nil {
		return fmt.Errorf("entity %s: %w", n.id, err)
	}

	names := make([]string, 0, len(descs))
	for name := range descs {
		if reservedFields[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := descs[name]
		if _, err := n.AddField(d.Validator, name, d.Access, d.Multi, d.Params); err != nil {
			return fmt.Errorf("entity %s: %w", n.id, err)
		}
	}
	return nil
}

// declareReservedFields bootstraps the reserved schema, kind-tag, and
// init-flag fields, re-declaring any previously persisted custom fields in
// between, so the reserved trio always exists before any custom field is
// touched by the concrete kind.
func (n *Node) declareReservedFields() error {
	if _, err := n.AddField(KindJSON, SchemaField, types.AccessPrivate, false, nil); err != nil {
		return err
	}

	if err := n.declareStoredFields(); err != nil {
		return err
	}

	if _, err := n.AddField(KindString, KindTagField, types.AccessPrivate, false, nil); err != nil {
		return err
	}
	if err := n.persistKindTag(); err != nil {
		return err
	}

	_, err := n.AddField(KindBool, InitField, types.AccessPrivate, false, nil)
	return err
}

// persistKindTag stores the resolved kind tag, writing through only when
// the stored tag differs so reconstruction never depends on a later flush.
func (n *Node) persistKindTag() error {
	tf := n.fields[KindTagField]
	if err := tf.Set(n.kindTag); err != nil {
		return err
	}
	stored, err := n.ctx.store.GetAttribute(n.id, KindTagField)
	if err != nil {
		return err
	}
	if s, ok := stored.(string); ok && s == n.kindTag {
		return nil
	}
	return tf.Write()
}

// ReadFields loads every declared field from the store, in declaration
// order.
func (n *Node) ReadFields() error {
	for _, name := range n.order {
		if err := n.fields[name].Read(); err != nil {
			return err
		}
	}
	return nil
}

// WriteFields flushes every declared field, in declaration order. Encode
// failures are logged and skipped so one bad value never aborts the flush
// of a schema with many fields; the affected slot keeps its previously
// persisted value. Other store errors abort.
func (n *Node) WriteFields() error {
	for _, name := range n.order {
		if err := n.fields[name].Write(); err != nil {
			if errors.Is(err, types.ErrEncode) {
				n.ctx.logger.Warn("skipping unencodable field during flush",
					"entity", n.id, "field", name, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}

// Serialize returns a flat JSON-shaped snapshot: the durable id plus one
// entry per declared field.
func (n *Node) Serialize() (map[string]any, error) {
	data := map[string]any{"uuid": n.id}
	for _, name := range n.order {
		v, err := n.fields[name].Serialize()
		if err != nil {
			return nil, err
		}
		data[name] = v
	}
	return data, nil
}
