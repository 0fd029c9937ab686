package metanode

import (
	"fmt"
	"reflect"

	"github.com/riglab/metanode/pkg/types"
)

// Field bridges one schema entry to one store slot. Buffering semantics
// depend on the declared accessibility:
//
//   - private single: Get and Set touch an in-memory buffer that may
//     diverge from the slot until Write (write-back). The slot stays locked
//     between writes.
//   - public single: Get reads through, Set writes through, the slot is
//     never locked.
//   - private array: buffered ordered sequence; Write clears every indexed
//     slot and rewrites the full sequence.
//
// Write returns its outcome; Node.WriteFields downgrades encode failures
// to a log entry so one bad field never aborts a flush.
type Field interface {
	// Name returns the field and slot name.
	Name() string

	// Descriptor returns the schema entry for this field.
	Descriptor() types.FieldDescriptor

	// Get returns the field value.
	Get() (any, error)

	// Set sets the field value.
	Set(v any) error

	// Read fetches the slot value into the buffer. Empty slots are left
	// alone so a freshly set default is never clobbered.
	Read() error

	// Write pushes the buffered value to the slot. A slot driven by an
	// incoming connection is skipped without error; the in-memory value is
	// discarded in favor of the external driver.
	Write() error

	// Serialize returns the field value in its JSON-safe shape.
	Serialize() (any, error)
}

// ArrayField is the extra surface of private array fields.
type ArrayField interface {
	Field

	// Clear empties both the buffer and the backing array slot.
	Clear() error
}

// newField builds the field variant matching the descriptor, creates the
// backing slot if absent, and primes the buffer from the store.
func newField(n *Node, v Validator, desc types.FieldDescriptor) (Field, error) {
	spec := v.Spec(desc.Params)
	spec.Multi = desc.Multi
	spec.Displayed = desc.Access == types.AccessPublic

	base := fieldBase{node: n, validator: v, desc: desc, spec: spec}

	var f Field
	switch {
	case desc.Multi:
		f = &multiField{fieldBase: base, value: defaultSequence(n, v, desc)}
	case desc.Access == types.AccessPublic:
		f = &publicField{privateField{fieldBase: base, value: defaultValue(n, v, desc)}}
	default:
		f = &privateField{fieldBase: base, value: defaultValue(n, v, desc)}
	}

	created, err := base.createAttribute()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", desc.Name, err)
	}
	// A slot created this instant holds only the store's zero value; priming
	// from it would clobber the declared default. Public slots have no
	// buffer of their own, so the default goes straight through instead.
	if created {
		if desc.Access == types.AccessPublic && !desc.Multi {
			if err := f.Write(); err != nil {
				return nil, fmt.Errorf("field %q: %w", desc.Name, err)
			}
		}
	} else if err := f.Read(); err != nil {
		return nil, fmt.Errorf("field %q: %w", desc.Name, err)
	}
	return f, nil
}

// fieldBase carries what every variant needs: the owning node, the codec,
// and the slot identity.
type fieldBase struct {
	node      *Node
	validator Validator
	desc      types.FieldDescriptor
	spec      types.AttrSpec
}

func (f *fieldBase) Name() string { return f.desc.Name }

func (f *fieldBase) Descriptor() types.FieldDescriptor { return f.desc }

func (f *fieldBase) store() types.Store { return f.node.ctx.store }

func (f *fieldBase) id() string { return f.node.id }

// createAttribute creates the backing slot if absent. Reports whether it
// created the slot (vs. found it already there).
func (f *fieldBase) createAttribute() (bool, error) {
	exists, err := f.store().AttributeExists(f.id(), f.desc.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := f.store().AddAttribute(f.id(), f.desc.Name, f.spec); err != nil {
		return false, err
	}
	return true, nil
}

// connected reports whether an external driver feeds the slot. Writes to a
// driven slot are meaningless side-channel noise and get skipped.
func (f *fieldBase) connected() (bool, error) {
	return f.store().HasIncomingConnection(f.id(), f.desc.Name)
}

func (f *fieldBase) logSkipConnected() {
	f.node.ctx.logger.Debug("skipping write to connected slot",
		"entity", f.id(), "field", f.desc.Name)
}

// privateField buffers a single value and writes back on demand, keeping
// the slot locked between writes so the host UI cannot edit it.
type privateField struct {
	fieldBase
	value any
}

func (f *privateField) Get() (any, error) { return f.value, nil }

func (f *privateField) Set(v any) error {
	f.value = v
	return nil
}

func (f *privateField) Read() error {
	raw, err := f.store().GetAttribute(f.id(), f.desc.Name)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	v, err := f.validator.Decode(raw)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.desc.Name, err)
	}
	f.value = v
	return nil
}

func (f *privateField) Write() error {
	raw, err := f.validator.Encode(f.value)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.desc.Name, err)
	}

	driven, err := f.connected()
	if err != nil {
		return err
	}
	if driven {
		f.logSkipConnected()
		return nil
	}

	if err := f.store().SetLock(f.id(), f.desc.Name, false); err != nil {
		return err
	}
	setErr := f.store().SetAttribute(f.id(), f.desc.Name, raw)
	if err := f.store().SetLock(f.id(), f.desc.Name, true); err != nil && setErr == nil {
		setErr = err
	}
	return setErr
}

func (f *privateField) Serialize() (any, error) {
	return f.validator.SerializeValue(f.value)
}

// publicField reads and writes through the store on every access, and never
// locks its slot.
type publicField struct {
	privateField
}

func (f *publicField) Get() (any, error) {
	if err := f.Read(); err != nil {
		return nil, err
	}
	return f.value, nil
}

func (f *publicField) Set(v any) error {
	f.value = v
	return f.Write()
}

func (f *publicField) Write() error {
	raw, err := f.validator.Encode(f.value)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.desc.Name, err)
	}

	driven, err := f.connected()
	if err != nil {
		return err
	}
	if driven {
		f.logSkipConnected()
		return nil
	}

	return f.store().SetAttribute(f.id(), f.desc.Name, raw)
}

// multiField buffers an ordered sequence. Write rewrites the whole array
// from scratch rather than diffing; write frequency is low enough that
// correctness wins over update efficiency.
type multiField struct {
	fieldBase
	value []any
}

func (f *multiField) Get() (any, error) { return f.value, nil }

func (f *multiField) Set(v any) error {
	seq, err := toSequence(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.desc.Name, err)
	}
	f.value = seq
	return nil
}

func (f *multiField) Read() error {
	n, err := f.store().ArrayLen(f.id(), f.desc.Name)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		raw, err := f.store().GetElement(f.id(), f.desc.Name, i)
		if err != nil {
			return err
		}
		v, err := f.validator.Decode(raw)
		if err != nil {
			return fmt.Errorf("field %q[%d]: %w", f.desc.Name, i, err)
		}
		out = append(out, v)
	}
	f.value = out
	return nil
}

func (f *multiField) Write() error {
	// Encode up front so a bad element aborts before the stored sequence
	// is destroyed.
	raws := make([]any, len(f.value))
	for i, v := range f.value {
		raw, err := f.validator.Encode(v)
		if err != nil {
			return fmt.Errorf("field %q[%d]: %w", f.desc.Name, i, err)
		}
		raws[i] = raw
	}

	driven, err := f.connected()
	if err != nil {
		return err
	}
	if driven {
		f.logSkipConnected()
		return nil
	}

	if err := f.unlockAll(); err != nil {
		return err
	}
	if err := f.store().ClearArray(f.id(), f.desc.Name); err != nil {
		return err
	}
	for i, raw := range raws {
		if err := f.store().SetElement(f.id(), f.desc.Name, i, raw); err != nil {
			return err
		}
		if err := f.store().SetElementLock(f.id(), f.desc.Name, i, true); err != nil {
			return err
		}
	}
	return f.store().SetLock(f.id(), f.desc.Name, true)
}

func (f *multiField) Serialize() (any, error) {
	out := make([]any, 0, len(f.value))
	for i, v := range f.value {
		s, err := f.validator.SerializeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", f.desc.Name, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Clear empties both the buffer and the store-side array.
func (f *multiField) Clear() error {
	f.value = []any{}
	if err := f.unlockAll(); err != nil {
		return err
	}
	if err := f.store().ClearArray(f.id(), f.desc.Name); err != nil {
		return err
	}
	return f.store().SetLock(f.id(), f.desc.Name, true)
}

func (f *multiField) unlockAll() error {
	if err := f.store().SetLock(f.id(), f.desc.Name, false); err != nil {
		return err
	}
	n, err := f.store().ArrayLen(f.id(), f.desc.Name)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := f.store().SetElementLock(f.id(), f.desc.Name, i, false); err != nil {
			return err
		}
	}
	return nil
}

// defaultValue picks the initial buffer value: the "default" declaration
// param when present, the validator default otherwise. An undecodable
// declared default is logged and dropped rather than failing the
// declaration.
func defaultValue(n *Node, v Validator, desc types.FieldDescriptor) any {
	raw, ok := desc.Params["default"]
	if !ok || raw == nil {
		return v.Default()
	}
	dv, err := v.Decode(raw)
	if err != nil {
		n.ctx.logger.Warn("ignoring undecodable declared default",
			"entity", n.id, "field", desc.Name, "error", err)
		return v.Default()
	}
	return dv
}

func defaultSequence(n *Node, v Validator, desc types.FieldDescriptor) []any {
	raw, ok := desc.Params["default"]
	if !ok || raw == nil {
		return []any{}
	}
	seq, err := toSequence(raw)
	if err != nil {
		n.ctx.logger.Warn("ignoring undecodable declared default",
			"entity", n.id, "field", desc.Name, "error", err)
		return []any{}
	}
	out := make([]any, 0, len(seq))
	for _, e := range seq {
		dv, err := v.Decode(e)
		if err != nil {
			n.ctx.logger.Warn("ignoring undecodable declared default",
				"entity", n.id, "field", desc.Name, "error", err)
			return []any{}
		}
		out = append(out, dv)
	}
	return out
}

// toSequence accepts any slice value for multi fields, so callers can pass
// []int64 or []string without building []any by hand.
func toSequence(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	if seq, ok := v.([]any); ok {
		return seq, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not a sequence", types.ErrEncode, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
