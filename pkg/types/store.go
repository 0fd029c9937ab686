package types

// Store is the attribute store the metanode layer persists into: per-entity
// named slots, scalar or array, lockable, possibly driven by a connection
// from another entity. Implementations live in internal/memstore and
// internal/sqlite.
//
// Raw values are store primitives: int64, float64, bool, string, Matrix4.
// Backends that round-trip through JSON may widen integers to float64 and
// matrices to []any; validators in pkg/metanode coerce both shapes.
type Store interface {
	// CreateEntity allocates a new entity of the given native kind and
	// returns its durable id.
	CreateEntity(kind string, opts CreateOptions) (string, error)

	// EntityExists reports whether an entity with the given durable id
	// exists.
	EntityExists(id string) bool

	// EntityName returns the display name of an entity.
	// Returns ErrNotFound if the entity does not exist.
	EntityName(id string) (string, error)

	// Resolve returns the durable id of the entity with the given display
	// name. Returns ErrNotFound if no entity carries the name.
	Resolve(name string) (string, error)

	// AttributeExists reports whether the named slot exists on the entity.
	AttributeExists(id, name string) (bool, error)

	// AddAttribute creates the named slot per spec.
	// Returns ErrAttrExists if the slot already exists.
	AddAttribute(id, name string, spec AttrSpec) error

	// GetAttribute returns the scalar slot value, or nil when the slot has
	// never been written.
	GetAttribute(id, name string) (any, error)

	// SetAttribute writes the scalar slot value.
	// Returns ErrAttrLocked if the slot is locked.
	SetAttribute(id, name string, value any) error

	// SetLock locks or unlocks a slot. For array slots this covers the
	// parent slot; elements carry their own locks.
	SetLock(id, name string, locked bool) error

	// HasIncomingConnection reports whether another entity drives the
	// slot's value. Writes to a driven slot are side-channel noise.
	HasIncomingConnection(id, name string) (bool, error)

	// ArrayLen returns the number of elements in an array slot.
	ArrayLen(id, name string) (int, error)

	// GetElement returns the element value at index.
	// Returns ErrIndexRange when idx is outside the array.
	GetElement(id, name string, idx int) (any, error)

	// SetElement writes the element at index, growing the array by one
	// when idx equals its current length.
	SetElement(id, name string, idx int, value any) error

	// SetElementLock locks or unlocks a single array element.
	SetElementLock(id, name string, idx int, locked bool) error

	// ClearArray removes every element of an array slot.
	ClearArray(id, name string) error
}
