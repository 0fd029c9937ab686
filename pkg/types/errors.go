package types

import "errors"

// Store errors. Store implementations return these sentinels so callers
// can branch with errors.Is regardless of backend.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidID    = errors.New("invalid entity id")
	ErrDuplicateID  = errors.New("entity id already in use")
	ErrAttrNotFound = errors.New("attribute not found")
	ErrAttrExists   = errors.New("attribute already exists")
	ErrAttrLocked   = errors.New("attribute is locked")
	ErrNotArray     = errors.New("attribute is not an array")
	ErrIndexRange   = errors.New("array index out of range")
	ErrStoreClosed  = errors.New("store is closed")
)

// Core-layer errors, surfaced by pkg/metanode.
var (
	// ErrConstruction reports a node handle built from something that is
	// not a durable entity id.
	ErrConstruction = errors.New("not a durable entity id")

	// ErrSchemaResolution reports a persisted kind tag that resolves to no
	// registered kind reachable from the requested base kind.
	ErrSchemaResolution = errors.New("kind tag not registered")

	// ErrConfiguration reports an invalid field declaration, such as a
	// public array field.
	ErrConfiguration = errors.New("invalid field configuration")

	// ErrUnknownValidator reports a field descriptor naming a validator
	// kind that is not registered. Raised at schema deserialization, not
	// at first use.
	ErrUnknownValidator = errors.New("unknown validator kind")

	// ErrEncode reports a field value the validator could not convert to
	// a store value. WriteFields downgrades it to a log entry; Field.Write
	// returns it so callers may choose to propagate.
	ErrEncode = errors.New("value not encodable")
)
