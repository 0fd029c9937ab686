// Package memstore is an in-memory attribute store. It is the reference
// types.Store implementation, used by unit tests and as the executable
// specification of slot semantics (locks, arrays, connections) that the
// SQLite backend mirrors.
package memstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/riglab/metanode/pkg/types"
)

// slot is one named storage cell on an entity.
type slot struct {
	spec      types.AttrSpec
	value     any   // scalar slots; nil until first write
	elems     []any // array slots
	elemLocks []bool
	locked    bool
	driven    bool // an incoming connection feeds this slot
}

// entity is one stored entity: native kind, display name, and slots.
type entity struct {
	kind  string
	name  string
	attrs map[string]*slot
}

// Store holds entities keyed by durable id. The zero value is not usable;
// call New.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*entity
	names    map[string]string // display name -> id
	counters map[string]int    // native kind -> last assigned suffix
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		entities: make(map[string]*entity),
		names:    make(map[string]string),
		counters: make(map[string]int),
	}
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CreateEntity allocates a new entity and returns its durable id. Names
// default to the native kind plus a per-kind counter ("node1", "node2").
func (s *Store) CreateEntity(kind string, opts types.CreateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := opts.ID
	if id == "" {
		id = newUUID()
	} else {
		if uuid.Validate(id) != nil {
			return "", fmt.Errorf("%q: %w", id, types.ErrInvalidID)
		}
		if _, ok := s.entities[id]; ok {
			return "", fmt.Errorf("%q: %w", id, types.ErrDuplicateID)
		}
	}

	name := opts.Name
	if name == "" {
		for {
			s.counters[kind]++
			name = fmt.Sprintf("%s%d", kind, s.counters[kind])
			if _, taken := s.names[name]; !taken {
				break
			}
		}
	} else if _, taken := s.names[name]; taken {
		return "", fmt.Errorf("name %q: %w", name, types.ErrDuplicateID)
	}

	s.entities[id] = &entity{kind: kind, name: name, attrs: make(map[string]*slot)}
	s.names[name] = id
	return id, nil
}

// DeleteEntity removes an entity and its slots. Identity-cache eviction is
// the caller's job (Context.Evict).
func (s *Store) DeleteEntity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	delete(s.names, e.name)
	delete(s.entities, id)
	return nil
}

// EntityExists reports whether the entity exists.
func (s *Store) EntityExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// EntityName returns the display name of an entity.
func (s *Store) EntityName(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return "", fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	return e.name, nil
}

// Resolve returns the durable id of the entity with the given name.
func (s *Store) Resolve(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return "", fmt.Errorf("name %q: %w", name, types.ErrNotFound)
	}
	return id, nil
}

// Rename changes an entity's display name.
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	if other, taken := s.names[name]; taken && other != id {
		return fmt.Errorf("name %q: %w", name, types.ErrDuplicateID)
	}
	delete(s.names, e.name)
	e.name = name
	s.names[name] = id
	return nil
}

func (s *Store) slot(id, name string) (*slot, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	a, ok := e.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrNotFound)
	}
	return a, nil
}

// AttributeExists reports whether the named slot exists.
func (s *Store) AttributeExists(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return false, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	_, ok = e.attrs[name]
	return ok, nil
}

// AddAttribute creates the named slot.
func (s *Store) AddAttribute(id, name string, spec types.AttrSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	if _, ok := e.attrs[name]; ok {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrExists)
	}
	a := &slot{spec: spec}
	if !spec.Multi {
		a.value = types.AttrZero(spec.Type)
	}
	e.attrs[name] = a
	return nil
}

// GetAttribute returns the scalar slot value, nil when never written.
func (s *Store) GetAttribute(id, name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.slot(id, name)
	if err != nil {
		return nil, err
	}
	return a.value, nil
}

// SetAttribute writes the scalar slot value, refusing locked slots.
func (s *Store) SetAttribute(id, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(id, name)
	if err != nil {
		return err
	}
	if a.locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}
	a.value = value
	return nil
}

// SetLock locks or unlocks a slot.
func (s *Store) SetLock(id, name string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(id, name)
	if err != nil {
		return err
	}
	a.locked = locked
	return nil
}

// IsLocked reports whether a slot is locked.
func (s *Store) IsLocked(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.slot(id, name)
	if err != nil {
		return false, err
	}
	return a.locked, nil
}

// HasIncomingConnection reports whether another entity drives the slot.
func (s *Store) HasIncomingConnection(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.slot(id, name)
	if err != nil {
		return false, err
	}
	return a.driven, nil
}

// Connect marks the destination slot as driven by an external source.
// The source side is not tracked; only incoming connections matter to the
// field layer.
func (s *Store) Connect(dstID, dstAttr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(dstID, dstAttr)
	if err != nil {
		return err
	}
	a.driven = true
	return nil
}

// Disconnect removes the incoming connection from a slot.
func (s *Store) Disconnect(dstID, dstAttr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(dstID, dstAttr)
	if err != nil {
		return err
	}
	a.driven = false
	return nil
}

// ArrayLen returns the number of elements of an array slot.
func (s *Store) ArrayLen(id, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.slot(id, name)
	if err != nil {
		return 0, err
	}
	if !a.spec.Multi {
		return 0, fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	return len(a.elems), nil
}

// GetElement returns the element value at index.
func (s *Store) GetElement(id, name string, idx int) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.slot(id, name)
	if err != nil {
		return nil, err
	}
	if !a.spec.Multi {
		return nil, fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if idx < 0 || idx >= len(a.elems) {
		return nil, fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}
	return a.elems[idx], nil
}

// SetElement writes the element at index, growing the array by one when idx
// equals the current length.
func (s *Store) SetElement(id, name string, idx int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(id, name)
	if err != nil {
		return err
	}
	if !a.spec.Multi {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if a.locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}
	switch {
	case idx >= 0 && idx < len(a.elems):
		if a.elemLocks[idx] {
			return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrAttrLocked)
		}
		a.elems[idx] = value
	case idx == len(a.elems):
		a.elems = append(a.elems, value)
		a.elemLocks = append(a.elemLocks, false)
	default:
		return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}
	return nil
}

// SetElementLock locks or unlocks a single array element.
func (s *Store) SetElementLock(id, name string, idx int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(id, name)
	if err != nil {
		return err
	}
	if !a.spec.Multi {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if idx < 0 || idx >= len(a.elems) {
		return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}
	a.elemLocks[idx] = locked
	return nil
}

// ClearArray removes every element of an array slot.
func (s *Store) ClearArray(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.slot(id, name)
	if err != nil {
		return err
	}
	if !a.spec.Multi {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if a.locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}
	a.elems = nil
	a.elemLocks = nil
	return nil
}
