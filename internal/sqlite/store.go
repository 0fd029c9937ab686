// Package sqlite implements the attribute store on a SQLite scene file,
// for headless use of the metanode layer outside a live host session.
// Semantics (locks, arrays, connections, zero-init) match internal/memstore.
package sqlite

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/riglab/metanode/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Store is a types.Store backed by a single SQLite database file.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) a scene file and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scene %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("scene schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) guard() error {
	if s.closed {
		return types.ErrStoreClosed
	}
	return nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// encodeValue renders a raw store value as JSON text; nil stays NULL.
func encodeValue(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode value: %w", err)
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}

// decodeValue is the inverse of encodeValue. Integers come back as float64
// and matrices as []any; validators coerce those shapes.
func decodeValue(v sql.NullString) (any, error) {
	if !v.Valid {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// CreateEntity allocates a new entity row. Names default to the native kind
// plus a per-kind counter kept in the counters table.
func (s *Store) CreateEntity(kind string, opts types.CreateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return "", err
	}

	id := opts.ID
	if id == "" {
		id = newUUID()
	} else {
		if uuid.Validate(id) != nil {
			return "", fmt.Errorf("%q: %w", id, types.ErrInvalidID)
		}
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM entities WHERE id = ?", id).Scan(&n); err != nil {
			return "", err
		}
		if n > 0 {
			return "", fmt.Errorf("%q: %w", id, types.ErrDuplicateID)
		}
	}

	name := opts.Name
	if name == "" {
		var err error
		name, err = s.nextName(kind)
		if err != nil {
			return "", err
		}
	} else {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM entities WHERE name = ?", name).Scan(&n); err != nil {
			return "", err
		}
		if n > 0 {
			return "", fmt.Errorf("name %q: %w", name, types.ErrDuplicateID)
		}
	}

	if _, err := s.db.Exec("INSERT INTO entities (id, kind, name) VALUES (?, ?, ?)", id, kind, name); err != nil {
		return "", fmt.Errorf("create entity: %w", err)
	}
	return id, nil
}

// nextName assigns "kindN" names, skipping any already taken.
func (s *Store) nextName(kind string) (string, error) {
	for {
		if _, err := s.db.Exec(
			"INSERT INTO counters (kind, n) VALUES (?, 1) ON CONFLICT(kind) DO UPDATE SET n = n + 1", kind); err != nil {
			return "", err
		}
		var n int
		if err := s.db.QueryRow("SELECT n FROM counters WHERE kind = ?", kind).Scan(&n); err != nil {
			return "", err
		}
		name := fmt.Sprintf("%s%d", kind, n)
		var taken int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM entities WHERE name = ?", name).Scan(&taken); err != nil {
			return "", err
		}
		if taken == 0 {
			return name, nil
		}
	}
}

// DeleteEntity removes an entity, cascading to its slots and elements.
func (s *Store) DeleteEntity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	res, err := s.db.Exec("DELETE FROM entities WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	_, err = s.db.Exec("DELETE FROM connections WHERE dst_entity = ? OR src_entity = ?", id, id)
	return err
}

// EntityExists reports whether the entity row exists.
func (s *Store) EntityExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entities WHERE id = ?", id).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// EntityName returns the display name of an entity.
func (s *Store) EntityName(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return "", err
	}
	var name string
	err := s.db.QueryRow("SELECT name FROM entities WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	return name, err
}

// Resolve returns the durable id of the entity with the given name.
func (s *Store) Resolve(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return "", err
	}
	var id string
	err := s.db.QueryRow("SELECT id FROM entities WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("name %q: %w", name, types.ErrNotFound)
	}
	return id, err
}

// ListEntities returns every entity id in the scene, newest last.
func (s *Store) ListEntities() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query("SELECT id FROM entities ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttributeExists reports whether the named slot exists on the entity.
func (s *Store) AttributeExists(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	if !s.entityExistsLocked(id) {
		return false, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM attributes WHERE entity_id = ? AND name = ?", id, name).Scan(&n)
	return n > 0, err
}

func (s *Store) entityExistsLocked(id string) bool {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entities WHERE id = ?", id).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// AddAttribute creates the named slot, zero-initializing scalar slots per
// types.AttrZero.
func (s *Store) AddAttribute(id, name string, spec types.AttrSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	if !s.entityExistsLocked(id) {
		return fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM attributes WHERE entity_id = ? AND name = ?", id, name).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrExists)
	}

	var value sql.NullString
	if !spec.Multi {
		var err error
		value, err = encodeValue(types.AttrZero(spec.Type))
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO attributes (entity_id, name, type, multi, enum_spec, displayed, locked, value)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		id, name, spec.Type, spec.Multi, spec.EnumSpec, spec.Displayed, value)
	return err
}

// attrRow fetches one slot row.
func (s *Store) attrRow(id, name string) (multi bool, locked bool, value sql.NullString, err error) {
	err = s.db.QueryRow(
		"SELECT multi, locked, value FROM attributes WHERE entity_id = ? AND name = ?",
		id, name).Scan(&multi, &locked, &value)
	if err == sql.ErrNoRows {
		err = fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrNotFound)
	}
	return
}

// GetAttribute returns the scalar slot value, nil when never written.
func (s *Store) GetAttribute(id, name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	_, _, value, err := s.attrRow(id, name)
	if err != nil {
		return nil, err
	}
	return decodeValue(value)
}

// SetAttribute writes the scalar slot value, refusing locked slots.
func (s *Store) SetAttribute(id, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	_, locked, _, err := s.attrRow(id, name)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}
	enc, err := encodeValue(value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"UPDATE attributes SET value = ? WHERE entity_id = ? AND name = ?", enc, id, name)
	return err
}

// SetLock locks or unlocks a slot.
func (s *Store) SetLock(id, name string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE attributes SET locked = ? WHERE entity_id = ? AND name = ?", locked, id, name)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrNotFound)
	}
	return nil
}

// IsLocked reports whether a slot is locked.
func (s *Store) IsLocked(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	_, locked, _, err := s.attrRow(id, name)
	return locked, err
}

// HasIncomingConnection reports whether another entity drives the slot.
func (s *Store) HasIncomingConnection(id, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	if _, _, _, err := s.attrRow(id, name); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM connections WHERE dst_entity = ? AND dst_attr = ?", id, name).Scan(&n)
	return n > 0, err
}

// Connect marks the destination slot as driven by the given source.
func (s *Store) Connect(srcID, srcAttr, dstID, dstAttr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	if _, _, _, err := s.attrRow(dstID, dstAttr); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO connections (dst_entity, dst_attr, src_entity, src_attr)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(dst_entity, dst_attr) DO UPDATE SET src_entity = ?, src_attr = ?`,
		dstID, dstAttr, srcID, srcAttr, srcID, srcAttr)
	return err
}

// Disconnect removes the incoming connection from a slot.
func (s *Store) Disconnect(dstID, dstAttr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"DELETE FROM connections WHERE dst_entity = ? AND dst_attr = ?", dstID, dstAttr)
	return err
}

// ArrayLen returns the number of elements in an array slot.
func (s *Store) ArrayLen(id, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return 0, err
	}
	multi, _, _, err := s.attrRow(id, name)
	if err != nil {
		return 0, err
	}
	if !multi {
		return 0, fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	var n int
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM elements WHERE entity_id = ? AND attr = ?", id, name).Scan(&n)
	return n, err
}

// GetElement returns the element value at index.
func (s *Store) GetElement(id, name string, idx int) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	multi, _, _, err := s.attrRow(id, name)
	if err != nil {
		return nil, err
	}
	if !multi {
		return nil, fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	var value sql.NullString
	err = s.db.QueryRow(
		"SELECT value FROM elements WHERE entity_id = ? AND attr = ? AND idx = ?",
		id, name, idx).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}
	if err != nil {
		return nil, err
	}
	return decodeValue(value)
}

// SetElement writes the element at index, growing the array by one when idx
// equals its current length.
func (s *Store) SetElement(id, name string, idx int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	multi, locked, _, err := s.attrRow(id, name)
	if err != nil {
		return err
	}
	if !multi {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}

	var count int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM elements WHERE entity_id = ? AND attr = ?", id, name).Scan(&count); err != nil {
		return err
	}
	if idx < 0 || idx > count {
		return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}

	enc, err := encodeValue(value)
	if err != nil {
		return err
	}
	if idx == count {
		_, err = s.db.Exec(
			"INSERT INTO elements (entity_id, attr, idx, value, locked) VALUES (?, ?, ?, ?, 0)",
			id, name, idx, enc)
		return err
	}

	var elemLocked bool
	if err := s.db.QueryRow(
		"SELECT locked FROM elements WHERE entity_id = ? AND attr = ? AND idx = ?",
		id, name, idx).Scan(&elemLocked); err != nil {
		return err
	}
	if elemLocked {
		return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrAttrLocked)
	}
	_, err = s.db.Exec(
		"UPDATE elements SET value = ? WHERE entity_id = ? AND attr = ? AND idx = ?",
		enc, id, name, idx)
	return err
}

// SetElementLock locks or unlocks a single array element.
func (s *Store) SetElementLock(id, name string, idx int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE elements SET locked = ? WHERE entity_id = ? AND attr = ? AND idx = ?",
		locked, id, name, idx)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s.%s[%d]: %w", id, name, idx, types.ErrIndexRange)
	}
	return nil
}

// ClearArray removes every element of an array slot.
func (s *Store) ClearArray(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	multi, locked, _, err := s.attrRow(id, name)
	if err != nil {
		return err
	}
	if !multi {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrNotArray)
	}
	if locked {
		return fmt.Errorf("%s.%s: %w", id, name, types.ErrAttrLocked)
	}
	_, err = s.db.Exec("DELETE FROM elements WHERE entity_id = ? AND attr = ?", id, name)
	return err
}
