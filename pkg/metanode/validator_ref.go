package metanode

import (
	"encoding/json"
	"fmt"

	"github.com/riglab/metanode/pkg/types"
)

// nodeValidator handles entity-reference fields. The raw form is the
// referenced entity's durable id as text; decoding resolves it back into a
// live wrapper through the owning Context, or nil when the id is empty or
// the entity no longer exists.
type nodeValidator struct {
	ctx *Context
}

func (nodeValidator) Kind() string { return KindNode }
func (nodeValidator) Default() any { return nil }

func (v nodeValidator) Decode(raw any) (any, error) {
	id, ok := raw.(string)
	if !ok || id == "" {
		return nil, nil
	}
	if !v.ctx.store.EntityExists(id) {
		return nil, nil
	}
	return v.ctx.Wrap(id)
}

func (nodeValidator) Encode(val any) (any, error) {
	id, ok := refID(val)
	if !ok {
		return nil, encodeErr(KindNode, val)
	}
	return id, nil
}

func (nodeValidator) SerializeValue(val any) (any, error) {
	id, ok := refID(val)
	if !ok {
		return nil, encodeErr(KindNode, val)
	}
	if id == "" {
		return nil, nil
	}
	return id, nil
}

func (nodeValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrText}
}

// refID extracts the durable id a reference value points at. Nil references
// collapse to the empty string.
func refID(val any) (string, bool) {
	switch r := val.(type) {
	case nil:
		return "", true
	case string:
		return r, true
	case *Node:
		if r == nil {
			return "", true
		}
		return r.ID(), true
	case Kind:
		n := r.MetaNode()
		if n == nil {
			return "", true
		}
		return n.ID(), true
	}
	return "", false
}

// jsonValidator handles opaque structured data, round-tripped through text.
type jsonValidator struct{}

func (jsonValidator) Kind() string { return KindJSON }

func (jsonValidator) Default() any { return map[string]any{} }

func (jsonValidator) Decode(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s: cannot decode %T", KindJSON, raw)
	}
	if s == "" {
		return map[string]any{}, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", KindJSON, err)
	}
	return out, nil
}

func (jsonValidator) Encode(v any) (any, error) {
	if v == nil {
		v = map[string]any{}
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", KindJSON, types.ErrEncode, err)
	}
	return string(buf), nil
}

func (jsonValidator) SerializeValue(v any) (any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	return v, nil
}

func (jsonValidator) Spec(map[string]any) types.AttrSpec {
	return types.AttrSpec{Type: types.AttrText}
}
