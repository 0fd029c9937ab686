package metanode

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/riglab/metanode/internal/memstore"
	"github.com/riglab/metanode/pkg/types"
)

// newTestNode builds a fresh base node over an in-memory store.
func newTestNode(t *testing.T) (*memstore.Store, *Context, *Node) {
	t.Helper()
	store := memstore.New()
	ctx := NewContext(store)
	k, err := ctx.Create(BaseKind, "", types.CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return store, ctx, k.MetaNode()
}

func TestPrivateFieldWriteBack(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindInt, "count", types.AccessPrivate, false, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}

	if err := f.Set(int64(10)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := f.Get()
	if err != nil || got != int64(10) {
		t.Fatalf("Get() = %v, %v; want 10", got, err)
	}

	// Buffered: the slot keeps its zero value until Write.
	raw, err := store.GetAttribute(n.ID(), "count")
	if err != nil || raw != int64(0) {
		t.Errorf("slot before Write = %v, %v; want 0", raw, err)
	}

	if err := f.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	raw, err = store.GetAttribute(n.ID(), "count")
	if err != nil || raw != int64(10) {
		t.Errorf("slot after Write = %v, %v; want 10", raw, err)
	}

	// Private slots stay locked between writes.
	locked, err := store.IsLocked(n.ID(), "count")
	if err != nil || !locked {
		t.Errorf("IsLocked() = %v, %v; want true", locked, err)
	}
}

func TestPrivateFieldReadRefreshesBuffer(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindString, "label", types.AccessPrivate, false, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}

	// An out-of-band store write is invisible until Read.
	if err := store.SetAttribute(n.ID(), "label", "external"); err != nil {
		t.Fatalf("SetAttribute() error = %v", err)
	}
	if got, _ := f.Get(); got != "" {
		t.Errorf("Get() before Read = %v, want empty default", got)
	}
	if err := f.Read(); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got, _ := f.Get(); got != "external" {
		t.Errorf("Get() after Read = %v, want %q", got, "external")
	}
}

func TestPrivateFieldDeclaredDefault(t *testing.T) {
	_, _, n := newTestNode(t)

	f, err := n.AddField(KindInt, "retries", types.AccessPrivate, false,
		map[string]any{"default": int64(3)})
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if got, _ := f.Get(); got != int64(3) {
		t.Errorf("Get() = %v, want declared default 3", got)
	}
}

func TestUndecodableDeclaredDefaultIsLogged(t *testing.T) {
	var buf bytes.Buffer
	store := memstore.New()
	ctx := NewContext(store, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	k, err := ctx.Create(BaseKind, "", types.CreateOptions{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	n := k.MetaNode()

	f, err := n.AddField(KindInt, "steps", types.AccessPrivate, true,
		map[string]any{"default": []any{int64(1), "three"}})
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}

	// One bad element discards the whole declared sequence, with a warning.
	got, err := f.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if seq, ok := got.([]any); !ok || len(seq) != 0 {
		t.Errorf("Get() = %v, want empty sequence", got)
	}
	if !strings.Contains(buf.String(), "ignoring undecodable declared default") {
		t.Errorf("no warning logged, got %q", buf.String())
	}

	// A scalar default that cannot decode falls back the same way.
	buf.Reset()
	g, err := n.AddField(KindInt, "tries", types.AccessPrivate, false,
		map[string]any{"default": "three"})
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if got, _ := g.Get(); got != int64(0) {
		t.Errorf("Get() = %v, want validator zero 0", got)
	}
	if !strings.Contains(buf.String(), "ignoring undecodable declared default") {
		t.Errorf("no warning logged, got %q", buf.String())
	}
}

func TestPublicFieldWriteThrough(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindFloat, "weight", types.AccessPublic, false, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}

	if err := f.Set(1.5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	raw, err := store.GetAttribute(n.ID(), "weight")
	if err != nil || raw != 1.5 {
		t.Errorf("slot after Set = %v, %v; want 1.5", raw, err)
	}

	// Get reads through, so an external edit is visible immediately.
	if err := store.SetAttribute(n.ID(), "weight", 9.0); err != nil {
		t.Fatalf("SetAttribute() error = %v", err)
	}
	got, err := f.Get()
	if err != nil || got != 9.0 {
		t.Errorf("Get() = %v, %v; want 9", got, err)
	}

	// Public slots are never locked.
	locked, err := store.IsLocked(n.ID(), "weight")
	if err != nil || locked {
		t.Errorf("IsLocked() = %v, %v; want false", locked, err)
	}
}

func TestConnectedSlotSkipsWrite(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindInt, "driven", types.AccessPrivate, false, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if err := store.Connect(n.ID(), "driven"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := f.Set(int64(7)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Write(); err != nil {
		t.Fatalf("Write() on driven slot error = %v, want nil (skip)", err)
	}
	raw, err := store.GetAttribute(n.ID(), "driven")
	if err != nil || raw != int64(0) {
		t.Errorf("driven slot = %v, %v; want untouched 0", raw, err)
	}
}

func TestMultiFieldRoundTrip(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindString, "tags", types.AccessPrivate, true, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	af := n.Array("tags")
	if af == nil {
		t.Fatal("Array() = nil, want the declared array field")
	}

	if err := f.Set([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Buffered: no elements stored until Write.
	if count, _ := store.ArrayLen(n.ID(), "tags"); count != 0 {
		t.Errorf("ArrayLen before Write = %d, want 0", count)
	}

	if err := f.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	count, err := store.ArrayLen(n.ID(), "tags")
	if err != nil || count != 3 {
		t.Fatalf("ArrayLen after Write = %d, %v; want 3", count, err)
	}
	if e, _ := store.GetElement(n.ID(), "tags", 1); e != "b" {
		t.Errorf("element 1 = %v, want b", e)
	}

	// A second wrapper in a fresh context reads the sequence back.
	other, err := NewContext(store).Wrap(n.ID())
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	got, err := other.MetaNode().Field("tags").Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Errorf("reloaded sequence = %v, want [a b c]", got)
	}

	// Clear empties both sides.
	if err := af.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if count, _ := store.ArrayLen(n.ID(), "tags"); count != 0 {
		t.Errorf("ArrayLen after Clear = %d, want 0", count)
	}
	got, _ = f.Get()
	if seq, ok := got.([]any); !ok || len(seq) != 0 {
		t.Errorf("buffer after Clear = %v, want empty sequence", got)
	}
}

func TestMultiFieldRewriteShrinks(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindInt, "ids", types.AccessPrivate, true, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if err := f.Set([]int64{1, 2, 3, 4}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Rewriting with a shorter sequence must not leave stale elements.
	if err := f.Set([]int64{9}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	count, err := store.ArrayLen(n.ID(), "ids")
	if err != nil || count != 1 {
		t.Fatalf("ArrayLen = %d, %v; want 1", count, err)
	}
	if e, _ := store.GetElement(n.ID(), "ids", 0); e != int64(9) {
		t.Errorf("element 0 = %v, want 9", e)
	}
}

func TestMultiFieldBadElementAbortsBeforeClear(t *testing.T) {
	store, _, n := newTestNode(t)

	f, err := n.AddField(KindInt, "nums", types.AccessPrivate, true, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if err := f.Set([]int64{1, 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := f.Set([]any{int64(3), "not a number"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	err = f.Write()
	if !errors.Is(err, types.ErrEncode) {
		t.Fatalf("Write() = %v, want ErrEncode", err)
	}

	// The stored sequence survives the failed rewrite.
	count, err := store.ArrayLen(n.ID(), "nums")
	if err != nil || count != 2 {
		t.Errorf("ArrayLen after failed Write = %d, %v; want 2", count, err)
	}
}

func TestAddFieldRejectsPublicMulti(t *testing.T) {
	_, _, n := newTestNode(t)

	_, err := n.AddField(KindInt, "bad", types.AccessPublic, true, nil)
	if !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("AddField(public multi) = %v, want ErrConfiguration", err)
	}
}

func TestAddFieldUnknownValidator(t *testing.T) {
	_, _, n := newTestNode(t)

	_, err := n.AddField("quaternion", "rot", types.AccessPrivate, false, nil)
	if !errors.Is(err, types.ErrUnknownValidator) {
		t.Errorf("AddField(unknown kind) = %v, want ErrUnknownValidator", err)
	}
}

func TestAddFieldIdempotent(t *testing.T) {
	_, _, n := newTestNode(t)

	f1, err := n.AddField(KindInt, "count", types.AccessPrivate, false, nil)
	if err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if err := f1.Set(int64(5)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Re-declaring hands back the same field, value intact.
	f2, err := n.AddField(KindInt, "count", types.AccessPrivate, false, nil)
	if err != nil {
		t.Fatalf("AddField() again error = %v", err)
	}
	if f1 != f2 {
		t.Error("AddField() built a second field for the same name")
	}
	if got, _ := f2.Get(); got != int64(5) {
		t.Errorf("Get() = %v, want buffered 5", got)
	}
}
