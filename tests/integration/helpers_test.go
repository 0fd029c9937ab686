// Package integration tests the metanode layer end to end over the SQLite
// scene store: bootstrap, schema persistence, flush semantics, and
// polymorphic reconstruction across store reopens.
package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riglab/metanode/internal/sqlite"
	"github.com/riglab/metanode/pkg/metanode"
	"github.com/riglab/metanode/pkg/types"
)

// scenePath returns a per-test scene file location.
func scenePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scene.db")
}

// openScene opens the scene file and builds a context over it, with the
// character kind registered. Close is the caller's job when the test reopens
// the same file; otherwise cleanup handles it.
func openScene(t *testing.T, path string) (*sqlite.Store, *metanode.Context) {
	t.Helper()
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := metanode.NewContext(store)
	require.NoError(t, ctx.RegisterKind("Character", metanode.BaseKind, newCharacter))
	return store, ctx
}

// openBare opens the scene file without registering any kind.
func openBare(t *testing.T, path string) (*sqlite.Store, error) {
	t.Helper()
	return sqlite.Open(path)
}

// character is the integration test kind: a private counter, a public flag,
// a string array, and a reference to another node.
type character struct {
	metanode.Base
}

func newCharacter(n *metanode.Node) metanode.Kind {
	return &character{Base: metanode.Base{Node: n}}
}

func (c *character) DeclareFields() error {
	n := c.MetaNode()
	if _, err := n.AddField(metanode.KindInt, "health", types.AccessPrivate, false,
		map[string]any{"default": int64(100)}); err != nil {
		return err
	}
	if _, err := n.AddField(metanode.KindBool, "visible", types.AccessPublic, false, nil); err != nil {
		return err
	}
	if _, err := n.AddField(metanode.KindString, "tags", types.AccessPrivate, true, nil); err != nil {
		return err
	}
	_, err := n.AddField(metanode.KindNode, "target", types.AccessPrivate, false, nil)
	return err
}

func (c *character) Initialize() error {
	return c.MetaNode().Field("tags").Set([]string{"fresh"})
}
