// Integration tests for polymorphic reconstruction: the stored kind tag must
// be enough to rebuild the concrete wrapper in a later session, and schemas
// persisted as data must redeclare themselves without the declaring code.
package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglab/metanode/pkg/metanode"
	"github.com/riglab/metanode/pkg/types"
)

func TestPolymorphism_KindTagSurvivesReopen(t *testing.T) {
	path := scenePath(t)

	store, ctx := openScene(t, path)
	k, err := ctx.Create("Character", "", types.CreateOptions{})
	require.NoError(t, err)
	id := k.MetaNode().ID()
	require.NoError(t, store.Close())

	_, ctx2 := openScene(t, path)
	again, err := ctx2.Wrap(id)
	require.NoError(t, err)

	_, ok := again.(*character)
	assert.True(t, ok, "Wrap must rebuild the concrete kind from the stored tag")
	assert.Equal(t, "Character", again.MetaNode().KindTag())
}

func TestPolymorphism_UnregisteredTagFailsResolution(t *testing.T) {
	path := scenePath(t)

	store, ctx := openScene(t, path)
	k, err := ctx.Create("Character", "", types.CreateOptions{})
	require.NoError(t, err)
	id := k.MetaNode().ID()
	require.NoError(t, store.Close())

	// A context that never registered the kind cannot resolve the tag.
	store2, err := openBare(t, path)
	require.NoError(t, err)
	defer store2.Close()

	_, err = metanode.NewContext(store2).Wrap(id)
	assert.ErrorIs(t, err, types.ErrSchemaResolution)
}

func TestPolymorphism_SchemaIsSelfDescribing(t *testing.T) {
	path := scenePath(t)

	store, ctx := openScene(t, path)
	k, err := ctx.Create(metanode.BaseKind, "", types.CreateOptions{})
	require.NoError(t, err)
	n := k.MetaNode()
	id := n.ID()

	// Fields declared ad hoc on a plain base node, no kind code involved.
	f, err := n.AddField(metanode.KindEnum, "mode", types.AccessPrivate, false,
		map[string]any{"choices": []string{"off", "on"}})
	require.NoError(t, err)
	require.NoError(t, f.Set(int64(1)))
	require.NoError(t, n.WriteFields())
	require.NoError(t, store.Close())

	store2, err := openBare(t, path)
	require.NoError(t, err)
	defer store2.Close()

	again, err := metanode.NewContext(store2).Wrap(id)
	require.NoError(t, err)

	reloaded := again.MetaNode().Field("mode")
	require.NotNil(t, reloaded, "persisted schema must redeclare the field")

	v, err := reloaded.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	desc := reloaded.Descriptor()
	assert.Equal(t, metanode.KindEnum, desc.Validator)
	assert.Equal(t, types.AccessPrivate, desc.Access)
}

func TestPolymorphism_SerializeSnapshot(t *testing.T) {
	path := scenePath(t)

	_, ctx := openScene(t, path)
	k, err := ctx.Create("Character", "", types.CreateOptions{Name: "hero"})
	require.NoError(t, err)
	n := k.MetaNode()
	require.NoError(t, n.Field("health").Set(int64(7)))

	data, err := n.Serialize()
	require.NoError(t, err)

	assert.Equal(t, n.ID(), data["uuid"])
	assert.Equal(t, int64(7), data["health"])
	assert.Equal(t, "Character", data[metanode.KindTagField])
	assert.Equal(t, true, data[metanode.InitField])
	assert.Equal(t, []any{"fresh"}, data["tags"])
}
