package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/memory"
)

func TestRegistryCreateGeneratesID(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.New(), nil)

	id, ed, err := r.Create(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NotNil(t, ed)

	_, _, err = r.Create(ctx, id)
	assert.ErrorIs(t, err, chatflow.ErrFlowExists)
}

func TestRegistryPersistsMutations(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewRegistry(store, nil)

	_, ed, err := r.Create(ctx, "f1")
	require.NoError(t, err)
	_, err = ed.AddNode("n1", chatflow.NodeData{Label: "Start"}, 0, 0)
	require.NoError(t, err)

	stored, err := store.GetFlow(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Nodes, 1)
	assert.Equal(t, "Start", stored.Nodes[0].Data.Label)
}

func TestRegistryLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveFlow(ctx, "saved", &chatflow.Flow{
		Nodes: []chatflow.Node{{ID: "x", Type: chatflow.NodeType, Data: chatflow.NodeData{Label: "X"}}},
		Edges: []chatflow.Edge{},
	}))

	r := NewRegistry(store, nil)
	ed, err := r.Get(ctx, "saved")
	require.NoError(t, err)
	n, ok := ed.Node("x")
	require.True(t, ok)
	assert.Equal(t, "X", n.Data.Label)

	again, err := r.Get(ctx, "saved")
	require.NoError(t, err)
	assert.Same(t, ed, again)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, chatflow.ErrFlowNotFound)
}

func TestRegistryFlowsAreIndependent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(memory.New(), nil)

	_, a, err := r.Create(ctx, "a")
	require.NoError(t, err)
	_, b, err := r.Create(ctx, "b")
	require.NoError(t, err)

	_, _ = a.AddNode("n", chatflow.NodeData{Label: "n"}, 0, 0)
	assert.Len(t, a.Snapshot().Nodes, 1)
	assert.Empty(t, b.Snapshot().Nodes)

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRegistryDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := NewRegistry(store, nil)

	_, ed, err := r.Create(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, "gone"))

	_, _ = ed.AddNode("late", chatflow.NodeData{Label: "late"}, 0, 0)
	stored, err := store.GetFlow(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = r.Get(ctx, "gone")
	assert.ErrorIs(t, err, chatflow.ErrFlowNotFound)
	assert.ErrorIs(t, r.Save(ctx, "gone"), chatflow.ErrFlowNotFound)
}
