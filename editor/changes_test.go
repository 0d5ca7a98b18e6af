package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/chatflow"
)

func seeded(t *testing.T) *Editor {
	t.Helper()
	e := New()
	for _, id := range []string{"a", "b"} {
		_, err := e.AddNode(id, chatflow.NodeData{Label: id}, 0, 0)
		require.NoError(t, err)
	}
	_, err := e.AddEdge("a", "b")
	require.NoError(t, err)
	return e
}

func TestApplyNodeChangesInOrder(t *testing.T) {
	e := seeded(t)

	applied := e.ApplyNodeChanges([]NodeChange{
		{Type: ChangePosition, ID: "a", Position: &chatflow.Position{X: 10, Y: 20}, Dragging: chatflow.Ptr(true)},
		{Type: ChangePosition, ID: "a", Position: &chatflow.Position{X: 30, Y: 40}, Dragging: chatflow.Ptr(false)},
		{Type: ChangeSelect, ID: "a", Selected: chatflow.Ptr(true)},
		{Type: ChangeDimensions, ID: "a", Dimensions: &Dimensions{Width: 180, Height: 60}},
		{Type: ChangePosition, ID: "ghost", Position: &chatflow.Position{X: 1, Y: 1}},
	})
	assert.Equal(t, 4, applied)

	a, _ := e.Node("a")
	assert.Equal(t, chatflow.Position{X: 30, Y: 40}, a.Position)
	assert.False(t, a.Dragging)
	assert.True(t, a.Selected)
	require.NotNil(t, a.Width)
	assert.Equal(t, 180.0, *a.Width)

	b, _ := e.Node("b")
	assert.Equal(t, chatflow.Position{}, b.Position)
	assert.False(t, b.Selected)
}

func TestApplyNodeChangesAddRemoveReplace(t *testing.T) {
	e := seeded(t)

	applied := e.ApplyNodeChanges([]NodeChange{
		{Type: ChangeAdd, Item: &chatflow.Node{ID: "c", Data: chatflow.NodeData{Label: "c"}}},
		{Type: ChangeAdd, Item: &chatflow.Node{ID: "a", Data: chatflow.NodeData{Label: "dup"}}},
		{Type: ChangeRemove, ID: "b"},
		{Type: ChangeReplace, ID: "a", Item: &chatflow.Node{ID: "other", Data: chatflow.NodeData{Label: "A2"}}},
	})
	assert.Equal(t, 3, applied)

	f := e.Snapshot()
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, "a", f.Nodes[0].ID)
	assert.Equal(t, "A2", f.Nodes[0].Data.Label)
	assert.Equal(t, "c", f.Nodes[1].ID)
	assert.Equal(t, chatflow.NodeType, f.Nodes[1].Type)
	assert.Len(t, f.Edges, 1, "node remove changes leave edges to edge changes")
}

func TestApplyEdgeChanges(t *testing.T) {
	e := seeded(t)

	applied := e.ApplyEdgeChanges([]EdgeChange{
		{Type: ChangeSelect, ID: "e-a-b", Selected: chatflow.Ptr(true)},
		{Type: ChangeAdd, Item: &chatflow.Edge{ID: "e-b-a", Source: "b", Target: "a"}},
		{Type: ChangeAdd, Item: &chatflow.Edge{ID: "e-b-a", Source: "b", Target: "a"}},
		{Type: ChangeRemove, ID: "e-a-b"},
		{Type: ChangeSelect, ID: "missing", Selected: chatflow.Ptr(true)},
	})
	assert.Equal(t, 3, applied)

	f := e.Snapshot()
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "e-b-a", f.Edges[0].ID)
}

func TestApplyChangesWithNothingAppliedKeepsVersion(t *testing.T) {
	e := seeded(t)
	v := e.Version()

	assert.Zero(t, e.ApplyNodeChanges([]NodeChange{{Type: "bogus", ID: "a"}}))
	assert.Zero(t, e.ApplyEdgeChanges(nil))
	assert.Equal(t, v, e.Version())
}
