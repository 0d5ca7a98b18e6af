package editor

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/layout"
)

func TestAddNodesAndEdgeScenario(t *testing.T) {
	e := New()

	msg, err := e.AddNode("n1", chatflow.NodeData{Label: "Start"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added node with id n1.", msg)

	_, err = e.AddNode("n2", chatflow.NodeData{Label: "End"}, 100, 0)
	require.NoError(t, err)

	msg, err = e.AddEdge("n1", "n2")
	require.NoError(t, err)
	assert.Equal(t, "Successfully added edge.", msg)

	f := e.Snapshot()
	require.Len(t, f.Nodes, 2)
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "e-n1-n2", f.Edges[0].ID)
	assert.Equal(t, chatflow.NodeType, f.Nodes[0].Type)
	assert.Equal(t, chatflow.Position{X: 100, Y: 0}, f.Nodes[1].Position)
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	e := New()
	_, err := e.AddNode("n1", chatflow.NodeData{Label: "a"}, 0, 0)
	require.NoError(t, err)

	_, err = e.AddNode("n1", chatflow.NodeData{Label: "b"}, 5, 5)
	assert.ErrorIs(t, err, chatflow.ErrDuplicateNode)

	n, ok := e.Node("n1")
	require.True(t, ok)
	assert.Equal(t, "a", n.Data.Label)
	assert.Len(t, e.Snapshot().Nodes, 1)

	_, err = e.AddNode("", chatflow.NodeData{}, 0, 0)
	assert.ErrorIs(t, err, chatflow.ErrInvalidNode)
}

func TestAddEdgeDeduplicatesPair(t *testing.T) {
	e := New()
	_, err := e.AddEdge("a", "b")
	require.NoError(t, err)

	_, err = e.AddEdge("a", "b")
	assert.ErrorIs(t, err, chatflow.ErrDuplicateEdge)

	_, err = e.Connect(Connection{Source: "a", Target: "b", SourceHandle: "right"})
	assert.ErrorIs(t, err, chatflow.ErrDuplicateEdge)

	_, err = e.AddEdge("b", "a")
	require.NoError(t, err)
	assert.Len(t, e.Snapshot().Edges, 2)

	_, err = e.AddEdge("", "a")
	assert.ErrorIs(t, err, chatflow.ErrInvalidEdge)
}

func TestDeleteNodeRemovesIncidentEdges(t *testing.T) {
	e := New()
	for _, id := range []string{"a", "b", "c"} {
		_, err := e.AddNode(id, chatflow.NodeData{Label: id}, 0, 0)
		require.NoError(t, err)
	}
	_, _ = e.AddEdge("a", "b")
	_, _ = e.AddEdge("b", "c")
	_, _ = e.AddEdge("a", "c")

	require.True(t, e.DeleteNodeAndConnectedElements("b"))

	f := e.Snapshot()
	assert.Len(t, f.Nodes, 2)
	for _, ed := range f.Edges {
		assert.NotEqual(t, "b", ed.Source)
		assert.NotEqual(t, "b", ed.Target)
	}
	assert.Len(t, f.Edges, 1)

	assert.False(t, e.DeleteNodeAndConnectedElements("missing"))
}

func TestRegenerateNodeDropsOutgoingEdgesOnly(t *testing.T) {
	e := New()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = e.AddNode(id, chatflow.NodeData{Label: id}, 0, 0)
	}
	_, _ = e.AddEdge("a", "b")
	_, _ = e.AddEdge("b", "c")

	require.True(t, e.RegenerateNode("b"))

	f := e.Snapshot()
	assert.Len(t, f.Nodes, 3)
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "e-a-b", f.Edges[0].ID)
}

func TestClearFlowAlwaysEmpties(t *testing.T) {
	e := New()
	_, _ = e.AddNode("a", chatflow.NodeData{Label: "a"}, 0, 0)
	_, _ = e.AddEdge("a", "ghost")
	e.ClearFlow()
	_, _ = e.AddNode("b", chatflow.NodeData{Label: "b"}, 0, 0)

	assert.Equal(t, "Successfully cleared the flow.", e.ClearFlow())
	f := e.Snapshot()
	assert.Empty(t, f.Nodes)
	assert.Empty(t, f.Edges)
}

func TestUpdateNodeDataShallowMerge(t *testing.T) {
	e := New()
	_, _ = e.AddNode("n", chatflow.NodeData{
		Label:       "Start",
		MessageType: chatflow.MessageTypeAI,
		Description: "desc",
		Payload:     json.RawMessage(`{"k":1}`),
	}, 0, 0)

	ok := e.UpdateNodeData("n", chatflow.NodeDataPatch{MessageType: chatflow.Ptr(chatflow.MessageTypeError)})
	require.True(t, ok)

	n, _ := e.Node("n")
	assert.Equal(t, "Start", n.Data.Label)
	assert.Equal(t, chatflow.MessageTypeError, n.Data.MessageType)
	assert.Equal(t, "desc", n.Data.Description)
	assert.Equal(t, `{"k":1}`, string(n.Data.Payload))

	before := e.Version()
	assert.False(t, e.UpdateNodeData("missing", chatflow.NodeDataPatch{Label: chatflow.Ptr("x")}))
	assert.Equal(t, before, e.Version())

	assert.True(t, e.UpdateNodeData("n", chatflow.NodeDataPatch{}))
	assert.Equal(t, before, e.Version())
}

func TestSetFlowReplacesAtomically(t *testing.T) {
	e := New()
	_, _ = e.AddNode("old", chatflow.NodeData{Label: "old"}, 0, 0)

	bad := chatflow.Flow{Nodes: []chatflow.Node{{ID: "x"}, {ID: "x"}}}
	assert.ErrorIs(t, e.SetFlow(bad), chatflow.ErrInvalidFlow)
	assert.Equal(t, "old", e.Snapshot().Nodes[0].ID)

	good := chatflow.Flow{
		Nodes: []chatflow.Node{{ID: "x", Type: chatflow.NodeType, Data: chatflow.NodeData{Label: "X"}}},
		Edges: []chatflow.Edge{{ID: "e-x-y", Source: "x", Target: "y"}},
	}
	require.NoError(t, e.SetFlow(good))
	assert.Equal(t, good, e.Snapshot())

	require.NoError(t, e.SetFlow(chatflow.Flow{}))
	assert.NotNil(t, e.Snapshot().Nodes)
	assert.Empty(t, e.Snapshot().Nodes)
}

func TestSnapshotIsDetached(t *testing.T) {
	e := New()
	_, _ = e.AddNode("n", chatflow.NodeData{Label: "a"}, 0, 0)

	f := e.Snapshot()
	f.Nodes[0].Data.Label = "changed"

	n, _ := e.Node("n")
	assert.Equal(t, "a", n.Data.Label)
}

func TestRecalculateLayoutIsIdempotent(t *testing.T) {
	e := New()
	for i, id := range []string{"a", "b", "c"} {
		_, _ = e.AddNode(id, chatflow.NodeData{Label: id}, float64(i*37), float64(i*91))
	}
	_, _ = e.AddEdge("a", "b")
	_, _ = e.AddEdge("a", "c")

	e.RecalculateLayout(layout.TopToBottom)
	first := e.Snapshot()
	e.RecalculateLayout(layout.TopToBottom)
	assert.Equal(t, first, e.Snapshot())
	assert.Equal(t, chatflow.HandleBottom, first.Nodes[0].SourcePosition)
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	e := New()
	var got []uint64
	unsubscribe := e.Subscribe(func(v uint64) { got = append(got, v) })

	_, _ = e.AddNode("a", chatflow.NodeData{Label: "a"}, 0, 0)
	_, _ = e.AddNode("a", chatflow.NodeData{Label: "dup"}, 0, 0)
	e.ClearFlow()
	unsubscribe()
	e.ClearFlow()

	assert.Equal(t, []uint64{1, 2}, got)
}

func TestConcurrentUpdatesOnDifferentNodes(t *testing.T) {
	e := New()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		_, _ = e.AddNode(id, chatflow.NodeData{Label: id}, 0, 0)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.UpdateNodeData(id, chatflow.NodeDataPatch{Description: chatflow.Ptr(id)})
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		n, _ := e.Node(id)
		assert.Equal(t, id, n.Data.Description)
	}
}
