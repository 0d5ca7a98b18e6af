package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/chatflow"
)

func nodes(ids ...string) []chatflow.Node {
	out := make([]chatflow.Node, len(ids))
	for i, id := range ids {
		out[i] = chatflow.Node{ID: id, Type: chatflow.NodeType, Data: chatflow.NodeData{Label: id}}
	}
	return out
}

func edge(source, target string) chatflow.Edge {
	return chatflow.Edge{ID: chatflow.EdgeID(source, target), Source: source, Target: target}
}

func byID(ns []chatflow.Node) map[string]chatflow.Node {
	m := make(map[string]chatflow.Node, len(ns))
	for _, n := range ns {
		m[n.ID] = n
	}
	return m
}

func TestApplyChainTopToBottom(t *testing.T) {
	out := Apply(nodes("n1", "n2"), []chatflow.Edge{edge("n1", "n2")}, Options{Direction: TopToBottom})
	m := byID(out)

	assert.Equal(t, chatflow.Position{X: 0, Y: 0}, m["n1"].Position)
	assert.Equal(t, chatflow.Position{X: 0, Y: NodeHeight + RankSep}, m["n2"].Position)
	assert.Equal(t, chatflow.HandleTop, m["n1"].TargetPosition)
	assert.Equal(t, chatflow.HandleBottom, m["n1"].SourcePosition)
}

func TestApplyChainLeftToRight(t *testing.T) {
	out := Apply(nodes("n1", "n2"), []chatflow.Edge{edge("n1", "n2")}, Options{Direction: LeftToRight})
	m := byID(out)

	assert.Equal(t, chatflow.Position{X: 0, Y: 0}, m["n1"].Position)
	assert.Equal(t, chatflow.Position{X: NodeWidth + RankSep, Y: 0}, m["n2"].Position)
	assert.Equal(t, chatflow.HandleLeft, m["n2"].TargetPosition)
	assert.Equal(t, chatflow.HandleRight, m["n2"].SourcePosition)
}

func TestApplyCentersParentOverChildren(t *testing.T) {
	out := Apply(nodes("a", "b", "c"), []chatflow.Edge{edge("a", "b"), edge("a", "c")}, Options{})
	m := byID(out)

	assert.Equal(t, 0.0, m["b"].Position.X)
	assert.Equal(t, NodeWidth+NodeSep, m["c"].Position.X)
	assert.Equal(t, (NodeWidth+NodeSep)/2, m["a"].Position.X)
	assert.Equal(t, m["b"].Position.Y, m["c"].Position.Y)
}

func TestApplyIsIdempotent(t *testing.T) {
	ns := nodes("a", "b", "c", "d", "lonely")
	es := []chatflow.Edge{edge("a", "b"), edge("b", "c"), edge("a", "d"), edge("d", "c")}

	first := Apply(ns, es, Options{})
	second := Apply(first, es, Options{})
	assert.Equal(t, first, second)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	ns := nodes("a", "b")
	ns[0].Position = chatflow.Position{X: 999, Y: 999}

	_ = Apply(ns, []chatflow.Edge{edge("a", "b")}, Options{})
	assert.Equal(t, chatflow.Position{X: 999, Y: 999}, ns[0].Position)
	assert.Empty(t, ns[0].SourcePosition)
}

func TestApplyHandlesCyclesAndDanglingEdges(t *testing.T) {
	ns := nodes("a", "b")
	es := []chatflow.Edge{edge("a", "b"), edge("b", "a"), edge("a", "ghost"), edge("a", "a")}

	out := Apply(ns, es, Options{})
	require.Len(t, out, 2)
	m := byID(out)
	assert.NotEqual(t, m["a"].Position.Y, m["b"].Position.Y)
}

func TestApplyRanksCycleWithoutRoot(t *testing.T) {
	ns := nodes("a", "b", "c")
	es := []chatflow.Edge{edge("a", "b"), edge("b", "c"), edge("c", "a")}

	out := Apply(ns, es, Options{})
	m := byID(out)
	assert.Equal(t, 0.0, m["a"].Position.Y)
	assert.Equal(t, NodeHeight+RankSep, m["b"].Position.Y)
	assert.Equal(t, 2*(NodeHeight+RankSep), m["c"].Position.Y)
	assert.Equal(t, out, Apply(ns, es, Options{}))
}

func TestApplyLeftToRightSeparatesSiblingsByHeight(t *testing.T) {
	out := Apply(nodes("a", "b", "c"), []chatflow.Edge{edge("a", "b"), edge("a", "c")}, Options{Direction: LeftToRight})
	m := byID(out)

	assert.Equal(t, 0.0, m["a"].Position.X)
	assert.Equal(t, NodeWidth+RankSep, m["b"].Position.X)
	assert.Equal(t, m["b"].Position.X, m["c"].Position.X)
	assert.Equal(t, NodeHeight+NodeSep, m["c"].Position.Y-m["b"].Position.Y)
}

func TestApplyPlacesDisconnectedNodesOnFirstRank(t *testing.T) {
	out := Apply(nodes("x", "y"), nil, Options{})
	m := byID(out)

	assert.Equal(t, 0.0, m["x"].Position.Y)
	assert.Equal(t, 0.0, m["y"].Position.Y)
	assert.NotEqual(t, m["x"].Position.X, m["y"].Position.X)
}

func TestApplyEmpty(t *testing.T) {
	assert.Empty(t, Apply(nil, nil, Options{}))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, LeftToRight, ParseDirection("lr"))
	assert.Equal(t, TopToBottom, ParseDirection("TB"))
	assert.Equal(t, TopToBottom, ParseDirection(""))
}
