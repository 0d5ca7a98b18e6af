// Package layout positions flow nodes with a layered (hierarchical) graph layout.
//
// The work is done by the Sugiyama engine of go-graph-layout. This package maps
// flow nodes and edges onto it, fixes the node footprint and converts the
// result back into top-left positions and handle sides.
package layout

import (
	"sort"
	"strings"

	graphlayout "github.com/nikolaydubina/go-graph-layout/layout"

	"github.com/meikuraledutech/chatflow"
)

// Fixed node footprint and spacing used for every node.
const (
	NodeWidth  = 160.0
	NodeHeight = 60.0
	NodeSep    = 50.0
	RankSep    = 50.0
)

// orderingSweeps is the number of down/up crossing-reduction passes.
const orderingSweeps = 4

// Direction is the rank direction of the layout.
type Direction string

const (
	TopToBottom Direction = "TB"
	LeftToRight Direction = "LR"
)

// ParseDirection accepts "TB" or "LR" in any case; anything else is TopToBottom.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(LeftToRight)) {
		return LeftToRight
	}
	return TopToBottom
}

// Options configures Apply.
type Options struct {
	Direction Direction
}

// Apply returns a copy of nodes with position, targetPosition and
// sourcePosition set by the layered layout. The inputs are not modified.
// Edges whose endpoints are not in nodes are ignored.
func Apply(nodes []chatflow.Node, edges []chatflow.Edge, opts Options) []chatflow.Node {
	horizontal := opts.Direction == LeftToRight
	ids, g := toGraph(nodes, edges, horizontal)
	if len(g.Nodes) > 0 {
		engine(horizontal).UpdateGraphLayout(g)
	}

	// The engine works top to bottom with ranks on the y axis. Shift the
	// drawing to the origin and swap axes for left to right.
	minX, minY := origin(g)
	out := make([]chatflow.Node, len(nodes))
	for i, n := range nodes {
		c := n.Clone()
		xy := g.Nodes[ids[n.ID]].XY
		across, along := float64(xy[0]-minX), float64(xy[1]-minY)
		if horizontal {
			c.Position = chatflow.Position{X: along, Y: across}
			c.TargetPosition = chatflow.HandleLeft
			c.SourcePosition = chatflow.HandleRight
		} else {
			c.Position = chatflow.Position{X: across, Y: along}
			c.TargetPosition = chatflow.HandleTop
			c.SourcePosition = chatflow.HandleBottom
		}
		out[i] = c
	}
	return out
}

func origin(g graphlayout.Graph) (minX, minY int) {
	first := true
	for _, n := range g.Nodes {
		if first || n.XY[0] < minX {
			minX = n.XY[0]
		}
		if first || n.XY[1] < minY {
			minY = n.XY[1]
		}
		first = false
	}
	return minX, minY
}

// engine configures the Sugiyama pipeline. Node sizes are given in engine
// axes, so for left to right the flow's width runs along the ranks.
func engine(horizontal bool) graphlayout.SugiyamaLayersStrategyGraphLayout {
	across := NodeWidth
	if horizontal {
		across = NodeHeight
	}
	return graphlayout.SugiyamaLayersStrategyGraphLayout{
		CycleRemover:     &dfsCycleRemover{},
		LevelsAssigner:   graphlayout.NewLayeredGraph,
		OrderingAssigner: orderLayers,
		// Brandes-Kopf treats nodes as points, so the separation is center to center.
		NodesHorizontalCoordinatesAssigner: graphlayout.BrandesKopfLayersNodesHorizontalAssigner{
			Delta: int(across + NodeSep),
		},
		NodesVerticalCoordinatesAssigner: graphlayout.BasicNodesVerticalCoordinatesAssigner{
			MarginLayers: int(RankSep),
		},
		EdgePathAssigner: graphlayout.StraightEdgePathAssigner{}.UpdateGraphLayout,
	}
}

// toGraph builds the engine graph. Node ids map to 1-based input order;
// duplicate ids collapse onto their first occurrence. Self loops, dangling
// edges and repeated source/target pairs in either direction are skipped.
func toGraph(nodes []chatflow.Node, edges []chatflow.Edge, horizontal bool) (map[string]uint64, graphlayout.Graph) {
	w, h := int(NodeWidth), int(NodeHeight)
	if horizontal {
		w, h = h, w
	}

	ids := make(map[string]uint64, len(nodes))
	g := graphlayout.Graph{
		Nodes: make(map[uint64]graphlayout.Node, len(nodes)),
		Edges: make(map[[2]uint64]graphlayout.Edge, len(edges)),
	}
	for _, n := range nodes {
		if _, ok := ids[n.ID]; ok {
			continue
		}
		id := uint64(len(ids) + 1)
		ids[n.ID] = id
		g.Nodes[id] = graphlayout.Node{W: w, H: h}
	}
	for _, e := range edges {
		from, ok := ids[e.Source]
		if !ok {
			continue
		}
		to, ok := ids[e.Target]
		if !ok || from == to {
			continue
		}
		if _, dup := g.Edges[[2]uint64{to, from}]; dup {
			continue
		}
		g.Edges[[2]uint64{from, to}] = graphlayout.Edge{}
	}
	return ids, g
}

// orderLayers starts every layer in input order and runs median and
// adjacent-swap sweeps to reduce crossings.
func orderLayers(_ graphlayout.Graph, lg graphlayout.LayeredGraph) {
	layers := lg.Layers()
	for _, layer := range layers {
		sort.Slice(layer, func(i, j int) bool { return layer[i] < layer[j] })
	}

	opt := graphlayout.CompositeLayerOrderingOptimizer{
		Optimizers: []graphlayout.LayerOrderingOptimizer{
			graphlayout.WMedianOrderingOptimizer{},
			graphlayout.SwitchAdjacentOrderingOptimizer{},
		},
	}
	for sweep := 0; sweep < orderingSweeps; sweep++ {
		downUp := sweep%2 == 1
		for i := range layers {
			y := i
			if downUp {
				y = len(layers) - 1 - i
			}
			opt.Optimize(lg.Segments, layers, y, downUp)
		}
	}

	for y, layer := range layers {
		for x, n := range layer {
			lg.NodeYX[n] = [2]int{y, x}
		}
	}
}

// dfsCycleRemover reverses back edges found by a depth-first search in node
// id order. The engine's own remover only starts from roots and misses
// cycles that have none.
type dfsCycleRemover struct {
	reversed [][2]uint64
}

func (r *dfsCycleRemover) RemoveCycles(g graphlayout.Graph) {
	const (
		unvisited = iota
		visiting
		visited
	)

	nodes := make([]uint64, 0, len(g.Nodes))
	for id := range g.Nodes {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	succ := make(map[uint64][]uint64, len(g.Nodes))
	for e := range g.Edges {
		succ[e[0]] = append(succ[e[0]], e[1])
	}
	for _, s := range succ {
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	}

	state := make(map[uint64]int, len(g.Nodes))
	var back [][2]uint64
	var dfs func(v uint64)
	dfs = func(v uint64) {
		state[v] = visiting
		for _, w := range succ[v] {
			switch state[w] {
			case visiting:
				back = append(back, [2]uint64{v, w})
			case unvisited:
				dfs(w)
			}
		}
		state[v] = visited
	}
	for _, v := range nodes {
		if state[v] == unvisited {
			dfs(v)
		}
	}

	for _, e := range back {
		delete(g.Edges, e)
		g.Edges[[2]uint64{e[1], e[0]}] = graphlayout.Edge{}
		r.reversed = append(r.reversed, e)
	}
}

func (r *dfsCycleRemover) Restore(g graphlayout.Graph) {
	for _, e := range r.reversed {
		rev := [2]uint64{e[1], e[0]}
		edge := g.Edges[rev]
		delete(g.Edges, rev)
		g.Edges[e] = edge
	}
	r.reversed = nil
}
