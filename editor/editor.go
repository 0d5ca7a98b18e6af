// Package editor holds the live node and edge collections of a flow and the
// operations that mutate them.
//
// An Editor is an explicit context object: every flow gets its own instance,
// and consumers receive it rather than reaching for shared state.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/layout"
)

// Confirmation strings returned to the assistant.
const (
	msgEdgeAdded    = "Successfully added edge."
	msgFlowCleared  = "Successfully cleared the flow."
	msgNodeAddedFmt = "Successfully added node with id %s."
)

// Editor owns the nodes and edges of one flow. It is safe for concurrent use.
type Editor struct {
	mu      sync.RWMutex
	nodes   []chatflow.Node
	edges   []chatflow.Edge
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(version uint64)
	nextSub int

	logger *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for mutation traces.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFlow seeds the editor with an existing flow. The flow is copied.
func WithFlow(f chatflow.Flow) Option {
	return func(e *Editor) {
		c := f.Clone()
		e.nodes, e.edges = c.Nodes, c.Edges
	}
}

// New creates an empty editor.
func New(opts ...Option) *Editor {
	e := &Editor{
		nodes:  []chatflow.Node{},
		edges:  []chatflow.Edge{},
		subs:   make(map[int]func(uint64)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers fn to run after every committed mutation.
// fn runs on the mutating goroutine, outside the editor's lock.
// The returned func removes the subscription.
func (e *Editor) Subscribe(fn func(version uint64)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

// Version returns the number of committed mutations.
func (e *Editor) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Snapshot returns a deep copy of the current flow.
func (e *Editor) Snapshot() chatflow.Flow {
	f, _ := e.SnapshotVersion()
	return f
}

// SnapshotVersion returns a deep copy of the current flow and the version it was taken at.
func (e *Editor) SnapshotVersion() (chatflow.Flow, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return chatflow.Flow{Nodes: e.nodes, Edges: e.edges}.Clone(), e.version
}

// Node returns a copy of the node with the given id.
func (e *Editor) Node(id string) (chatflow.Node, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexOf(id); i >= 0 {
		return e.nodes[i].Clone(), true
	}
	return chatflow.Node{}, false
}

// AddNode appends a custom node at (x, y).
// Returns ErrDuplicateNode if the id is taken.
func (e *Editor) AddNode(id string, data chatflow.NodeData, x, y float64) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", chatflow.ErrInvalidNode)
	}
	err := e.mutate(func() error {
		if e.indexOf(id) >= 0 {
			return fmt.Errorf("%w: %s", chatflow.ErrDuplicateNode, id)
		}
		e.nodes = append(e.nodes, chatflow.Node{
			ID:       id,
			Type:     chatflow.NodeType,
			Position: chatflow.Position{X: x, Y: y},
			Data:     data.Clone(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	e.logger.Debug("node added", "node", id)
	return fmt.Sprintf(msgNodeAddedFmt, id), nil
}

// AddEdge connects source to target with the derived id e-{source}-{target}.
// A second edge between the same pair is rejected with ErrDuplicateEdge.
// Endpoints are not required to exist.
func (e *Editor) AddEdge(source, target string) (string, error) {
	if _, err := e.Connect(Connection{Source: source, Target: target}); err != nil {
		return "", err
	}
	return msgEdgeAdded, nil
}

// Connection is the result of a connect gesture on the canvas.
type Connection struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connect appends an edge for conn, keeping its handles.
func (e *Editor) Connect(conn Connection) (chatflow.Edge, error) {
	if conn.Source == "" || conn.Target == "" {
		return chatflow.Edge{}, fmt.Errorf("%w: edge needs source and target", chatflow.ErrInvalidEdge)
	}
	edge := chatflow.Edge{
		ID:           chatflow.EdgeID(conn.Source, conn.Target),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	err := e.mutate(func() error {
		for _, existing := range e.edges {
			if existing.ID == edge.ID || (existing.Source == edge.Source && existing.Target == edge.Target) {
				return fmt.Errorf("%w: %s", chatflow.ErrDuplicateEdge, edge.ID)
			}
		}
		e.edges = append(e.edges, edge)
		return nil
	})
	if err != nil {
		return chatflow.Edge{}, err
	}
	e.logger.Debug("edge added", "edge", edge.ID)
	return edge, nil
}

// ClearFlow removes every node and edge.
func (e *Editor) ClearFlow() string {
	_ = e.mutate(func() error {
		e.nodes = []chatflow.Node{}
		e.edges = []chatflow.Edge{}
		return nil
	})
	e.logger.Debug("flow cleared")
	return msgFlowCleared
}

// DeleteNodeAndConnectedElements removes the node and every edge touching it.
// Reports whether the node existed.
func (e *Editor) DeleteNodeAndConnectedElements(nodeID string) bool {
	found := false
	_ = e.mutate(func() error {
		i := e.indexOf(nodeID)
		if i < 0 {
			return errNoChange
		}
		found = true
		e.nodes = append(e.nodes[:i:i], e.nodes[i+1:]...)
		e.edges = filterEdges(e.edges, func(ed chatflow.Edge) bool {
			return ed.Source != nodeID && ed.Target != nodeID
		})
		return nil
	})
	if found {
		e.logger.Info("deleted node and its connected edges", "node", nodeID)
	}
	return found
}

// RegenerateNode resets the branch below a node by dropping its outgoing edges.
// Content regeneration is not implemented.
func (e *Editor) RegenerateNode(nodeID string) bool {
	found := false
	_ = e.mutate(func() error {
		if e.indexOf(nodeID) < 0 {
			return errNoChange
		}
		found = true
		e.edges = filterEdges(e.edges, func(ed chatflow.Edge) bool {
			return ed.Source != nodeID
		})
		return nil
	})
	if found {
		e.logger.Info("regenerating from node: outgoing edges cleared", "node", nodeID)
	}
	return found
}

// UpdateNodeData shallow-merges patch into the node's data.
// Returns false and changes nothing when the node does not exist.
// An empty patch on an existing node returns true without a new version.
func (e *Editor) UpdateNodeData(nodeID string, patch chatflow.NodeDataPatch) bool {
	found := false
	_ = e.mutate(func() error {
		i := e.indexOf(nodeID)
		if i < 0 {
			return errNoChange
		}
		found = true
		if patch.IsEmpty() {
			return errNoChange
		}
		e.nodes[i].Data = patch.Apply(e.nodes[i].Data)
		return nil
	})
	return found
}

// SetFlow replaces nodes and edges wholesale. An invalid flow leaves the editor untouched.
func (e *Editor) SetFlow(f chatflow.Flow) error {
	if err := f.Validate(); err != nil {
		return err
	}
	c := f.Clone()
	if c.Nodes == nil {
		c.Nodes = []chatflow.Node{}
	}
	if c.Edges == nil {
		c.Edges = []chatflow.Edge{}
	}
	_ = e.mutate(func() error {
		e.nodes, e.edges = c.Nodes, c.Edges
		return nil
	})
	e.logger.Info("flow replaced", "nodes", len(c.Nodes), "edges", len(c.Edges))
	return nil
}

// RecalculateLayout repositions every node with the layered layout.
func (e *Editor) RecalculateLayout(dir layout.Direction) {
	_ = e.mutate(func() error {
		e.nodes = layout.Apply(e.nodes, e.edges, layout.Options{Direction: dir})
		return nil
	})
}

// errNoChange aborts a mutation without bumping the version.
var errNoChange = errors.New("editor: no change")

// mutate runs fn under the write lock. If fn succeeds the version is bumped
// and subscribers are notified after the lock is released.
func (e *Editor) mutate(fn func() error) error {
	e.mu.Lock()
	if err := fn(); err != nil {
		e.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	e.version++
	v := e.version
	e.mu.Unlock()

	e.notify(v)
	return nil
}

func (e *Editor) notify(v uint64) {
	e.subMu.Lock()
	fns := make([]func(uint64), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// indexOf must be called with mu held.
func (e *Editor) indexOf(nodeID string) int {
	for i := range e.nodes {
		if e.nodes[i].ID == nodeID {
			return i
		}
	}
	return -1
}

func filterEdges(edges []chatflow.Edge, keep func(chatflow.Edge) bool) []chatflow.Edge {
	out := make([]chatflow.Edge, 0, len(edges))
	for _, ed := range edges {
		if keep(ed) {
			out = append(out, ed)
		}
	}
	return out
}
