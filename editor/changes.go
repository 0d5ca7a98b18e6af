package editor

import (
	"github.com/meikuraledutech/chatflow"
)

// ChangeType names a change descriptor emitted by the canvas.
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
	ChangeReplace    ChangeType = "replace"
)

// Dimensions is a measured node size.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeChange describes one interactive change to a node (drag, resize, select...).
type NodeChange struct {
	Type       ChangeType         `json:"type"`
	ID         string             `json:"id,omitempty"`
	Position   *chatflow.Position `json:"position,omitempty"`
	Dragging   *bool              `json:"dragging,omitempty"`
	Dimensions *Dimensions        `json:"dimensions,omitempty"`
	Selected   *bool              `json:"selected,omitempty"`
	Item       *chatflow.Node     `json:"item,omitempty"`
}

// EdgeChange describes one interactive change to an edge.
type EdgeChange struct {
	Type     ChangeType     `json:"type"`
	ID       string         `json:"id,omitempty"`
	Selected *bool          `json:"selected,omitempty"`
	Item     *chatflow.Edge `json:"item,omitempty"`
}

// ApplyNodeChanges applies changes in order. Nodes not mentioned are kept as they are.
// Changes addressing unknown nodes, and adds that would duplicate an id, are skipped.
// Returns the number of changes applied.
func (e *Editor) ApplyNodeChanges(changes []NodeChange) int {
	applied := 0
	_ = e.mutate(func() error {
		for _, ch := range changes {
			if e.applyNodeChange(ch) {
				applied++
			} else {
				e.logger.Debug("node change skipped", "type", ch.Type, "node", ch.ID)
			}
		}
		if applied == 0 {
			return errNoChange
		}
		return nil
	})
	return applied
}

func (e *Editor) applyNodeChange(ch NodeChange) bool {
	if ch.Type == ChangeAdd {
		if ch.Item == nil || ch.Item.ID == "" || e.indexOf(ch.Item.ID) >= 0 {
			return false
		}
		n := ch.Item.Clone()
		if n.Type == "" {
			n.Type = chatflow.NodeType
		}
		e.nodes = append(e.nodes, n)
		return true
	}

	i := e.indexOf(ch.ID)
	if i < 0 {
		return false
	}
	n := &e.nodes[i]
	switch ch.Type {
	case ChangePosition:
		if ch.Position != nil {
			n.Position = *ch.Position
		}
		if ch.Dragging != nil {
			n.Dragging = *ch.Dragging
		}
	case ChangeDimensions:
		if ch.Dimensions == nil {
			return false
		}
		w, h := ch.Dimensions.Width, ch.Dimensions.Height
		n.Width, n.Height = &w, &h
	case ChangeSelect:
		if ch.Selected == nil {
			return false
		}
		n.Selected = *ch.Selected
	case ChangeRemove:
		e.nodes = append(e.nodes[:i:i], e.nodes[i+1:]...)
	case ChangeReplace:
		if ch.Item == nil {
			return false
		}
		r := ch.Item.Clone()
		r.ID = ch.ID
		*n = r
	default:
		return false
	}
	return true
}

// ApplyEdgeChanges applies edge changes in order. Edges not mentioned are kept.
// Returns the number of changes applied.
func (e *Editor) ApplyEdgeChanges(changes []EdgeChange) int {
	applied := 0
	_ = e.mutate(func() error {
		for _, ch := range changes {
			if e.applyEdgeChange(ch) {
				applied++
			} else {
				e.logger.Debug("edge change skipped", "type", ch.Type, "edge", ch.ID)
			}
		}
		if applied == 0 {
			return errNoChange
		}
		return nil
	})
	return applied
}

func (e *Editor) applyEdgeChange(ch EdgeChange) bool {
	if ch.Type == ChangeAdd {
		if ch.Item == nil || ch.Item.ID == "" || e.edgeIndexOf(ch.Item.ID) >= 0 {
			return false
		}
		e.edges = append(e.edges, *ch.Item)
		return true
	}

	i := e.edgeIndexOf(ch.ID)
	if i < 0 {
		return false
	}
	switch ch.Type {
	case ChangeSelect:
		if ch.Selected == nil {
			return false
		}
		e.edges[i].Selected = *ch.Selected
	case ChangeRemove:
		e.edges = append(e.edges[:i:i], e.edges[i+1:]...)
	case ChangeReplace:
		if ch.Item == nil {
			return false
		}
		r := *ch.Item
		r.ID = ch.ID
		e.edges[i] = r
	default:
		return false
	}
	return true
}

func (e *Editor) edgeIndexOf(edgeID string) int {
	for i := range e.edges {
		if e.edges[i].ID == edgeID {
			return i
		}
	}
	return -1
}
