package chatflow

import (
	"encoding/json"
	"fmt"
)

// NodeType is the only node renderer the canvas registers.
const NodeType = "custom"

// Flow is the persisted unit: the whole node and edge collections of one editor.
type Flow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Position is a point in canvas space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandlePosition names the side of a node an edge attaches to.
type HandlePosition string

const (
	HandleTop    HandlePosition = "top"
	HandleBottom HandlePosition = "bottom"
	HandleLeft   HandlePosition = "left"
	HandleRight  HandlePosition = "right"
)

// Node is a vertex of the flow.
// ID is assigned by the caller and must be unique within a flow.
type Node struct {
	ID             string         `json:"id"`
	Type           string         `json:"type,omitempty"`
	Position       Position       `json:"position"`
	Data           NodeData       `json:"data"`
	SourcePosition HandlePosition `json:"sourcePosition,omitempty"`
	TargetPosition HandlePosition `json:"targetPosition,omitempty"`
	Selected       bool           `json:"selected,omitempty"`
	Dragging       bool           `json:"dragging,omitempty"`
	Width          *float64       `json:"width,omitempty"`
	Height         *float64       `json:"height,omitempty"`
}

// NodeData holds everything the canvas shows for a node.
type NodeData struct {
	Label       string          `json:"label"`
	MessageType MessageType     `json:"messageType,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Description string          `json:"description,omitempty"`
	APIConfig   *APIConfig      `json:"apiConfig,omitempty"`
	IsExpanded  bool            `json:"isExpanded,omitempty"`
}

// APIConfig describes the HTTP call a node performs when executed.
type APIConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Selected     bool   `json:"selected,omitempty"`
}

// EdgeID derives the identifier of the edge connecting source to target.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

// Clone returns a deep copy of the flow.
func (f Flow) Clone() Flow {
	out := Flow{
		Nodes: make([]Node, len(f.Nodes)),
		Edges: make([]Edge, len(f.Edges)),
	}
	for i, n := range f.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, f.Edges)
	return out
}

// Validate reports duplicate or empty node and edge ids.
func (f Flow) Validate() error {
	seen := make(map[string]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidFlow)
		}
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidFlow, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	edges := make(map[string]struct{}, len(f.Edges))
	for _, e := range f.Edges {
		if e.ID == "" {
			return fmt.Errorf("%w: edge without id", ErrInvalidFlow)
		}
		if _, ok := edges[e.ID]; ok {
			return fmt.Errorf("%w: duplicate edge id %q", ErrInvalidFlow, e.ID)
		}
		edges[e.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Data = n.Data.Clone()
	if n.Width != nil {
		w := *n.Width
		out.Width = &w
	}
	if n.Height != nil {
		h := *n.Height
		out.Height = &h
	}
	return out
}

// Clone returns a deep copy of the data.
func (d NodeData) Clone() NodeData {
	out := d
	out.Payload = cloneRaw(d.Payload)
	if d.APIConfig != nil {
		c := d.APIConfig.Clone()
		out.APIConfig = &c
	}
	return out
}

// Clone returns a deep copy of the config.
func (c APIConfig) Clone() APIConfig {
	out := c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	out.Body = cloneRaw(c.Body)
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
