// Package canvas turns a flow into a renderable scene and routes pointer
// events from the front end to the editor, the inspector panel and the
// context menu.
package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/contextmenu"
	"github.com/meikuraledutech/chatflow/editor"
	"github.com/meikuraledutech/chatflow/inspector"
)

// Node footprint on screen. Expanded nodes grow to fit their content.
const (
	NodeWidth     = 180.0
	NodeMinHeight = 60.0
)

// ErrUnknownEvent is returned by Handle for an unrecognized event type.
var ErrUnknownEvent = errors.New("canvas: unknown event type")

// Status reports per-node loading state, usually an apiexec.Executor.
type Status interface {
	Running(nodeID string) bool
}

// Handle is a connection point on a node.
type Handle struct {
	Type     string                  `json:"type"`
	Position chatflow.HandlePosition `json:"position"`
}

// Every node gets targets on top and left and sources on right and bottom.
var handles = []Handle{
	{Type: "target", Position: chatflow.HandleTop},
	{Type: "source", Position: chatflow.HandleRight},
	{Type: "source", Position: chatflow.HandleBottom},
	{Type: "target", Position: chatflow.HandleLeft},
}

// NodeView is the render model of a node. A nil Height means auto.
type NodeView struct {
	ID          string            `json:"id"`
	Position    chatflow.Position `json:"position"`
	Label       string            `json:"label"`
	MessageType string            `json:"messageType"`
	Style       Style             `json:"style"`
	Width       float64           `json:"width"`
	Height      *float64          `json:"height"`
	Expanded    bool              `json:"expanded"`
	Description string            `json:"description,omitempty"`
	Payload     string            `json:"payload,omitempty"`
	Selected    bool              `json:"selected,omitempty"`
	Running     bool              `json:"running,omitempty"`
	Handles     []Handle          `json:"handles"`
}

// EdgeView is the render model of an edge.
type EdgeView struct {
	ID              string `json:"id"`
	Source          string `json:"source"`
	Target          string `json:"target"`
	SourceHandle    string `json:"sourceHandle,omitempty"`
	TargetHandle    string `json:"targetHandle,omitempty"`
	Type            string `json:"type"`
	Animated        bool   `json:"animated"`
	StrokeDasharray string `json:"strokeDasharray"`
	Selected        bool   `json:"selected,omitempty"`
}

// Scene is everything the front end draws.
type Scene struct {
	Version   uint64            `json:"version"`
	Nodes     []NodeView        `json:"nodes"`
	Edges     []EdgeView        `json:"edges"`
	Inspector inspector.View    `json:"inspector"`
	Menu      contextmenu.State `json:"menu"`
}

// Canvas binds one editor to its overlays.
type Canvas struct {
	editor *editor.Editor
	status Status
	logger *slog.Logger

	mu    sync.Mutex
	panel *inspector.Panel
	menu  *contextmenu.Menu
}

// New creates a canvas over ed. status may be nil.
func New(ed *editor.Editor, status Status, logger *slog.Logger) *Canvas {
	if logger == nil {
		logger = slog.Default()
	}
	return &Canvas{
		editor: ed,
		status: status,
		logger: logger,
		panel:  inspector.New(ed),
		menu:   contextmenu.New(ed, logger),
	}
}

// Render builds the current scene.
func (c *Canvas) Render() Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncPanel()

	f, version := c.editor.SnapshotVersion()
	scene := Scene{
		Version:   version,
		Nodes:     make([]NodeView, 0, len(f.Nodes)),
		Edges:     make([]EdgeView, 0, len(f.Edges)),
		Inspector: c.panel.View(),
		Menu:      c.menu.State(),
	}
	for _, n := range f.Nodes {
		scene.Nodes = append(scene.Nodes, c.nodeView(n))
	}
	for _, e := range f.Edges {
		scene.Edges = append(scene.Edges, EdgeView{
			ID:              e.ID,
			Source:          e.Source,
			Target:          e.Target,
			SourceHandle:    e.SourceHandle,
			TargetHandle:    e.TargetHandle,
			Type:            "smoothstep",
			Animated:        true,
			StrokeDasharray: "5 5",
			Selected:        e.Selected,
		})
	}
	return scene
}

func (c *Canvas) nodeView(n chatflow.Node) NodeView {
	v := NodeView{
		ID:          n.ID,
		Position:    n.Position,
		Label:       n.Data.Label,
		MessageType: n.Data.MessageType.Resolved().String(),
		Style:       StyleFor(n.Data.MessageType),
		Width:       NodeWidth,
		Expanded:    n.Data.IsExpanded,
		Selected:    n.Selected,
		Handles:     handles,
	}
	if c.status != nil {
		v.Running = c.status.Running(n.ID)
	}
	if n.Data.IsExpanded {
		v.Description = n.Data.Description
		if len(n.Data.Payload) > 0 {
			var buf bytes.Buffer
			if err := json.Indent(&buf, n.Data.Payload, "", "  "); err == nil {
				v.Payload = buf.String()
			} else {
				v.Payload = string(n.Data.Payload)
			}
		}
	} else {
		h := NodeMinHeight
		v.Height = &h
	}
	return v
}

// syncPanel refreshes the inspector from the store, closing it if its node is gone.
// Must be called with mu held.
func (c *Canvas) syncPanel() {
	id, open := c.panel.NodeID()
	if !open {
		return
	}
	n, ok := c.editor.Node(id)
	if !ok {
		c.panel.Close()
		return
	}
	c.panel.Sync(n)
}

// Event is one front-end interaction. Which fields matter depends on Type.
type Event struct {
	Type        string              `json:"type" validate:"required"`
	NodeID      string              `json:"nodeId,omitempty"`
	X           float64             `json:"x,omitempty"`
	Y           float64             `json:"y,omitempty"`
	Action      string              `json:"action,omitempty"`
	InsideMenu  bool                `json:"insideMenu,omitempty"`
	Field       string              `json:"field,omitempty"`
	Value       string              `json:"value,omitempty"`
	NodeChanges []editor.NodeChange `json:"nodeChanges,omitempty"`
	EdgeChanges []editor.EdgeChange `json:"edgeChanges,omitempty"`
	Connection  *editor.Connection  `json:"connection,omitempty"`
}

// Event types.
const (
	EventNodeClick       = "nodeClick"
	EventPaneClick       = "paneClick"
	EventNodeContextMenu = "nodeContextMenu"
	EventPointerDown     = "pointerDown"
	EventMenuAction      = "menuAction"
	EventMenuClose       = "menuClose"
	EventNodesChange     = "nodesChange"
	EventEdgesChange     = "edgesChange"
	EventConnect         = "connect"
	EventToggleExpand    = "toggleExpand"
	EventEditLabel       = "editLabel"
	EventEditDescription = "editDescription"
	EventInspectorEdit   = "inspectorEdit"
	EventInspectorClose  = "inspectorClose"
)

// Handle applies one event. Errors describe rejected events; the canvas stays usable.
func (c *Canvas) Handle(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.syncPanel()

	switch ev.Type {
	case EventNodeClick:
		n, ok := c.editor.Node(ev.NodeID)
		if !ok {
			return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, ev.NodeID)
		}
		c.panel.Select(n)
	case EventPaneClick:
		c.menu.PointerDown(false)
	case EventNodeContextMenu:
		if _, ok := c.editor.Node(ev.NodeID); !ok {
			return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, ev.NodeID)
		}
		c.menu.Open(ev.X, ev.Y, ev.NodeID)
	case EventPointerDown:
		c.menu.PointerDown(ev.InsideMenu)
	case EventMenuAction:
		c.menu.Dispatch(ev.Action)
	case EventMenuClose:
		c.menu.Close()
	case EventNodesChange:
		c.editor.ApplyNodeChanges(ev.NodeChanges)
	case EventEdgesChange:
		c.editor.ApplyEdgeChanges(ev.EdgeChanges)
	case EventConnect:
		if ev.Connection == nil {
			return fmt.Errorf("%w: connect without connection", chatflow.ErrInvalidEdge)
		}
		if _, err := c.editor.Connect(*ev.Connection); err != nil {
			return err
		}
	case EventToggleExpand:
		n, ok := c.editor.Node(ev.NodeID)
		if !ok {
			return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, ev.NodeID)
		}
		c.editor.UpdateNodeData(ev.NodeID, chatflow.NodeDataPatch{IsExpanded: chatflow.Ptr(!n.Data.IsExpanded)})
	case EventEditLabel:
		n, ok := c.editor.Node(ev.NodeID)
		if !ok {
			return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, ev.NodeID)
		}
		if ev.Value != n.Data.Label {
			c.editor.UpdateNodeData(ev.NodeID, chatflow.NodeDataPatch{Label: chatflow.Ptr(ev.Value)})
		}
	case EventEditDescription:
		if !c.editor.UpdateNodeData(ev.NodeID, chatflow.NodeDataPatch{Description: chatflow.Ptr(ev.Value)}) {
			return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, ev.NodeID)
		}
	case EventInspectorEdit:
		return c.inspectorEdit(ev.Field, ev.Value)
	case EventInspectorClose:
		c.panel.Close()
	default:
		c.logger.Warn("unknown canvas event", "type", ev.Type)
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

// inspectorEdit routes a field edit to the panel. Invalid JSON is not an
// error here: the panel flags it inline.
func (c *Canvas) inspectorEdit(field, value string) error {
	if _, open := c.panel.NodeID(); !open {
		return nil
	}
	switch field {
	case "label":
		c.panel.SetLabel(value)
	case "messageType":
		c.panel.SetMessageType(value)
	case "description":
		c.panel.SetDescription(value)
	case string(inspector.FieldPayload):
		_ = c.panel.SetPayloadText(value)
	case "apiEnabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("canvas: apiEnabled: %w", err)
		}
		c.panel.SetAPIEnabled(enabled)
	case "url":
		c.panel.SetURL(value)
	case "method":
		c.panel.SetMethod(value)
	case string(inspector.FieldHeaders):
		_ = c.panel.SetHeadersText(value)
	case string(inspector.FieldBody):
		_ = c.panel.SetBodyText(value)
	default:
		return fmt.Errorf("%w: inspector field %q", ErrUnknownEvent, field)
	}
	return nil
}
