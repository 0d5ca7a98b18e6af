// Package contextmenu is the per-node popup menu opened by a right click.
package contextmenu

import (
	"log/slog"
	"strings"
)

// Action is a menu entry.
type Action int

const (
	ActionUnknown Action = iota
	ActionRegenerate
	ActionDelete
)

// ParseAction maps an action name to its Action.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regenerate":
		return ActionRegenerate
	case "delete":
		return ActionDelete
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionRegenerate:
		return "regenerate"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Item is a rendered menu entry.
type Item struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Danger bool   `json:"danger,omitempty"`
}

// Items lists the menu entries in display order.
var Items = []Item{
	{Action: ActionRegenerate.String(), Label: "Regenerate from here"},
	{Action: ActionDelete.String(), Label: "Delete Node and Branch", Danger: true},
}

// Handler performs menu actions.
type Handler interface {
	DeleteNodeAndConnectedElements(nodeID string) bool
	RegenerateNode(nodeID string) bool
}

// State is the visible menu, or the zero value when hidden.
type State struct {
	Visible bool    `json:"visible"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	NodeID  string  `json:"nodeId,omitempty"`
	Items   []Item  `json:"items,omitempty"`
}

// Menu is a two-state machine: hidden, or visible at (x, y) for one node.
type Menu struct {
	handler Handler
	logger  *slog.Logger
	state   State
}

// New creates a hidden menu dispatching to h.
func New(h Handler, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{handler: h, logger: logger}
}

// Open shows the menu at (x, y) for nodeID, replacing any open menu.
func (m *Menu) Open(x, y float64, nodeID string) {
	m.state = State{Visible: true, X: x, Y: y, NodeID: nodeID, Items: Items}
}

// Close hides the menu.
func (m *Menu) Close() {
	m.state = State{}
}

// PointerDown hides the menu when the press lands outside it.
func (m *Menu) PointerDown(insideMenu bool) {
	if !insideMenu {
		m.Close()
	}
}

// State returns the current menu state.
func (m *Menu) State() State {
	return m.state
}

// Dispatch forwards action to the handler for the menu's node, then hides the menu.
// Unknown actions are logged and otherwise ignored. Dispatch on a hidden menu does nothing.
func (m *Menu) Dispatch(action string) {
	if !m.state.Visible {
		return
	}
	nodeID := m.state.NodeID
	switch ParseAction(action) {
	case ActionRegenerate:
		m.handler.RegenerateNode(nodeID)
	case ActionDelete:
		m.handler.DeleteNodeAndConnectedElements(nodeID)
	default:
		m.logger.Warn("unknown context menu action", "action", action, "node", nodeID)
	}
	m.Close()
}
