// Package assistant exposes flow mutations as tools to a conversational
// model and runs the tool-calling loop.
package assistant

import "github.com/meikuraledutech/chatflow"

// Tool names.
const (
	ToolAddNode   = "addNode"
	ToolAddEdge   = "addEdge"
	ToolClearFlow = "clearFlow"
)

// Tool is a callable declared to the model. Parameters is a JSON schema.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tools lists every tool the bridge serves.
var Tools = []Tool{
	{
		Name:        ToolAddNode,
		Description: "Adds a new node to the chat flow.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "Unique node id.",
				},
				"data": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label": map[string]any{"type": "string"},
						"messageType": map[string]any{
							"type": "string",
							"enum": messageTypeNames(),
						},
						"description": map[string]any{"type": "string"},
						"payload":     map[string]any{"description": "Arbitrary JSON shown on the node."},
					},
					"required": []string{"label"},
				},
				"x": map[string]any{"type": "number", "description": "X position."},
				"y": map[string]any{"type": "number", "description": "Y position."},
			},
			"required": []string{"id", "data", "x", "y"},
		},
	},
	{
		Name:        ToolAddEdge,
		Description: "Connects two nodes in the chat flow.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{"type": "string", "description": "Source node id."},
				"target": map[string]any{"type": "string", "description": "Target node id."},
			},
			"required": []string{"source", "target"},
		},
	},
	{
		Name:        ToolClearFlow,
		Description: "Removes every node and edge from the chat flow.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

// messageTypeNames lists the accepted messageType values: every category
// plus the "tool" alias of success.
func messageTypeNames() []string {
	names := make([]string, 0, len(chatflow.MessageTypes)+1)
	for _, m := range chatflow.MessageTypes {
		names = append(names, m.String())
	}
	return append(names, "tool")
}
