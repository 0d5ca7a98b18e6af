package chatflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFlow() Flow {
	return Flow{
		Nodes: []Node{
			{
				ID:       "n1",
				Type:     NodeType,
				Position: Position{X: 0, Y: 0},
				Data: NodeData{
					Label:       "Start",
					MessageType: MessageTypeUser,
					Payload:     json.RawMessage(`{"description":"login","security_risk":2}`),
				},
			},
			{
				ID:       "n2",
				Type:     NodeType,
				Position: Position{X: 100, Y: 0},
				Data: NodeData{
					Label: "Fetch",
					APIConfig: &APIConfig{
						URL:     "https://example.com/users",
						Method:  "POST",
						Headers: map[string]string{"Authorization": "Bearer x"},
						Body:    json.RawMessage(`{"name":"a"}`),
					},
					IsExpanded: true,
				},
				SourcePosition: HandleBottom,
				TargetPosition: HandleTop,
				Width:          Ptr(180.0),
			},
		},
		Edges: []Edge{{ID: EdgeID("n1", "n2"), Source: "n1", Target: "n2"}},
	}
}

func TestFlowJSONRoundTrip(t *testing.T) {
	orig := sampleFlow()

	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Flow
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, orig, back)
}

func TestFlowCloneIsDeep(t *testing.T) {
	orig := sampleFlow()
	cp := orig.Clone()

	cp.Nodes[1].Data.APIConfig.Headers["Authorization"] = "changed"
	cp.Nodes[0].Data.Payload[2] = 'X'
	*cp.Nodes[1].Width = 1

	assert.Equal(t, "Bearer x", orig.Nodes[1].Data.APIConfig.Headers["Authorization"])
	assert.Equal(t, `{"description":"login","security_risk":2}`, string(orig.Nodes[0].Data.Payload))
	assert.Equal(t, 180.0, *orig.Nodes[1].Width)
}

func TestFlowValidate(t *testing.T) {
	assert.NoError(t, sampleFlow().Validate())

	dup := Flow{Nodes: []Node{{ID: "a"}, {ID: "a"}}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidFlow)

	empty := Flow{Nodes: []Node{{ID: ""}}}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidFlow)

	dupEdge := Flow{Edges: []Edge{{ID: "e-a-b"}, {ID: "e-a-b"}}}
	assert.ErrorIs(t, dupEdge.Validate(), ErrInvalidFlow)
}

func TestEdgeID(t *testing.T) {
	assert.Equal(t, "e-n1-n2", EdgeID("n1", "n2"))
}

func TestParseMessageType(t *testing.T) {
	cases := map[string]MessageType{
		"":        MessageTypeUnset,
		"user":    MessageTypeUser,
		"AI":      MessageTypeAI,
		"success": MessageTypeSuccess,
		"tool":    MessageTypeSuccess,
		"error":   MessageTypeError,
		"default": MessageTypeDefault,
		"bogus":   MessageTypeDefault,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseMessageType(in), in)
	}
	assert.Equal(t, MessageTypeDefault, MessageTypeUnset.Resolved())
	assert.Equal(t, MessageTypeAI, MessageTypeAI.Resolved())
}

func TestMessageTypeJSON(t *testing.T) {
	var d NodeData
	require.NoError(t, json.Unmarshal([]byte(`{"label":"x","messageType":"tool"}`), &d))
	assert.Equal(t, MessageTypeSuccess, d.MessageType)

	raw, err := json.Marshal(NodeData{Label: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"x"}`, string(raw))
}
