package inspector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/editor"
)

func setup(t *testing.T, data chatflow.NodeData) (*editor.Editor, *Panel) {
	t.Helper()
	ed := editor.New()
	_, err := ed.AddNode("n", data, 0, 0)
	require.NoError(t, err)
	n, _ := ed.Node("n")

	p := New(ed)
	p.Select(n)
	return ed, p
}

func TestSelectLoadsDrafts(t *testing.T) {
	_, p := setup(t, chatflow.NodeData{
		Label:       "Start",
		MessageType: chatflow.MessageTypeAI,
		Payload:     json.RawMessage(`{"a":1}`),
		APIConfig:   &chatflow.APIConfig{URL: "https://x", Method: "POST", Headers: map[string]string{"k": "v"}},
	})

	v := p.View()
	assert.True(t, v.Open)
	assert.Equal(t, "n", v.NodeID)
	assert.Equal(t, "Start", v.Label)
	assert.Equal(t, "ai", v.MessageType)
	assert.Equal(t, "{\n  \"a\": 1\n}", v.Payload)
	assert.True(t, v.APIEnabled)
	assert.Equal(t, "POST", v.Method)
	assert.JSONEq(t, `{"k":"v"}`, v.Headers)
}

func TestPlainEditsCommitImmediately(t *testing.T) {
	ed, p := setup(t, chatflow.NodeData{Label: "Start"})

	p.SetLabel("Begin")
	p.SetMessageType("error")
	p.SetDescription("first")

	n, _ := ed.Node("n")
	assert.Equal(t, "Begin", n.Data.Label)
	assert.Equal(t, chatflow.MessageTypeError, n.Data.MessageType)
	assert.Equal(t, "first", n.Data.Description)
}

func TestInvalidPayloadIsEchoedButNotCommitted(t *testing.T) {
	ed, p := setup(t, chatflow.NodeData{Label: "x", Payload: json.RawMessage(`{"keep":true}`)})

	err := p.SetPayloadText(`{"keep":`)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	v := p.View()
	assert.Equal(t, `{"keep":`, v.Payload)
	assert.Equal(t, MsgInvalidJSON, v.PayloadError)
	n, _ := ed.Node("n")
	assert.JSONEq(t, `{"keep":true}`, string(n.Data.Payload))

	require.NoError(t, p.SetPayloadText(`{"new": 2}`))
	assert.Empty(t, p.View().PayloadError)
	n, _ = ed.Node("n")
	assert.JSONEq(t, `{"new":2}`, string(n.Data.Payload))

	require.NoError(t, p.SetPayloadText(""))
	n, _ = ed.Node("n")
	assert.Nil(t, n.Data.Payload)
}

func TestAPIConfigFields(t *testing.T) {
	ed, p := setup(t, chatflow.NodeData{Label: "x"})

	p.SetURL("https://ignored")
	n, _ := ed.Node("n")
	assert.Nil(t, n.Data.APIConfig, "edits before enabling are not committed")

	p.SetAPIEnabled(true)
	p.SetURL("https://x/y")
	p.SetMethod("post")
	require.NoError(t, p.SetHeadersText(`{"Authorization":"Bearer t"}`))
	require.NoError(t, p.SetBodyText(`{"q": 1}`))

	n, _ = ed.Node("n")
	require.NotNil(t, n.Data.APIConfig)
	assert.Equal(t, "https://x/y", n.Data.APIConfig.URL)
	assert.Equal(t, "POST", n.Data.APIConfig.Method)
	assert.Equal(t, "Bearer t", n.Data.APIConfig.Headers["Authorization"])
	assert.JSONEq(t, `{"q":1}`, string(n.Data.APIConfig.Body))

	assert.ErrorIs(t, p.SetHeadersText(`["not","a","map"]`), ErrInvalidJSON)
	assert.ErrorIs(t, p.SetBodyText(`{`), ErrInvalidJSON)
	v := p.View()
	assert.Equal(t, MsgInvalidJSON, v.HeadersError)
	assert.Equal(t, MsgInvalidJSON, v.BodyError)

	n, _ = ed.Node("n")
	assert.Equal(t, "Bearer t", n.Data.APIConfig.Headers["Authorization"])
	assert.JSONEq(t, `{"q":1}`, string(n.Data.APIConfig.Body))

	p.SetAPIEnabled(false)
	n, _ = ed.Node("n")
	assert.Nil(t, n.Data.APIConfig)
	assert.False(t, p.View().APIEnabled)
}

func TestSwitchingSelectionDiscardsInvalidText(t *testing.T) {
	ed, p := setup(t, chatflow.NodeData{Label: "x", Payload: json.RawMessage(`{"a":1}`)})
	_, err := ed.AddNode("m", chatflow.NodeData{Label: "m"}, 0, 0)
	require.NoError(t, err)

	_ = p.SetPayloadText("nope")
	m, _ := ed.Node("m")
	p.Select(m)
	assert.Empty(t, p.View().PayloadError)

	n, _ := ed.Node("n")
	p.Select(n)
	assert.Equal(t, "{\n  \"a\": 1\n}", p.View().Payload)

	p.Close()
	assert.False(t, p.View().Open)
	_, open := p.NodeID()
	assert.False(t, open)

	p.SetLabel("ignored")
	n, _ = ed.Node("n")
	assert.Equal(t, "x", n.Data.Label)
}

func TestSyncKeepsInvalidText(t *testing.T) {
	ed, p := setup(t, chatflow.NodeData{Label: "x"})

	_ = p.SetPayloadText("{bad")
	ed.UpdateNodeData("n", chatflow.NodeDataPatch{Label: chatflow.Ptr("renamed"), Payload: json.RawMessage(`{"r":1}`)})
	n, _ := ed.Node("n")
	p.Sync(n)

	v := p.View()
	assert.Equal(t, "renamed", v.Label)
	assert.Equal(t, "{bad", v.Payload)
	assert.Equal(t, MsgInvalidJSON, v.PayloadError)
}
