package contextmenu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	deleted     []string
	regenerated []string
}

func (r *recorder) DeleteNodeAndConnectedElements(id string) bool {
	r.deleted = append(r.deleted, id)
	return true
}

func (r *recorder) RegenerateNode(id string) bool {
	r.regenerated = append(r.regenerated, id)
	return true
}

func TestOpenAndClose(t *testing.T) {
	m := New(&recorder{}, nil)
	assert.False(t, m.State().Visible)

	m.Open(10, 20, "n1")
	s := m.State()
	assert.True(t, s.Visible)
	assert.Equal(t, 10.0, s.X)
	assert.Equal(t, 20.0, s.Y)
	assert.Equal(t, "n1", s.NodeID)
	assert.Len(t, s.Items, 2)

	m.Close()
	assert.Equal(t, State{}, m.State())
}

func TestPointerDown(t *testing.T) {
	m := New(&recorder{}, nil)
	m.Open(0, 0, "n1")

	m.PointerDown(true)
	assert.True(t, m.State().Visible)

	m.PointerDown(false)
	assert.False(t, m.State().Visible)
}

func TestDispatchForwardsThenHides(t *testing.T) {
	r := &recorder{}
	m := New(r, nil)

	m.Open(0, 0, "n1")
	m.Dispatch("delete")
	assert.Equal(t, []string{"n1"}, r.deleted)
	assert.False(t, m.State().Visible)

	m.Open(0, 0, "n2")
	m.Dispatch("regenerate")
	assert.Equal(t, []string{"n2"}, r.regenerated)
	assert.False(t, m.State().Visible)
}

func TestDispatchUnknownActionOnlyHides(t *testing.T) {
	r := &recorder{}
	m := New(r, nil)

	m.Open(0, 0, "n1")
	m.Dispatch("explode")
	assert.Empty(t, r.deleted)
	assert.Empty(t, r.regenerated)
	assert.False(t, m.State().Visible)

	m.Dispatch("delete")
	assert.Empty(t, r.deleted, "hidden menu dispatches nothing")
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionDelete, ParseAction("Delete"))
	assert.Equal(t, ActionRegenerate, ParseAction("regenerate"))
	assert.Equal(t, ActionUnknown, ParseAction("copy"))
	assert.Equal(t, "unknown", ActionUnknown.String())
}
