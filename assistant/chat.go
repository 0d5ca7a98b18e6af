package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// DefaultMaxRounds bounds model calls per user message.
const DefaultMaxRounds = 8

const systemPrompt = "You edit a chat flow diagram. Use addNode, addEdge and clearFlow to change it. " +
	"Node ids must be unique. Place nodes on a grid roughly 200 units apart."

// ErrTooManyRounds is returned when the model keeps calling tools past the round limit.
var ErrTooManyRounds = errors.New("assistant: too many tool rounds")

// ToolResult records one executed tool call.
type ToolResult struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// Reply is the outcome of one user message.
type Reply struct {
	Text  string       `json:"text"`
	Tools []ToolResult `json:"tools,omitempty"`
}

// Chat keeps one conversation per flow and runs the tool-calling loop.
type Chat struct {
	model     Model
	logger    *slog.Logger
	maxRounds int

	mu      sync.Mutex
	history map[string][]Message
	turns   map[string]*sync.Mutex
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithMaxRounds sets the round limit.
func WithMaxRounds(n int) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ChatOption {
	return func(c *Chat) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChat creates a chat over model.
func NewChat(model Model, opts ...ChatOption) *Chat {
	c := &Chat{
		model:     model,
		logger:    slog.Default(),
		maxRounds: DefaultMaxRounds,
		history:   make(map[string][]Message),
		turns:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send appends text to the flow's conversation, lets the model call tools
// against target until it answers in plain text, and returns that answer.
// History is only kept when the exchange completes. Messages for the same
// flow are handled one at a time.
func (c *Chat) Send(ctx context.Context, flowID string, target Target, text string) (Reply, error) {
	if text == "" {
		return Reply{}, errors.New("assistant: empty message")
	}
	bridge := NewBridge(target, c.logger)

	turn := c.turn(flowID)
	turn.Lock()
	defer turn.Unlock()

	c.mu.Lock()
	msgs := append([]Message(nil), c.history[flowID]...)
	c.mu.Unlock()
	if len(msgs) == 0 {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: text})

	var reply Reply
	for round := 0; round < c.maxRounds; round++ {
		out, err := c.model.Generate(ctx, msgs, Tools)
		if err != nil {
			return Reply{}, errors.Wrapf(err, "assistant: round %d", round)
		}
		msgs = append(msgs, out)
		if len(out.ToolCalls) == 0 {
			reply.Text = out.Content
			c.mu.Lock()
			c.history[flowID] = msgs
			c.mu.Unlock()
			return reply, nil
		}
		for _, tc := range out.ToolCalls {
			result := bridge.Call(tc.Name, json.RawMessage(tc.Arguments))
			reply.Tools = append(reply.Tools, ToolResult{Name: tc.Name, Result: result})
			msgs = append(msgs, Message{Role: RoleTool, ToolCallID: tc.ID, Name: tc.Name, Content: result})
		}
		c.logger.Debug("assistant tool round", "flow", flowID, "round", round, "calls", len(out.ToolCalls))
	}
	return reply, ErrTooManyRounds
}

// turn returns the lock that serializes exchanges on flowID.
func (c *Chat) turn(flowID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.turns[flowID]
	if !ok {
		m = &sync.Mutex{}
		c.turns[flowID] = m
	}
	return m
}

// History returns a copy of the flow's conversation.
func (c *Chat) History(flowID string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history[flowID]...)
}

// Reset forgets the flow's conversation. It waits for an exchange in progress.
func (c *Chat) Reset(flowID string) {
	turn := c.turn(flowID)
	turn.Lock()
	defer turn.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, flowID)
}
