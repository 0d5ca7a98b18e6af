package assistant

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel calls the chat completion API through go-openai.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a model. An empty model name selects gpt-4o-mini.
func NewOpenAIModel(client *openai.Client, model string) *OpenAIModel {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIModel{client: client, model: model}
}

func (m *OpenAIModel) Generate(ctx context.Context, messages []Message, tools []Tool) (Message, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return Message{}, errors.New("chat completion returned empty choice list")
	}
	msg := resp.Choices[0].Message
	out := Message{Role: RoleAssistant, Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		cm := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case RoleSystem:
			cm.Role = openai.ChatMessageRoleSystem
		case RoleUser:
			cm.Role = openai.ChatMessageRoleUser
		case RoleAssistant:
			cm.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		case RoleTool:
			cm.Role = openai.ChatMessageRoleTool
			cm.ToolCallID = msg.ToolCallID
			cm.Name = msg.Name
		}
		out = append(out, cm)
	}
	return out
}
