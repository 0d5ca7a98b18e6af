package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meikuraledutech/chatflow"
)

// Target is the flow the tools mutate, usually an *editor.Editor.
type Target interface {
	AddNode(id string, data chatflow.NodeData, x, y float64) (string, error)
	AddEdge(source, target string) (string, error)
	ClearFlow() string
}

type addNodeArgs struct {
	ID   string       `json:"id" validate:"required"`
	Data nodeDataArgs `json:"data"`
	X    *float64     `json:"x" validate:"required"`
	Y    *float64     `json:"y" validate:"required"`
}

type nodeDataArgs struct {
	Label       string          `json:"label" validate:"required"`
	MessageType string          `json:"messageType" validate:"omitempty,oneof=user ai success tool error default"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
}

type addEdgeArgs struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Bridge dispatches tool calls to a Target.
type Bridge struct {
	target   Target
	validate *validator.Validate
	logger   *slog.Logger
}

// NewBridge creates a bridge over t.
func NewBridge(t Target, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Bridge{target: t, validate: v, logger: logger}
}

// Call runs tool name with JSON arguments and returns a human-readable result.
// Failures are reported as text; Call never returns a structured error.
func (b *Bridge) Call(name string, args json.RawMessage) string {
	out, err := b.call(name, args)
	if err != nil {
		b.logger.Warn("tool call failed", "tool", name, "err", err)
		return "Error: " + err.Error()
	}
	b.logger.Info("tool call", "tool", name)
	return out
}

func (b *Bridge) call(name string, args json.RawMessage) (string, error) {
	switch name {
	case ToolAddNode:
		var a addNodeArgs
		if err := b.decode(args, &a); err != nil {
			return "", err
		}
		data := chatflow.NodeData{
			Label:       a.Data.Label,
			MessageType: chatflow.ParseMessageType(a.Data.MessageType),
			Description: a.Data.Description,
		}
		if len(a.Data.Payload) > 0 && !bytes.Equal(a.Data.Payload, []byte("null")) {
			data.Payload = a.Data.Payload
		}
		return b.target.AddNode(a.ID, data, *a.X, *a.Y)
	case ToolAddEdge:
		var a addEdgeArgs
		if err := b.decode(args, &a); err != nil {
			return "", err
		}
		return b.target.AddEdge(a.Source, a.Target)
	case ToolClearFlow:
		return b.target.ClearFlow(), nil
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func (b *Bridge) decode(args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := b.validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, describe(fe))
			}
			return fmt.Errorf("invalid arguments: %s", strings.Join(fields, "; "))
		}
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
