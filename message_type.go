package chatflow

import (
	"encoding/json"
	"strings"
)

// MessageType is the semantic category of a node. The zero value means unset.
type MessageType int

const (
	MessageTypeUnset MessageType = iota
	MessageTypeUser
	MessageTypeAI
	MessageTypeSuccess
	MessageTypeError
	MessageTypeDefault
)

// MessageTypes lists the five renderable categories.
var MessageTypes = []MessageType{
	MessageTypeUser,
	MessageTypeAI,
	MessageTypeSuccess,
	MessageTypeError,
	MessageTypeDefault,
}

// ParseMessageType maps a category name to its MessageType.
// "tool" is an alias of success. Unknown names fall back to default.
func ParseMessageType(s string) MessageType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return MessageTypeUnset
	case "user":
		return MessageTypeUser
	case "ai":
		return MessageTypeAI
	case "success", "tool":
		return MessageTypeSuccess
	case "error":
		return MessageTypeError
	default:
		return MessageTypeDefault
	}
}

func (m MessageType) String() string {
	switch m {
	case MessageTypeUnset:
		return ""
	case MessageTypeUser:
		return "user"
	case MessageTypeAI:
		return "ai"
	case MessageTypeSuccess:
		return "success"
	case MessageTypeError:
		return "error"
	default:
		return "default"
	}
}

// Resolved returns the category used for rendering: unset renders as default.
func (m MessageType) Resolved() MessageType {
	if m == MessageTypeUnset {
		return MessageTypeDefault
	}
	return m
}

func (m MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MessageType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = MessageTypeUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = ParseMessageType(s)
	return nil
}
