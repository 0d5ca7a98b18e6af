package canvas

import "github.com/meikuraledutech/chatflow"

// Style is the color pair a node is drawn with.
type Style struct {
	Background string `json:"backgroundColor"`
	Border     string `json:"borderColor"`
}

// StyleFor returns the style of a message category. Unset renders as default.
func StyleFor(m chatflow.MessageType) Style {
	switch m.Resolved() {
	case chatflow.MessageTypeUser:
		return Style{Background: "#e0f2fe", Border: "#90cdf4"}
	case chatflow.MessageTypeAI:
		return Style{Background: "#fefcbf", Border: "#f6e05e"}
	case chatflow.MessageTypeSuccess:
		return Style{Background: "#e6fffa", Border: "#81e6d9"}
	case chatflow.MessageTypeError:
		return Style{Background: "#fed7d7", Border: "#fc8181"}
	default:
		return Style{Background: "#ffffff", Border: "#e2e8f0"}
	}
}
