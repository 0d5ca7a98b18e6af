// Package inspector models the side panel bound to the selected node.
//
// The panel keeps editable drafts of the node's fields. Plain fields are
// committed on every edit. JSON fields (payload, headers, body) are echoed as
// typed and only committed once they parse; until then the previously
// committed value stays in the store and the field carries an error flag.
package inspector

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/meikuraledutech/chatflow"
)

// MsgInvalidJSON is the inline error shown under a field that does not parse.
const MsgInvalidJSON = "Invalid JSON"

// ErrInvalidJSON is returned by JSON setters when the text does not parse.
var ErrInvalidJSON = errors.New("inspector: invalid JSON")

// Updater receives committed edits.
type Updater interface {
	UpdateNodeData(nodeID string, patch chatflow.NodeDataPatch) bool
}

// Field names a JSON-valued draft.
type Field string

const (
	FieldPayload Field = "payload"
	FieldHeaders Field = "headers"
	FieldBody    Field = "body"
)

// Panel is the inspector state for at most one node.
type Panel struct {
	updater Updater

	nodeID string
	open   bool

	label       string
	messageType chatflow.MessageType
	description string
	payloadText string

	apiEnabled  bool
	url         string
	method      string
	headers     map[string]string
	headersText string
	body        json.RawMessage
	bodyText    string

	errs map[Field]string
}

// New creates a closed panel committing into u.
func New(u Updater) *Panel {
	return &Panel{updater: u, errs: make(map[Field]string)}
}

// Select binds the panel to n, discarding any uncommitted text.
func (p *Panel) Select(n chatflow.Node) {
	p.nodeID = n.ID
	p.open = true
	p.errs = make(map[Field]string)
	p.load(n.Data)
}

// Close unbinds the panel, discarding any uncommitted text.
func (p *Panel) Close() {
	*p = Panel{updater: p.updater, errs: make(map[Field]string)}
}

// NodeID returns the bound node id.
func (p *Panel) NodeID() (string, bool) {
	return p.nodeID, p.open
}

// Sync refreshes drafts from the store's copy of the bound node.
// Fields holding invalid text keep it.
func (p *Panel) Sync(n chatflow.Node) {
	if !p.open || n.ID != p.nodeID {
		return
	}
	payloadText, headersText, bodyText := p.payloadText, p.headersText, p.bodyText
	p.load(n.Data)
	if _, bad := p.errs[FieldPayload]; bad {
		p.payloadText = payloadText
	}
	if _, bad := p.errs[FieldHeaders]; bad {
		p.headersText = headersText
	}
	if _, bad := p.errs[FieldBody]; bad {
		p.bodyText = bodyText
	}
}

func (p *Panel) load(d chatflow.NodeData) {
	p.label = d.Label
	p.messageType = d.MessageType
	p.description = d.Description
	p.payloadText = formatJSON(d.Payload)

	p.apiEnabled = d.APIConfig != nil
	p.url, p.method = "", http.MethodGet
	p.headers, p.body = nil, nil
	p.headersText, p.bodyText = "", ""
	if c := d.APIConfig; c != nil {
		p.url = c.URL
		if c.Method != "" {
			p.method = c.Method
		}
		cc := c.Clone()
		p.headers, p.body = cc.Headers, cc.Body
		if len(c.Headers) > 0 {
			raw, _ := json.Marshal(c.Headers)
			p.headersText = formatJSON(raw)
		}
		p.bodyText = formatJSON(c.Body)
	}
}

// SetLabel commits a new label.
func (p *Panel) SetLabel(label string) {
	if !p.open {
		return
	}
	p.label = label
	p.commit(chatflow.NodeDataPatch{Label: &label})
}

// SetMessageType commits a category by name. Unknown names become default.
func (p *Panel) SetMessageType(name string) {
	if !p.open {
		return
	}
	m := chatflow.ParseMessageType(name)
	p.messageType = m
	p.commit(chatflow.NodeDataPatch{MessageType: &m})
}

// SetDescription commits a new description.
func (p *Panel) SetDescription(desc string) {
	if !p.open {
		return
	}
	p.description = desc
	p.commit(chatflow.NodeDataPatch{Description: &desc})
}

// SetPayloadText echoes text and commits it when it parses. Empty text removes the payload.
func (p *Panel) SetPayloadText(text string) error {
	if !p.open {
		return nil
	}
	p.payloadText = text
	raw, err := parseJSON(text)
	if err != nil {
		p.errs[FieldPayload] = MsgInvalidJSON
		return err
	}
	delete(p.errs, FieldPayload)
	if raw == nil {
		raw = json.RawMessage("null")
	}
	p.commit(chatflow.NodeDataPatch{Payload: raw})
	return nil
}

// SetAPIEnabled adds or removes the node's API descriptor.
func (p *Panel) SetAPIEnabled(enabled bool) {
	if !p.open {
		return
	}
	p.apiEnabled = enabled
	if !enabled {
		delete(p.errs, FieldHeaders)
		delete(p.errs, FieldBody)
		p.commit(chatflow.NodeDataPatch{ClearAPIConfig: true})
		return
	}
	p.commitAPI()
}

// SetURL commits a new request URL.
func (p *Panel) SetURL(url string) {
	if !p.open {
		return
	}
	p.url = url
	p.commitAPI()
}

// SetMethod commits a new request method.
func (p *Panel) SetMethod(method string) {
	if !p.open {
		return
	}
	p.method = strings.ToUpper(strings.TrimSpace(method))
	p.commitAPI()
}

// SetHeadersText echoes text and commits it when it parses to a string map.
func (p *Panel) SetHeadersText(text string) error {
	if !p.open {
		return nil
	}
	p.headersText = text
	var headers map[string]string
	if strings.TrimSpace(text) != "" {
		if err := json.Unmarshal([]byte(text), &headers); err != nil {
			p.errs[FieldHeaders] = MsgInvalidJSON
			return ErrInvalidJSON
		}
	}
	delete(p.errs, FieldHeaders)
	p.headers = headers
	p.commitAPI()
	return nil
}

// SetBodyText echoes text and commits it when it parses. Empty text removes the body.
func (p *Panel) SetBodyText(text string) error {
	if !p.open {
		return nil
	}
	p.bodyText = text
	raw, err := parseJSON(text)
	if err != nil {
		p.errs[FieldBody] = MsgInvalidJSON
		return err
	}
	delete(p.errs, FieldBody)
	p.body = raw
	p.commitAPI()
	return nil
}

func (p *Panel) commitAPI() {
	if !p.apiEnabled {
		return
	}
	cfg := chatflow.APIConfig{
		URL:     p.url,
		Method:  p.method,
		Headers: p.headers,
		Body:    p.body,
	}
	p.commit(chatflow.NodeDataPatch{APIConfig: &cfg})
}

func (p *Panel) commit(patch chatflow.NodeDataPatch) {
	p.updater.UpdateNodeData(p.nodeID, patch)
}

// View is the render model of the panel.
type View struct {
	Open         bool   `json:"open"`
	NodeID       string `json:"nodeId,omitempty"`
	Label        string `json:"label"`
	MessageType  string `json:"messageType"`
	Description  string `json:"description"`
	Payload      string `json:"payload"`
	PayloadError string `json:"payloadError,omitempty"`
	APIEnabled   bool   `json:"apiEnabled"`
	URL          string `json:"url,omitempty"`
	Method       string `json:"method,omitempty"`
	Headers      string `json:"headers,omitempty"`
	HeadersError string `json:"headersError,omitempty"`
	Body         string `json:"body,omitempty"`
	BodyError    string `json:"bodyError,omitempty"`
}

// View returns the current render model.
func (p *Panel) View() View {
	if !p.open {
		return View{}
	}
	v := View{
		Open:         true,
		NodeID:       p.nodeID,
		Label:        p.label,
		MessageType:  p.messageType.Resolved().String(),
		Description:  p.description,
		Payload:      p.payloadText,
		PayloadError: p.errs[FieldPayload],
		APIEnabled:   p.apiEnabled,
	}
	if p.apiEnabled {
		v.URL = p.url
		v.Method = p.method
		v.Headers = p.headersText
		v.HeadersError = p.errs[FieldHeaders]
		v.Body = p.bodyText
		v.BodyError = p.errs[FieldBody]
	}
	return v
}

// parseJSON returns nil for blank text.
func parseJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, ErrInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(trimmed)); err != nil {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(buf.Bytes()), nil
}

// formatJSON pretty-prints raw with two-space indentation.
func formatJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
