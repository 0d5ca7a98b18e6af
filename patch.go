package chatflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeDataPatch is a partial NodeData. Nil fields are left untouched by Apply.
//
// Payload uses the raw JSON text: nil means absent and the literal null
// removes the payload. ClearAPIConfig removes the API descriptor.
type NodeDataPatch struct {
	Label          *string
	MessageType    *MessageType
	Payload        json.RawMessage
	Description    *string
	APIConfig      *APIConfig
	ClearAPIConfig bool
	IsExpanded     *bool
}

var jsonNull = []byte("null")

// Apply shallow-merges the patch into d and returns the result.
func (p NodeDataPatch) Apply(d NodeData) NodeData {
	out := d.Clone()
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.MessageType != nil {
		out.MessageType = *p.MessageType
	}
	if p.Payload != nil {
		if bytes.Equal(bytes.TrimSpace(p.Payload), jsonNull) {
			out.Payload = nil
		} else {
			out.Payload = cloneRaw(p.Payload)
		}
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	switch {
	case p.ClearAPIConfig:
		out.APIConfig = nil
	case p.APIConfig != nil:
		c := p.APIConfig.Clone()
		out.APIConfig = &c
	}
	if p.IsExpanded != nil {
		out.IsExpanded = *p.IsExpanded
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p NodeDataPatch) IsEmpty() bool {
	return p.Label == nil && p.MessageType == nil && p.Payload == nil &&
		p.Description == nil && p.APIConfig == nil && !p.ClearAPIConfig &&
		p.IsExpanded == nil
}

// UnmarshalJSON decodes a partial data object, keeping track of which keys were present.
func (p *NodeDataPatch) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*p = NodeDataPatch{}
	for key, raw := range fields {
		isNull := bytes.Equal(bytes.TrimSpace(raw), jsonNull)
		switch key {
		case "label":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("chatflow: patch label: %w", err)
			}
			p.Label = &s
		case "messageType":
			var m MessageType
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("chatflow: patch messageType: %w", err)
			}
			p.MessageType = &m
		case "payload":
			p.Payload = cloneRaw(raw)
		case "description":
			var s string
			if !isNull {
				if err := json.Unmarshal(raw, &s); err != nil {
					return fmt.Errorf("chatflow: patch description: %w", err)
				}
			}
			p.Description = &s
		case "apiConfig":
			if isNull {
				p.ClearAPIConfig = true
				continue
			}
			var c APIConfig
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("chatflow: patch apiConfig: %w", err)
			}
			p.APIConfig = &c
		case "isExpanded":
			var v bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("chatflow: patch isExpanded: %w", err)
			}
			p.IsExpanded = &v
		}
	}
	return nil
}
