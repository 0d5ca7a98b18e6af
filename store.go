package chatflow

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound  = errors.New("chatflow: node not found")
	ErrFlowNotFound  = errors.New("chatflow: flow not found")
	ErrFlowExists    = errors.New("chatflow: flow already exists")
	ErrDuplicateNode = errors.New("chatflow: node with this id already exists")
	ErrDuplicateEdge = errors.New("chatflow: edge already exists")
	ErrInvalidNode   = errors.New("chatflow: invalid node")
	ErrInvalidEdge   = errors.New("chatflow: invalid edge")
	ErrInvalidFlow   = errors.New("chatflow: invalid flow")
)

// Store defines the contract for persisting and retrieving flows.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Flows (whole-snapshot operations)
	SaveFlow(ctx context.Context, flowID string, f *Flow) error
	GetFlow(ctx context.Context, flowID string) (*Flow, error)
	DeleteFlow(ctx context.Context, flowID string) error
	ListFlows(ctx context.Context) ([]string, error)
}
