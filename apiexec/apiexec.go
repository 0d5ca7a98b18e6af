// Package apiexec runs the HTTP call described by a node's apiConfig and
// writes the outcome back into that node.
package apiexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/meikuraledutech/chatflow"
)

// ErrInFlight is returned when the node already has a call running.
var ErrInFlight = errors.New("apiexec: execution already in progress for node")

const msgMissingConfig = "API configuration is missing or URL is empty."

// NodeStore is the part of the editor the executor reads from and writes to.
type NodeStore interface {
	Node(id string) (chatflow.Node, bool)
	UpdateNodeData(nodeID string, patch chatflow.NodeDataPatch) bool
}

// Executor performs node API calls. One call per node may be in flight at a time;
// calls on different nodes are independent.
type Executor struct {
	store  NodeStore
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		if c != nil {
			e.client = c
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor writing results into store.
func New(store NodeStore, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		client:  http.DefaultClient,
		logger:  slog.Default(),
		running: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether nodeID has a call in flight.
func (e *Executor) Running(nodeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[nodeID]
	return ok
}

// ExecuteAsync starts Execute in its own goroutine and returns immediately.
// The in-flight check happens before returning, so a second trigger for the
// same node is rejected synchronously.
func (e *Executor) ExecuteAsync(ctx context.Context, nodeID string) error {
	if _, ok := e.store.Node(nodeID); !ok {
		return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID)
	}
	if !e.acquire(nodeID) {
		return fmt.Errorf("%w: %s", ErrInFlight, nodeID)
	}
	go func() {
		defer e.release(nodeID)
		e.run(ctx, nodeID)
	}()
	return nil
}

// Execute performs the node's call and blocks until the result is written.
// Failures of the call itself are recorded on the node, not returned.
func (e *Executor) Execute(ctx context.Context, nodeID string) error {
	if _, ok := e.store.Node(nodeID); !ok {
		return fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID)
	}
	if !e.acquire(nodeID) {
		return fmt.Errorf("%w: %s", ErrInFlight, nodeID)
	}
	defer e.release(nodeID)
	e.run(ctx, nodeID)
	return nil
}

func (e *Executor) acquire(nodeID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[nodeID]; ok {
		return false
	}
	e.running[nodeID] = struct{}{}
	return true
}

func (e *Executor) release(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, nodeID)
}

func (e *Executor) run(ctx context.Context, nodeID string) {
	node, ok := e.store.Node(nodeID)
	if !ok {
		return
	}
	cfg := node.Data.APIConfig
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		e.fail(nodeID, msgMissingConfig)
		return
	}

	e.store.UpdateNodeData(nodeID, chatflow.NodeDataPatch{
		MessageType: chatflow.Ptr(chatflow.MessageTypeSuccess),
	})

	result, err := e.call(ctx, *cfg)
	if err != nil {
		e.logger.Warn("api execution failed", "node", nodeID, "url", cfg.URL, "err", err)
		e.fail(nodeID, err.Error())
		return
	}
	e.store.UpdateNodeData(nodeID, chatflow.NodeDataPatch{
		MessageType: chatflow.Ptr(chatflow.MessageTypeSuccess),
		Payload:     result,
	})
	e.logger.Info("api execution succeeded", "node", nodeID, "url", cfg.URL)
}

// fail records an error payload on the node. A node deleted mid-call is left alone.
func (e *Executor) fail(nodeID, msg string) {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	e.store.UpdateNodeData(nodeID, chatflow.NodeDataPatch{
		MessageType: chatflow.Ptr(chatflow.MessageTypeError),
		Payload:     payload,
	})
}

func (e *Executor) call(ctx context.Context, cfg chatflow.APIConfig) (json.RawMessage, error) {
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(cfg.Body) > 0 && method != http.MethodGet && method != http.MethodHead {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errorMessage(raw, resp.StatusCode))
	}

	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("parse response: body is not valid JSON (%s)", describeBody(resp.Header.Get("Content-Type"), len(trimmed)))
	}
	return json.RawMessage(trimmed), nil
}

func describeBody(contentType string, size int) string {
	if size == 0 {
		return "empty body"
	}
	if contentType == "" {
		contentType = "unknown content type"
	}
	return fmt.Sprintf("%d bytes of %s", size, contentType)
}

// errorMessage prefers the body's message field and falls back to the status code.
func errorMessage(body []byte, status int) string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return fmt.Sprintf("Request failed with status %d", status)
}
