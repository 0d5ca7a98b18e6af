package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/chatflow"
)

// persistTimeout bounds a background save triggered by a mutation.
const persistTimeout = 10 * time.Second

// Registry keeps one Editor per flow id and mirrors every mutation into a Store.
type Registry struct {
	store  chatflow.Store
	logger *slog.Logger

	mu      sync.Mutex
	editors map[string]*entry
}

type entry struct {
	editor      *Editor
	unsubscribe func()

	saveMu sync.Mutex
	saved  uint64
}

// NewRegistry creates a registry persisting into store.
func NewRegistry(store chatflow.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		editors: make(map[string]*entry),
	}
}

// Create starts a new, empty flow. An empty flowID gets a generated UUID.
// Returns ErrFlowExists if the id is already open or stored.
func (r *Registry) Create(ctx context.Context, flowID string) (string, *Editor, error) {
	if flowID == "" {
		flowID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.editors[flowID]; ok {
		return "", nil, fmt.Errorf("%w: %s", chatflow.ErrFlowExists, flowID)
	}
	existing, err := r.store.GetFlow(ctx, flowID)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		return "", nil, fmt.Errorf("%w: %s", chatflow.ErrFlowExists, flowID)
	}

	ed := New(WithLogger(r.logger.With("flow", flowID)))
	if err := r.store.SaveFlow(ctx, flowID, &chatflow.Flow{Nodes: []chatflow.Node{}, Edges: []chatflow.Edge{}}); err != nil {
		return "", nil, err
	}
	r.track(flowID, ed)
	r.logger.Info("flow created", "flow", flowID)
	return flowID, ed, nil
}

// Get returns the editor of a flow, loading it from the store on first use.
// Returns ErrFlowNotFound if the flow is neither open nor stored.
func (r *Registry) Get(ctx context.Context, flowID string) (*Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.editors[flowID]; ok {
		return e.editor, nil
	}

	f, err := r.store.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", chatflow.ErrFlowNotFound, flowID)
	}

	ed := New(WithLogger(r.logger.With("flow", flowID)), WithFlow(*f))
	r.track(flowID, ed)
	return ed, nil
}

// Save writes the current snapshot of a flow to the store.
func (r *Registry) Save(ctx context.Context, flowID string) error {
	r.mu.Lock()
	e, ok := r.editors[flowID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", chatflow.ErrFlowNotFound, flowID)
	}
	return r.persist(ctx, flowID, e)
}

// Delete closes the flow and removes it from the store.
func (r *Registry) Delete(ctx context.Context, flowID string) error {
	r.mu.Lock()
	if e, ok := r.editors[flowID]; ok {
		e.unsubscribe()
		delete(r.editors, flowID)
	}
	r.mu.Unlock()

	if err := r.store.DeleteFlow(ctx, flowID); err != nil {
		return err
	}
	r.logger.Info("flow deleted", "flow", flowID)
	return nil
}

// List returns the ids of every stored or open flow, sorted.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	stored, err := r.store.ListFlows(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(stored))
	ids := make([]string, 0, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	r.mu.Lock()
	for id := range r.editors {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids, nil
}

// track must be called with mu held.
func (r *Registry) track(flowID string, ed *Editor) {
	e := &entry{editor: ed, saved: ed.Version()}
	e.unsubscribe = ed.Subscribe(func(uint64) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.persist(ctx, flowID, e); err != nil {
			r.logger.Error("persist flow", "flow", flowID, "err", err)
		}
	})
	r.editors[flowID] = e
}

// persist saves the newest snapshot. Older snapshots never overwrite newer ones.
func (r *Registry) persist(ctx context.Context, flowID string, e *entry) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	snap, v := e.editor.SnapshotVersion()
	if v < e.saved {
		return nil
	}
	if err := r.store.SaveFlow(ctx, flowID, &snap); err != nil {
		return fmt.Errorf("chatflow: save flow %s: %w", flowID, err)
	}
	e.saved = v
	return nil
}
