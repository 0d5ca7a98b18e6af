package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/chatflow"
)

// SaveFlow replaces the stored snapshot of flowID with f in one transaction.
// The flow row is created on first save.
func (s *PGStore) SaveFlow(ctx context.Context, flowID string, f *chatflow.Flow) error {
	if f == nil {
		return fmt.Errorf("%w: nil flow", chatflow.ErrInvalidFlow)
	}
	if flowID == "" {
		return fmt.Errorf("%w: empty flow id", chatflow.ErrInvalidFlow)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chatflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO flows (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET updated_at = NOW()`, flowID,
	); err != nil {
		return fmt.Errorf("chatflow: upsert flow: %w", err)
	}

	// Replace semantics: drop the previous snapshot.
	if _, err := tx.Exec(ctx, `DELETE FROM flow_edges WHERE flow_id = $1`, flowID); err != nil {
		return fmt.Errorf("chatflow: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flow_nodes WHERE flow_id = $1`, flowID); err != nil {
		return fmt.Errorf("chatflow: delete nodes: %w", err)
	}

	if err := insertNodes(ctx, tx, flowID, f.Nodes); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, flowID, f.Edges); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chatflow: commit: %w", err)
	}
	return nil
}

// GetFlow retrieves a full flow (nodes + edges) by its ID.
// Returns nil, nil if the flow doesn't exist.
func (s *PGStore) GetFlow(ctx context.Context, flowID string) (*chatflow.Flow, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM flows WHERE id = $1`, flowID).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chatflow: get flow: %w", err)
	}

	nodes, err := s.listNodes(ctx, flowID)
	if err != nil {
		return nil, err
	}
	edges, err := s.listEdges(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return &chatflow.Flow{Nodes: nodes, Edges: edges}, nil
}

// DeleteFlow removes a flow with its nodes and edges.
// No error if the flow doesn't exist.
func (s *PGStore) DeleteFlow(ctx context.Context, flowID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flows WHERE id = $1`, flowID); err != nil {
		return fmt.Errorf("chatflow: delete flow: %w", err)
	}
	return nil
}

// ListFlows returns all flow ids in sorted order.
func (s *PGStore) ListFlows(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM flows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("chatflow: list flows: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chatflow: scan flow: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatflow: rows flows: %w", err)
	}
	return ids, nil
}
