package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/chatflow"
)

// insertEdges writes edges in order. Endpoints are not checked against
// flow_nodes: a flow may hold edges whose nodes are gone.
func insertEdges(ctx context.Context, tx pgx.Tx, flowID string, edges []chatflow.Edge) error {
	for i, e := range edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_edges (flow_id, id, ord, source, target, source_handle, target_handle, selected)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			flowID, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle, e.Selected,
		); err != nil {
			return fmt.Errorf("chatflow: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

// listEdges returns all edges of a flow in stored order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) listEdges(ctx context.Context, flowID string) ([]chatflow.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source, target, source_handle, target_handle, selected
		 FROM flow_edges WHERE flow_id = $1 ORDER BY ord`, flowID)
	if err != nil {
		return nil, fmt.Errorf("chatflow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []chatflow.Edge{}
	for rows.Next() {
		var e chatflow.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.SourceHandle, &e.TargetHandle, &e.Selected); err != nil {
			return nil, fmt.Errorf("chatflow: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatflow: rows edges: %w", err)
	}
	return edges, nil
}
