package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/chatflow"
)

// insertNodes writes nodes in order; ord preserves the collection order.
func insertNodes(ctx context.Context, tx pgx.Tx, flowID string, nodes []chatflow.Node) error {
	for i, n := range nodes {
		typ := n.Type
		if typ == "" {
			typ = chatflow.NodeType
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_nodes
			   (flow_id, id, ord, type, pos_x, pos_y, source_position, target_position, width, height, selected, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			flowID, n.ID, i, typ, n.Position.X, n.Position.Y,
			string(n.SourcePosition), string(n.TargetPosition),
			n.Width, n.Height, n.Selected, n.Data,
		); err != nil {
			return fmt.Errorf("chatflow: insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

// listNodes returns all nodes of a flow in stored order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) listNodes(ctx context.Context, flowID string) ([]chatflow.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, type, pos_x, pos_y, source_position, target_position, width, height, selected, data
		 FROM flow_nodes WHERE flow_id = $1 ORDER BY ord`, flowID)
	if err != nil {
		return nil, fmt.Errorf("chatflow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []chatflow.Node{}
	for rows.Next() {
		var (
			n        chatflow.Node
			src, tgt string
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Position.X, &n.Position.Y,
			&src, &tgt, &n.Width, &n.Height, &n.Selected, &n.Data); err != nil {
			return nil, fmt.Errorf("chatflow: scan node: %w", err)
		}
		n.SourcePosition = chatflow.HandlePosition(src)
		n.TargetPosition = chatflow.HandlePosition(tgt)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatflow: rows nodes: %w", err)
	}
	return nodes, nil
}
