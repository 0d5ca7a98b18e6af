package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flows (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flow_nodes (
    flow_id         TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    id              TEXT NOT NULL,
    ord             INT NOT NULL,
    type            TEXT NOT NULL DEFAULT 'custom',
    pos_x           DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y           DOUBLE PRECISION NOT NULL DEFAULT 0,
    source_position TEXT NOT NULL DEFAULT '',
    target_position TEXT NOT NULL DEFAULT '',
    width           DOUBLE PRECISION,
    height          DOUBLE PRECISION,
    selected        BOOLEAN NOT NULL DEFAULT FALSE,
    data            JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (flow_id, id)
);

CREATE TABLE IF NOT EXISTS flow_edges (
    flow_id       TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    ord           INT NOT NULL,
    source        TEXT NOT NULL,
    target        TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    selected      BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (flow_id, id)
);

CREATE INDEX IF NOT EXISTS idx_flow_nodes_ord ON flow_nodes(flow_id, ord);
CREATE INDEX IF NOT EXISTS idx_flow_edges_ord ON flow_edges(flow_id, ord);
`

// CreateSchema creates the flows, flow_nodes and flow_edges tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all chatflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flow_edges, flow_nodes, flows CASCADE;`)
	return err
}
