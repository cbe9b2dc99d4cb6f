package builtin

import (
	"context"
	"database/sql"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/utils"
)

// databaseConfig is the decoded config for the database node. Query and args
// arrive already resolved by the engine.
type databaseConfig struct {
	DSN       string `json:"dsn"`
	Query     string `json:"query"`
	Args      []any  `json:"args,omitempty"`
	OutputKey string `json:"outputKey,omitempty"`
}

// DatabaseNode runs one ad-hoc SQL query against a Postgres connection and
// writes the matched rows to state. It is the wired home of bun/pgdialect/
// pgdriver at workflow-author reach, distinct from internal/storage/bunstore
// (that package persists documents and execution records; this node lets a
// workflow query whatever schema the deployment owns).
//
// Addressed per-DSN so one engine process can talk to several databases
// without re-registering a node per connection string.
type DatabaseNode struct {
	mu  sync.Mutex
	dbs map[string]*bun.DB
}

func NewDatabaseNode() *DatabaseNode {
	return &DatabaseNode{dbs: make(map[string]*bun.DB)}
}

func (DatabaseNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "database",
		Name:        "Database",
		Version:     "1.0.0",
		Description: "Runs a SQL query against Postgres and returns matched rows.",
		Inputs:      []string{"dsn", "query", "args", "outputKey"},
		Outputs:     []string{"dbRecords"},
		Edges:       []string{"success", "error"},
		Category:    "io",
		AIHints: &registry.AIHints{
			Purpose: "Read or write rows in an external Postgres database as part of a workflow step.",
		},
	}
}

func (n *DatabaseNode) connFor(dsn string) *bun.DB {
	n.mu.Lock()
	defer n.mu.Unlock()
	if db, ok := n.dbs[dsn]; ok {
		return db
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	n.dbs[dsn] = db
	return db
}

func (n *DatabaseNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[databaseConfig]("database", config)
	if err != nil {
		return "", nil, nil, err
	}
	if cfg.DSN == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("database", "missing 'dsn' in config")
	}
	if cfg.Query == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("database", "missing 'query' in config")
	}

	db := n.connFor(cfg.DSN)

	rows, err := db.QueryContext(ctx, cfg.Query, cfg.Args...)
	if err != nil {
		return "", nil, nil, err
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return "", nil, nil, err
	}

	outputKey := utils.DefaultValue(cfg.OutputKey, "dbRecords")

	return "success", []registry.Write{{Path: outputKey, Value: records}}, nil, nil
}

// scanRows converts a *sql.Rows cursor into a column-name-keyed slice, since
// the database node's query shape is not known ahead of time the way a
// bun.Model-backed query would be.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
