// Package bunstore is a thin, out-of-scope persistence adapter for workflow
// documents and execution results. It is never imported by the core engine
// packages (state/resolver/registry/workflow/hookbus/engine), nor by
// cmd/mbflowd; a host process that wants durability wires it in alongside
// the engine.
//
// Grounded on the teacher's internal/infrastructure/storage/bun_store.go,
// trimmed from its full event-sourced Workflow/Execution/Event/Node/Edge
// aggregate persistence down to the two operations a document-tree engine
// actually needs: save/load a parsed workflow document, and record the
// outcome of one execution.
package bunstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// WorkflowModel is the persisted row for one workflow document, addressed by
// its own declared id (spec's id/name/version/initialState/workflow shape)
// rather than a surrogate key.
type WorkflowModel struct {
	bun.BaseModel `bun:"table:workflows,alias:w"`

	ID           string         `bun:"id,pk"`
	Name         string         `bun:"name"`
	Version      string         `bun:"version"`
	InitialState map[string]any `bun:"initial_state,type:jsonb"`
	Steps        []any          `bun:"steps,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at"`
}

// ExecutionRecordModel is the persisted row for one completed (or failed)
// execution, grounded on the teacher's ExecutionModel but flattened: this
// engine is not event-sourced, so one row captures the whole outcome rather
// than a stream of domain events.
type ExecutionRecordModel struct {
	bun.BaseModel `bun:"table:execution_records,alias:x"`

	ExecutionID  uuid.UUID      `bun:"execution_id,pk"`
	WorkflowID   string         `bun:"workflow_id"`
	Outcome      string         `bun:"outcome"`
	FinalState   map[string]any `bun:"final_state,type:jsonb"`
	TerminalEdge string         `bun:"terminal_edge"`
	ErrorMessage string         `bun:"error_message,omitempty"`
	DurationMS   int64          `bun:"duration_ms"`
	StartedAt    time.Time      `bun:"started_at"`
}

// Store wraps a bun.DB configured for Postgres via pgdriver/pgdialect.
type Store struct {
	DB *bun.DB
}

// New opens a connection pool against dsn without validating connectivity;
// callers should follow with InitSchema or a health check of their own.
func New(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Store{DB: bun.NewDB(sqldb, pgdialect.New())}
}

// InitSchema creates the two tables this package needs if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	models := []any{(*WorkflowModel)(nil), (*ExecutionRecordModel)(nil)}
	for _, model := range models {
		if _, err := s.DB.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SaveWorkflow upserts a workflow document row keyed by its own id.
func (s *Store) SaveWorkflow(ctx context.Context, m *WorkflowModel) error {
	m.CreatedAt = time.Now().UTC()
	_, err := s.DB.NewInsert().Model(m).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	return err
}

// LoadWorkflow fetches a workflow document row by id.
func (s *Store) LoadWorkflow(ctx context.Context, id string) (*WorkflowModel, error) {
	m := new(WorkflowModel)
	if err := s.DB.NewSelect().Model(m).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveExecutionResult inserts one execution outcome row.
func (s *Store) SaveExecutionResult(ctx context.Context, m *ExecutionRecordModel) error {
	_, err := s.DB.NewInsert().Model(m).Exec(ctx)
	return err
}
