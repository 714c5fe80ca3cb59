// Package postgresql provides PostgreSQL persistence for workflows,
// submissions, and the engine's operational records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo      *WorkflowRepository
	submissionRepo    *SubmissionRepository
	outputRepo        *NodeOutputRepository
	alertRepo         *AlertRepository
	pendingChangeRepo *PendingChangeRepository
	frameworkRepo     *FrameworkRepository
	schemaRepo        *SchemaRepository
	evaluationRepo    *EvaluationRepository
}

// NewPersistence connects, migrates, and returns a PostgreSQL persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:                database,
		logger:            logger,
		workflowRepo:      &WorkflowRepository{db: database, logger: logger},
		submissionRepo:    &SubmissionRepository{db: database},
		outputRepo:        &NodeOutputRepository{db: database},
		alertRepo:         &AlertRepository{db: database},
		pendingChangeRepo: &PendingChangeRepository{db: database},
		frameworkRepo:     &FrameworkRepository{db: database},
		schemaRepo:        &SchemaRepository{db: database},
		evaluationRepo:    &EvaluationRepository{db: database},
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) SubmissionRepository() persistence.SubmissionRepository {
	return p.submissionRepo
}

func (p *Persistence) NodeOutputRepository() persistence.NodeOutputRepository {
	return p.outputRepo
}

func (p *Persistence) AlertRepository() persistence.AlertRepository {
	return p.alertRepo
}

func (p *Persistence) PendingChangeRepository() persistence.PendingChangeRepository {
	return p.pendingChangeRepo
}

func (p *Persistence) FrameworkRepository() persistence.FrameworkRepository {
	return p.frameworkRepo
}

func (p *Persistence) SchemaRepository() persistence.SchemaRepository {
	return p.schemaRepo
}

func (p *Persistence) EvaluationRepository() persistence.EvaluationRepository {
	return p.evaluationRepo
}
