// Package file provides file-based persistence, used for local development
// and for engine tests that need a real store without a running database.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/cascadehq/cascade/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON files. A single mutex serializes writes, which is what makes the
// compare-and-swap semantics of the output repository honest.
type Persistence struct {
	root string
	mu   sync.Mutex

	workflowRepo      *WorkflowRepository
	submissionRepo    *SubmissionRepository
	outputRepo        *NodeOutputRepository
	alertRepo         *AlertRepository
	pendingChangeRepo *PendingChangeRepository
	frameworkRepo     *FrameworkRepository
	schemaRepo        *SchemaRepository
	evaluationRepo    *EvaluationRepository
}

// NewPersistence creates a file persistence layer rooted at the given path.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = &WorkflowRepository{store: p}
	p.submissionRepo = &SubmissionRepository{store: p}
	p.outputRepo = &NodeOutputRepository{store: p}
	p.alertRepo = &AlertRepository{store: p}
	p.pendingChangeRepo = &PendingChangeRepository{store: p}
	p.frameworkRepo = &FrameworkRepository{store: p}
	p.schemaRepo = &SchemaRepository{store: p}
	p.evaluationRepo = &EvaluationRepository{store: p}

	return p
}

// Close performs any necessary cleanup. Nothing to release for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
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
