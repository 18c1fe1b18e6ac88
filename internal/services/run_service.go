package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

const jobTypeDocumentIngest = "document_ingest"

// RunService owns the DocumentRun lifecycle from the API side: enqueueing
// new runs for the worker pool and reading status and traces back out.
type RunService interface {
	Enqueue(dbc dbctx.Context, tenantID uuid.UUID, documentID uuid.UUID, text string, hasVisualContent bool) (*types.DocumentRun, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRun, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.DocumentRun, error)
	Traces(dbc dbctx.Context, runID uuid.UUID) ([]*types.DecisionTrace, error)
}

type runService struct {
	runs   repos.DocumentRunRepo
	traces repos.DecisionTraceRepo
	log    *logger.Logger
}

func NewRunService(runs repos.DocumentRunRepo, traces repos.DecisionTraceRepo, baseLog *logger.Logger) RunService {
	return &runService{
		runs:   runs,
		traces: traces,
		log:    baseLog.With("service", "RunService"),
	}
}

func (s *runService) Enqueue(dbc dbctx.Context, tenantID uuid.UUID, documentID uuid.UUID, text string, hasVisualContent bool) (*types.DocumentRun, error) {
	if tenantID == uuid.Nil || documentID == uuid.Nil {
		return nil, fmt.Errorf("tenant_id and document_id required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document text required")
	}

	payload, err := json.Marshal(map[string]any{
		"job_type":           jobTypeDocumentIngest,
		"document_id":        documentID.String(),
		"text":               text,
		"has_visual_content": hasVisualContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run payload: %w", err)
	}

	rows, err := s.runs.Create(dbc, []*types.DocumentRun{{
		TenantID:   tenantID,
		DocumentID: documentID,
		Status:     types.RunStatusQueued,
		State:      types.StateStart,
		Payload:    datatypes.JSON(payload),
	}})
	if err != nil {
		return nil, err
	}
	run := rows[0]
	s.log.Info("document run enqueued", "run_id", run.ID, "tenant_id", tenantID, "document_id", documentID)
	return run, nil
}

func (s *runService) Get(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRun, error) {
	return s.runs.GetByID(dbc, id)
}

func (s *runService) List(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.DocumentRun, error) {
	return s.runs.ListByTenant(dbc, tenantID, limit)
}

func (s *runService) Traces(dbc dbctx.Context, runID uuid.UUID) ([]*types.DecisionTrace, error) {
	return s.traces.ListByDocumentRun(dbc, runID)
}
