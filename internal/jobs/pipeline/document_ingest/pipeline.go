package document_ingest

import (
	"fmt"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/jobs/runtime"
	"github.com/tessella/tessella-backend/internal/pipeline"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
)

// Run validates the payload, executes the supervisor, and records the
// terminal outcome on the run row. The supervisor owns stage semantics;
// this layer owns the run lifecycle.
func (p *Pipeline) Run(rc *runtime.Context) error {
	documentID, ok := rc.PayloadUUID("document_id")
	if !ok {
		rc.Fail(types.StateStart, "invalid_payload", fmt.Errorf("payload missing document_id"))
		return nil
	}
	text := rc.PayloadString("text")
	if text == "" {
		rc.Fail(types.StateStart, "invalid_payload", fmt.Errorf("payload missing text"))
		return nil
	}

	req := pipeline.Request{
		RunID:            rc.Run.ID,
		TenantID:         rc.Run.TenantID,
		DocumentID:       documentID,
		Text:             text,
		HasVisualContent: rc.PayloadBool("has_visual_content"),
	}

	report, err := p.sup.Run(dbctx.Context{Ctx: rc.Ctx}, req, rc)
	if err != nil {
		rc.Fail(rc.Run.State, "pipeline_failed", err)
		return nil
	}

	rc.Succeed(map[string]any{
		"counts":   report.Counts,
		"tier":     report.Tier,
		"degraded": report.Degraded,
	})
	return nil
}
