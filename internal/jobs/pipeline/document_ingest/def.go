package document_ingest

import (
	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/pipeline"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Pipeline is the job-side wrapper that runs the document supervisor for
// one claimed DocumentRun row.
type Pipeline struct {
	db  *gorm.DB
	log *logger.Logger
	sup *pipeline.Supervisor
}

func New(db *gorm.DB, baseLog *logger.Logger, sup *pipeline.Supervisor) *Pipeline {
	return &Pipeline{
		db:  db,
		log: baseLog.With("job", "document_ingest"),
		sup: sup,
	}
}

func (p *Pipeline) Type() string { return "document_ingest" }
