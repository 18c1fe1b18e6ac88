package app

import (
	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/data/repos"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type Repos struct {
	DocumentRun       repos.DocumentRunRepo
	ProtoConcept      repos.ProtoConceptRepo
	DecisionTrace     repos.DecisionTraceRepo
	Ontology          repos.OntologyRepo
	BudgetReservation repos.BudgetReservationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		DocumentRun:       repos.NewDocumentRunRepo(db, log),
		ProtoConcept:      repos.NewProtoConceptRepo(db, log),
		DecisionTrace:     repos.NewDecisionTraceRepo(db, log),
		Ontology:          repos.NewOntologyRepo(db, log),
		BudgetReservation: repos.NewBudgetReservationRepo(db, log),
	}
}
