package repos

import (
	"github.com/tessella/tessella-backend/internal/data/repos/concepts"
	"github.com/tessella/tessella-backend/internal/data/repos/runs"
)

type DocumentRunRepo = runs.DocumentRunRepo

type ProtoConceptRepo = concepts.ProtoConceptRepo
type DecisionTraceRepo = concepts.DecisionTraceRepo
type OntologyRepo = concepts.OntologyRepo
type BudgetReservationRepo = concepts.BudgetReservationRepo

var (
	NewDocumentRunRepo       = runs.NewDocumentRunRepo
	NewProtoConceptRepo      = concepts.NewProtoConceptRepo
	NewDecisionTraceRepo     = concepts.NewDecisionTraceRepo
	NewOntologyRepo          = concepts.NewOntologyRepo
	NewBudgetReservationRepo = concepts.NewBudgetReservationRepo
)
