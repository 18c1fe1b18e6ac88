package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/budget"
	"github.com/tessella/tessella-backend/internal/canonical"
	"github.com/tessella/tessella-backend/internal/extraction"
	"github.com/tessella/tessella-backend/internal/gate"
	"github.com/tessella/tessella-backend/internal/jobs/pipeline/document_ingest"
	jobruntime "github.com/tessella/tessella-backend/internal/jobs/runtime"
	"github.com/tessella/tessella-backend/internal/jobs/worker"
	"github.com/tessella/tessella-backend/internal/mining"
	"github.com/tessella/tessella-backend/internal/ontology"
	"github.com/tessella/tessella-backend/internal/pipeline"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/scoring"
	"github.com/tessella/tessella-backend/internal/scoring/centrality"
	"github.com/tessella/tessella-backend/internal/scoring/contextual"
	"github.com/tessella/tessella-backend/internal/services"
)

type Services struct {
	Catalog    ontology.Catalog
	Canonical  *canonical.Engine
	Budget     *budget.Router
	Miner      *mining.Miner
	Cascade    *scoring.Cascade
	Gatekeeper *gate.Gatekeeper
	Supervisor *pipeline.Supervisor
	Run        services.RunService

	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	catalog := ontology.NewCatalog(reposet.Ontology, log)
	engine := canonical.NewEngine(catalog, reposet.DecisionTrace, log)

	budgetRouter := budget.NewRouter(clients.Budget, log)
	fallback := extraction.NewFallbackExtractor(log)

	miner := mining.NewMiner(log)

	centralityScorer := centrality.NewScorer(log)
	roleScorer, err := contextual.NewScorer(clients.Embeddings, log)
	if err != nil {
		return Services{}, fmt.Errorf("init contextual scorer: %w", err)
	}
	cascade := scoring.NewCascade(centralityScorer, roleScorer, log)

	profile, err := gate.LoadProfile(cfg.GateProfile)
	if err != nil {
		return Services{}, fmt.Errorf("load gate profile: %w", err)
	}
	gk := gate.NewGatekeeper(engine, clients.Graph, reposet.ProtoConcept, profile, log)

	// No hosted extraction backend is wired yet; runs that route to an LLM
	// tier degrade to the deterministic extractor.
	sup := pipeline.NewSupervisor(budgetRouter, clients.Budget, reposet.BudgetReservation, nil, fallback, miner, cascade, gk, log)

	runService := services.NewRunService(reposet.DocumentRun, reposet.DecisionTrace, log)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(document_ingest.New(db, log, sup)); err != nil {
		return Services{}, fmt.Errorf("register document_ingest: %w", err)
	}
	jobWorker := worker.NewWorker(db, log, reposet.DocumentRun, registry)

	return Services{
		Catalog:     catalog,
		Canonical:   engine,
		Budget:      budgetRouter,
		Miner:       miner,
		Cascade:     cascade,
		Gatekeeper:  gk,
		Supervisor:  sup,
		Run:         runService,
		JobRegistry: registry,
		JobWorker:   jobWorker,
	}, nil
}
