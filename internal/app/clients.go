package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/tessella/tessella-backend/internal/budget"
	"github.com/tessella/tessella-backend/internal/clients/embeddings"
	"github.com/tessella/tessella-backend/internal/data/graph"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/platform/neo4jdb"
)

type Clients struct {
	Neo4j      *neo4jdb.Client
	Graph      graph.Store
	Budget     budget.Store
	Embeddings embeddings.Client
}

// wireClients degrades to in-memory backends when the external stores are
// not configured, so a local run needs only Postgres.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var c Clients

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j client: %w", err)
	}
	c.Neo4j = neo
	if neo != nil {
		store, err := graph.NewNeo4jStore(neo, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init graph store: %w", err)
		}
		c.Graph = store
	} else {
		log.Warn("NEO4J_URI unset, using in-memory graph store")
		c.Graph = graph.NewMemoryStore()
	}

	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		store, err := budget.NewRedisStore(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis budget store: %w", err)
		}
		c.Budget = store
	} else {
		log.Warn("REDIS_ADDR unset, using in-memory budget store")
		c.Budget = budget.NewMemoryStore(nil)
	}

	emb, err := embeddings.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init embeddings client: %w", err)
	}
	c.Embeddings = emb

	return c, nil
}
