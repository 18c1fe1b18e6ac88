package ontology

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// ErrUnavailable reports that the catalog backend cannot be reached. The
// canonicalization cascade treats it as "fall through to the next
// strategy", not as a fatal error.
var ErrUnavailable = errors.New("ontology catalog unavailable")

// Match is a successful alias resolution.
type Match struct {
	EntityID      uuid.UUID
	CanonicalName string
	Type          string
}

// Catalog resolves normalized aliases against the curated ontology, with a
// small read-through cache. The catalog is read-mostly here; writes happen
// through the external curation process plus LearnAlias for auto-learned
// entries.
type Catalog interface {
	LookupAlias(ctx context.Context, normalizedName string) (*Match, error)
	LearnAlias(ctx context.Context, entityID uuid.UUID, alias string, confidence float64) error
	Entities(ctx context.Context) ([]*types.OntologyEntity, error)
}

type catalog struct {
	repo repos.OntologyRepo
	log  *logger.Logger

	mu    sync.RWMutex
	cache map[string]*Match
	// negative cache entries avoid re-querying hot unknown names
	misses   map[string]bool
	maxCache int
}

func NewCatalog(repo repos.OntologyRepo, baseLog *logger.Logger) Catalog {
	return &catalog{
		repo:     repo,
		log:      baseLog.With("component", "OntologyCatalog"),
		cache:    map[string]*Match{},
		misses:   map[string]bool{},
		maxCache: envutil.Int("ONTOLOGY_CACHE_MAX_ENTRIES", 10000),
	}
}

func (c *catalog) LookupAlias(ctx context.Context, normalizedName string) (*Match, error) {
	key := normalization.Key(normalizedName)
	if key == "" {
		return nil, nil
	}

	c.mu.RLock()
	if m, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	if c.misses[key] {
		c.mu.RUnlock()
		return nil, nil
	}
	c.mu.RUnlock()

	alias, err := c.repo.GetAliasByKey(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	if alias == nil {
		c.remember(key, nil)
		return nil, nil
	}

	entity, err := c.repo.GetEntityByID(dbctx.Context{Ctx: ctx}, alias.EntityID)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	if entity == nil {
		c.log.Warn("alias points at missing entity", "alias", key, "entity_id", alias.EntityID)
		c.remember(key, nil)
		return nil, nil
	}

	m := &Match{
		EntityID:      entity.ID,
		CanonicalName: entity.CanonicalName,
		Type:          entity.Type,
	}
	c.remember(key, m)
	return m, nil
}

func (c *catalog) LearnAlias(ctx context.Context, entityID uuid.UUID, alias string, confidence float64) error {
	key := normalization.Key(alias)
	if key == "" || entityID == uuid.Nil {
		return nil
	}
	err := c.repo.UpsertAlias(dbctx.Context{Ctx: ctx}, &types.OntologyAlias{
		EntityID:   entityID,
		Alias:      key,
		Learned:    true,
		Confidence: confidence,
	})
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	c.mu.Lock()
	delete(c.misses, key)
	c.mu.Unlock()
	return nil
}

func (c *catalog) Entities(ctx context.Context) ([]*types.OntologyEntity, error) {
	rows, err := c.repo.ListEntities(dbctx.Context{Ctx: ctx}, 0)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return rows, nil
}

func (c *catalog) remember(key string, m *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache)+len(c.misses) >= c.maxCache {
		// reset when full, no eviction policy
		c.cache = map[string]*Match{}
		c.misses = map[string]bool{}
	}
	if m == nil {
		c.misses[key] = true
		return
	}
	c.cache[key] = m
}
