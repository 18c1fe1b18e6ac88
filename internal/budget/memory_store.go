package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
)

type memReservation struct {
	counter string
	cost    int64
}

// MemoryStore mirrors the redis store's semantics in-process, for tests and
// single-node development.
type MemoryStore struct {
	mu           sync.Mutex
	quotas       map[string]int64
	counters     map[string]int64
	reservations map[uuid.UUID]memReservation
}

func NewMemoryStore(quotas map[string]int64) *MemoryStore {
	if quotas == nil {
		quotas = map[string]int64{
			types.TierSmall:  500,
			types.TierBig:    100,
			types.TierVision: 25,
		}
	}
	return &MemoryStore{
		quotas:       quotas,
		counters:     map[string]int64{},
		reservations: map[uuid.UUID]memReservation{},
	}
}

func (s *MemoryStore) Reserve(ctx context.Context, tenantID uuid.UUID, tier string, reservationID uuid.UUID) (bool, error) {
	if tenantID == uuid.Nil || reservationID == uuid.Nil {
		return false, fmt.Errorf("tenant and reservation ids required")
	}
	if tier == types.TierNoLLM {
		return true, nil
	}
	quota, ok := s.quotas[tier]
	if !ok {
		return false, fmt.Errorf("unknown tier %q", tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey(tenantID, tier)
	if _, exists := s.counters[key]; !exists {
		s.counters[key] = quota
	}
	if s.counters[key] < 1 {
		return false, nil
	}
	s.counters[key]--
	s.reservations[reservationID] = memReservation{counter: key, cost: 1}
	return true, nil
}

func (s *MemoryStore) Refund(ctx context.Context, reservationID uuid.UUID) error {
	if reservationID == uuid.Nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resv, ok := s.reservations[reservationID]
	if !ok {
		return nil
	}
	delete(s.reservations, reservationID)
	s.counters[resv.counter] += resv.cost
	return nil
}

func (s *MemoryStore) Remaining(ctx context.Context, tenantID uuid.UUID, tier string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey(tenantID, tier)
	if v, exists := s.counters[key]; exists {
		return v, nil
	}
	if q, ok := s.quotas[tier]; ok {
		return q, nil
	}
	return 0, nil
}
