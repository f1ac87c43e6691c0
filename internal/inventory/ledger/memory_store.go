package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"
)

// MemoryStore keeps lots and sessions in process. Transactions stage their
// writes and validate row versions at commit, which mirrors the version
// compare-and-swap the Postgres store does per statement.
type MemoryStore struct {
	mu            sync.Mutex
	lots          map[int]models.InventoryLot
	sessions      map[int]models.VaccinationSession
	nextLotID     int
	nextSessionID int

	// beforeCommit runs after fn returned and before the commit takes the lock.
	beforeCommit func()
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lots:     make(map[int]models.InventoryLot),
		sessions: make(map[int]models.VaccinationSession),
	}
}

func (s *MemoryStore) AddLot(lot models.InventoryLot) models.InventoryLot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLotID++
	now := time.Now()
	lot.ID = s.nextLotID
	lot.Version = 1
	lot.CreatedAt = now
	lot.UpdatedAt = now
	s.lots[lot.ID] = lot

	return lot
}

func (s *MemoryStore) Lot(id int) (models.InventoryLot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots[id]
	return lot, ok
}

func (s *MemoryStore) AddSession(session models.VaccinationSession) models.VaccinationSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSessionID++
	session.ID = s.nextSessionID
	if session.Status == "" {
		session.Status = metadata.StatusScheduled
	}
	s.sessions[session.ID] = session

	return session
}

func (s *MemoryStore) SetSessionStatus(id int, status metadata.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("vaccination session %d not found", id)
	}
	session.Status = status
	s.sessions[id] = session

	return nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{store: s, writes: make(map[int]*stagedWrite)}
	if err := fn(tx); err != nil {
		return err
	}

	if s.beforeCommit != nil {
		s.beforeCommit()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for lotID, write := range tx.writes {
		current, ok := s.lots[lotID]
		if !ok || current.Version != write.expectedVersion {
			return &custom_error.WriteConflictError{LotID: lotID}
		}
	}

	now := time.Now()
	for lotID, write := range tx.writes {
		lot := s.lots[lotID]
		if write.onHand != nil {
			lot.QuantityOnHand = *write.onHand
		}
		if write.reserved != nil {
			lot.QuantityReserved = *write.reserved
		}
		lot.Version++
		lot.UpdatedAt = now
		s.lots[lotID] = lot
	}

	return nil
}

type stagedWrite struct {
	expectedVersion int
	onHand          *int
	reserved        *int
}

type memoryTx struct {
	store  *MemoryStore
	writes map[int]*stagedWrite
}

func (t *memoryTx) LotsForKey(_ context.Context, key models.LotKey) ([]models.InventoryLot, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var lots []models.InventoryLot
	for _, lot := range t.store.lots {
		if lot.Key() == key {
			lots = append(lots, lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })

	return lots, nil
}

func (t *memoryTx) SetQuantityOnHand(_ context.Context, lot models.InventoryLot, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity_on_hand of lot %d would become negative (%d)", lot.ID, quantity)
	}
	write, err := t.stage(lot)
	if err != nil {
		return err
	}
	write.onHand = &quantity
	return nil
}

func (t *memoryTx) SetQuantityReserved(_ context.Context, lot models.InventoryLot, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity_reserved of lot %d would become negative (%d)", lot.ID, quantity)
	}
	write, err := t.stage(lot)
	if err != nil {
		return err
	}
	write.reserved = &quantity
	return nil
}

func (t *memoryTx) OpenSessionDemand(_ context.Context, lotIDs []int) (map[int]int, error) {
	wanted := make(map[int]struct{}, len(lotIDs))
	for _, id := range lotIDs {
		wanted[id] = struct{}{}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	demand := make(map[int]int)
	for _, session := range t.store.sessions {
		if _, ok := wanted[session.LotID]; !ok || !session.IsOpen() {
			continue
		}
		demand[session.LotID] += session.Target
	}

	return demand, nil
}

func (t *memoryTx) stage(lot models.InventoryLot) (*stagedWrite, error) {
	write, ok := t.writes[lot.ID]
	if !ok {
		write = &stagedWrite{expectedVersion: lot.Version}
		t.writes[lot.ID] = write
		return write, nil
	}
	if write.expectedVersion != lot.Version {
		return nil, &custom_error.WriteConflictError{LotID: lot.ID}
	}
	return write, nil
}
