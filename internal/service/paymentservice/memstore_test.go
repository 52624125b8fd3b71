package paymentservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/pg"
)

// memStore keeps committed rows and lets transactions stage writes on top of
// them. A guarded write checks the version of the row as the transaction sees
// it and takes a row lock; a row locked by another open transaction is a
// conflict. Commit publishes staged rows atomically, rollback drops them.
type memStore struct {
	mu       sync.Mutex
	accounts map[int]domain.Account
	items    map[string]domain.InventoryItem
	orders   map[int]domain.Order
	ledger   []domain.TransactionRecord
	locks    map[string]*memTx
}

type memTx struct {
	accounts map[int]domain.Account
	items    map[string]domain.InventoryItem
	orders   map[int]domain.Order
	ledger   []domain.TransactionRecord
	locked   []string
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int]domain.Account{},
		items:    map[string]domain.InventoryItem{},
		orders:   map[int]domain.Order{},
		locks:    map[string]*memTx{},
	}
}

func (s *memStore) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx)
	}
	tx := &memTx{
		accounts: map[int]domain.Account{},
		items:    map[string]domain.InventoryItem{},
		orders:   map[int]domain.Order{},
	}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		for id, a := range tx.accounts {
			s.accounts[id] = a
		}
		for sku, i := range tx.items {
			s.items[sku] = i
		}
		for id, o := range tx.orders {
			s.orders[id] = o
		}
		for _, rec := range tx.ledger {
			rec.ID = len(s.ledger) + 1
			s.ledger = append(s.ledger, rec)
		}
	}
	for _, key := range tx.locked {
		delete(s.locks, key)
	}
	return err
}

func txOf(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

// lock must be called with s.mu held.
func (s *memStore) lock(tx *memTx, key string) bool {
	if owner, ok := s.locks[key]; ok {
		return owner == tx
	}
	if tx != nil {
		s.locks[key] = tx
		tx.locked = append(tx.locked, key)
	}
	return true
}

func (s *memStore) account(tx *memTx, id int) (domain.Account, bool) {
	if tx != nil {
		if a, ok := tx.accounts[id]; ok {
			return a, true
		}
	}
	a, ok := s.accounts[id]
	return a, ok
}

func (s *memStore) item(tx *memTx, sku string) (domain.InventoryItem, bool) {
	if tx != nil {
		if i, ok := tx.items[sku]; ok {
			return i, true
		}
	}
	i, ok := s.items[sku]
	return i, ok
}

func (s *memStore) order(tx *memTx, id int) (domain.Order, bool) {
	if tx != nil {
		if o, ok := tx.orders[id]; ok {
			return o, true
		}
	}
	o, ok := s.orders[id]
	return o, ok
}

type memAccounts struct{ *memStore }

func (r memAccounts) FindByID(ctx context.Context, id int) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.account(txOf(ctx), id)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memAccounts) AdjustBalance(ctx context.Context, id int, delta decimal.Decimal, expectedVersion int) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := txOf(ctx)
	a, ok := r.account(tx, id)
	switch {
	case !ok:
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	case a.Version != expectedVersion || !r.lock(tx, fmt.Sprintf("account:%d", id)):
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrConcurrencyConflict)
	case a.Balance.Add(delta).IsNegative():
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrInsufficientBalance)
	}
	a.Balance = a.Balance.Add(delta)
	a.Version++
	if tx == nil {
		r.accounts[id] = a
	} else {
		tx.accounts[id] = a
	}
	return &a, nil
}

type memInventory struct{ *memStore }

func (r memInventory) FindBySKU(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.item(txOf(ctx), sku)
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (r memInventory) AdjustQuantity(ctx context.Context, sku string, delta int, expectedVersion int) (*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := txOf(ctx)
	i, ok := r.item(tx, sku)
	switch {
	case !ok:
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrNotFound)
	case i.Version != expectedVersion || !r.lock(tx, "sku:"+sku):
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrConcurrencyConflict)
	case i.Quantity+delta < 0:
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrInsufficientStock)
	}
	i.Quantity += delta
	i.Version++
	if tx == nil {
		r.items[sku] = i
	} else {
		tx.items[sku] = i
	}
	return &i, nil
}

type memOrders struct{ *memStore }

func (r memOrders) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.order(txOf(ctx), id)
	if !ok {
		return nil, nil
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &o, nil
}

func (r memOrders) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := txOf(ctx)
	o, ok := r.order(tx, id)
	if !ok || o.Status != from || !r.lock(tx, fmt.Sprintf("order:%d", id)) {
		return fmt.Errorf("order %d: %w", id, domain.ErrConcurrencyConflict)
	}
	o.Status = to
	o.UpdatedAt = at
	if tx == nil {
		r.orders[id] = o
	} else {
		tx.orders[id] = o
	}
	return nil
}

type memLedger struct{ *memStore }

func (r memLedger) Append(ctx context.Context, rec *domain.TransactionRecord) error {
	tx := txOf(ctx)
	if tx == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		rec.ID = len(r.ledger) + 1
		r.ledger = append(r.ledger, *rec)
		return nil
	}
	tx.ledger = append(tx.ledger, *rec)
	return nil
}

func (s *memStore) newService(attempts int) *Service {
	return New(s, memAccounts{s}, memInventory{s}, memOrders{s}, memLedger{s},
		policyFor(attempts))
}

func (s *memStore) snapshotAccount(id int) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memStore) snapshotItem(sku string) domain.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[sku]
}

func (s *memStore) snapshotOrder(id int) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) ledgerFor(orderID int) []domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TransactionRecord
	for _, rec := range s.ledger {
		if id, ok := rec.RelatedOrderID.Get(); ok && id == orderID {
			out = append(out, rec)
		}
	}
	return out
}
