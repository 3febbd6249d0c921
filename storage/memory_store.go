package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retail-pipeline/models"
)

var (
	_ Store                = (*MemoryStore)(nil)
	_ TransactionLogWriter = (*MemoryStore)(nil)
	_ SummaryHistory       = (*MemoryStore)(nil)
)

// MemoryStore is an in-process Store with the same keying rules as the
// PostgreSQL tables. Used for dry runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[string]models.ProductPerformance
	customers map[string]models.CustomerAnalysis
	summaries []models.BatchSummary
	runKeys   map[string]struct{}
	txns      []models.Transaction
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]models.ProductPerformance),
		customers: make(map[string]models.CustomerAnalysis),
		runKeys:   make(map[string]struct{}),
		now:       time.Now,
	}
}

// Apply replaces product and customer rows by natural key and appends the
// summary unless its run key was already stored. Ops are copied by value and
// a summary is stamped with the store's clock, like the created_at default.
func (m *MemoryStore) Apply(ctx context.Context, ops []models.WriteOp) (ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res ApplyResult
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: memory: op %d: %v", ErrStoreWrite, i, err)
		}
		switch op.Kind {
		case models.OpUpsertProduct:
			m.products[op.Product.StockCode] = *op.Product
			res.Upserts++
		case models.OpUpsertCustomer:
			m.customers[op.Customer.CustomerID] = *op.Customer
			res.Upserts++
		case models.OpInsertSummary:
			if _, dup := m.runKeys[op.Summary.RunKey]; dup {
				res.DuplicateRunKeys = append(res.DuplicateRunKeys, op.Summary.RunKey)
				continue
			}
			s := *op.Summary
			s.CreatedAt = m.now().UTC()
			m.runKeys[s.RunKey] = struct{}{}
			m.summaries = append(m.summaries, s)
			res.SummariesInserted++
		default:
			return res, fmt.Errorf("%w: memory: op %d: unknown kind %d", ErrStoreWrite, i, op.Kind)
		}
	}
	return res, nil
}

// WriteTransactions replaces the stored canonical log.
func (m *MemoryStore) WriteTransactions(_ context.Context, txns []*models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txns = make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		m.txns = append(m.txns, *t)
	}
	return nil
}

// Product returns the stored row for stockCode.
func (m *MemoryStore) Product(stockCode string) (models.ProductPerformance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[stockCode]
	return p, ok
}

// Customer returns the stored row for customerID.
func (m *MemoryStore) Customer(customerID string) (models.CustomerAnalysis, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[customerID]
	return c, ok
}

// Summaries returns the summary history in insertion order.
func (m *MemoryStore) Summaries() []models.BatchSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.BatchSummary(nil), m.summaries...)
}

// FetchSummaries returns up to limit summaries, newest first.
func (m *MemoryStore) FetchSummaries(_ context.Context, limit int) ([]*models.BatchSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.BatchSummary, 0, len(m.summaries))
	for i := len(m.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		s := m.summaries[i]
		out = append(out, &s)
	}
	return out, nil
}

// Counts returns the number of product, customer and transaction rows.
func (m *MemoryStore) Counts() (products, customers, txns int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), len(m.customers), len(m.txns)
}

func (m *MemoryStore) Close() error {
	return nil
}
