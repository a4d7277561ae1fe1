// Package store provides the in-memory ledger.Store implementation.
package store

import (
	"context"
	"sync"

	"github.com/artisan/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (tests, memory-only deployments)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[ledger.ItemID][]ledger.Transaction
	ids          map[ledger.TransactionID]bool
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[ledger.ItemID][]ledger.Transaction),
		ids:          make(map[ledger.TransactionID]bool),
	}
}

var _ ledger.Store = (*Memory)(nil)

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[tx.ID] {
		return ledger.ErrDuplicateTransaction
	}
	m.appendLocked(tx)
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all ids first so a duplicate mid-batch cannot leave a partial write.
	for _, tx := range txs {
		if m.ids[tx.ID] {
			return ledger.ErrDuplicateTransaction
		}
	}
	for _, tx := range txs {
		m.appendLocked(tx)
	}
	return nil
}

// appendLocked adds tx at the tail of its item's chain. Chains are kept in
// append order, never re-sorted: the business Timestamp may be backdated
// (retroactive entry) and must not move a transaction inside the chain.
func (m *Memory) appendLocked(tx ledger.Transaction) {
	m.transactions[tx.ItemID] = append(m.transactions[tx.ItemID], tx)
	m.ids[tx.ID] = true
}

func (m *Memory) Load(_ context.Context, itemID ledger.ItemID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Transaction, len(m.transactions[itemID]))
	copy(result, m.transactions[itemID])
	return result, nil
}

func (m *Memory) Last(_ context.Context, itemID ledger.ItemID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txs := m.transactions[itemID]
	if len(txs) == 0 {
		return nil, nil
	}
	last := txs[len(txs)-1]
	return &last, nil
}
