// Package store provides in-memory accounting.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/lending-engine/accounting"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/projections)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	accounts    map[string]accounting.Account
	entries     map[string][]accounting.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[string]accounting.Account),
		entries:     make(map[string][]accounting.Entry),
		idempotency: make(map[string]bool),
	}
}

var _ accounting.Store = (*Memory)(nil)

func (m *Memory) SaveAccount(_ context.Context, account accounting.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Identifier] = account
	return nil
}

func (m *Memory) GetAccount(_ context.Context, identifier string) (accounting.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[identifier]
	if !ok {
		return accounting.Account{}, &accounting.AccountNotFoundError{AccountID: identifier}
	}
	return account, nil
}

// AppendBatch adds entries atomically.
func (m *Memory) AppendBatch(_ context.Context, idempotencyKey string, entries []accounting.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idempotencyKey != "" && m.idempotency[idempotencyKey] {
		return accounting.ErrDuplicateIdempotencyKey
	}
	for _, e := range entries {
		if _, ok := m.accounts[e.AccountID]; !ok {
			return &accounting.AccountNotFoundError{AccountID: e.AccountID}
		}
	}

	for _, e := range entries {
		m.insertLocked(e)
	}
	if idempotencyKey != "" {
		m.idempotency[idempotencyKey] = true
	}
	return nil
}

func (m *Memory) insertLocked(e accounting.Entry) {
	list := m.entries[e.AccountID]

	// Keep entries ordered by transaction date, stable for equal dates
	i := sort.Search(len(list), func(i int) bool {
		return list[i].TransactionDate.After(e.TransactionDate)
	})
	list = append(list, accounting.Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	m.entries[e.AccountID] = list
}

func (m *Memory) LoadEntries(_ context.Context, accountID string, since time.Time) ([]accounting.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []accounting.Entry
	for _, e := range m.entries[accountID] {
		if !e.TransactionDate.Before(since) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
