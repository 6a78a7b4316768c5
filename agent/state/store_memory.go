package state

import (
	"context"
	"strings"
	"sync"
)

type memoryRecord struct {
	doc  []byte
	mark *ReplyMark
}

// MemoryDocumentStore keeps documents in process memory. CompareAndSet runs
// entirely under one lock, so it is atomic for every caller in the process.
type MemoryDocumentStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

var _ DocumentStore = (*MemoryDocumentStore)(nil)

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{records: make(map[string]*memoryRecord)}
}

func (m *MemoryDocumentStore) Get(_ context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidConversation
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.doc == nil {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), rec.doc...), nil
}

func (m *MemoryDocumentStore) Set(_ context.Context, id string, doc []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidConversation
	}
	if doc == nil {
		return ErrNilDocument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(id)
	rec.doc = append([]byte(nil), doc...)
	return nil
}

func (m *MemoryDocumentStore) CompareAndSet(_ context.Context, id string, cond ReplyCondition, mark ReplyMark) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, ErrInvalidConversation
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(id)
	if !cond.Allows(rec.mark) {
		return 0, nil
	}
	stored := mark
	rec.mark = &stored
	return 1, nil
}

func (m *MemoryDocumentStore) recordLocked(id string) *memoryRecord {
	rec, ok := m.records[id]
	if !ok {
		rec = &memoryRecord{}
		m.records[id] = rec
	}
	return rec
}
