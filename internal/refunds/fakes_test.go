package refunds

import (
	"context"
	"sort"
	"sync"

	"tourhub/internal/gateway"
	"tourhub/internal/notifications"
	"tourhub/internal/shared/apperrors"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]RefundRecord

	// beforeSave runs once before the next SaveIfCurrent, to simulate a
	// competing writer.
	beforeSave func(m *memoryRepository)
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: map[uuid.UUID]RefundRecord{}}
}

// clone copies a record. Services replace pointer fields rather than
// writing through them, so a shallow copy is enough.
func clone(r RefundRecord) RefundRecord {
	return r
}

func (m *memoryRepository) Create(_ context.Context, record *RefundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.IdempotencyKey == record.IdempotencyKey {
			return apperrors.ConcurrencyConflict("refund record already exists")
		}
	}
	m.records[record.ID] = clone(*record)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*RefundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, apperrors.NotFound("refund record", id)
	}
	cp := clone(r)
	return &cp, nil
}

func (m *memoryRepository) GetByIdempotencyKey(_ context.Context, key string) (*RefundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.IdempotencyKey == key {
			cp := clone(r)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) ListByCancellation(_ context.Context, id uuid.UUID) ([]RefundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RefundRecord
	for _, r := range m.records {
		if r.CancellationRequestID == id {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out, nil
}

func (m *memoryRepository) SaveIfCurrent(_ context.Context, record *RefundRecord, from Status, version int) (bool, error) {
	if hook := m.beforeSave; hook != nil {
		m.beforeSave = nil
		hook(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[record.ID]
	if !ok || stored.Status != from || stored.Version != version {
		return false, nil
	}
	m.records[record.ID] = clone(*record)
	return true, nil
}

// mutate edits a stored record directly.
func (m *memoryRepository) mutate(id uuid.UUID, fn func(r *RefundRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id]
	fn(&r)
	m.records[id] = r
}

type recordingDispatcher struct {
	mu       sync.Mutex
	requests []gateway.TransferRequest
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req gateway.TransferRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.requests = append(d.requests, req)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notifications.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification *notifications.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) templates() []notifications.TemplateID {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifications.TemplateID
	for _, s := range n.sent {
		out = append(out, s.TemplateID)
	}
	return out
}
