package disputes

import (
	"context"
	"sync"

	"tourhub/internal/cancellation"
	"tourhub/internal/notifications"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/apperrors"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu             sync.Mutex
	disputes       map[uuid.UUID]DisputeCase
	evidence       []Evidence
	communications []Communication

	beforeSave func(m *memoryRepository)
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{disputes: map[uuid.UUID]DisputeCase{}}
}

func (m *memoryRepository) Create(_ context.Context, dispute *DisputeCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *dispute
	stored.Evidence, stored.Communications = nil, nil
	m.disputes[dispute.ID] = stored
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*DisputeCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return nil, apperrors.NotFound(entityName, id)
	}
	for _, e := range m.evidence {
		if e.DisputeID == id {
			d.Evidence = append(d.Evidence, e)
		}
	}
	for _, c := range m.communications {
		if c.DisputeID == id {
			d.Communications = append(d.Communications, c)
		}
	}
	return &d, nil
}

func (m *memoryRepository) GetForUpdate(_ context.Context, id uuid.UUID) (*DisputeCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return nil, apperrors.NotFound(entityName, id)
	}
	return &d, nil
}

func (m *memoryRepository) List(_ context.Context, filter ListFilter) ([]DisputeCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DisputeCase
	for _, d := range m.disputes {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.ParticipantID != nil && !d.IsParticipant(*filter.ParticipantID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryRepository) SaveIfCurrent(_ context.Context, dispute *DisputeCase, from Status, version int) (bool, error) {
	if hook := m.beforeSave; hook != nil {
		m.beforeSave = nil
		hook(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.disputes[dispute.ID]
	if !ok || stored.Status != from || stored.Version != version {
		return false, nil
	}
	next := *dispute
	next.Evidence, next.Communications = nil, nil
	m.disputes[dispute.ID] = next
	return true, nil
}

func (m *memoryRepository) AppendEvidence(_ context.Context, evidence *Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	evidence.Sequence = 1
	for _, e := range m.evidence {
		if e.DisputeID == evidence.DisputeID {
			evidence.Sequence++
		}
	}
	m.evidence = append(m.evidence, *evidence)
	return nil
}

func (m *memoryRepository) AppendCommunication(_ context.Context, communication *Communication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	communication.Sequence = 1
	for _, c := range m.communications {
		if c.DisputeID == communication.DisputeID {
			communication.Sequence++
		}
	}
	m.communications = append(m.communications, *communication)
	return nil
}

func (m *memoryRepository) mutate(id uuid.UUID, fn func(d *DisputeCase)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.disputes[id]
	fn(&d)
	m.disputes[id] = d
}

type cancellationStore map[uuid.UUID]cancellation.CancellationRequest

func (s cancellationStore) GetCancellationRequest(_ context.Context, id uuid.UUID) (*cancellation.CancellationRequest, error) {
	r, ok := s[id]
	if !ok {
		return nil, apperrors.NotFound("cancellation request", id)
	}
	return &r, nil
}

type memoryLedger struct {
	mu           sync.Mutex
	records      map[uuid.UUID]refunds.RefundRecord
	compensation []refunds.CompensationInput
	err          error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: map[uuid.UUID]refunds.RefundRecord{}}
}

func (l *memoryLedger) GetRefundRecord(_ context.Context, id uuid.UUID) (*refunds.RefundRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return nil, apperrors.NotFound("refund record", id)
	}
	return &r, nil
}

func (l *memoryLedger) CreateCompensating(_ context.Context, in refunds.CompensationInput) (*refunds.RefundRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	for _, r := range l.records {
		if r.DisputeID != nil && *r.DisputeID == in.DisputeID {
			return &r, nil
		}
	}
	l.compensation = append(l.compensation, in)
	disputeID := in.DisputeID
	record := refunds.RefundRecord{
		ID:                    uuid.New(),
		CancellationRequestID: in.CancellationRequestID,
		BookingID:             in.BookingID,
		CustomerID:            in.CustomerID,
		DisputeID:             &disputeID,
		Kind:                  refunds.KindCompensating,
		Amount:                in.Amount,
		Method:                in.Method,
		Status:                refunds.StatusPending,
		Version:               1,
	}
	l.records[record.ID] = record
	return &record, nil
}

type inlineTransactor struct{}

func (inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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
