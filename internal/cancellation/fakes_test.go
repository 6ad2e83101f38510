package cancellation

import (
	"context"
	"sort"
	"sync"
	"time"

	"tourhub/internal/bookings"
	"tourhub/internal/notifications"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/apperrors"
	"tourhub/pkg/lock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]CancellationRequest

	// beforeSave runs once before the next SaveIfCurrent.
	beforeSave func(m *memoryRepository)
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{requests: map[uuid.UUID]CancellationRequest{}}
}

func (m *memoryRepository) Create(_ context.Context, request *CancellationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.BookingID == request.BookingID && r.Status == StatusPending {
			return apperrors.ConcurrencyConflict("an active cancellation request already exists for booking %s", request.BookingID)
		}
	}
	m.requests[request.ID] = *request
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*CancellationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperrors.NotFound(entityName, id)
	}
	return &r, nil
}

func (m *memoryRepository) FindOpenByBooking(_ context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.BookingID == bookingID && (r.Status == StatusPending || r.Status == StatusApproved) {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]CancellationRequest, error) {
	return m.filter(func(r CancellationRequest) bool { return r.CustomerID == customerID }), nil
}

func (m *memoryRepository) ListByStatus(_ context.Context, status Status) ([]CancellationRequest, error) {
	return m.filter(func(r CancellationRequest) bool { return r.Status == status }), nil
}

func (m *memoryRepository) filter(keep func(CancellationRequest) bool) []CancellationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CancellationRequest
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

func (m *memoryRepository) SaveIfCurrent(_ context.Context, request *CancellationRequest, from Status, version int) (bool, error) {
	if hook := m.beforeSave; hook != nil {
		m.beforeSave = nil
		hook(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[request.ID]
	if !ok || stored.Status != from || stored.Version != version {
		return false, nil
	}
	m.requests[request.ID] = *request
	return true, nil
}

func (m *memoryRepository) mutate(id uuid.UUID, fn func(r *CancellationRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.requests[id]
	fn(&r)
	m.requests[id] = r
}

type bookingStore map[uuid.UUID]bookings.Booking

func (s bookingStore) GetBooking(_ context.Context, id uuid.UUID) (*bookings.Booking, error) {
	b, ok := s[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	return &b, nil
}

// policyStore resolves every booking to the tenant default when one is set.
type policyStore struct {
	defaults map[string]*policies.CancellationPolicy
}

func (p *policyStore) ResolveForBooking(_ context.Context, tenantID string, _ *uuid.UUID) (*policies.CancellationPolicy, error) {
	if policy, ok := p.defaults[tenantID]; ok {
		return policy, nil
	}
	return nil, apperrors.PolicyResolution("no default cancellation policy configured")
}

// standardPolicy is 72h/100%/0, 48h/75%/50, 24h/50%/100, 0h/0%/0.
func standardPolicy() *policies.CancellationPolicy {
	rule := func(pos, hours int, pct, fee int64) policies.CancellationRule {
		return policies.CancellationRule{
			ID:               uuid.New(),
			Position:         pos,
			HoursBeforeStart: hours,
			RefundPercentage: decimal.NewFromInt(pct),
			ProcessingFee:    decimal.NewFromInt(fee),
		}
	}
	return &policies.CancellationPolicy{
		ID:        uuid.New(),
		TenantID:  "default",
		Name:      "standard",
		IsDefault: true,
		Version:   1,
		Rules: []policies.CancellationRule{
			rule(0, 72, 100, 0),
			rule(1, 48, 75, 50),
			rule(2, 24, 50, 100),
			rule(3, 0, 0, 0),
		},
	}
}

type recordingRefunds struct {
	mu     sync.Mutex
	inputs []refunds.CreateRefundInput
	byReq  map[uuid.UUID]*refunds.RefundRecord
	err    error
}

func (r *recordingRefunds) CreateForCancellation(_ context.Context, in refunds.CreateRefundInput) (*refunds.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.byReq == nil {
		r.byReq = map[uuid.UUID]*refunds.RefundRecord{}
	}
	if existing, ok := r.byReq[in.CancellationRequestID]; ok {
		return existing, nil
	}
	r.inputs = append(r.inputs, in)
	method := in.Method
	if method == "" {
		method = refunds.MethodOriginalPayment
	}
	record := &refunds.RefundRecord{
		ID:                    uuid.New(),
		Reference:             "RF-TEST",
		CancellationRequestID: in.CancellationRequestID,
		BookingID:             in.BookingID,
		CustomerID:            in.CustomerID,
		Kind:                  refunds.KindOriginal,
		Amount:                in.Amount,
		Method:                method,
		Status:                refunds.StatusPending,
		Version:               1,
	}
	r.byReq[in.CancellationRequestID] = record
	return record, nil
}

type inlineTransactor struct{}

func (inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	err      error
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (lock.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, lock.ErrNotAcquired
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
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
