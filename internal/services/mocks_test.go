package services

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/elentis/reconcile/internal/assetrail"
	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/models"
)

type MockAssetRail struct {
	mock.Mock
}

func (m *MockAssetRail) DepositAddress(ctx context.Context, referenceID string) (*assetrail.DepositAddress, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assetrail.DepositAddress), args.Error(1)
}

func (m *MockAssetRail) Withdraw(ctx context.Context, orderID, address, memo string, amount int64) (*assetrail.WithdrawResult, error) {
	args := m.Called(ctx, orderID, address, memo, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assetrail.WithdrawResult), args.Error(1)
}

func (m *MockAssetRail) DepositRecord(ctx context.Context, recordID string) (*assetrail.DepositRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assetrail.DepositRecord), args.Error(1)
}

func (m *MockAssetRail) Decimals() int32 {
	return 2
}

type MockCardRail struct {
	mock.Mock
}

func (m *MockCardRail) EnsureCustomer(ctx context.Context, accountID, referenceID string) (string, error) {
	args := m.Called(ctx, accountID, referenceID)
	return args.String(0), args.Error(1)
}

func (m *MockCardRail) CreatePaymentIntent(ctx context.Context, customerID, accountID string, amount int64) (*cardrail.PaymentIntent, error) {
	args := m.Called(ctx, customerID, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cardrail.PaymentIntent), args.Error(1)
}

func (m *MockCardRail) Payout(ctx context.Context, orderID, accountID, destination string, amount int64) (string, error) {
	args := m.Called(ctx, orderID, accountID, destination, amount)
	return args.String(0), args.Error(1)
}

func (m *MockCardRail) Decimals() int32 {
	return 2
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LedgerEvent(nil), p.events...)
}

// memStore is a serializable in-memory ledger. Do holds the lock for the whole
// unit of work and restores a snapshot if fn fails, mirroring a database
// transaction.
type memStore struct {
	mu          sync.Mutex
	entries     []models.LedgerEntry
	balances    map[string]int64
	bindings    map[string]models.DepositBinding
	nextID      int64
	failApply   error
	bindingSave int
}

func newMemStore() *memStore {
	return &memStore{
		balances: map[string]int64{},
		bindings: map[string]models.DepositBinding{},
	}
}

func balanceKey(accountID string, rail models.Rail) string {
	return accountID + "/" + string(rail)
}

func (s *memStore) Do(ctx context.Context, fn func(Ledger, Balances) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]models.LedgerEntry(nil), s.entries...)
	balances := make(map[string]int64, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	nextID := s.nextID

	view := &memView{s: s}
	if err := fn(view, view); err != nil {
		s.entries, s.balances, s.nextID = entries, balances, nextID
		return err
	}
	return nil
}

// Ledger and Balances return views that take the lock per call.
func (s *memStore) Ledger() Ledger     { return &lockedView{s: s} }
func (s *memStore) Balances() Balances { return &lockedView{s: s} }

func (s *memStore) balance(accountID string, rail models.Rail) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balanceKey(accountID, rail)]
}

func (s *memStore) entryByOrder(orderID string) models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ExternalOrderID != nil && *e.ExternalOrderID == orderID {
			return e
		}
	}
	return models.LedgerEntry{}
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memStore) setFailApply(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failApply = err
}

// memView operates on memStore with the lock already held.
type memView struct {
	s *memStore
}

func (v *memView) Open(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	v.s.nextID++
	entry.ID = v.s.nextID
	v.s.entries = append(v.s.entries, *entry)
	return entry.ID, nil
}

func (v *memView) TryFinalize(_ context.Context, req models.FinalizeRequest) (models.FinalizeResult, error) {
	if req.Key.ByOrder() {
		for i, e := range v.s.entries {
			if e.Rail == req.Key.Rail && e.ExternalOrderID != nil && *e.ExternalOrderID == req.Key.OrderID {
				if e.Status.Terminal() {
					return models.FinalizeResult{}, nil
				}
				v.s.entries[i].Status = req.Status
				if v.s.entries[i].ExternalRecordID == nil {
					v.s.entries[i].ExternalRecordID = models.StringPtr(req.Key.RecordID)
				}
				return models.FinalizeResult{Applied: true, Entry: v.s.entries[i]}, nil
			}
		}
		return models.FinalizeResult{}, nil
	}

	for _, e := range v.s.entries {
		if e.Rail == req.Key.Rail && e.ExternalRecordID != nil && *e.ExternalRecordID == req.Key.RecordID {
			return models.FinalizeResult{}, nil
		}
	}
	e := *req.Entry
	e.Rail = req.Key.Rail
	e.ExternalRecordID = models.StringPtr(req.Key.RecordID)
	e.Status = req.Status
	e.Amount = req.Amount
	v.s.nextID++
	e.ID = v.s.nextID
	v.s.entries = append(v.s.entries, e)
	return models.FinalizeResult{Applied: true, Entry: e}, nil
}

func (v *memView) MarkProcessing(_ context.Context, rail models.Rail, orderID, recordID string) (bool, error) {
	for i, e := range v.s.entries {
		if e.Rail == rail && e.ExternalOrderID != nil && *e.ExternalOrderID == orderID && e.Status == models.StatusPending {
			v.s.entries[i].Status = models.StatusProcessing
			if e.ExternalRecordID == nil {
				v.s.entries[i].ExternalRecordID = models.StringPtr(recordID)
			}
			return true, nil
		}
	}
	return false, nil
}

func (v *memView) History(_ context.Context, accountID string) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range v.s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v *memView) ApplyDelta(_ context.Context, accountID string, rail models.Rail, delta int64) (int64, error) {
	if v.s.failApply != nil {
		return 0, v.s.failApply
	}
	key := balanceKey(accountID, rail)
	if v.s.balances[key]+delta < 0 {
		return 0, models.ErrInsufficientFunds
	}
	v.s.balances[key] += delta
	return v.s.balances[key], nil
}

func (v *memView) Balance(_ context.Context, accountID string, rail models.Rail) (int64, error) {
	return v.s.balances[balanceKey(accountID, rail)], nil
}

func (v *memView) Balances(_ context.Context, accountID string) (models.Balances, error) {
	return models.Balances{
		AccountID: accountID,
		Asset:     v.s.balances[balanceKey(accountID, models.RailAsset)],
		Card:      v.s.balances[balanceKey(accountID, models.RailCard)],
	}, nil
}

// lockedView is the non-transactional view used outside a unit of work.
type lockedView struct {
	s *memStore
}

func (l *lockedView) Open(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).Open(ctx, entry)
}

func (l *lockedView) TryFinalize(ctx context.Context, req models.FinalizeRequest) (models.FinalizeResult, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).TryFinalize(ctx, req)
}

func (l *lockedView) MarkProcessing(ctx context.Context, rail models.Rail, orderID, recordID string) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).MarkProcessing(ctx, rail, orderID, recordID)
}

func (l *lockedView) History(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).History(ctx, accountID)
}

func (l *lockedView) ApplyDelta(ctx context.Context, accountID string, rail models.Rail, delta int64) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).ApplyDelta(ctx, accountID, rail, delta)
}

func (l *lockedView) Balance(ctx context.Context, accountID string, rail models.Rail) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).Balance(ctx, accountID, rail)
}

func (l *lockedView) Balances(ctx context.Context, accountID string) (models.Balances, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&memView{s: l.s}).Balances(ctx, accountID)
}

func (s *memStore) Find(_ context.Context, accountID string, rail models.Rail) (*models.DepositBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[balanceKey(accountID, rail)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (s *memStore) Save(_ context.Context, b *models.DepositBinding) (*models.DepositBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := balanceKey(b.AccountID, b.Rail)
	if existing, ok := s.bindings[key]; ok {
		return &existing, nil
	}
	s.bindingSave++
	s.bindings[key] = *b
	stored := *b
	return &stored, nil
}
