package models

import (
	"time"
)

// Rail identifies an external payment network.
type Rail string

const (
	RailAsset Rail = "asset"
	RailCard  Rail = "card"
)

// Valid reports whether r is a rail the ledger knows about.
func (r Rail) Valid() bool {
	return r == RailAsset || r == RailCard
}

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// EntryStatus is the lifecycle state of a ledger entry.
// completed and failed are terminal.
type EntryStatus string

const (
	StatusPending    EntryStatus = "pending"
	StatusProcessing EntryStatus = "processing"
	StatusCompleted  EntryStatus = "completed"
	StatusFailed     EntryStatus = "failed"
)

func (s EntryStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EntryKind records what produced the entry.
type EntryKind string

const (
	KindDeposit    EntryKind = "deposit"
	KindWithdrawal EntryKind = "withdrawal"
	KindInternal   EntryKind = "internal"
)

type LedgerEntry struct {
	ID               int64       `json:"id" db:"id"`
	AccountID        string      `json:"account_id" db:"account_id"`
	Rail             Rail        `json:"rail" db:"rail"`
	Kind             EntryKind   `json:"kind" db:"kind"`
	Direction        Direction   `json:"direction" db:"direction"`
	ExternalRecordID *string     `json:"external_record_id,omitempty" db:"external_record_id"`
	ExternalOrderID  *string     `json:"external_order_id,omitempty" db:"external_order_id"`
	Destination      string      `json:"destination,omitempty" db:"destination"`
	Amount           int64       `json:"amount" db:"amount"` // minor units
	Fee              int64       `json:"fee" db:"fee"`       // minor units, debits only
	Currency         string      `json:"currency" db:"currency"`
	Status           EntryStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// Total is the full balance effect of a debit entry.
func (e *LedgerEntry) Total() int64 {
	return e.Amount + e.Fee
}

// MatchKey selects the entry a terminal transition applies to. Deposits and
// internal events match on the external record id, withdrawals on the order id
// generated when the withdrawal was requested. A withdrawal key may still carry
// the rail record id; it is recorded on the entry but never matched on.
type MatchKey struct {
	Rail     Rail
	RecordID string
	OrderID  string
}

func (k MatchKey) ByOrder() bool {
	return k.OrderID != ""
}

func (k MatchKey) String() string {
	if k.ByOrder() {
		return string(k.Rail) + ":order:" + k.OrderID
	}
	return string(k.Rail) + ":record:" + k.RecordID
}

// FinalizeRequest asks the ledger to move the entry behind Key into Status.
// Entry is the template inserted when the key matches a record id that has
// never been seen (deposits and internal events have no prior entry).
type FinalizeRequest struct {
	Key    MatchKey
	Status EntryStatus
	Amount int64
	Entry  *LedgerEntry
}

type FinalizeResult struct {
	Applied bool
	Entry   LedgerEntry
}

// Balances holds the two independent per-account scalars, in minor units.
type Balances struct {
	AccountID string `json:"accountId"`
	Asset     int64  `json:"asset"`
	Card      int64  `json:"card"`
}

// HistoryItem is the caller-facing projection of a ledger entry.
type HistoryItem struct {
	Amount    int64       `json:"amount"`
	Rail      Rail        `json:"rail"`
	Direction Direction   `json:"direction"`
	Status    EntryStatus `json:"status"`
	Fee       int64       `json:"fee"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (e *LedgerEntry) HistoryItem() HistoryItem {
	return HistoryItem{
		Amount:    e.Amount,
		Rail:      e.Rail,
		Direction: e.Direction,
		Status:    e.Status,
		Fee:       e.Fee,
		CreatedAt: e.CreatedAt,
	}
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
