package models

// EventKind is what a webhook means for the ledger.
type EventKind string

const (
	EventDeposit    EventKind = "deposit"
	EventWithdrawal EventKind = "withdrawal"
	EventIgnored    EventKind = "ignored"
)

// Outcome of a rail event. Pending events are acknowledged and deferred.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

type CurrencyMeta struct {
	CoinID   string `json:"coinId,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Chain    string `json:"chain,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Event is a classified webhook.
type Event struct {
	Kind       EventKind
	Rail       Rail
	Type       string // raw rail event type
	ExternalID string // recordId, paymentIntentId or payoutId
	OrderID    string // withdrawals only
	AccountRef string
	Amount     int64 // minor units; zero when the rail omitted it
	Currency   CurrencyMeta
	Outcome    Outcome
	Status     string // raw rail status
}

// MatchKey returns the idempotency key the ledger finalizes on. Withdrawals
// also carry the rail's record id so it can be stored on the matched entry.
func (e Event) MatchKey() MatchKey {
	if e.Kind == EventWithdrawal {
		return MatchKey{Rail: e.Rail, OrderID: e.OrderID, RecordID: e.ExternalID}
	}
	return MatchKey{Rail: e.Rail, RecordID: e.ExternalID}
}

// TerminalStatus maps a terminal outcome to the ledger status it finalizes into.
func (e Event) TerminalStatus() EntryStatus {
	if e.Outcome == OutcomeSuccess {
		return StatusCompleted
	}
	return StatusFailed
}
