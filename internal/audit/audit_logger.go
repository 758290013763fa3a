package audit

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	EntryRef  string    `json:"entry_ref"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// Logger writes one structured line per ledger mutation, reversal and
// rejected webhook.
type Logger struct {
	log *logrus.Entry
}

func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logger{log: base.WithField("component", "audit")}
}

func (a *Logger) LogMutation(entryRef, accountID string, delta int64, status string) {
	a.emit(Event{
		Timestamp: time.Now().UTC(),
		EventType: "BALANCE_DELTA",
		EntryRef:  entryRef,
		AccountID: accountID,
		Amount:    delta,
		Status:    status,
	})
}

func (a *Logger) LogReversal(entryRef, accountID string, amount int64, reason string) {
	a.emit(Event{
		Timestamp: time.Now().UTC(),
		EventType: "REVERSAL",
		EntryRef:  entryRef,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]string{"reason": reason},
	})
}

func (a *Logger) LogError(entryRef, accountID string, err error) {
	a.emit(Event{
		Timestamp: time.Now().UTC(),
		EventType: "ERROR",
		EntryRef:  entryRef,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) LogOperation(entryRef, accountID, operation, details string) {
	a.emit(Event{
		Timestamp: time.Now().UTC(),
		EventType: operation,
		EntryRef:  entryRef,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	})
}

func (a *Logger) emit(event Event) {
	a.log.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"entry_ref":  event.EntryRef,
		"account_id": event.AccountID,
		"amount":     event.Amount,
		"status":     event.Status,
		"details":    event.Details,
		"audit_ts":   event.Timestamp.Format(time.RFC3339Nano),
	}).Info("AUDIT")
}
