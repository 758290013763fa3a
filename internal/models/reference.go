package models

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const referenceSeparator = "-"

var (
	accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,24}$`)

	// referenceNamespace scopes the deterministic deposit reference ids.
	referenceNamespace = uuid.MustParse("6f2b8a3e-4c1d-5e7f-9a0b-1c2d3e4f5a6b")
)

// ValidAccountID reports whether id can be embedded in a rail reference.
func ValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}

// NewReference builds "<accountID>-<suffix>". The suffix is a dash-free uuid.
func NewReference(accountID string, suffix uuid.UUID) string {
	return accountID + referenceSeparator + strings.ReplaceAll(suffix.String(), "-", "")
}

// NewOrderID returns a fresh withdrawal order id owned by accountID.
func NewOrderID(accountID string) string {
	return NewReference(accountID, uuid.New())
}

// DepositReference is stable per (account, rail) so repeated or concurrent
// first requests ask the rail for the same target.
func DepositReference(accountID string, rail Rail) string {
	return NewReference(accountID, uuid.NewSHA1(referenceNamespace, []byte(accountID+":"+string(rail))))
}

// AccountFromReference recovers the account id encoded by NewReference.
func AccountFromReference(ref string) (string, error) {
	account, rest, found := strings.Cut(ref, referenceSeparator)
	if !found || rest == "" || !ValidAccountID(account) {
		return "", ErrInvalidReference
	}
	return account, nil
}
