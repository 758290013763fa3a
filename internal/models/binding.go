package models

import "time"

// DepositBinding ties an account to the deposit target a rail minted for it.
// There is at most one binding per (account, rail).
type DepositBinding struct {
	AccountID   string    `json:"accountId" db:"account_id"`
	Rail        Rail      `json:"rail" db:"rail"`
	ReferenceID string    `json:"-" db:"reference_id"`
	Address     string    `json:"address" db:"address"`
	Memo        string    `json:"memo" db:"memo"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
}
