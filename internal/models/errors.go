package models

import (
	"errors"
	"fmt"
)

var (
	ErrTransientNetwork   = errors.New("transient network error")
	ErrAuthentication     = errors.New("webhook authentication failed")
	ErrDuplicateEvent     = errors.New("event already applied")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrDomainRejection    = errors.New("rail rejected the request")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidReference   = errors.New("invalid reference id")
	ErrNotFound           = errors.New("not found")
)

// RailError is a non-success response from a rail. It unwraps to ErrDomainRejection.
type RailError struct {
	Code int
	Msg  string
}

func (e *RailError) Error() string {
	return fmt.Sprintf("rail responded code=%d msg=%q", e.Code, e.Msg)
}

func (e *RailError) Unwrap() error {
	return ErrDomainRejection
}
