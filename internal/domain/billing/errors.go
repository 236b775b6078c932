package billing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrConflict         = errors.New("conflict")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrAlreadyTerminal  = errors.New("subscription already terminal")

	ErrInvalidPlan          = fmt.Errorf("%w: plan missing or inactive", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("%w: transaction", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("%w: subscription", ErrNotFound)
)
