// internal/domain/errors.go
package domain

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrTransactionNotFound  = errors.New("Transaction not found")
	ErrTransactionCompleted = errors.New("Transaction already completed")
	ErrCardNotFound         = errors.New("Card not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrInvalidAddress       = errors.New("invalid blockchain address")
	ErrUnsupportedRail      = errors.New("unsupported payment rail")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
)
