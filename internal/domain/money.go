// internal/domain/money.go
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var integerLiteral = regexp.MustCompile(`^-?[0-9]+$`)

// ValidateIntegerAmount accepts only Go integer kinds with a value >= 0.
// Strings, floats and any other type are rejected even when they hold a
// whole number.
func ValidateIntegerAmount(amount any) (int64, error) {
	var v int64
	switch a := amount.(type) {
	case int:
		v = int64(a)
	case int8:
		v = int64(a)
	case int16:
		v = int64(a)
	case int32:
		v = int64(a)
	case int64:
		v = a
	case uint8:
		v = int64(a)
	case uint16:
		v = int64(a)
	case uint32:
		v = int64(a)
	case uint:
		if uint64(a) > 1<<63-1 {
			return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
		}
		v = int64(a)
	case uint64:
		if a > 1<<63-1 {
			return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
		}
		v = int64(a)
	default:
		return 0, fmt.Errorf("%w: amount must be an integer, got %T", ErrInvalidAmount, amount)
	}

	if v < 0 {
		return 0, fmt.Errorf("%w: amount must be a positive number", ErrInvalidAmount)
	}
	return v, nil
}

// ValidateDecimalAmount rejects negative decimal amounts.
func ValidateDecimalAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must be a positive number", ErrInvalidAmount)
	}
	return amount, nil
}

// ParseAmount reads an amount from a raw JSON value. Only bare integer
// literals are accepted: "1000", 1000.5 and 1e3 are all invalid.
func ParseAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if !integerLiteral.Match(raw) {
		return 0, fmt.Errorf("%w: amount must be an integer", ErrInvalidAmount)
	}

	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	return ValidateIntegerAmount(v)
}
