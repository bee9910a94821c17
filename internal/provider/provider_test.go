package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("ok, status and message", func(t *testing.T) {
		err := &Error{Provider: "paystack", Op: "verify", StatusCode: 400, Message: "Transaction reference not found"}
		require.Equal(t, "paystack verify: status 400: Transaction reference not found", err.Error())
	})

	t.Run("ok, wrapped transport error", func(t *testing.T) {
		err := fmt.Errorf("verify: %w", &Error{Provider: "lazerpay", Op: "verify", Temporary: true, Err: context.DeadlineExceeded})
		require.True(t, IsError(err))
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Contains(t, err.Error(), "lazerpay verify")
	})

	t.Run("ok, not a provider error", func(t *testing.T) {
		require.False(t, IsError(errors.New("boom")))
	})
}

func TestIsRejection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"4xx", &Error{Provider: "lazerpay", Op: "transfer", StatusCode: 400, Message: "Insufficient balance"}, true},
		{"unsuccessful envelope", fmt.Errorf("transfer: %w", &Error{Provider: "lazerpay", Op: "transfer", StatusCode: 200, Message: "failed"}), true},
		{"5xx", &Error{Provider: "lazerpay", Op: "transfer", StatusCode: 502, Temporary: true}, false},
		{"throttled", &Error{Provider: "lazerpay", Op: "transfer", StatusCode: 429, Temporary: true}, false},
		{"timeout", &Error{Provider: "lazerpay", Op: "transfer", Temporary: true, Err: context.DeadlineExceeded}, false},
		{"unreadable body", &Error{Provider: "lazerpay", Op: "transfer", Message: "failed to parse response", Err: errors.New("eof")}, false},
		{"plain error", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsRejection(tc.err))
		})
	}
}
