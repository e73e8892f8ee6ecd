package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/internal/ledger"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"validation", fmt.Errorf("%w: total cost must be positive", ledger.ErrValidation), connect.CodeInvalidArgument},
		{"already member", ledger.ErrAlreadyMember, connect.CodeAlreadyExists},
		{"pending payment", ledger.ErrPendingPayment, connect.CodeFailedPrecondition},
		{"already paid", ledger.ErrAlreadyPaid, connect.CodeFailedPrecondition},
		{"conflict", ledger.ErrConflict, connect.CodeFailedPrecondition},
		{"not found", fmt.Errorf("group: %w", ledger.ErrNotFound), connect.CodeNotFound},
		{"forbidden", ledger.ErrForbidden, connect.CodePermissionDenied},
		{"processor", fmt.Errorf("%w: timeout", ledger.ErrExternalService), connect.CodeUnavailable},
		{"canceled", context.Canceled, connect.CodeCanceled},
		{"deadline", context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{"unknown", errors.New("disk full"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codeOf(tt.err); got != tt.want {
				t.Errorf("codeOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestToConnectErrorKeepsConnectErrors(t *testing.T) {
	original := connect.NewError(connect.CodeUnauthenticated, errors.New("no token"))
	if got := toConnectError(original); got != original {
		t.Errorf("expected connect errors to pass through unchanged, got %v", got)
	}
}
