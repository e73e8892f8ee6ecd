package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/internal/ledger"
)

// toConnectError maps ledger error kinds onto Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrAlreadyMember):
		return connect.CodeAlreadyExists
	case errors.Is(err, ledger.ErrConflict):
		return connect.CodeFailedPrecondition
	case errors.Is(err, ledger.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ledger.ErrForbidden):
		return connect.CodePermissionDenied
	case errors.Is(err, ledger.ErrExternalService):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}
