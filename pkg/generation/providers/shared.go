package providers

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/anomshot/anomshot/pkg/errors"
)

// classifyTransportError maps transport-level failures to the error
// taxonomy: a deadline hit becomes a TimeoutError, everything else a
// RemoteError.
func classifyTransportError(ctx context.Context, provider string, timeout time.Duration, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &errors.TimeoutError{
			Operation: fmt.Sprintf("%s generation", provider),
			Duration:  timeout,
			Cause:     err,
		}
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	return &errors.RemoteError{Provider: provider, Cause: err}
}
