package transport

import (
	"context"
	"fmt"

	"github.com/glatt-dev/glatt/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next BatchRunner) BatchRunner {
		return BatchRunnerFunc(func(ctx context.Context, req *api.RunRequest) (run *api.Run, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					run = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.RunBatch(ctx, req)
		})
	}
}
