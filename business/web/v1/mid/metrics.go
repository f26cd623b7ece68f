package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/gjchain/business/web/metrics"
	"github.com/ardanlabs/gjchain/foundation/web"
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Record the request with the status code written by the
			// handler or the error middleware.
			status := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				status = v.StatusCode
			}
			metrics.AddRequest(r.Method, status)

			if err != nil || status >= http.StatusBadRequest {
				metrics.AddError()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
