package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var reportBuildGroup singleflight.Group

// singleflightBuild deduplicates concurrent builds of the same report key.
// The build runs detached from the first caller's context so a disconnect
// cannot poison the waiters sharing the flight; each caller still stops
// waiting when its own context ends. The third return reports whether the
// result was shared with other callers.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	buildCtx := context.WithoutCancel(ctx)
	resultChan := reportBuildGroup.DoChan(key, func() (any, error) {
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
