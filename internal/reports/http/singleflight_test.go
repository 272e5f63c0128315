package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleflightBuildSharesResult(t *testing.T) {
	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return "built", nil
	}
	v, err, _ := singleflightBuild(context.Background(), "share-key", fn)
	require.NoError(t, err)
	require.Equal(t, "built", v)
	require.Equal(t, 1, calls)
}

func TestSingleflightBuildDetachedFromCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	buildCtxErr := make(chan error, 1)
	_, err, _ := singleflightBuild(ctx, "detached-key", func(buildCtx context.Context) (any, error) {
		<-release
		buildCtxErr <- buildCtx.Err()
		return "built", nil
	})
	// The caller stops waiting on its own cancellation while the build is
	// still in flight.
	require.ErrorIs(t, err, context.Canceled)

	// The build itself keeps a live context for waiters who joined after.
	close(release)
	require.NoError(t, <-buildCtxErr)
}
