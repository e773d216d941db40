package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForStop(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(NamedFunc("a", waitForStop), RunnableFunc(waitForStop))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerFailureStopsOthers(t *testing.T) {
	failed := errors.New("port busy")
	r := NewRunner()
	r.Go(NamedFunc("waiter", waitForStop))
	r.Go(NamedFunc("server", func(context.Context) error { return failed }))
	err := r.Wait()
	require.ErrorIs(t, err, failed)
	require.Equal(t, "port busy", err.Error())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, context.Canceled).Aggregate())

	a, b := errors.New("a"), errors.New("b")
	err := errs.Add(a, b).Aggregate()
	require.Equal(t, "multiple errors: a; b", err.Error())
	require.ErrorIs(t, err, b)
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCancel(ctx, func() { close(unblock) }, func() error {
		<-unblock
		return errors.New("interrupted")
	})
	require.Equal(t, context.Canceled, err)

	err = RunWithContextCancel(context.Background(), nil, func() error { return nil })
	require.NoError(t, err)
}

type closeCounter struct {
	count  int
	closed chan struct{}
}

func (c *closeCounter) Close() error {
	if c.count++; c.count == 1 {
		close(c.closed)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closer := &closeCounter{closed: make(chan struct{})}
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-closer.closed
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 2, closer.count)

	closer = &closeCounter{closed: make(chan struct{})}
	failed := errors.New("broken")
	err = RunWithContextCloser(context.Background(), closer, func() error { return failed })
	require.Equal(t, failed, err)
	require.Equal(t, 1, closer.count)
}

func TestManualTime(t *testing.T) {
	start := time.Unix(100, 0)
	clock := NewManualTime(start)
	require.Equal(t, start, clock.Time())
	clock.Advance(time.Second)
	require.Equal(t, start.Add(time.Second), clock.Time())
}
