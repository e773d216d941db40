package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name used in logs.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NamedFunc is NamedRun for a func.
func NamedFunc(name string, fn func(context.Context) error) Runnable {
	return NamedRun(name, RunnableFunc(fn))
}

// ErrForcedExit is returned by Runner.Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// Runner runs services of a command, e.g. a bridge and a metrics server,
// and stops all of them when one fails or a signal is received.
type Runner struct {
	Context context.Context

	cancel context.CancelFunc
	count  int
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		errCh:   make(chan error, 8),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals stops the runner on Ctrl-C and SIGTERM. A second signal
// makes Wait return immediately.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-r.Context.Done():
			return
		}
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go starts services. The first failure stops the others.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := "service"
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		r.count++
		go func(runner Runnable, name string) {
			glog.V(1).Infof("%s started", name)
			err := runner.Run(r.Context)
			if err != nil && !IsCanceled(err) {
				glog.Errorf("%s failed: %v", name, err)
				r.cancel()
			} else {
				glog.V(1).Infof("%s stopped", name)
			}
			r.errCh <- err
		}(runner, name)
	}
	return r
}

// Stop cancels the context of all services.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait waits until all services stop and returns their failures.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for ; r.count > 0; r.count-- {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			errs.Add(err)
		}
	}
	r.cancel()
	return errs.Aggregate()
}

// RunWithContextCancel runs a blocking fn which doesn't accept a context.
// onCancel is called when ctx is done to unblock fn.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// RunWithContextCloser closes closer when ctx is done or fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	err := RunWithContextCancel(ctx, func() { closer.Close() }, fn)
	closer.Close()
	return err
}
