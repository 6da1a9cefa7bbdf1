// Package shell owns the fx application lifecycle. It replaces the
// hidden process-wide event loop with an explicitly constructed and
// explicitly torn-down runtime, in two flavours: Run for one-shot
// invocations and Serve for long-running servers.
package shell

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type Shell struct {
	log     *zap.Logger
	options []fx.Option
}

func New(log *zap.Logger, options ...fx.Option) *Shell {
	return &Shell{
		log:     log,
		options: options,
	}
}

// Run executes a one-shot invocation: the fx app is built, started
// (running the provided fx.Invoke options), and torn down again. The
// invocation error, if any, is returned after teardown.
func (s *Shell) Run(ctx context.Context, options ...fx.Option) error {
	// 0. after run ends, flush the logger
	defer s.log.Sync()

	// 1. create the fx application
	fxApp := s.createFxApp(ctx, options...)

	// 2. start the application; invocations run here
	startCtx, cancelStart := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancelStart()

	startErr := fxApp.Start(startCtx)

	// 3. tear the application down, even after a failed start
	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), fxApp.StopTimeout())
	defer cancelStop()

	if err := fxApp.Stop(stopCtx); err != nil {
		s.log.Error("error stopping application", zap.Error(err))
	}

	return startErr
}

// Serve starts the fx app and blocks until an OS signal requests
// shutdown, then tears the app down gracefully.
func (s *Shell) Serve(ctx context.Context, options ...fx.Option) error {
	defer s.log.Sync()

	fxApp := s.createFxApp(ctx, options...)

	startCtx, cancelStart := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancelStart()

	if err := fxApp.Start(startCtx); err != nil {
		return NewExitError(1)
	}

	sig := <-fxApp.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), fxApp.StopTimeout())
	defer cancelStop()

	if err := fxApp.Stop(stopCtx); err != nil {
		return NewExitError(1)
	}

	if sig.ExitCode != 0 {
		return NewExitError(sig.ExitCode)
	}

	return nil
}

func (s *Shell) createFxApp(ctx context.Context, options ...fx.Option) *fx.App {
	return fx.New(
		// inject global execution context
		fx.Supply(fx.Annotate(ctx, fx.As(new(context.Context)))),

		// inject the logger
		fx.Supply(s.log),

		// use the logger also for fx' logs
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: s.log.Named("fx")}
		}),

		// provide shell-level options
		fx.Options(s.options...),

		// provide invocation options
		fx.Options(options...),
	)
}
