package graceful

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Operation is a named shutdown step.
type Operation func(ctx context.Context) error

// GracefulShutdown waits for SIGINT/SIGTERM, then runs every operation
// concurrently with a shared timeout. The returned channel is closed when all
// operations finished or the timeout fired.
func GracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]Operation, log *slog.Logger) <-chan struct{} {
	wait := make(chan struct{})

	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
		<-s

		log.Info("shutting down")

		timeoutFunc := time.AfterFunc(timeout, func() {
			log.Error("shutdown timeout exceeded, forcing exit", slog.Duration("timeout", timeout))
			os.Exit(1)
		})
		defer timeoutFunc.Stop()

		var wg sync.WaitGroup
		for key, op := range ops {
			wg.Add(1)
			go func(name string, op Operation) {
				defer wg.Done()

				log.Info("cleaning up", slog.String("operation", name))
				if err := op(ctx); err != nil {
					log.Error("cleanup failed",
						slog.String("operation", name),
						slog.String("error", err.Error()),
					)
					return
				}
				log.Info("cleanup done", slog.String("operation", name))
			}(key, op)
		}
		wg.Wait()

		close(wait)
	}()

	return wait
}
