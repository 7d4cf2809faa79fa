package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jscience/grid/pkg/log"
)

// Returns a context that is cancelled when the process receives
// an interrupt or termination signal. A second signal exits immediately.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-ch:
			log.Info("Received signal, shutting down:", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
			return
		}

		sig := <-ch
		log.Warn("Received second signal, exiting:", sig)
		os.Exit(1)
	}()

	return ctx, cancel
}
