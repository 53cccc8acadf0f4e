package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/andrebq/todobox/internal/logutil"
)

type (
	Options struct {
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration

		// Listening, when set, receives the address the server is bound
		// to (useful when binding to port 0)
		Listening chan<- net.Addr
	}
)

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = time.Minute
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = time.Minute
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	return o
}

// Serve runs handler until ctx is cancelled, then waits (up to
// ShutdownTimeout) for in-flight requests before returning.
func Serve(ctx context.Context, bind string, handler http.Handler, opts Options) error {
	opts = opts.withDefaults()
	server := http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		IdleTimeout:       opts.ReadTimeout * 5,
	}
	lst, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	if opts.Listening != nil {
		opts.Listening <- lst.Addr()
	}
	errCh := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, lst, opts.ShutdownTimeout, errCh, done)
	<-done
	return <-errCh
}

func serveInBackground(ctx context.Context, server *http.Server, lst net.Listener, shutdownTimeout time.Duration, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", lst.Addr().String()).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.Serve(lst)
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown did not complete in time")
		}
		log.Info().Msg("Shutdown completed")
	}
}
