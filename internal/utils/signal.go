package utils

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// WaitUntilSignal blocks until SIGINT or SIGTERM, then closes the given
// closers and exits.
func WaitUntilSignal(closers ...io.Closer) {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sc
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	code := 0
	for _, closer := range closers {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close component")
			code = 1
		}
	}
	os.Exit(code)
}
