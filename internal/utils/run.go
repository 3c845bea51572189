package utils

import (
	"io"

	"github.com/rs/zerolog/log"
)

// RunProcess configures logging, runs the init function and blocks
// until the process receives a termination signal, closing whatever
// init returned.
func RunProcess(initFn func() (io.Closer, error)) {
	ConfigureLogger()
	closer, err := initFn()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize process")
	}
	WaitUntilSignal(closer)
}
