//go:build !windows

package main

import (
	"github.com/rs/zerolog"

	"griprumble-go/simsource"
)

func newSource(log zerolog.Logger) simsource.Source {
	log.Warn().Msg("no simulator client on this platform, telemetry disabled")
	return simsource.Unavailable{}
}
