//go:build windows

package main

import (
	"github.com/rs/zerolog"

	"griprumble-go/simsource"
)

func newSource(log zerolog.Logger) simsource.Source {
	src, err := simsource.NewSimConnect()
	if err != nil {
		log.Warn().Err(err).Msg("SimConnect.dll not available, telemetry disabled")
		return simsource.Unavailable{}
	}
	return src
}
