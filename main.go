// griprumble converts live flight telemetry into vibration on Winwing
// Ursa Minor grips. It runs as a local daemon with an HTTP control surface.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"griprumble-go/bus"
	"griprumble-go/config"
	"griprumble-go/effects"
	"griprumble-go/hiddev"
	"griprumble-go/logging"
	"griprumble-go/services/api"
	"griprumble-go/services/output"
	"griprumble-go/services/telemetry"
	"griprumble-go/settings"
	"griprumble-go/types"
)

var configPath = flag.String("config", "griprumble.yaml", "settings file")

func main() {
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("bad settings file: " + err.Error() + "\n")
		os.Exit(1)
	}

	ring := logging.NewRing(0)
	log := logging.New(cfg.LogLevel, ring)

	b := bus.NewBus(64)
	logConn := b.NewConnection("log")
	ring.OnLine = func(line string) {
		logConn.Publish(&bus.Message{Topic: bus.Topic{"log", "line"}, Payload: line})
	}

	store := config.NewStore()
	store.Replace(cfg.Curve)

	fl := &effects.Flags{}
	hold := &atomic.Bool{}
	cmds := make(chan types.Command, 64)

	opener, err := hiddev.NewHIDAPI()
	if err != nil {
		log.Fatal().Err(err).Msg("hidapi init failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := output.New(output.Config{VendorID: cfg.VendorID}, opener, cmds, fl,
		b.NewConnection("output"), log.With().Str("svc", "output").Logger())
	out.Start(ctx)

	tel := telemetry.New(newSource(log), cmds, store, fl, hold,
		b.NewConnection("telemetry"), log.With().Str("svc", "telemetry").Logger())
	tel.Start(ctx)

	srv := api.NewServer(tel, cmds, store, cfg.Curve, fl, hold, ring, b,
		log.With().Str("svc", "api").Logger())
	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv.Handler()}

	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")

	shutdownCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}

	// Silence the grip before the workers stop; a motor left buzzing after
	// exit needs a replug to stop.
	cmds <- types.SetIntensity{Level: 0}
	time.Sleep(60 * time.Millisecond)
	cancel()
}
