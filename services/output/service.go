// Package output owns the physical grip handles and the write cadence.
package output

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"griprumble-go/bus"
	"griprumble-go/effects"
	"griprumble-go/hiddev"
	"griprumble-go/types"
)

var topicIntensity = bus.Topic{"grip", "intensity"}

// Config tunes the worker's timing. Zero values take the defaults below.
type Config struct {
	VendorID uint16

	// SendInterval throttles device writes (20 Hz default).
	SendInterval time.Duration
	// RescanInterval bounds how often discovery re-runs while devices are open.
	RescanInterval time.Duration
	// RecvTimeout bounds the command wait so cadence and rescans keep running
	// even with no incoming commands.
	RecvTimeout time.Duration
}

type openDev struct {
	dev  hiddev.Device
	info hiddev.Info
}

// Service applies the most recently requested intensity at a fixed cadence,
// decoupled from telemetry arrival. Commands arrive in send order; the
// cadence and dedupe may legitimately skip intermediate values.
type Service struct {
	cfg    Config
	opener hiddev.Opener
	cmds   <-chan types.Command
	fl     *effects.Flags
	conn   *bus.Connection
	log    zerolog.Logger

	devices  []openDev
	lastScan time.Time

	desired  uint8
	lastSent uint8
	lastSend time.Time
	hold     bool
}

func New(cfg Config, opener hiddev.Opener, cmds <-chan types.Command,
	fl *effects.Flags, conn *bus.Connection, log zerolog.Logger) *Service {
	if cfg.VendorID == 0 {
		cfg.VendorID = hiddev.VendorWinwing
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = 50 * time.Millisecond
	}
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = 2 * time.Second
	}
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = 100 * time.Millisecond
	}
	return &Service{
		cfg:    cfg,
		opener: opener,
		cmds:   cmds,
		fl:     fl,
		conn:   conn,
		log:    log,
		// 255 sentinel guarantees the first cadence tick writes.
		lastSent: 255,
	}
}

// Start launches the worker loop.
func (s *Service) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Service) loop(ctx context.Context) {
	s.lastSend = time.Now().Add(-s.cfg.SendInterval)
	s.ensureOpen(false)

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case cmd := <-s.cmds:
			s.apply(cmd)
		case <-time.After(s.cfg.RecvTimeout):
		}

		s.ensureOpen(false)

		if time.Since(s.lastSend) >= s.cfg.SendInterval {
			out := s.desired
			if s.hold {
				out = 0
			}
			if out != s.lastSent {
				s.writeAll(hiddev.VibeFrame(out))
				s.lastSent = out
				s.conn.PublishRetained(topicIntensity, out)
			}
			s.lastSend = time.Now()
		}
	}
}

func (s *Service) apply(cmd types.Command) {
	switch c := cmd.(type) {
	case types.SetIntensity:
		s.desired = c.Level

	case types.SendRaw:
		// Diagnostics path: immediate, no throttle, no dedupe.
		s.writeAll(c.Frame)

	case types.StopAll:
		s.desired = 0
		s.lastSend = time.Now().Add(-s.cfg.SendInterval)

	case types.ReopenDevices:
		s.ensureOpen(true)

	case types.SetHold:
		s.hold = c.Hold
		if s.hold {
			// One immediate zero-write so the grip stops now, not at the
			// next cadence tick.
			s.writeAll(hiddev.VibeFrame(0))
			s.lastSent = 0
			s.conn.PublishRetained(topicIntensity, uint8(0))
		}
	}
}

// ensureOpen rescans when forced, when nothing is open, or when the scan is
// stale. All matching interfaces are opened; a grip exposes several.
func (s *Service) ensureOpen(force bool) {
	if !force && len(s.devices) > 0 && time.Since(s.lastScan) < s.cfg.RescanInterval {
		return
	}
	s.closeAll()

	infos, err := s.opener.Enumerate(s.cfg.VendorID)
	if err != nil {
		s.log.Debug().Err(err).Msg("device enumeration failed")
	}
	for _, info := range infos {
		d, err := s.opener.Open(info.Path)
		if err != nil {
			s.log.Debug().Str("path", info.Path).Err(err).Msg("open failed")
			continue
		}
		s.devices = append(s.devices, openDev{dev: d, info: info})
	}

	s.fl.ControllerConnected.Store(len(s.devices) > 0)
	s.lastScan = time.Now()
}

func (s *Service) closeAll() {
	for _, d := range s.devices {
		_ = d.dev.Close()
	}
	s.devices = nil
}

// writeAll delivers a frame to every open device. A write failure on one
// device neither blocks the others nor aborts the worker; the next cadence
// tick simply tries again.
func (s *Service) writeAll(frame []byte) int {
	ok := 0
	for _, d := range s.devices {
		if err := d.dev.Write(frame); err != nil {
			s.log.Debug().Str("path", d.info.Path).Err(err).Msg("write failed")
			continue
		}
		ok++
	}
	return ok
}
