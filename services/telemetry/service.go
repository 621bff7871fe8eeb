// Package telemetry owns the simulator connection and the haptic engine.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"griprumble-go/bus"
	"griprumble-go/config"
	"griprumble-go/effects"
	"griprumble-go/simsource"
	"griprumble-go/types"
)

const appName = "griprumble"

// Event and definition identifiers on the telemetry session.
const (
	evtSimStart uint32 = 1001
	evtSimStop  uint32 = 1002
	evtFrame    uint32 = 1003

	evtPauseSys uint32 = 4101
	evtPauseEx1 uint32 = 4102

	defMain  uint32 = 2001
	reqMain  uint32 = 3001
	defPing  uint32 = 2101
	reqPing  uint32 = 3101
	defTitle uint32 = 2201
	reqTitle uint32 = 3201
)

// mainFields is the per-frame definition, in decode order.
var mainFields = [...]struct{ name, unit string }{
	{"AIRSPEED INDICATED", "Knots"},
	{"SIM ON GROUND", "Bool"},
	{"PLANE BANK DEGREES", "Degrees"},
	{"TRAILING EDGE FLAPS LEFT PERCENT", "Percent"},
	{"TRAILING EDGE FLAPS RIGHT PERCENT", "Percent"},
	{"FLAPS HANDLE INDEX", "Number"},
	{"GEAR HANDLE POSITION", "Bool"},
	{"STALL WARNING", "Bool"},
	{"ABSOLUTE TIME", "Seconds"},
	{"GROUND VELOCITY", "Knots"},
	{"PAUSED", "Bool"},
}

const (
	idleSleep      = 10 * time.Millisecond
	openBackoff    = 1 * time.Second
	quitCooldown   = 600 * time.Millisecond
	watchdogFirst  = 800 * time.Millisecond
	watchdogSteady = 2500 * time.Millisecond
)

var (
	topicStatus   = bus.Topic{"sim", "status"}
	topicSnapshot = bus.Topic{"sim", "snapshot"}
	topicTitle    = bus.Topic{"sim", "title"}
)

// Service runs the connection lifecycle and feeds the output worker.
type Service struct {
	src   simsource.Source
	cmds  chan<- types.Command
	store *config.Store
	fl    *effects.Flags
	hold  *atomic.Bool
	conn  *bus.Connection
	log   zerolog.Logger

	mu       sync.Mutex
	status   types.SimStatus
	snapshot *types.FlightSnapshot
	title    string
}

func New(src simsource.Source, cmds chan<- types.Command, store *config.Store,
	fl *effects.Flags, hold *atomic.Bool, conn *bus.Connection, log zerolog.Logger) *Service {
	return &Service{
		src:    src,
		cmds:   cmds,
		store:  store,
		fl:     fl,
		hold:   hold,
		conn:   conn,
		log:    log,
		status: types.StatusDisconnected,
	}
}

// Start launches the service loop.
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

// Status returns the coarse connection status.
func (s *Service) Status() types.SimStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns the last published sample, if any.
func (s *Service) Snapshot() (types.FlightSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return types.FlightSnapshot{}, false
	}
	return *s.snapshot, true
}

// Title returns the aircraft title, empty until the one-shot arrives.
func (s *Service) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Service) run(ctx context.Context) {
	s.log.Info().Msg("telemetry worker started")
	for {
		s.setStatus(types.StatusConnecting)
		if err := s.src.Open(appName); err != nil {
			s.log.Debug().Err(err).Msg("open failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(openBackoff):
			}
			continue
		}

		s.fl.SimConnected.Store(true)
		s.setStatus(types.StatusConnected)
		s.setTitle("")
		s.log.Info().Msg("telemetry source connected")

		s.register()
		s.session(ctx)

		// Quit, fatal protocol error or shutdown: reset everything visible
		// and silence the grip before the next attempt.
		_ = s.src.Close()
		s.fl.SimConnected.Store(false)
		s.setStatus(types.StatusDisconnected)
		s.setTitle("")
		s.setSnapshot(nil)
		s.cmds <- types.SetIntensity{Level: 0}

		select {
		case <-ctx.Done():
			return
		case <-time.After(quitCooldown):
		}
	}
}

// register subscribes to system events and declares the data definitions.
// Individual rejections are logged and skipped; the session carries on with
// whatever succeeded.
func (s *Service) register() {
	events := []struct {
		id   uint32
		name string
	}{
		{evtSimStart, "SimStart"},
		{evtSimStop, "SimStop"},
		{evtFrame, "Frame"},
		{evtPauseSys, "Pause"},
		{evtPauseEx1, "Pause_EX1"},
	}
	for _, ev := range events {
		if err := s.src.SubscribeEvent(ev.id, ev.name); err != nil {
			s.log.Warn().Str("event", ev.name).Err(err).Msg("event subscription rejected")
		}
	}

	for _, f := range mainFields {
		if err := s.src.AddToDefinition(defMain, f.name, f.unit, simsource.Float64); err != nil {
			s.log.Warn().Str("field", f.name).Err(err).Msg("field rejected")
		}
	}
	if err := s.src.AddToDefinition(defTitle, "TITLE", "", simsource.String256); err != nil {
		s.log.Warn().Err(err).Msg("title field rejected")
	}
	if err := s.src.AddToDefinition(defPing, "SIM ON GROUND", "Bool", simsource.Float64); err != nil {
		s.log.Warn().Err(err).Msg("ping field rejected")
	}

	_ = s.src.RequestData(reqTitle, defTitle, simsource.Once)
	_ = s.src.RequestData(reqMain, defMain, simsource.EverySimFrame)
	_ = s.src.RequestData(reqPing, defPing, simsource.Once)
}

// session is the dispatch loop for one open connection. It returns when the
// source quits or the context is cancelled.
func (s *Service) session(ctx context.Context) {
	eng := NewEngine(s.store.Rev())

	mainSeen := false
	lastMainRx := time.Now()

	pausedEvent := false
	pausedEx1 := uint32(0)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := s.src.NextDispatch()
		if err != nil {
			// Nothing pending; gentle idle sleep.
			time.Sleep(idleSleep)
		} else {
			switch m := msg.(type) {
			case simsource.OpenMsg:
				// informational only

			case simsource.QuitMsg:
				s.log.Info().Msg("telemetry source quit")
				return

			case simsource.EventMsg:
				switch m.EventID {
				case evtPauseSys:
					pausedEvent = m.Data != 0
				case evtPauseEx1:
					pausedEx1 = m.Data
				}

			case simsource.ExceptionMsg:
				s.log.Debug().Uint32("code", m.Code).Msg("source exception")

			case simsource.DataMsg:
				switch m.RequestID {
				case reqTitle:
					if title, ok := simsource.DecodeString256(m.Payload); ok {
						s.setTitle(title)
					}
				case reqMain:
					mainSeen = true
					lastMainRx = time.Now()
					s.handleMainSample(eng, m, pausedEvent, pausedEx1)
				}
			}
		}

		// Watchdog: the source can silently drop a subscription; re-issue
		// the per-frame request if samples stop arriving.
		timeout := watchdogFirst
		if mainSeen {
			timeout = watchdogSteady
		}
		if time.Since(lastMainRx) >= timeout {
			s.log.Debug().Msg("main data stalled, re-requesting")
			_ = s.src.RequestData(reqMain, defMain, simsource.EverySimFrame)
			lastMainRx = time.Now()
		}
	}
}

// handleMainSample decodes, sanitizes and publishes one per-frame sample,
// then runs the haptic engine unless the tick is paused or held.
func (s *Service) handleMainSample(eng *Engine, m simsource.DataMsg, pausedEvent bool, pausedEx1 uint32) {
	count := int(m.DefineCount)
	if count == 0 {
		return
	}
	vals, ok := simsource.DecodeFloats(m.Payload, count)
	if !ok {
		// Unexpected width or truncated payload; no partial update.
		return
	}

	elem := func(i int) float64 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}

	cfg, rev := s.store.Get()

	fv := types.FlightSnapshot{
		AirspeedKt:   elem(0),
		OnGround:     elem(1) != 0,
		BankDeg:      elem(2),
		FlapsPct:     clampPct((elem(3) + elem(4)) * 0.5),
		FlapsDetent:  int32(roundHalf(elem(5))),
		GearPosition: elem(6),
		Stalled:      elem(7) != 0,
		SimTimeS:     elem(8),
		GroundSpdKt:  maxf(elem(9), 0),
		Paused:       pausedEvent || pausedEx1 != 0 || elem(10) != 0,
	}
	sanitize(&fv, cfg)

	s.setSnapshot(&fv)

	if !fv.OnGround && fv.AirspeedKt > 30 {
		s.setStatus(types.StatusInFlight)
	} else {
		s.setStatus(types.StatusConnected)
	}

	updateBandFlags(fv, cfg, s.fl)

	// Pause or hold silences the tick without touching envelope state.
	if fv.Paused || s.hold.Load() {
		s.cmds <- types.SetIntensity{Level: 0}
		return
	}

	level := eng.Tick(fv, cfg, rev, s.fl)
	s.cmds <- types.SetIntensity{Level: level}
}

// sanitize clamps or zeroes implausible values so one bad frame cannot spike
// the grip.
func sanitize(fv *types.FlightSnapshot, cfg types.Curve) {
	if !isFinite(fv.AirspeedKt) || fv.AirspeedKt < -5 || fv.AirspeedKt > 1200 {
		fv.AirspeedKt = 0
	}
	if absf(fv.AirspeedKt) < cfg.IASDeadbandKn {
		fv.AirspeedKt = 0
	}
	if !isFinite(fv.BankDeg) {
		fv.BankDeg = 0
	}
	if !isFinite(fv.GroundSpdKt) || fv.GroundSpdKt < 0 {
		fv.GroundSpdKt = 0
	}
	if !isFinite(fv.SimTimeS) {
		fv.SimTimeS = 0
	}
	if !isFinite(fv.GearPosition) {
		fv.GearPosition = 0
	}
	if !isFinite(fv.FlapsPct) {
		fv.FlapsPct = 0
	}
}

func (s *Service) setStatus(st types.SimStatus) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed {
		s.conn.PublishRetained(topicStatus, st)
	}
}

func (s *Service) setTitle(t string) {
	s.mu.Lock()
	s.title = t
	s.mu.Unlock()
	s.conn.PublishRetained(topicTitle, t)
}

func (s *Service) setSnapshot(fv *types.FlightSnapshot) {
	s.mu.Lock()
	s.snapshot = fv
	s.mu.Unlock()
	if fv == nil {
		s.conn.PublishRetained(topicSnapshot, nil)
	} else {
		s.conn.PublishRetained(topicSnapshot, *fv)
	}
}
