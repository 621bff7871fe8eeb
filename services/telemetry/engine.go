package telemetry

import (
	"math"

	"griprumble-go/effects"
	"griprumble-go/types"
	"griprumble-go/x/mathx"
)

// continuousRumbleHz is the steady ground rumble frequency once the taxi
// thump band has been left upward.
const continuousRumbleHz = 8.0

// Engine is the per-tick haptic computation. It carries the running state
// that survives between telemetry samples: the smoothed background level, the
// flap/gear transient envelopes and the previous discrete control positions.
// It is driven from a single goroutine.
type Engine struct {
	bgSmoothed float64
	lastRev    uint64

	prevFlapsPct float64
	prevFlapsIdx int32
	flapT0       float64
	flapT1       float64
	flapPeak     float64

	prevGear float64
	gearT0   float64
	gearT1   float64
	gearPeak float64
}

// NewEngine starts with no active envelopes. rev seeds revision tracking so
// the first tick does not spuriously snap the smoothing filter.
func NewEngine(rev uint64) *Engine {
	return &Engine{
		lastRev: rev,
		flapT0:  -1, flapT1: -1,
		gearT0: -1, gearT1: -1,
	}
}

// Tick computes the device level for one sanitized sample. It must not be
// called for paused or held ticks; those emit zero upstream and leave the
// envelope state exactly as it was, so effects resume in phase.
func (e *Engine) Tick(fv types.FlightSnapshot, cfg types.Curve, rev uint64, fl *effects.Flags) uint8 {
	// Flap bump: the handle index is the robust trigger, one pulse per step.
	if fv.FlapsDetent != e.prevFlapsIdx {
		steps := mathx.Abs(int(fv.FlapsDetent) - int(e.prevFlapsIdx))
		if steps < 1 {
			steps = 1
		}
		e.flapT0 = fv.SimTimeS
		e.flapT1 = fv.SimTimeS + cfg.FlapsBumpDurS*float64(steps)
		e.flapPeak = cfg.FlapsPeak
		e.prevFlapsIdx = fv.FlapsDetent
	} else {
		// Fallback for aircraft without a usable handle index: a percentage
		// move starts a single-step bump scaled by how far the surface moved.
		// prevFlapsPct is only advanced on this branch; a percentage change
		// that coincides with an index change is consumed silently.
		dflap := math.Abs(fv.FlapsPct - e.prevFlapsPct)
		if dflap >= cfg.FlapsBumpEpsPc {
			e.flapT0 = fv.SimTimeS
			e.flapT1 = fv.SimTimeS + cfg.FlapsBumpDurS
			e.flapPeak = cfg.FlapsPeak * mathx.Clamp(dflap/12.5, 0.5, 1.0)
		}
		e.prevFlapsPct = fv.FlapsPct
	}

	// Gear bump on a 0<->1 handle crossing.
	if math.Abs(fv.GearPosition-e.prevGear) >= 0.5 {
		e.gearT0 = fv.SimTimeS
		e.gearT1 = fv.SimTimeS + cfg.GearBumpDurS
		e.gearPeak = cfg.GearPeak
	}
	e.prevGear = fv.GearPosition

	// Ground term: discrete thumps through the taxi band, then a hard switch
	// to continuous rumble at the end threshold.
	start := math.Min(cfg.TaxiStartKn, cfg.TaxiEndKn-0.1)
	end := math.Max(cfg.TaxiEndKn, start+0.1)
	gs := fv.GroundSpdKt

	groundTerm := 0.0
	if fv.OnGround && gs >= start {
		tNorm := mathx.Clamp((gs-start)/(end-start), 0, 1)

		// Thump period shrinks linearly across the band.
		period := cfg.ThumpMaxPerS - tNorm*(cfg.ThumpMaxPerS-cfg.ThumpMinPerS)
		cycle := math.Mod(fv.SimTimeS/period, 1)

		duty := mathx.Clamp(cfg.ThumpDuty, 0.05, 0.4)
		if cycle < duty {
			p := mathx.Clamp(cycle/duty, 0, 1)
			amp := cfg.GroundRoll * (0.35 + 0.65*tNorm)
			groundTerm = math.Sin(math.Pi*p) * amp
		}

		if gs >= end {
			phase := math.Sin(2*math.Pi*continuousRumbleHz*fv.SimTimeS)*0.5 + 0.5
			groundTerm = cfg.GroundRoll * phase
		}
	}

	// Air term: airspeed buffet above 30 kt plus bank loading.
	airTerm := 0.0
	if !fv.OnGround && fv.AirspeedKt > 30 {
		airTerm += mathx.Clamp(fv.AirspeedKt/250, 0, 1) * cfg.BaseAirspeed
	}
	if !fv.OnGround {
		airTerm += math.Min(math.Abs(fv.BankDeg), 45) / 45 * cfg.Bank
	}

	// Smooth the background. A fresh config revision snaps straight to the
	// new target instead of crawling there through the filter.
	bg := airTerm + groundTerm
	if rev != e.lastRev {
		e.bgSmoothed = bg
		e.lastRev = rev
	} else {
		alpha := mathx.Clamp(cfg.SmoothingAlpha, 0, 1)
		e.bgSmoothed += alpha * (bg - e.bgSmoothed)
	}

	// Transients. Stall acts as a floor via max, so a larger transient wins.
	transients := 0.0
	if fv.Stalled {
		transients = math.Max(transients, cfg.StallCeiling)
	}

	flapActive := fv.SimTimeS >= e.flapT0 && fv.SimTimeS <= e.flapT1 && e.flapPeak > 0
	gearActive := fv.SimTimeS >= e.gearT0 && fv.SimTimeS <= e.gearT1 && e.gearPeak > 0

	if flapActive {
		// Multiple steps queued into one window repeat as a thump train.
		elapsed := fv.SimTimeS - e.flapT0
		period := math.Max(1, cfg.FlapsBumpDurS)
		phase := math.Mod(elapsed, period) / period
		transients += e.flapPeak * math.Sin(math.Pi*phase)
	}
	if gearActive {
		p := mathx.Clamp((fv.SimTimeS-e.gearT0)/(e.gearT1-e.gearT0), 0, 1)
		transients += e.gearPeak * math.Sin(math.Pi*p)
	}

	fl.FlapsBump.Store(flapActive)
	fl.GearBump.Store(gearActive)

	total := e.bgSmoothed + transients
	if fv.Stalled {
		total = math.Max(total, cfg.StallCeiling)
	}
	total = mathx.Clamp(total, 0, float64(cfg.MaxOutput))
	return uint8(math.Round(total))
}

// updateBandFlags refreshes the observability flags derived directly from the
// sample. These update on every tick, including paused ones.
func updateBandFlags(fv types.FlightSnapshot, cfg types.Curve, fl *effects.Flags) {
	start := math.Min(cfg.TaxiStartKn, cfg.TaxiEndKn-0.1)
	end := math.Max(cfg.TaxiEndKn, start+0.1)
	gs := fv.GroundSpdKt

	fl.TaxiStartCrossed.Store(fv.OnGround && gs >= start)
	fl.TaxiEndCrossed.Store(fv.OnGround && gs >= end)
	fl.GroundThump.Store(fv.OnGround && gs >= start && gs < end)
	fl.Ground.Store(fv.OnGround && gs >= end)

	fl.Stall.Store(fv.Stalled)
	fl.Bank.Store(!fv.OnGround && math.Abs(fv.BankDeg) > 5)
	fl.Base.Store(!fv.OnGround && fv.AirspeedKt > 30)
}
