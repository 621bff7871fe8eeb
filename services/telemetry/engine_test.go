package telemetry

import (
	"math"
	"testing"

	"griprumble-go/effects"
	"griprumble-go/types"
)

func defCurve() types.Curve { return types.DefaultCurve() }

// tickN runs the same sample through the engine n times, returning the last
// output. Useful to let the smoothing filter converge.
func tickN(e *Engine, fv types.FlightSnapshot, cfg types.Curve, rev uint64, n int) uint8 {
	fl := &effects.Flags{}
	var out uint8
	for i := 0; i < n; i++ {
		out = e.Tick(fv, cfg, rev, fl)
	}
	return out
}

func TestOutputAlwaysWithinBounds(t *testing.T) {
	cfg := defCurve()
	cfg.MaxOutput = 200

	extremes := []types.FlightSnapshot{
		{AirspeedKt: 1200, BankDeg: 720, Stalled: true, SimTimeS: 1},
		{OnGround: true, GroundSpdKt: 500, SimTimeS: 2, Stalled: true},
		{AirspeedKt: 251, BankDeg: -400, FlapsDetent: 8, GearPosition: 1, SimTimeS: 3},
	}
	e := NewEngine(1)
	fl := &effects.Flags{}
	for _, fv := range extremes {
		for i := 0; i < 50; i++ {
			out := e.Tick(fv, cfg, 1, fl)
			if out > cfg.MaxOutput {
				t.Fatalf("output %d exceeds max %d for %+v", out, cfg.MaxOutput, fv)
			}
		}
	}
}

func TestAirTermConvergesToFortyFour(t *testing.T) {
	// airspeed 200 kt, bank 20 deg, defaults:
	// 0.8*16 + (20/45)*70 = 43.91 -> rounds to 44 once smoothed.
	fv := types.FlightSnapshot{
		AirspeedKt: 200,
		BankDeg:    20,
		SimTimeS:   100,
	}
	e := NewEngine(1)
	out := tickN(e, fv, defCurve(), 1, 200)
	if out != 44 {
		t.Errorf("converged output = %d, want 44", out)
	}
}

func TestGroundContinuousIsHalfRectifiedSine(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1 // bypass the filter for exactness

	// gs 15 kt is above taxi end (10): continuous 8 Hz term.
	// At sim time 1/32 s the sine peaks: 38 * (1*0.5+0.5) = 38.
	fv := types.FlightSnapshot{OnGround: true, GroundSpdKt: 15, SimTimeS: 1.0 / 32.0}
	if out := tickN(NewEngine(1), fv, cfg, 1, 1); out != 38 {
		t.Errorf("peak continuous output = %d, want 38", out)
	}

	// At 3/32 s the sine bottoms: 38 * (-1*0.5+0.5) = 0.
	fv.SimTimeS = 3.0 / 32.0
	if out := tickN(NewEngine(1), fv, cfg, 1, 1); out != 0 {
		t.Errorf("trough continuous output = %d, want 0", out)
	}
}

func TestTaxiBoundaryIsHalfOpen(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1

	// At sim time 0 the thump envelope is sin(0) = 0 but the continuous
	// term is 38*0.5 = 19, so the boundary selection is directly visible.
	at := func(gs float64) uint8 {
		fv := types.FlightSnapshot{OnGround: true, GroundSpdKt: gs, SimTimeS: 0}
		return tickN(NewEngine(1), fv, cfg, 1, 1)
	}

	if out := at(cfg.TaxiEndKn); out != 19 {
		t.Errorf("gs == end: output %d, want 19 (continuous)", out)
	}
	if out := at(cfg.TaxiEndKn - 1); out != 0 {
		t.Errorf("gs just below end: output %d, want 0 (thump at phase 0)", out)
	}
}

func TestThumpShapeInsideBand(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1

	gs := 6.5 // middle of 3..10
	tNorm := (gs - cfg.TaxiStartKn) / (cfg.TaxiEndKn - cfg.TaxiStartKn)
	period := cfg.ThumpMaxPerS - tNorm*(cfg.ThumpMaxPerS-cfg.ThumpMinPerS)

	// Pick a sim time in the middle of the duty window: envelope sin(pi/2)=1.
	simTime := period * (cfg.ThumpDuty / 2)
	want := cfg.GroundRoll * (0.35 + 0.65*tNorm)

	fv := types.FlightSnapshot{OnGround: true, GroundSpdKt: gs, SimTimeS: simTime}
	out := tickN(NewEngine(1), fv, cfg, 1, 1)
	if math.Abs(float64(out)-want) > 1 {
		t.Errorf("thump peak output = %d, want ~%.1f", out, want)
	}

	// Outside the duty window the thump is silent.
	fv.SimTimeS = period * (cfg.ThumpDuty + 0.1)
	if out := tickN(NewEngine(1), fv, cfg, 1, 1); out != 0 {
		t.Errorf("off-duty output = %d, want 0", out)
	}
}

func TestFlapDetentWindowScalesWithSteps(t *testing.T) {
	cfg := defCurve()
	e := NewEngine(1)
	fl := &effects.Flags{}

	base := types.FlightSnapshot{OnGround: true, SimTimeS: 10}
	e.Tick(base, cfg, 1, fl)

	// Two detents at once: window is 2 * FlapsBumpDurS = 2 s from sim time.
	moved := base
	moved.FlapsDetent = 2
	moved.SimTimeS = 11
	e.Tick(moved, cfg, 1, fl)

	inWindow := moved
	inWindow.SimTimeS = 12.9
	e.Tick(inWindow, cfg, 1, fl)
	if !fl.FlapsBump.Load() {
		t.Error("flap bump inactive inside the 2-step window")
	}

	after := moved
	after.SimTimeS = 13.1
	e.Tick(after, cfg, 1, fl)
	if fl.FlapsBump.Load() {
		t.Error("flap bump still active past the window end")
	}
}

func TestFlapPercentFallbackTriggersScaledBump(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1
	e := NewEngine(1)
	fl := &effects.Flags{}

	base := types.FlightSnapshot{OnGround: true, SimTimeS: 5}
	e.Tick(base, cfg, 1, fl)

	// No detent change, 25% surface move: single-step window, full scale
	// (25/12.5 clamps to 1.0).
	moved := base
	moved.FlapsPct = 25
	moved.SimTimeS = 5.1
	e.Tick(moved, cfg, 1, fl)
	if !fl.FlapsBump.Load() {
		t.Fatal("percentage fallback did not trigger")
	}

	// Envelope peak halfway through a 1 s window: ~60.
	mid := moved
	mid.SimTimeS = 5.6
	out := e.Tick(mid, cfg, 1, fl)
	if math.Abs(float64(out)-cfg.FlapsPeak) > 2 {
		t.Errorf("fallback bump peak = %d, want ~%.0f", out, cfg.FlapsPeak)
	}
}

func TestGearBumpEnvelope(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1
	e := NewEngine(1)
	fl := &effects.Flags{}

	up := types.FlightSnapshot{AirspeedKt: 0, SimTimeS: 20, GearPosition: 0}
	e.Tick(up, cfg, 1, fl)

	down := up
	down.GearPosition = 1
	down.SimTimeS = 21
	e.Tick(down, cfg, 1, fl)
	if !fl.GearBump.Load() {
		t.Fatal("gear bump not triggered by handle crossing")
	}

	// Midpoint of the 0.8 s envelope: sin(pi/2) * 110 = 110.
	mid := down
	mid.SimTimeS = 21.4
	out := e.Tick(mid, cfg, 1, fl)
	if out != 110 {
		t.Errorf("gear bump midpoint = %d, want 110", out)
	}

	after := down
	after.SimTimeS = 21.9
	e.Tick(after, cfg, 1, fl)
	if fl.GearBump.Load() {
		t.Error("gear bump active after its window")
	}
}

func TestStallFloorAndTransientWins(t *testing.T) {
	cfg := defCurve()
	cfg.SmoothingAlpha = 1

	// Bare stall: exactly the ceiling, flat.
	stall := types.FlightSnapshot{AirspeedKt: 0, Stalled: true, SimTimeS: 30}
	e := NewEngine(1)
	fl := &effects.Flags{}
	for i := 0; i < 5; i++ {
		if out := e.Tick(stall, cfg, 1, fl); out != uint8(cfg.StallCeiling) {
			t.Fatalf("bare stall output = %d, want %v", out, cfg.StallCeiling)
		}
	}

	// A transient above the ceiling wins: the floor uses max, not min.
	cfg.GearPeak = 200
	e2 := NewEngine(1)
	e2.Tick(types.FlightSnapshot{Stalled: true, SimTimeS: 40}, cfg, 1, fl)
	trig := types.FlightSnapshot{Stalled: true, SimTimeS: 41, GearPosition: 1}
	e2.Tick(trig, cfg, 1, fl)
	mid := trig
	mid.SimTimeS = 41.4
	out := e2.Tick(mid, cfg, 1, fl)
	if out <= uint8(cfg.StallCeiling) {
		t.Errorf("stall+transient output = %d, want > %v", out, cfg.StallCeiling)
	}
}

func TestRevisionChangeSnapsSmoothing(t *testing.T) {
	cfg := defCurve() // alpha 0.18
	fv := types.FlightSnapshot{AirspeedKt: 200, BankDeg: 20, SimTimeS: 50}

	e := NewEngine(1)
	fl := &effects.Flags{}

	// One tick with the old revision leaves the filter far from target.
	first := e.Tick(fv, cfg, 1, fl)
	if first >= 44 {
		t.Fatalf("first tick already converged: %d", first)
	}

	// A config edit snaps straight to the new background level.
	snapped := e.Tick(fv, cfg, 2, fl)
	if snapped != 44 {
		t.Errorf("post-edit output = %d, want 44 (snap, no crawl)", snapped)
	}
}

func TestEnvelopePhaseFollowsSimTimeNotTickCount(t *testing.T) {
	// Ticks may stop (pause) without advancing the envelope; its phase is a
	// function of sim time alone.
	cfg := defCurve()
	cfg.SmoothingAlpha = 1
	e := NewEngine(1)
	fl := &effects.Flags{}

	e.Tick(types.FlightSnapshot{SimTimeS: 60, GearPosition: 0, AirspeedKt: 0}, cfg, 1, fl)
	e.Tick(types.FlightSnapshot{SimTimeS: 61, GearPosition: 1, AirspeedKt: 0}, cfg, 1, fl)

	// No ticks for 0.4 s of sim time (paused), then resume mid-envelope.
	out := e.Tick(types.FlightSnapshot{SimTimeS: 61.4, GearPosition: 1, AirspeedKt: 0}, cfg, 1, fl)
	if out != 110 {
		t.Errorf("resumed mid-envelope output = %d, want 110", out)
	}
}
