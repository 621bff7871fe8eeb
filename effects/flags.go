// Package effects exposes per-effect activation state for external display.
package effects

import "sync/atomic"

// Flags is a set of independently written booleans. Each one is owned by the
// worker that computes it and read at any time by the UI surface; there is no
// cross-flag invariant and no ordering requirement beyond eventual visibility.
type Flags struct {
	Ground           atomic.Bool // continuous ground rumble (GS >= taxi end)
	GroundThump      atomic.Bool // in the thump band [start, end)
	TaxiStartCrossed atomic.Bool
	TaxiEndCrossed   atomic.Bool
	Base             atomic.Bool
	Bank             atomic.Bool
	Stall            atomic.Bool
	FlapsBump        atomic.Bool
	GearBump         atomic.Bool

	SimConnected        atomic.Bool
	ControllerConnected atomic.Bool
}

// Snapshot returns a plain map for serialization.
func (f *Flags) Snapshot() map[string]bool {
	return map[string]bool{
		"ground":             f.Ground.Load(),
		"ground_thump":       f.GroundThump.Load(),
		"taxi_start_crossed": f.TaxiStartCrossed.Load(),
		"taxi_end_crossed":   f.TaxiEndCrossed.Load(),
		"base":               f.Base.Load(),
		"bank":               f.Bank.Load(),
		"stall":              f.Stall.Load(),
		"flaps_bump":         f.FlapsBump.Load(),
		"gear_bump":          f.GearBump.Load(),

		"sim_connected":        f.SimConnected.Load(),
		"controller_connected": f.ControllerConnected.Load(),
	}
}
