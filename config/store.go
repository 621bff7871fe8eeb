// Package config holds the shared, versioned rumble tuning.
package config

import (
	"sync"
	"sync/atomic"

	"griprumble-go/types"
	"griprumble-go/x/mathx"
)

// taxiGapKn is the minimum spacing kept between the thump band bounds.
const taxiGapKn = 0.5

const (
	taxiStartMaxKn = 59.0
	taxiEndMaxKn   = 60.0
)

// Store is the process-wide tunable parameter set. Reads return a copy plus
// the revision that produced it; every mutation bumps the revision so the
// engine can snap its smoothing filter to freshly edited values.
type Store struct {
	mu  sync.Mutex
	cur types.Curve
	rev atomic.Uint64
}

func NewStore() *Store {
	s := &Store{cur: types.DefaultCurve()}
	s.rev.Store(1)
	return s
}

// Get returns the current curve and its revision.
func (s *Store) Get() (types.Curve, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.rev.Load()
}

// Rev returns the current revision without copying the curve.
func (s *Store) Rev() uint64 { return s.rev.Load() }

// Replace swaps in a whole new curve (e.g. reset to defaults) and returns the
// new revision.
func (s *Store) Replace(c types.Curve) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = c
	s.normalize(prev)
	return s.rev.Add(1)
}

// Update mutates the curve in place under the lock, re-enforces invariants and
// bumps the revision. Used by the UI's live sliders.
func (s *Store) Update(f func(*types.Curve)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	f(&s.cur)
	s.normalize(prev)
	return s.rev.Add(1)
}

// normalize keeps TaxiStartKn + taxiGapKn <= TaxiEndKn. The bound the caller
// moved wins; the other one is pushed out of its way.
func (s *Store) normalize(prev types.Curve) {
	c := &s.cur

	startMoved := c.TaxiStartKn != prev.TaxiStartKn
	endMoved := c.TaxiEndKn != prev.TaxiEndKn

	switch {
	case startMoved && !endMoved:
		if c.TaxiStartKn >= c.TaxiEndKn-taxiGapKn {
			c.TaxiEndKn = mathx.Min(c.TaxiStartKn+taxiGapKn, taxiEndMaxKn)
		}
	case endMoved && !startMoved:
		if c.TaxiEndKn <= c.TaxiStartKn+taxiGapKn {
			c.TaxiStartKn = mathx.Max(c.TaxiEndKn-taxiGapKn, 0)
		}
	default:
		// Both (or neither) moved: trust start, push end.
		if c.TaxiStartKn >= c.TaxiEndKn-taxiGapKn {
			c.TaxiEndKn = mathx.Min(c.TaxiStartKn+taxiGapKn, taxiEndMaxKn)
		}
	}

	c.TaxiStartKn = mathx.Clamp(c.TaxiStartKn, 0, taxiStartMaxKn)
	c.TaxiEndKn = mathx.Clamp(c.TaxiEndKn, c.TaxiStartKn+taxiGapKn, taxiEndMaxKn)
	c.SmoothingAlpha = mathx.Clamp(c.SmoothingAlpha, 0, 1)
}
