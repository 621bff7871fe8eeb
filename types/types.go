package types

// ---- Simulator connection status ----

type SimStatus string

const (
	StatusDisconnected SimStatus = "disconnected"
	StatusConnecting   SimStatus = "connecting"
	StatusConnected    SimStatus = "connected"
	StatusInFlight     SimStatus = "in_flight"
)

// ---- Flight snapshot ----

// FlightSnapshot is one decoded and sanitized telemetry sample. It is always
// replaced wholesale, never field-patched, so readers see a consistent sample.
type FlightSnapshot struct {
	SimTimeS     float64 `json:"sim_time_s"`
	AirspeedKt   float64 `json:"airspeed_kt"`
	GroundSpdKt  float64 `json:"ground_speed_kt"`
	BankDeg      float64 `json:"bank_deg"`
	FlapsPct     float64 `json:"flaps_pct"`     // 0..100, avg of L/R
	FlapsDetent  int32   `json:"flaps_detent"`  // FLAPS HANDLE INDEX
	GearPosition float64 `json:"gear_position"` // 0..1 handle
	OnGround     bool    `json:"on_ground"`
	Stalled      bool    `json:"stalled"`
	Paused       bool    `json:"paused"`
}

// ---- Rumble curve (tunable parameter set) ----

// Curve is the full tunable parameter set for the haptic engine. A Curve is
// always read and written through config.Store, which versions every mutation.
type Curve struct {
	// continuous terms
	BaseAirspeed float64 `yaml:"base_airspeed" json:"base_airspeed"`
	GroundRoll   float64 `yaml:"ground_roll" json:"ground_roll"`
	Bank         float64 `yaml:"bank" json:"bank"`
	StallCeiling float64 `yaml:"stall_ceiling" json:"stall_ceiling"`

	// transient peaks
	FlapsPeak float64 `yaml:"flaps_peak" json:"flaps_peak"`
	GearPeak  float64 `yaml:"gear_peak" json:"gear_peak"`

	MaxOutput      uint8   `yaml:"max_output" json:"max_output"`
	SmoothingAlpha float64 `yaml:"smoothing_alpha" json:"smoothing_alpha"`

	IASDeadbandKn float64 `yaml:"ias_deadband_kn" json:"ias_deadband_kn"`

	// taxi thump band and shape
	TaxiStartKn  float64 `yaml:"taxi_start_kn" json:"taxi_start_kn"`
	TaxiEndKn    float64 `yaml:"taxi_end_kn" json:"taxi_end_kn"`
	ThumpMinPerS float64 `yaml:"thump_min_period_s" json:"thump_min_period_s"`
	ThumpMaxPerS float64 `yaml:"thump_max_period_s" json:"thump_max_period_s"`
	ThumpDuty    float64 `yaml:"thump_duty" json:"thump_duty"`

	// transient envelopes
	FlapsBumpDurS  float64 `yaml:"flaps_bump_duration_s" json:"flaps_bump_duration_s"`
	FlapsBumpEpsPc float64 `yaml:"flaps_bump_eps_pct" json:"flaps_bump_eps_pct"`
	GearBumpDurS   float64 `yaml:"gear_bump_duration_s" json:"gear_bump_duration_s"`
}

// DefaultCurve returns the factory tuning.
func DefaultCurve() Curve {
	return Curve{
		BaseAirspeed: 16.0,
		GroundRoll:   38.0,
		Bank:         70.0,
		StallCeiling: 160.0,

		FlapsPeak: 60.0,
		GearPeak:  110.0,

		MaxOutput:      255,
		SmoothingAlpha: 0.18,

		IASDeadbandKn: 1.0,

		TaxiStartKn:  3.0,
		TaxiEndKn:    10.0,
		ThumpMinPerS: 0.25,
		ThumpMaxPerS: 0.90,
		ThumpDuty:    0.22,

		FlapsBumpDurS:  1.0,
		FlapsBumpEpsPc: 2.0,
		GearBumpDurS:   0.8,
	}
}

// ---- Output worker commands ----

// Command is a discrete instruction for the device output worker. Commands are
// delivered in send order over a single queue; the worker's cadence may still
// coalesce intermediate intensity values.
type Command interface{ isCommand() }

type SetIntensity struct{ Level uint8 }

// SendRaw writes a frame to every open device immediately, bypassing the
// cadence and dedupe logic. Diagnostics only.
type SendRaw struct{ Frame []byte }

type StopAll struct{}

type ReopenDevices struct{}

type SetHold struct{ Hold bool }

func (SetIntensity) isCommand()  {}
func (SendRaw) isCommand()       {}
func (StopAll) isCommand()       {}
func (ReopenDevices) isCommand() {}
func (SetHold) isCommand()       {}
