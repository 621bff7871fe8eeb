package errcode

// Code is a stable error identifier for faults crossing package boundaries.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	// telemetry source
	SourceUnavailable Code = "source_unavailable"
	FieldRejected     Code = "field_rejected"
	DecodeShort       Code = "decode_short"
	DecodeUnknown     Code = "decode_unknown"
	NoDispatch        Code = "no_dispatch"

	// device output
	DeviceGone  Code = "device_gone"
	WriteFailed Code = "write_failed"

	InvalidParams Code = "invalid_params"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }
