// Package simsource abstracts the flight simulator's telemetry feed.
//
// The engine depends only on Source; the Windows adapter speaks the native
// SimConnect protocol, while Replay provides a scripted in-memory source for
// tests and bench runs on any platform.
package simsource

import "griprumble-go/errcode"

// FieldType selects the wire encoding a registered field is delivered in.
type FieldType int

const (
	Float64 FieldType = iota
	String256
)

// Period controls how often a data definition is delivered.
type Period int

const (
	Once Period = iota
	EverySimFrame
)

// ErrNoDispatch is returned by NextDispatch when no message is pending.
var ErrNoDispatch = errcode.NoDispatch

// Source is a telemetry session with the simulator. All calls are made from
// the telemetry service goroutine only.
type Source interface {
	// Open establishes the session. It is retried forever by the caller.
	Open(appName string) error
	Close() error

	// AddToDefinition registers a named field with a unit under a numbered
	// definition. A rejected field is reported but must not abort the session.
	AddToDefinition(defID uint32, name, unit string, ft FieldType) error

	// RequestData asks for a definition to be delivered once or every frame.
	RequestData(reqID, defID uint32, period Period) error

	// SubscribeEvent subscribes to a named system event. Sources without
	// event support return errcode.FieldRejected; the caller degrades to the
	// legacy pause variable alone.
	SubscribeEvent(eventID uint32, name string) error

	// NextDispatch returns the next pending message, or ErrNoDispatch.
	NextDispatch() (Message, error)
}

// ---- Decoded messages ----

type Message interface{ isMessage() }

// OpenMsg acknowledges the session; carries the simulator's name.
type OpenMsg struct{ AppName string }

// QuitMsg signals the simulator is shutting the session down.
type QuitMsg struct{}

// EventMsg is a subscribed system event firing. For pause events Data is
// 1/0; for extended pause it is a bit mask of pause kinds.
type EventMsg struct {
	EventID uint32
	Data    uint32
}

// ExceptionMsg reports a protocol-level complaint from the simulator.
type ExceptionMsg struct {
	Code   uint32
	SendID uint32
	Index  uint32
}

// DataMsg is a telemetry delivery for an earlier RequestData call. Payload is
// the raw element bytes; the element width is not declared and must be
// derived from len(Payload) versus DefineCount.
type DataMsg struct {
	RequestID   uint32
	DefineCount uint32
	Payload     []byte
}

func (OpenMsg) isMessage()      {}
func (QuitMsg) isMessage()      {}
func (EventMsg) isMessage()     {}
func (ExceptionMsg) isMessage() {}
func (DataMsg) isMessage()      {}
