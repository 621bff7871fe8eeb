package simsource

import (
	"encoding/binary"
	"math"
	"sync"

	"griprumble-go/errcode"
)

// FieldDef records one AddToDefinition call against a Replay source.
type FieldDef struct {
	Name string
	Unit string
	Type FieldType
}

// Request records one RequestData call.
type Request struct {
	ReqID  uint32
	DefID  uint32
	Period Period
}

// Replay is an in-memory Source fed by the caller. It records registration
// traffic so tests can assert on definitions, requests and re-requests.
type Replay struct {
	mu     sync.Mutex
	queue  []Message
	opened bool

	// FailOpens makes the next n Open calls fail (connection retry tests).
	FailOpens int
	// NoEvents rejects all SubscribeEvent calls (legacy pause fallback).
	NoEvents bool
	// RejectFields lists field names AddToDefinition must refuse.
	RejectFields map[string]bool

	Definitions map[uint32][]FieldDef
	Requests    []Request
	Subscribed  map[uint32]string
	Closed      int
}

func NewReplay() *Replay {
	return &Replay{
		Definitions: map[uint32][]FieldDef{},
		Subscribed:  map[uint32]string{},
	}
}

func (r *Replay) Open(appName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOpens > 0 {
		r.FailOpens--
		return errcode.SourceUnavailable
	}
	r.opened = true
	return nil
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = false
	r.Closed++
	return nil
}

func (r *Replay) AddToDefinition(defID uint32, name, unit string, ft FieldType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RejectFields[name] {
		return errcode.FieldRejected
	}
	r.Definitions[defID] = append(r.Definitions[defID], FieldDef{Name: name, Unit: unit, Type: ft})
	return nil
}

func (r *Replay) RequestData(reqID, defID uint32, period Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, Request{ReqID: reqID, DefID: defID, Period: period})
	return nil
}

// RequestCount returns how many RequestData calls targeted reqID.
func (r *Replay) RequestCount(reqID uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.Requests {
		if q.ReqID == reqID {
			n++
		}
	}
	return n
}

func (r *Replay) SubscribeEvent(eventID uint32, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.NoEvents {
		return errcode.FieldRejected
	}
	r.Subscribed[eventID] = name
	return nil
}

func (r *Replay) NextDispatch() (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil, ErrNoDispatch
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

// Enqueue appends a message for delivery.
func (r *Replay) Enqueue(m Message) {
	r.mu.Lock()
	r.queue = append(r.queue, m)
	r.mu.Unlock()
}

// EnqueueFloats packs vals as a data payload for reqID. wide selects the
// 64-bit element width, otherwise 32-bit floats are emitted.
func (r *Replay) EnqueueFloats(reqID uint32, vals []float64, wide bool) {
	var payload []byte
	if wide {
		payload = make([]byte, len(vals)*8)
		for i, v := range vals {
			binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
		}
	} else {
		payload = make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(float32(v)))
		}
	}
	r.Enqueue(DataMsg{RequestID: reqID, DefineCount: uint32(len(vals)), Payload: payload})
}

// EnqueueString packs a STRING256 payload for reqID.
func (r *Replay) EnqueueString(reqID uint32, s string) {
	payload := make([]byte, 256)
	copy(payload, s)
	r.Enqueue(DataMsg{RequestID: reqID, DefineCount: 1, Payload: payload})
}
