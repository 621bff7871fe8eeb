package simsource

import (
	"encoding/binary"
	"math"
	"testing"

	"griprumble-go/errcode"
)

func header(size, id uint32) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], size)
	binary.LittleEndian.PutUint32(b[4:], 0)
	binary.LittleEndian.PutUint32(b[8:], id)
	return b
}

func TestDecodeShortHeader(t *testing.T) {
	if _, err := DecodeMessage([]byte{1, 2, 3}); err != errcode.DecodeShort {
		t.Fatalf("err = %v, want DecodeShort", err)
	}
}

func TestDecodeUnknownID(t *testing.T) {
	if _, err := DecodeMessage(header(12, 99)); err != errcode.DecodeUnknown {
		t.Fatalf("err = %v, want DecodeUnknown", err)
	}
}

func TestDecodeQuit(t *testing.T) {
	m, err := DecodeMessage(header(12, recvIDQuit))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(QuitMsg); !ok {
		t.Fatalf("got %T, want QuitMsg", m)
	}
}

func TestDecodeEvent(t *testing.T) {
	buf := append(header(24, recvIDEvent), make([]byte, 12)...)
	binary.LittleEndian.PutUint32(buf[16:], 4101) // event id
	binary.LittleEndian.PutUint32(buf[20:], 1)    // data

	m, err := DecodeMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	ev, ok := m.(EventMsg)
	if !ok {
		t.Fatalf("got %T, want EventMsg", m)
	}
	if ev.EventID != 4101 || ev.Data != 1 {
		t.Errorf("EventMsg = %+v", ev)
	}
}

func TestDecodeEventTruncated(t *testing.T) {
	buf := append(header(24, recvIDEvent), make([]byte, 4)...)
	if _, err := DecodeMessage(buf); err != errcode.DecodeShort {
		t.Fatalf("err = %v, want DecodeShort", err)
	}
}

func TestDecodeSimObjectData(t *testing.T) {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:], math.Float64bits(123.5))
	binary.LittleEndian.PutUint64(payload[8:], math.Float64bits(-1.0))

	buf := append(header(uint32(dataHeaderLen+len(payload)), recvIDSimObjectData), make([]byte, 28)...)
	binary.LittleEndian.PutUint32(buf[12:], 3001) // request id
	binary.LittleEndian.PutUint32(buf[36:], 2)    // define count
	buf = append(buf, payload...)

	m, err := DecodeMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := m.(DataMsg)
	if !ok {
		t.Fatalf("got %T, want DataMsg", m)
	}
	if d.RequestID != 3001 || d.DefineCount != 2 {
		t.Errorf("DataMsg header = %+v", d)
	}
	vals, ok := DecodeFloats(d.Payload, int(d.DefineCount))
	if !ok || vals[0] != 123.5 || vals[1] != -1.0 {
		t.Errorf("DecodeFloats = %v, %v", vals, ok)
	}
}

func TestDecodeFloatsWidthDetection(t *testing.T) {
	// 3 elements delivered as float32: 12 bytes.
	payload := make([]byte, 12)
	for i, v := range []float32{1.5, 2.5, 3.5} {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	vals, ok := DecodeFloats(payload, 3)
	if !ok {
		t.Fatal("narrow payload rejected")
	}
	if vals[0] != 1.5 || vals[1] != 2.5 || vals[2] != 3.5 {
		t.Errorf("vals = %v", vals)
	}

	// Payload shorter than count*4 must be refused, not partially read.
	if _, ok := DecodeFloats(payload[:8], 3); ok {
		t.Error("undersized payload accepted")
	}
}

func TestDecodeFloatsRefusesAbsurdCount(t *testing.T) {
	// The element count comes off the wire; a hostile or corrupt value must
	// be rejected outright, never used to size an allocation.
	if _, ok := DecodeFloats(make([]byte, 8), 1<<30); ok {
		t.Error("absurd declared count accepted")
	}
	if _, ok := DecodeFloats(nil, 11); ok {
		t.Error("empty payload accepted")
	}
}

func TestDecodeString256(t *testing.T) {
	payload := make([]byte, 256)
	copy(payload, "Ursa Minor Test Aircraft")
	s, ok := DecodeString256(payload)
	if !ok || s != "Ursa Minor Test Aircraft" {
		t.Errorf("DecodeString256 = %q, %v", s, ok)
	}

	if _, ok := DecodeString256(payload[:100]); ok {
		t.Error("short string payload accepted")
	}
}
