package simsource

import (
	"encoding/binary"
	"math"

	"griprumble-go/errcode"
)

// Native message identifiers (SIMCONNECT_RECV_ID_*).
const (
	recvIDOpen          = 2
	recvIDQuit          = 3
	recvIDEvent         = 4
	recvIDException     = 5
	recvIDEventFrame    = 7
	recvIDSimObjectData = 8
)

const (
	recvHeaderLen = 12 // dwSize, dwVersion, dwID
	eventLen      = recvHeaderLen + 12
	exceptionLen  = recvHeaderLen + 12
	// dwRequestID, dwObjectID, dwDefineID, dwFlags, dwEntryNumber, dwOutOf,
	// dwDefineCount precede the payload.
	dataHeaderLen = recvHeaderLen + 28
	openAppName   = 256
)

// DecodeMessage interprets a raw receive buffer as one of the closed set of
// message variants. Every length is checked against the bytes actually
// received; the declared dwSize is never trusted on its own.
func DecodeMessage(buf []byte) (Message, error) {
	if len(buf) < recvHeaderLen {
		return nil, errcode.DecodeShort
	}
	id := binary.LittleEndian.Uint32(buf[8:12])

	switch id {
	case recvIDOpen:
		name := ""
		if len(buf) >= recvHeaderLen+openAppName {
			name = cstr(buf[recvHeaderLen : recvHeaderLen+openAppName])
		}
		return OpenMsg{AppName: name}, nil

	case recvIDQuit:
		return QuitMsg{}, nil

	case recvIDEvent, recvIDEventFrame:
		if len(buf) < eventLen {
			return nil, errcode.DecodeShort
		}
		return EventMsg{
			EventID: binary.LittleEndian.Uint32(buf[16:20]),
			Data:    binary.LittleEndian.Uint32(buf[20:24]),
		}, nil

	case recvIDException:
		if len(buf) < exceptionLen {
			return nil, errcode.DecodeShort
		}
		return ExceptionMsg{
			Code:   binary.LittleEndian.Uint32(buf[12:16]),
			SendID: binary.LittleEndian.Uint32(buf[16:20]),
			Index:  binary.LittleEndian.Uint32(buf[20:24]),
		}, nil

	case recvIDSimObjectData:
		if len(buf) < dataHeaderLen {
			return nil, errcode.DecodeShort
		}
		payload := make([]byte, len(buf)-dataHeaderLen)
		copy(payload, buf[dataHeaderLen:])
		return DataMsg{
			RequestID:   binary.LittleEndian.Uint32(buf[12:16]),
			DefineCount: binary.LittleEndian.Uint32(buf[36:40]),
			Payload:     payload,
		}, nil
	}
	return nil, errcode.DecodeUnknown
}

// DecodeFloats extracts count numeric elements from a data payload. The
// simulator auto-selects a 32- or 64-bit width; it is detected from the
// payload length so a narrow payload is never misread as float64.
func DecodeFloats(payload []byte, count int) ([]float64, bool) {
	// The count is declared by the peer; size nothing from it until it has
	// been checked against the bytes actually received.
	if count <= 0 || count > len(payload)/4 {
		return nil, false
	}
	out := make([]float64, count)
	if len(payload) >= count*8 {
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint64(payload[i*8:])
			out[i] = math.Float64frombits(bits)
		}
	} else {
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint32(payload[i*4:])
			out[i] = float64(math.Float32frombits(bits))
		}
	}
	return out, true
}

// DecodeString256 extracts a NUL-terminated STRING256 payload.
func DecodeString256(payload []byte) (string, bool) {
	if len(payload) < 256 {
		return "", false
	}
	return cstr(payload[:256]), true
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
