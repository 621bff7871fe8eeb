//go:build windows

package simsource

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"griprumble-go/errcode"
)

// Native datatype and period selectors.
const (
	scDatatypeFloat64   = 4
	scDatatypeString256 = 12

	scPeriodOnce     = 1
	scPeriodSimFrame = 3

	scUserObjectID = 0
)

// SimConnect drives the real simulator through SimConnect.dll, resolved at
// runtime so the binary starts on machines without the simulator installed.
type SimConnect struct {
	open         *windows.LazyProc
	close        *windows.LazyProc
	addToDef     *windows.LazyProc
	reqData      *windows.LazyProc
	nextDispatch *windows.LazyProc
	subscribe    *windows.LazyProc // nil when the DLL does not export it

	h uintptr
}

// NewSimConnect resolves the entry points. Only the mandatory ones are
// verified here; SubscribeToSystemEvent is optional.
func NewSimConnect() (*SimConnect, error) {
	dll := windows.NewLazyDLL("SimConnect.dll")

	s := &SimConnect{
		open:         dll.NewProc("SimConnect_Open"),
		close:        dll.NewProc("SimConnect_Close"),
		addToDef:     dll.NewProc("SimConnect_AddToDataDefinition"),
		reqData:      dll.NewProc("SimConnect_RequestDataOnSimObject"),
		nextDispatch: dll.NewProc("SimConnect_GetNextDispatch"),
	}
	for _, p := range []*windows.LazyProc{s.open, s.close, s.addToDef, s.reqData, s.nextDispatch} {
		if err := p.Find(); err != nil {
			return nil, &errcode.E{C: errcode.SourceUnavailable, Op: "load", Err: err}
		}
	}
	if sub := dll.NewProc("SimConnect_SubscribeToSystemEvent"); sub.Find() == nil {
		s.subscribe = sub
	}
	return s, nil
}

func hrFailed(r uintptr) bool { return int32(r) < 0 }

func (s *SimConnect) Open(appName string) error {
	name, err := windows.BytePtrFromString(appName)
	if err != nil {
		return errcode.InvalidParams
	}
	var h uintptr
	r, _, _ := s.open.Call(
		uintptr(unsafe.Pointer(&h)),
		uintptr(unsafe.Pointer(name)),
		0, 0, 0,
		0xFFFFFFFF,
	)
	if hrFailed(r) || h == 0 {
		return errcode.SourceUnavailable
	}
	s.h = h
	return nil
}

func (s *SimConnect) Close() error {
	if s.h == 0 {
		return nil
	}
	r, _, _ := s.close.Call(s.h)
	s.h = 0
	if hrFailed(r) {
		return errcode.Error
	}
	return nil
}

func (s *SimConnect) AddToDefinition(defID uint32, name, unit string, ft FieldType) error {
	n, err := windows.BytePtrFromString(name)
	if err != nil {
		return errcode.InvalidParams
	}
	var u *byte
	if unit != "" {
		if u, err = windows.BytePtrFromString(unit); err != nil {
			return errcode.InvalidParams
		}
	}
	dt := uintptr(scDatatypeFloat64)
	if ft == String256 {
		dt = scDatatypeString256
	}
	r, _, _ := s.addToDef.Call(
		s.h,
		uintptr(defID),
		uintptr(unsafe.Pointer(n)),
		uintptr(unsafe.Pointer(u)),
		dt,
		0, // epsilon
		0xFFFFFFFF,
	)
	if hrFailed(r) {
		return errcode.FieldRejected
	}
	return nil
}

func (s *SimConnect) RequestData(reqID, defID uint32, period Period) error {
	p := uintptr(scPeriodSimFrame)
	if period == Once {
		p = scPeriodOnce
	}
	r, _, _ := s.reqData.Call(
		s.h,
		uintptr(reqID),
		uintptr(defID),
		scUserObjectID,
		p,
		0, 0, 0, 0,
	)
	if hrFailed(r) {
		return errcode.Error
	}
	return nil
}

func (s *SimConnect) SubscribeEvent(eventID uint32, name string) error {
	if s.subscribe == nil {
		return errcode.FieldRejected
	}
	n, err := windows.BytePtrFromString(name)
	if err != nil {
		return errcode.InvalidParams
	}
	r, _, _ := s.subscribe.Call(s.h, uintptr(eventID), uintptr(unsafe.Pointer(n)))
	if hrFailed(r) {
		return errcode.FieldRejected
	}
	return nil
}

func (s *SimConnect) NextDispatch() (Message, error) {
	var pRecv uintptr
	var cb uint32
	r, _, _ := s.nextDispatch.Call(
		s.h,
		uintptr(unsafe.Pointer(&pRecv)),
		uintptr(unsafe.Pointer(&cb)),
	)
	if hrFailed(r) || pRecv == 0 || cb < recvHeaderLen {
		return nil, ErrNoDispatch
	}
	// Copy out of the library-owned buffer before it is recycled.
	buf := make([]byte, cb)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(pRecv)), cb))
	return DecodeMessage(buf)
}
