// Package hiddev owns the USB grip protocol and device access.
package hiddev

import (
	"github.com/sstallion/go-hid"

	"griprumble-go/errcode"
)

// Winwing identifiers. A grip exposes several logical HID interfaces under
// the same vendor ID; all of them receive vibe frames.
const (
	VendorWinwing     uint16 = 0x4098
	ProductUrsaMinorL uint16 = 0xBC27
)

// Info describes one attached HID interface.
type Info struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	Interface int
	Usage     uint16
	UsagePage uint16
}

// Device is a writable HID handle. No read path is used.
type Device interface {
	Write(frame []byte) error
	Close() error
}

// Opener discovers and opens devices. The output worker depends only on this,
// so tests substitute an in-memory implementation.
type Opener interface {
	Enumerate(vendorID uint16) ([]Info, error)
	Open(path string) (Device, error)
}

// ---- hidapi-backed implementation ----

type HIDAPI struct{}

// NewHIDAPI initializes the hidapi library once for the process.
func NewHIDAPI() (*HIDAPI, error) {
	if err := hid.Init(); err != nil {
		return nil, &errcode.E{C: errcode.SourceUnavailable, Op: "hid_init", Err: err}
	}
	return &HIDAPI{}, nil
}

func (*HIDAPI) Enumerate(vendorID uint16) ([]Info, error) {
	var out []Info
	err := hid.Enumerate(vendorID, hid.ProductIDAny, func(di *hid.DeviceInfo) error {
		out = append(out, Info{
			Path:      di.Path,
			VendorID:  di.VendorID,
			ProductID: di.ProductID,
			Interface: di.InterfaceNbr,
			Usage:     di.Usage,
			UsagePage: di.UsagePage,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (*HIDAPI) Open(path string) (Device, error) {
	d, err := hid.OpenPath(path)
	if err != nil {
		return nil, err
	}
	return &hidDevice{d: d}, nil
}

type hidDevice struct{ d *hid.Device }

func (h *hidDevice) Write(frame []byte) error {
	if _, err := h.d.Write(frame); err != nil {
		return errcode.WriteFailed
	}
	return nil
}

func (h *hidDevice) Close() error { return h.d.Close() }
