// Package usb provides the narrow transport surface the light core drives
// devices through: enumeration of USB HID and USB-serial endpoints, and a
// per-device handle with report and feature-report I/O. Everything the core
// knows about the operating system lives behind these two interfaces, so
// tests substitute fakes and the core never touches an OS handle directly.
package usb

import (
	"errors"
	"fmt"
	"time"
)

// Bus identifies which transport produced a Descriptor.
type Bus string

const (
	BusHID    Bus = "hid"
	BusSerial Bus = "serial"
)

// ErrNoFeatureReports is returned by transports whose devices have no HID
// feature-report channel (serial ports).
var ErrNoFeatureReports = errors.New("transport does not support feature reports")

// Descriptor is the immutable record produced for one discovered device.
// It is never mutated after enumeration.
type Descriptor struct {
	VendorID     uint16
	ProductID    uint16
	Path         string
	SerialNumber string
	Product      string
	Manufacturer string
	Release      uint16
	Usage        uint16
	UsagePage    uint16
	Bus          Bus
}

// Validate reports whether the descriptor carries the fields discovery
// requires. Enumeration records missing both IDs are malformed and are
// skipped by the registry rather than failing the whole scan. A single
// zero ID is tolerated: serial enumeration can report a partial pair,
// and claim tables match on the full (vendor, product) pair anyway, so
// such a record can never be claimed by the wrong family.
func (d Descriptor) Validate() error {
	if d.VendorID == 0 && d.ProductID == 0 {
		return fmt.Errorf("descriptor %q missing vendor and product id", d.Path)
	}
	if d.Path == "" {
		return fmt.Errorf("descriptor %04x:%04x missing device path", d.VendorID, d.ProductID)
	}
	return nil
}

// ID returns the descriptor's vendor:product pair formatted the way
// lsusb prints it.
func (d Descriptor) ID() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// Device is one open device handle. Write and SendFeatureReport follow the
// hidapi failure surface: a negative or short count signals a failed write
// even when err is nil.
type Device interface {
	Read(p []byte) (int, error)
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	GetFeatureReport(p []byte) (int, error)
	SendFeatureReport(p []byte) (int, error)
	Close() error
}

// Transport enumerates descriptors and opens device handles by path.
type Transport interface {
	Enumerate() ([]Descriptor, error)
	Open(path string) (Device, error)
}
