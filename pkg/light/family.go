package light

import (
	"time"

	"github.com/busylamp/busylamp/pkg/usb"
)

// State is the logical state a light is asked to show. Drivers serialize it
// into their vendor's wire command; the core never builds wire bytes itself.
type State struct {
	Color Color
	// LED addresses one lamp on multi-LED devices. Zero means all LEDs;
	// single-LED protocols ignore it.
	LED int
}

// Protocol builds a vendor's exact wire command from the logical state.
// Implementations are owned by exactly one Light and are mutated only
// through that light's flush path.
type Protocol interface {
	Frame(st State) []byte
}

// Keepaliver is implemented by protocols whose hardware auto-extinguishes
// after a timeout and needs a periodic refresh to hold its state.
type Keepaliver interface {
	// KeepaliveInterval is how often the refresh must be sent to beat the
	// hardware timeout.
	KeepaliveInterval() time.Duration
	// Keepalive builds the refresh command for the current state.
	Keepalive(st State) []byte
}

// WriteStrategy delivers one serialized command to an open device.
type WriteStrategy func(dev usb.Device, p []byte) (int, error)

// ReadStrategy reads n bytes of device state.
type ReadStrategy func(dev usb.Device, n int, timeout time.Duration) ([]byte, error)

// WriteReport is the default write strategy: an ordinary HID output report
// (or a raw write on serial ports).
func WriteReport(dev usb.Device, p []byte) (int, error) {
	return dev.Write(p)
}

// WriteFeature writes through the HID feature-report channel, used by
// devices (blink(1)) that only accept commands there.
func WriteFeature(dev usb.Device, p []byte) (int, error) {
	return dev.SendFeatureReport(p)
}

// WriteLine terminates the command with a newline before writing, for
// serial devices speaking ASCII line protocols. The reported count covers
// the caller's bytes only; a write that drops any part of the line,
// terminator included, reports short.
func WriteLine(dev usb.Device, p []byte) (int, error) {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, p...)
	buf = append(buf, '\n')
	n, err := dev.Write(buf)
	if n >= len(buf) {
		return len(p), err
	}
	if n > len(p)-1 {
		n = len(p) - 1
	}
	return n, err
}

// ReadReport is the default read strategy.
func ReadReport(dev usb.Device, n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	read, err := dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

// ReadFeature reads through the HID feature-report channel.
func ReadFeature(dev usb.Device, n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	read, err := dev.GetFeatureReport(buf)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

// AcquisitionMode controls how long a light holds its OS device handle.
type AcquisitionMode int

const (
	// Exclusive holds the handle open for the instance's full lifetime.
	Exclusive AcquisitionMode = iota
	// Shared opens and closes the handle around each update, permitting
	// cooperative multi-process access at the cost of a wider race window.
	Shared
)

// Family is one protocol handler: the declarative description of a device
// family the registry uses to claim descriptors and construct lights.
// Families are registered explicitly at startup; there is no reflective
// discovery.
type Family struct {
	// Vendor is the family's display vendor name.
	Vendor string
	// Rule decides which descriptors this family claims.
	Rule ClaimRule
	// New builds the family's protocol encoder for a claimed descriptor.
	New func(d usb.Descriptor) (Protocol, error)
	// Write and Read override the default I/O strategies when set.
	Write WriteStrategy
	Read  ReadStrategy
	// Mode is the acquisition mode for the family's lights.
	Mode AcquisitionMode
}
