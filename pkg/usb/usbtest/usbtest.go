// Package usbtest provides in-memory fakes for the usb transport
// interfaces. A Device records every write it receives and can be scripted
// to fail, which is how the core's unplug-during-write and short-write
// paths are exercised without hardware.
package usbtest

import (
	"errors"
	"sync"
	"time"

	"github.com/busylamp/busylamp/pkg/usb"
)

// ErrClosed is returned by device operations after Close.
var ErrClosed = errors.New("usbtest: device closed")

// Device is a scriptable fake usb.Device.
type Device struct {
	mu sync.Mutex

	// WriteResult, when non-zero, is returned from Write instead of
	// len(p). Negative values model the hidapi failure convention.
	WriteResult int
	// WriteErr, when set, is returned from Write.
	WriteErr error
	// ReadData is returned from reads.
	ReadData []byte

	writes   [][]byte
	features [][]byte
	closed   bool
	opens    int
	closes   int
}

// Writes returns a copy of every buffer passed to Write so far.
func (d *Device) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	copy(out, d.writes)
	return out
}

// FeatureReports returns every buffer passed to SendFeatureReport.
func (d *Device) FeatureReports() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.features))
	copy(out, d.features)
	return out
}

// OpenCount reports how many times the owning Transport opened this device.
func (d *Device) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// CloseCount reports how many times Close was called.
func (d *Device) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	n := copy(p, d.ReadData)
	return n, nil
}

func (d *Device) ReadWithTimeout(p []byte, _ time.Duration) (int, error) {
	return d.Read(p)
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	d.writes = append(d.writes, buf)

	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	if d.WriteResult != 0 {
		return d.WriteResult, nil
	}
	return len(p), nil
}

func (d *Device) GetFeatureReport(p []byte) (int, error) {
	return d.Read(p)
}

func (d *Device) SendFeatureReport(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	d.features = append(d.features, buf)

	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	if d.WriteResult != 0 {
		return d.WriteResult, nil
	}
	return len(p), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.closes++
	return nil
}

// reopen resets the closed flag when a shared-mode light reopens the path.
func (d *Device) reopen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = false
	d.opens++
}

// Transport is a fake usb.Transport serving a fixed descriptor list.
type Transport struct {
	mu sync.Mutex

	// Descriptors is the enumeration result.
	Descriptors []usb.Descriptor
	// EnumerateErr, when set, fails Enumerate.
	EnumerateErr error
	// OpenErr maps device paths to open failures.
	OpenErr map[string]error

	devices map[string]*Device
}

// NewTransport builds a Transport enumerating the given descriptors.
func NewTransport(descs ...usb.Descriptor) *Transport {
	return &Transport{
		Descriptors: descs,
		OpenErr:     make(map[string]error),
		devices:     make(map[string]*Device),
	}
}

// Device returns the fake device for a path, creating it on first use so
// tests can script failures before or after the light opens it.
func (t *Transport) Device(path string) *Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, ok := t.devices[path]
	if !ok {
		dev = &Device{}
		t.devices[path] = dev
	}
	return dev
}

func (t *Transport) Enumerate() ([]usb.Descriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.EnumerateErr != nil {
		return nil, t.EnumerateErr
	}
	out := make([]usb.Descriptor, len(t.Descriptors))
	copy(out, t.Descriptors)
	return out, nil
}

func (t *Transport) Open(path string) (usb.Device, error) {
	t.mu.Lock()
	if err := t.OpenErr[path]; err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	dev := t.Device(path)
	dev.reopen()
	return dev, nil
}
