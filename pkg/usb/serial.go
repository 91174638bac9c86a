package usb

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Serial is the Transport for USB-serial presence lights. Ports open at
// 115200 baud, 8N1, which every supported serial light speaks.
type Serial struct{}

// NewSerial returns the serial transport.
func NewSerial() *Serial {
	return &Serial{}
}

// Enumerate lists USB serial ports with their vendor/product IDs. Ports
// that are not USB-backed carry no IDs and are reported with zero IDs so
// the registry's descriptor validation can skip them.
func (s *Serial) Enumerate() ([]Descriptor, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var found []Descriptor
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		found = append(found, Descriptor{
			VendorID:     parseHexID(port.VID),
			ProductID:    parseHexID(port.PID),
			Path:         port.Name,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
			Bus:          BusSerial,
		})
	}
	return found, nil
}

// Open opens the serial port at the given path.
func (s *Serial) Open(path string) (Device, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return &serialDevice{port: port}, nil
}

// parseHexID parses the hex VID/PID strings the enumerator reports.
// Malformed or absent values become zero and fail descriptor validation.
func parseHexID(s string) uint16 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// serialDevice adapts serial.Port to the Device interface. Writes are
// serialized: two tasks flushing the same light must not interleave bytes
// on the wire.
type serialDevice struct {
	port serial.Port
	mu   sync.Mutex
}

func (d *serialDevice) Read(p []byte) (int, error) {
	return d.port.Read(p)
}

func (d *serialDevice) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	if err := d.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("set read timeout: %w", err)
	}
	return d.port.Read(p)
}

func (d *serialDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Write(p)
}

func (d *serialDevice) GetFeatureReport(p []byte) (int, error) {
	return 0, ErrNoFeatureReports
}

func (d *serialDevice) SendFeatureReport(p []byte) (int, error) {
	return 0, ErrNoFeatureReports
}

func (d *serialDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}
