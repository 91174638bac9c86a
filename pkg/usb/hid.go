package usb

import (
	"fmt"
	"time"

	hid "github.com/sstallion/go-hid"
)

// HID is the hidapi-backed Transport for USB HID devices.
type HID struct{}

// NewHID initializes the hidapi library and returns the HID transport.
func NewHID() (*HID, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("init hidapi: %w", err)
	}
	return &HID{}, nil
}

// Close releases the hidapi library. Open device handles stay valid until
// closed individually.
func (h *HID) Close() error {
	return hid.Exit()
}

// Enumerate lists every HID device visible to the process. A hidapi
// enumeration error aborts the scan; per-record defects are left to the
// caller, which validates each descriptor individually.
func (h *HID) Enumerate() ([]Descriptor, error) {
	var found []Descriptor
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		found = append(found, Descriptor{
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Path:         info.Path,
			SerialNumber: info.SerialNbr,
			Product:      info.ProductStr,
			Manufacturer: info.MfrStr,
			Release:      info.ReleaseNbr,
			Usage:        info.Usage,
			UsagePage:    info.UsagePage,
			Bus:          BusHID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate hid devices: %w", err)
	}
	return found, nil
}

// Open opens the HID device at the given platform path.
func (h *HID) Open(path string) (Device, error) {
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("open hid device %s: %w", path, err)
	}
	return &hidDevice{dev: dev}, nil
}

// hidDevice adapts *hid.Device to the Device interface.
type hidDevice struct {
	dev *hid.Device
}

func (d *hidDevice) Read(p []byte) (int, error) {
	return d.dev.Read(p)
}

func (d *hidDevice) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	return d.dev.ReadWithTimeout(p, timeout)
}

func (d *hidDevice) Write(p []byte) (int, error) {
	return d.dev.Write(p)
}

func (d *hidDevice) GetFeatureReport(p []byte) (int, error) {
	return d.dev.GetFeatureReport(p)
}

func (d *hidDevice) SendFeatureReport(p []byte) (int, error) {
	return d.dev.SendFeatureReport(p)
}

func (d *hidDevice) Close() error {
	return d.dev.Close()
}
