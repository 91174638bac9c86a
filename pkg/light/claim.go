package light

import "github.com/busylamp/busylamp/pkg/usb"

// DeviceID is one (vendor, product) pair a family supports.
type DeviceID struct {
	VendorID  uint16
	ProductID uint16
}

// ClaimRule decides whether a family claims a discovered descriptor: a set
// of supported (vendor, product) pairs, optionally narrowed by a secondary
// match over the descriptor strings. The secondary match is how product
// lines sharing one USB ID (the Luxafor case) stay unambiguous — exactly
// one family may claim any given descriptor.
type ClaimRule struct {
	IDs   map[DeviceID]string // supported id -> marketing name
	Match func(usb.Descriptor) bool
}

// Claims reports whether the rule matches the descriptor.
func (r ClaimRule) Claims(d usb.Descriptor) bool {
	if _, ok := r.IDs[DeviceID{d.VendorID, d.ProductID}]; !ok {
		return false
	}
	if r.Match != nil {
		return r.Match(d)
	}
	return true
}

// Name returns the marketing name for the descriptor's ID, or the empty
// string when the rule does not cover it.
func (r ClaimRule) Name(d usb.Descriptor) string {
	return r.IDs[DeviceID{d.VendorID, d.ProductID}]
}
