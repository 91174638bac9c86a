package driver

import (
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// The MuteMe has no per-channel brightness: its command is one byte with a
// bit per primary color, so any non-zero channel lights that primary.
const (
	mutemeRed   = 0x01
	mutemeGreen = 0x02
	mutemeBlue  = 0x04
)

// MuteMe returns the handler for the MuteMe button family.
func MuteMe() *light.Family {
	return &light.Family{
		Vendor: "MuteMe",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x16C0, ProductID: 0x27DB}: "MuteMe Original",
				{VendorID: 0x20A0, ProductID: 0x42DA}: "MuteMe Original",
			},
		},
		New: newMuteMe,
	}
}

type muteme struct{}

func newMuteMe(usb.Descriptor) (light.Protocol, error) {
	return muteme{}, nil
}

func (muteme) Frame(st light.State) []byte {
	var bits byte
	if st.Color.R > 0 {
		bits |= mutemeRed
	}
	if st.Color.G > 0 {
		bits |= mutemeGreen
	}
	if st.Color.B > 0 {
		bits |= mutemeBlue
	}
	return []byte{0x00, bits}
}
