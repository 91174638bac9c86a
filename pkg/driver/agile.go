package driver

import (
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// BlinkStick color data travels green-red-blue on the wire. The reorder
// happens at serialization time; the logical color stays RGB.
const blinkstickReportColor = 0x01

// Agile returns the handler for the Agile Innovative BlinkStick family.
func Agile() *light.Family {
	return &light.Family{
		Vendor: "Agile Innovative",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x20A0, ProductID: 0x41E5}: "BlinkStick",
			},
		},
		New:   newBlinkstick,
		Write: light.WriteFeature,
		Read:  light.ReadFeature,
	}
}

type blinkstick struct{}

func newBlinkstick(usb.Descriptor) (light.Protocol, error) {
	return blinkstick{}, nil
}

func (blinkstick) Frame(st light.State) []byte {
	return []byte{blinkstickReportColor, st.Color.G, st.Color.R, st.Color.B}
}
