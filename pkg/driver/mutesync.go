package driver

import (
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// The MuteSync button is a serial device with four LEDs; one command sets
// all of them: an opcode byte followed by the color repeated per LED.
const (
	mutesyncOpColor = 0x41
	mutesyncLEDs    = 4
)

// MuteSync returns the handler for the MuteSync button family.
func MuteSync() *light.Family {
	return &light.Family{
		Vendor: "MuteSync",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x10C4, ProductID: 0xEA60}: "MuteSync Button",
			},
		},
		New: newMuteSync,
	}
}

type mutesync struct{}

func newMuteSync(usb.Descriptor) (light.Protocol, error) {
	return mutesync{}, nil
}

func (mutesync) Frame(st light.State) []byte {
	buf := make([]byte, 0, 1+3*mutesyncLEDs)
	buf = append(buf, mutesyncOpColor)
	for i := 0; i < mutesyncLEDs; i++ {
		buf = append(buf, st.Color.R, st.Color.G, st.Color.B)
	}
	return buf
}
