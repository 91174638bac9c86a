package driver

import (
	"fmt"

	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// CompuLab returns the handler for the fit-statUSB, a serial device taking
// ASCII commands: "B#RRGGBB" sets both LEDs to the hex color.
func CompuLab() *light.Family {
	return &light.Family{
		Vendor: "CompuLab",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x2047, ProductID: 0x03DF}: "fit-statUSB",
			},
		},
		New: newFitStatUSB,
		// The fit-statUSB is a shared serial port other tools poke at
		// too; hold it only for the duration of each write.
		Mode:  light.Shared,
		Write: light.WriteLine,
	}
}

type fitStatUSB struct{}

func newFitStatUSB(usb.Descriptor) (light.Protocol, error) {
	return fitStatUSB{}, nil
}

func (fitStatUSB) Frame(st light.State) []byte {
	return fmt.Appendf(nil, "B#%02X%02X%02X", st.Color.R, st.Color.G, st.Color.B)
}
