package driver

import (
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// The blink(1) accepts commands only on the HID feature-report channel:
// report ID 1, an ASCII opcode, then the payload.
const (
	thingmReportID   = 0x01
	thingmOpSetColor = 'n' // set color now
)

// ThingM returns the handler for the blink(1) family.
func ThingM() *light.Family {
	return &light.Family{
		Vendor: "ThingM",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x27B8, ProductID: 0x01ED}: "Blink(1)",
			},
		},
		New:   newThingM,
		Write: light.WriteFeature,
		Read:  light.ReadFeature,
	}
}

type thingm struct{}

func newThingM(usb.Descriptor) (light.Protocol, error) {
	return thingm{}, nil
}

func (thingm) Frame(st light.State) []byte {
	return []byte{
		thingmReportID, thingmOpSetColor,
		st.Color.R, st.Color.G, st.Color.B,
		0x00, 0x00, 0x00, 0x00,
	}
}
