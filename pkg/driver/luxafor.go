package driver

import (
	"strings"

	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

// Luxafor ships the Flag, Mute, and Orb on one shared VID/PID; only the
// product string tells them apart, so each handler carries a secondary
// discriminator and a descriptor naming none of them is claimed by nobody.
// All three speak the same byte-aligned command set, so they share one
// encoder and one ID table rather than copying it per product.

var luxaforID = light.DeviceID{VendorID: 0x04D8, ProductID: 0xF372}

const (
	luxaforModeStatic = 0x01
	luxaforLEDAll     = 0xFF
)

// luxaforFamily builds one of the shared-ID handlers.
func luxaforFamily(product string) *light.Family {
	name := "Luxafor " + product
	match := strings.ToLower(product)
	return &light.Family{
		Vendor: "Luxafor",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{luxaforID: name},
			Match: func(d usb.Descriptor) bool {
				return strings.Contains(strings.ToLower(d.Product), match)
			},
		},
		New: newLuxafor,
	}
}

// LuxaforFlag returns the handler for the Luxafor Flag.
func LuxaforFlag() *light.Family { return luxaforFamily("Flag") }

// LuxaforMute returns the handler for the Luxafor Mute.
func LuxaforMute() *light.Family { return luxaforFamily("Mute") }

// LuxaforOrb returns the handler for the Luxafor Orb.
func LuxaforOrb() *light.Family { return luxaforFamily("Orb") }

// luxafor builds the byte-aligned command directly: the protocol has no
// sub-byte fields, so it bypasses the word register.
type luxafor struct{}

func newLuxafor(usb.Descriptor) (light.Protocol, error) {
	return luxafor{}, nil
}

func (luxafor) Frame(st light.State) []byte {
	led := byte(luxaforLEDAll)
	if st.LED > 0 && st.LED <= 6 {
		led = byte(st.LED)
	}
	return []byte{luxaforModeStatic, led, st.Color.R, st.Color.G, st.Color.B}
}
