package driver

import (
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
	"github.com/busylamp/busylamp/pkg/word"
)

// Blynclight command word, 72 bits. Color travels in R, B, G order — the
// reorder happens here in the field layout, never in the logical color.
//
//	byte 0: header, always 0x00
//	byte 1: red    byte 2: blue    byte 3: green
//	byte 4: off(1) dim(1) flash(1) speed(3) play(1) repeat(1)
//	byte 5: music(4) mute(1)
//	byte 6: volume(4)
//	bytes 7-8: footer, always 0xFF22
var blynclightFields = []word.Field{
	{Name: "header", Offset: 64, Width: 8, ReadOnly: true},
	{Name: "red", Offset: 56, Width: 8},
	{Name: "blue", Offset: 48, Width: 8},
	{Name: "green", Offset: 40, Width: 8},
	{Name: "off", Offset: 39, Width: 1},
	{Name: "dim", Offset: 38, Width: 1},
	{Name: "flash", Offset: 37, Width: 1},
	{Name: "speed", Offset: 34, Width: 3},
	{Name: "play", Offset: 33, Width: 1},
	{Name: "repeat", Offset: 32, Width: 1},
	{Name: "music", Offset: 28, Width: 4},
	{Name: "mute", Offset: 27, Width: 1},
	{Name: "volume", Offset: 16, Width: 4},
	{Name: "footer", Offset: 0, Width: 16, ReadOnly: true},
}

// Embrava returns the handler for the Blynclight family.
func Embrava() *light.Family {
	return &light.Family{
		Vendor: "Embrava",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x2C0D, ProductID: 0x0001}: "Blynclight",
				{VendorID: 0x2C0D, ProductID: 0x000A}: "Blynclight Mini",
				{VendorID: 0x2C0D, ProductID: 0x000C}: "Blynclight Plus",
				{VendorID: 0x03E5, ProductID: 0x0808}: "Blynclight",
			},
		},
		New: newBlynclight,
	}
}

type blynclight struct {
	w *word.Word
}

func newBlynclight(usb.Descriptor) (light.Protocol, error) {
	w, err := word.New(72, blynclightFields)
	if err != nil {
		return nil, err
	}
	w.SetDefault("footer", 0xFF22)
	// The hardware ships lit; start from the extinguished state.
	w.SetDefault("off", 1)
	return &blynclight{w: w}, nil
}

func (b *blynclight) Frame(st light.State) []byte {
	b.w.Set("red", uint64(st.Color.R))
	b.w.Set("blue", uint64(st.Color.B))
	b.w.Set("green", uint64(st.Color.G))
	if st.Color.Lit() {
		b.w.Set("off", 0)
	} else {
		b.w.Set("off", 1)
	}
	return b.w.Bytes()
}
