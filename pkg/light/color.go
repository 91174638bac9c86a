package light

// Color is the logical 8-bit-per-channel color a light is asked to show.
// Vendor protocols that want a different channel order on the wire reorder
// at serialization time; the logical representation is always RGB.
type Color struct {
	R, G, B uint8
}

// Off is the unlit color.
var Off = Color{}

// Lit reports whether the color lights any channel.
func (c Color) Lit() bool {
	return c != Color{}
}

// Scale multiplies each channel by factor, clamped to [0, 1].
func (c Color) Scale(factor float64) Color {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	return Color{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

// clampChannel converts effect math, which runs in a wider float domain,
// into a legal channel value. Out-of-range values clamp here at the logical
// layer; the bit-field layer below keeps plain register mask semantics.
func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
