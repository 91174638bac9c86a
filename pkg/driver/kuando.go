package driver

import (
	"time"

	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
	"github.com/busylamp/busylamp/pkg/word"
)

// The Busylight command buffer is 64 bytes: eight 8-byte program steps and
// a footer. Only step 0 and the footer matter for steady colors; the final
// two bytes carry a checksum over everything before them. The hardware
// extinguishes itself when no command arrives within its timeout, so the
// family needs a keepalive refresh.
const (
	kuandoOpJump      = 0x10 // run program from step 0
	kuandoOpKeepalive = 0x80 // high nibble; low nibble is the timeout in seconds
	kuandoTimeout     = 15 * time.Second
)

// kuandoByte positions a field on the named byte of the 64-byte buffer.
func kuandoByte(name string, index uint) word.Field {
	return word.Field{Name: name, Offset: (63 - index) * 8, Width: 8}
}

var kuandoFields = []word.Field{
	kuandoByte("op", 0),
	kuandoByte("repeat", 1),
	kuandoByte("red", 2),
	kuandoByte("green", 3),
	kuandoByte("blue", 4),
	kuandoByte("on_time", 5),
	kuandoByte("off_time", 6),
	kuandoByte("update", 7),
	kuandoByte("sensitivity", 56),
	kuandoByte("timeout", 57),
	kuandoByte("trigger", 58),
	{Name: "checksum", Offset: 0, Width: 16},
}

// Kuando returns the handler for the Busylight family.
func Kuando() *light.Family {
	return &light.Family{
		Vendor: "Kuando",
		Rule: light.ClaimRule{
			IDs: map[light.DeviceID]string{
				{VendorID: 0x27BB, ProductID: 0x3BCA}: "Busylight Alpha",
				{VendorID: 0x27BB, ProductID: 0x3BCD}: "Busylight UC Omega",
				{VendorID: 0x27BB, ProductID: 0x3BCF}: "Busylight Omega",
			},
		},
		New: newKuando,
	}
}

type kuando struct {
	w *word.Word
}

func newKuando(usb.Descriptor) (light.Protocol, error) {
	w, err := word.New(512, kuandoFields)
	if err != nil {
		return nil, err
	}
	w.SetChecksum("checksum")
	return &kuando{w: w}, nil
}

func (k *kuando) Frame(st light.State) []byte {
	k.w.Set("op", kuandoOpJump)
	k.w.Set("repeat", 0)
	k.w.Set("red", kuandoScale(st.Color.R))
	k.w.Set("green", kuandoScale(st.Color.G))
	k.w.Set("blue", kuandoScale(st.Color.B))
	k.w.Set("on_time", 0)
	k.w.Set("off_time", 0)
	k.w.Set("update", 1)
	return k.w.Bytes()
}

// KeepaliveInterval refreshes at half the hardware timeout.
func (k *kuando) KeepaliveInterval() time.Duration {
	return kuandoTimeout / 2
}

// Keepalive builds the refresh command: the op byte carries the timeout in
// seconds in its low nibble.
func (k *kuando) Keepalive(light.State) []byte {
	k.w.Set("op", kuandoOpKeepalive|uint64(kuandoTimeout/time.Second)&0x0F)
	k.w.Set("update", 0)
	return k.w.Bytes()
}

// kuandoScale converts an 8-bit channel to the device's 0-100 range.
func kuandoScale(v uint8) uint64 {
	return uint64(v) * 100 / 255
}
