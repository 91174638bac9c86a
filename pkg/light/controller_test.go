package light

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/busylamp/busylamp/pkg/usb"
	"github.com/busylamp/busylamp/pkg/usb/usbtest"
)

func waitForWrites(t *testing.T, dev *usbtest.Device, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for len(dev.Writes()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("device never saw %d writes", n)
		}
		time.Sleep(time.Millisecond)
	}
}

// newTestController builds a controller over fake hardware: one family, one
// descriptor per path, every device pre-opened by the initial refresh.
func newTestController(t *testing.T, paths ...string) (*Controller, *usbtest.Transport) {
	t.Helper()

	descs := make([]usb.Descriptor, len(paths))
	for i, p := range paths {
		descs[i] = testDescriptor(p)
	}
	tr := usbtest.NewTransport(descs...)
	reg := newTestRegistry(t, tr, testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	c := NewController(reg, zerolog.Nop())
	t.Cleanup(c.Close)
	return c, tr
}

func TestController_EmptySelectionIsNoOp(t *testing.T) {
	c, _ := newTestController(t)

	sel := c.All()
	if sel.Len() != 0 {
		t.Fatalf("expected empty selection, got %d", sel.Len())
	}

	ctx := context.Background()
	if err := sel.TurnOn(ctx, Color{R: 255}); err != nil {
		t.Errorf("TurnOn on empty selection: %v", err)
	}
	if err := sel.TurnOff(ctx); err != nil {
		t.Errorf("TurnOff on empty selection: %v", err)
	}
	if err := sel.Run(ctx, Steady(Color{R: 255}), 0, 0); err != nil {
		t.Errorf("Run on empty selection: %v", err)
	}
}

func TestSelection_TurnOnWritesEveryMemberOnce(t *testing.T) {
	c, tr := newTestController(t, "p1", "p2", "p3")

	if err := c.All().TurnOn(context.Background(), Color{R: 255}); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	want := []byte{0x01, 0xFF, 0x00, 0x00}
	for _, p := range []string{"p1", "p2", "p3"} {
		writes := tr.Device(p).Writes()
		if len(writes) != 1 {
			t.Fatalf("%s: expected exactly 1 write, got %d", p, len(writes))
		}
		if string(writes[0]) != string(want) {
			t.Errorf("%s: frame %v, want %v", p, writes[0], want)
		}
	}
}

func TestSelection_PartialFailureDoesNotStopBatch(t *testing.T) {
	c, tr := newTestController(t, "p1", "p2", "p3")
	tr.Device("p2").WriteErr = errors.New("unplugged")

	err := c.All().TurnOn(context.Background(), Color{G: 255})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable in joined error, got %v", err)
	}

	for _, p := range []string{"p1", "p3"} {
		if got := len(tr.Device(p).Writes()); got != 1 {
			t.Errorf("%s: healthy member got %d writes, want 1", p, got)
		}
	}
}

func TestByIndex_OutOfRangeSelectsNothing(t *testing.T) {
	c, _ := newTestController(t, "p1", "p2")

	if got := c.ByIndex(0, 1).Len(); got != 2 {
		t.Errorf("in-range indexes: got %d, want 2", got)
	}
	if got := c.ByIndex(1, 7, -1).Len(); got != 1 {
		t.Errorf("mixed indexes: got %d, want 1", got)
	}
	if got := c.ByIndex(9).Len(); got != 0 {
		t.Errorf("out-of-range index: got %d, want 0", got)
	}
}

func TestByName_DuplicatesAndIndex(t *testing.T) {
	c, _ := newTestController(t, "p1", "p2")

	if got := c.ByName("Test Light", -1).Len(); got != 2 {
		t.Errorf("all matches: got %d, want 2", got)
	}
	sel := c.ByName("Test Light", 1)
	if sel.Len() != 1 || sel.Lights()[0].Path() != "p2" {
		t.Errorf("indexed match: got %d lights", sel.Len())
	}
	if got := c.ByName("Test Light", 5).Len(); got != 0 {
		t.Errorf("out-of-range match index: got %d, want 0", got)
	}
	if got := c.ByName("No Such Light", -1).Len(); got != 0 {
		t.Errorf("unknown name: got %d, want 0", got)
	}
}

func TestByPattern(t *testing.T) {
	c, _ := newTestController(t, "p1")

	sel, err := c.ByPattern(`(?i)^test`)
	if err != nil {
		t.Fatalf("ByPattern: %v", err)
	}
	if sel.Len() != 1 {
		t.Errorf("pattern match: got %d, want 1", sel.Len())
	}

	if _, err := c.ByPattern(`[unclosed`); err == nil {
		t.Error("malformed pattern should error")
	}
}

func TestNames_SuffixesOnlyDuplicates(t *testing.T) {
	descs := []usb.Descriptor{
		testDescriptor("p1"),
		testDescriptor("p2"),
		{VendorID: 0x1234, ProductID: 0x5679, Path: "p3", Bus: usb.BusHID},
	}
	tr := usbtest.NewTransport(descs...)
	reg := newTestRegistry(t, tr, testFamily("Test", map[DeviceID]string{
		{0x1234, 0x5678}: "Test Light",
		{0x1234, 0x5679}: "Other Light",
	}))
	c := NewController(reg, zerolog.Nop())
	t.Cleanup(c.Close)

	got := c.Names()
	want := []string{"Other Light", "Test Light #1", "Test Light #2"}
	if len(got) != len(want) {
		t.Fatalf("names: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRefresh_ReusesHeldInstances(t *testing.T) {
	c, tr := newTestController(t, "p1")

	before := c.All().Lights()[0]
	opens := tr.Device("p1").OpenCount()

	tr.Descriptors = append(tr.Descriptors, testDescriptor("p2"))
	c.Refresh()

	lights := c.All().Lights()
	if len(lights) != 2 {
		t.Fatalf("expected hot-plugged light to be added, got %d", len(lights))
	}
	if lights[0] != before {
		t.Error("held instance was recreated on refresh")
	}
	if got := tr.Device("p1").OpenCount(); got != opens {
		t.Errorf("held device reopened: %d opens, want %d", got, opens)
	}
}

func TestClose_ExtinguishesAndReleases(t *testing.T) {
	c, tr := newTestController(t, "p1")

	if err := c.All().TurnOn(context.Background(), Color{B: 255}); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	c.Close()

	dev := tr.Device("p1")
	writes := dev.Writes()
	last := writes[len(writes)-1]
	if string(last) != string([]byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("last frame before close %v, want unlit", last)
	}
	if dev.CloseCount() == 0 {
		t.Error("device handle not released on Close")
	}
	if c.All().Len() != 0 {
		t.Error("controller still holds lights after Close")
	}
}

func TestSelection_RunWaitsForCompletion(t *testing.T) {
	c, tr := newTestController(t, "p1", "p2")

	err := c.All().Run(context.Background(), NewBlink(Color{R: 255}, 2, Fast), time.Millisecond, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, p := range []string{"p1", "p2"} {
		if got := len(tr.Device(p).Writes()); got != 4 {
			t.Errorf("%s: got %d frames, want 4 for two blink cycles", p, got)
		}
	}
}

func TestSelection_RunCancellationLeavesLightsOff(t *testing.T) {
	c, tr := newTestController(t, "p1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.All().Run(ctx, Steady(Color{R: 255}), time.Hour, 0)
	}()

	dev := tr.Device("p1")
	waitForWrites(t, dev, 1)
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run after cancel: %v", err)
	}

	// Run waits for task teardown, so the finalizer has flushed by now.
	writes := dev.Writes()
	last := writes[len(writes)-1]
	if string(last) != string([]byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("last frame %v, want unlit", last)
	}
}
