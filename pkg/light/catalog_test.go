package light

import (
	"strings"
	"testing"

	"github.com/busylamp/busylamp/pkg/usb"
	"github.com/busylamp/busylamp/pkg/usb/usbtest"
)

const testCatalog = `
Test:
  - vendor_id: 0x1234
    product_id: 0x9999
    name: Test Light Mini
  - vendor_id: 0x1234
    product_id: 0x5678
    name: Renamed Duplicate
`

func TestLoadCatalog_MergesNewEntries(t *testing.T) {
	tr := usbtest.NewTransport(usb.Descriptor{VendorID: 0x1234, ProductID: 0x9999, Path: "p1"})
	reg := newTestRegistry(t, tr, testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	if err := reg.LoadCatalog(strings.NewReader(testCatalog)); err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	claimed := reg.Claimed()
	if len(claimed) != 1 {
		t.Fatalf("catalog device not claimed, got %d", len(claimed))
	}
	if claimed[0].Name != "Test Light Mini" {
		t.Errorf("claimed name %q, want the catalog name", claimed[0].Name)
	}

	// The family's own entry wins over a catalog duplicate.
	names := reg.Supported()["Test"]
	for _, n := range names {
		if n == "Renamed Duplicate" {
			t.Error("catalog entry overrode a built-in device id")
		}
	}
}

func TestLoadCatalog_RejectsUnregisteredVendor(t *testing.T) {
	reg := newTestRegistry(t, usbtest.NewTransport(),
		testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	err := reg.LoadCatalog(strings.NewReader("NoSuchVendor:\n  - vendor_id: 0x0001\n    product_id: 0x0001\n    name: X\n"))
	if err == nil {
		t.Fatal("expected unregistered vendor to be rejected")
	}
}

func TestLoadCatalog_RejectsIDClaimedByAnotherFamily(t *testing.T) {
	reg := newTestRegistry(t, usbtest.NewTransport(),
		testFamily("Alpha", map[DeviceID]string{{0x0001, 0x0001}: "Alpha One"}),
		testFamily("Beta", map[DeviceID]string{{0x0002, 0x0002}: "Beta One"}))

	err := reg.LoadCatalog(strings.NewReader("Beta:\n  - vendor_id: 0x0001\n    product_id: 0x0001\n    name: Beta Clone\n"))
	if err == nil {
		t.Fatal("expected cross-family id collision to be rejected")
	}

	// The rejected entry must not have widened Beta's claim set.
	desc := usb.Descriptor{VendorID: 0x0001, ProductID: 0x0001, Path: "p"}
	claimed := 0
	for _, f := range []string{"Alpha", "Beta"} {
		if reg.familyLocked(f).Rule.Claims(desc) {
			claimed++
		}
	}
	if claimed != 1 {
		t.Errorf("descriptor claimable by %d families, want 1", claimed)
	}
}

func TestLoadCatalog_AllowsSharedIDWithDiscriminators(t *testing.T) {
	other := testFamily("Other", map[DeviceID]string{{0x0006, 0x0006}: "Other One"})
	other.Rule.Match = func(d usb.Descriptor) bool {
		return strings.Contains(d.Product, "Other")
	}
	reg := newTestRegistry(t, usbtest.NewTransport(), sharedIDFamily("Flag"), other)

	// Both families carry a discriminator, so handing Shared an ID Other
	// already claims is the Luxafor situation, not an ambiguity.
	err := reg.LoadCatalog(strings.NewReader("Shared:\n  - vendor_id: 0x0006\n    product_id: 0x0006\n    name: Shared Six\n"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
}

func TestLoadCatalog_RejectsEntryWithoutID(t *testing.T) {
	reg := newTestRegistry(t, usbtest.NewTransport(),
		testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	err := reg.LoadCatalog(strings.NewReader("Test:\n  - name: Nameless\n"))
	if err == nil {
		t.Fatal("expected id-less entry to be rejected")
	}
}

func TestLoadCatalog_VendorNameIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t, usbtest.NewTransport(),
		testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	err := reg.LoadCatalog(strings.NewReader("test:\n  - vendor_id: 0x1234\n    product_id: 0x7777\n    name: Lowercase Vendor\n"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	found := false
	for _, n := range reg.Supported()["Test"] {
		if n == "Lowercase Vendor" {
			found = true
		}
	}
	if !found {
		t.Error("case-folded vendor name did not merge")
	}
}

func TestLoadCatalog_MalformedYAML(t *testing.T) {
	reg := newTestRegistry(t, usbtest.NewTransport(),
		testFamily("Test", map[DeviceID]string{{0x1234, 0x5678}: "Test Light"}))

	if err := reg.LoadCatalog(strings.NewReader("{not yaml")); err == nil {
		t.Fatal("expected parse error")
	}
}
