package word

import (
	"bytes"
	"testing"
)

func testWord(t *testing.T) *Word {
	t.Helper()
	w, err := New(32, []Field{
		{Name: "header", Offset: 24, Width: 8, ReadOnly: true},
		{Name: "red", Offset: 16, Width: 8},
		{Name: "green", Offset: 8, Width: 8},
		{Name: "mode", Offset: 5, Width: 3},
		{Name: "speed", Offset: 0, Width: 5},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestSet_TruncatesToFieldWidth(t *testing.T) {
	w := testWord(t)

	cases := []struct {
		field string
		width uint
		value uint64
	}{
		{"red", 8, 0xABCD},
		{"green", 8, 0x100},
		{"mode", 3, 0xFF},
		{"speed", 5, 0x7FFF},
		{"speed", 5, 0x1F},
	}

	for _, tc := range cases {
		w.Set(tc.field, tc.value)
		want := tc.value & ((1 << tc.width) - 1)
		if got := w.Get(tc.field); got != want {
			t.Errorf("Set(%s, %#x): got %#x, want %#x", tc.field, tc.value, got, want)
		}
	}
}

func TestSet_DoesNotDisturbNeighbours(t *testing.T) {
	w := testWord(t)

	w.Set("red", 0xAA)
	w.Set("green", 0xBB)
	w.Set("mode", 0x05)
	w.Set("speed", 0x11)

	w.Set("green", 0x100) // truncates to zero

	if got := w.Get("red"); got != 0xAA {
		t.Errorf("red disturbed: got %#x", got)
	}
	if got := w.Get("mode"); got != 0x05 {
		t.Errorf("mode disturbed: got %#x", got)
	}
	if got := w.Get("speed"); got != 0x11 {
		t.Errorf("speed disturbed: got %#x", got)
	}
}

func TestReset_RestoresConstructionBytes(t *testing.T) {
	w := testWord(t)
	w.SetDefault("header", 0x55)

	initial := w.Bytes()

	w.Set("red", 0xFF)
	w.Set("green", 0x80)
	w.Set("mode", 0x07)
	w.Reset()

	if got := w.Bytes(); !bytes.Equal(got, initial) {
		t.Errorf("Reset: got % x, want % x", got, initial)
	}
	if got := w.Get("header"); got != 0x55 {
		t.Errorf("header lost default: got %#x", got)
	}
}

func TestBytes_BigEndian(t *testing.T) {
	w := testWord(t)
	w.SetDefault("header", 0x01)
	w.Set("red", 0x02)
	w.Set("green", 0x03)
	w.Set("mode", 0x01)
	w.Set("speed", 0x04)

	want := []byte{0x01, 0x02, 0x03, 0x24}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes: got % x, want % x", got, want)
	}
}

func TestBytes_RecomputesChecksum(t *testing.T) {
	w, err := New(64, []Field{
		{Name: "op", Offset: 56, Width: 8},
		{Name: "red", Offset: 48, Width: 8},
		{Name: "pad", Offset: 16, Width: 32, ReadOnly: true},
		{Name: "checksum", Offset: 0, Width: 16},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.SetChecksum("checksum")

	w.Set("op", 0x10)
	w.Set("red", 0xFF)

	got := w.Bytes()
	sum := 0
	for _, b := range got[:6] {
		sum += int(b)
	}
	if want := sum; int(got[6])<<8|int(got[7]) != want {
		t.Errorf("checksum: got %#x, want %#x", int(got[6])<<8|int(got[7]), want)
	}

	// Mutating a field must be reflected in the recomputed checksum.
	w.Set("red", 0x01)
	got = w.Bytes()
	if int(got[6])<<8|int(got[7]) != 0x11 {
		t.Errorf("checksum after mutation: got %#x, want %#x", int(got[6])<<8|int(got[7]), 0x11)
	}
}

func TestNew_RejectsBadLayouts(t *testing.T) {
	cases := []struct {
		name   string
		width  uint
		fields []Field
	}{
		{"width not byte multiple", 12, nil},
		{"zero width field", 16, []Field{{Name: "a", Offset: 0, Width: 0}}},
		{"field out of range", 16, []Field{{Name: "a", Offset: 12, Width: 8}}},
		{"duplicate name", 16, []Field{
			{Name: "a", Offset: 0, Width: 4},
			{Name: "a", Offset: 4, Width: 4},
		}},
		{"undeclared overlap", 16, []Field{
			{Name: "a", Offset: 0, Width: 8},
			{Name: "b", Offset: 4, Width: 8},
		}},
	}

	for _, tc := range cases {
		if _, err := New(tc.width, tc.fields); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestNew_AllowsDeclaredAlias(t *testing.T) {
	w, err := New(16, []Field{
		{Name: "color", Offset: 0, Width: 16},
		{Name: "low", Offset: 0, Width: 8, Alias: true},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w.Set("color", 0xBEEF)
	if got := w.Get("low"); got != 0xEF {
		t.Errorf("alias read: got %#x, want 0xEF", got)
	}
}

func TestSetChecksum_PanicsOnSubByteWidth(t *testing.T) {
	w, err := New(16, []Field{
		{Name: "data", Offset: 4, Width: 12},
		{Name: "checksum", Offset: 0, Width: 4},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic declaring a sub-byte checksum")
		}
	}()
	w.SetChecksum("checksum")
}

func TestSet_PanicsOnReadOnlyField(t *testing.T) {
	w := testWord(t)

	defer func() {
		if recover() == nil {
			t.Error("expected panic writing read-only field")
		}
	}()
	w.Set("header", 1)
}

func TestSet_PanicsOnUnknownField(t *testing.T) {
	w := testWord(t)

	defer func() {
		if recover() == nil {
			t.Error("expected panic writing unknown field")
		}
	}()
	w.Set("nope", 1)
}
