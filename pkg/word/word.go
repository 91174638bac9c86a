// Package word implements a fixed-width, byte-addressable command register
// with named bit fields. Most HID presence lights expose their state as a
// single packed word per report; a driver declares the field layout once
// and the register handles masking, defaults, and serialization.
package word

import (
	"fmt"
	"math/big"
)

// Field describes a named bit range inside a Word.
type Field struct {
	Name   string
	Offset uint // bit offset from the least significant bit
	Width  uint // width in bits
	// ReadOnly marks fields that are fixed at construction (headers,
	// footers, magic bytes). Writing one is a programmer error.
	ReadOnly bool
	// Alias marks a field that intentionally overlaps another field's
	// bits. Undeclared overlap is rejected at construction.
	Alias bool
}

// Word is a fixed bit-width unsigned register. The width must be a multiple
// of eight so Bytes can serialize it without padding decisions.
type Word struct {
	width    uint
	value    *big.Int
	def      *big.Int
	fields   map[string]Field
	checksum string // name of the trailing checksum field, if any
}

// New builds a Word of the given bit width with the given field layout and
// all bits zero. Field layouts are validated once here: out-of-range fields
// and undeclared overlaps are construction errors, not runtime surprises.
func New(width uint, fields []Field) (*Word, error) {
	if width == 0 || width%8 != 0 {
		return nil, fmt.Errorf("word width %d is not a positive multiple of 8", width)
	}

	w := &Word{
		width:  width,
		value:  new(big.Int),
		def:    new(big.Int),
		fields: make(map[string]Field, len(fields)),
	}

	occupied := new(big.Int)
	for _, f := range fields {
		if f.Width == 0 {
			return nil, fmt.Errorf("field %q has zero width", f.Name)
		}
		if f.Offset+f.Width > width {
			return nil, fmt.Errorf("field %q (offset %d, width %d) exceeds word width %d",
				f.Name, f.Offset, f.Width, width)
		}
		if _, dup := w.fields[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}

		mask := fieldMask(f)
		if !f.Alias && new(big.Int).And(occupied, mask).Sign() != 0 {
			return nil, fmt.Errorf("field %q overlaps an existing field and is not declared as an alias", f.Name)
		}
		occupied.Or(occupied, mask)
		w.fields[f.Name] = f
	}

	return w, nil
}

// MustNew is New for statically declared layouts, panicking on error.
func MustNew(width uint, fields []Field) *Word {
	w, err := New(width, fields)
	if err != nil {
		panic(err)
	}
	return w
}

// SetDefault writes a field and folds the value into the construction
// default restored by Reset. Drivers use it for fixed headers and footers.
func (w *Word) SetDefault(name string, value uint64) {
	f, ok := w.fields[name]
	if !ok {
		panic(fmt.Sprintf("word: unknown field %q", name))
	}
	w.store(f, value)
	w.def.Set(w.value)
}

// SetChecksum declares the named field as the trailing checksum: Bytes
// recomputes it as the unsigned sum of all preceding serialized bytes.
// The field must span the least significant bits of the word.
func (w *Word) SetChecksum(name string) {
	f, ok := w.fields[name]
	if !ok {
		panic(fmt.Sprintf("word: unknown field %q", name))
	}
	if f.Offset != 0 {
		panic(fmt.Sprintf("word: checksum field %q must sit at the tail of the word", name))
	}
	if f.Width%8 != 0 {
		panic(fmt.Sprintf("word: checksum field %q width %d is not a multiple of 8", name, f.Width))
	}
	w.checksum = name
}

// Set writes value into the named field, truncating it to the field width.
// Hardware-register semantics: the caller gets masking, not validation.
// Unknown and read-only fields panic, matching an out-of-range slice index.
func (w *Word) Set(name string, value uint64) {
	f, ok := w.fields[name]
	if !ok {
		panic(fmt.Sprintf("word: unknown field %q", name))
	}
	if f.ReadOnly {
		panic(fmt.Sprintf("word: field %q is read-only", name))
	}
	w.store(f, value)
}

// Get reads the named field.
func (w *Word) Get(name string) uint64 {
	f, ok := w.fields[name]
	if !ok {
		panic(fmt.Sprintf("word: unknown field %q", name))
	}
	v := new(big.Int).Rsh(w.value, f.Offset)
	v.And(v, widthMask(f.Width))
	return v.Uint64()
}

// Reset restores the register to its construction-time default.
func (w *Word) Reset() {
	w.value.Set(w.def)
}

// Bytes serializes the register big-endian at its full width. When a
// checksum field is declared it is recomputed first from the bytes that
// precede it on the wire.
func (w *Word) Bytes() []byte {
	if w.checksum != "" {
		f := w.fields[w.checksum]
		buf := w.raw()
		sum := uint64(0)
		for _, b := range buf[:len(buf)-int(f.Width/8)] {
			sum += uint64(b)
		}
		w.store(f, sum)
	}
	return w.raw()
}

// Size returns the serialized length in bytes.
func (w *Word) Size() int {
	return int(w.width / 8)
}

func (w *Word) raw() []byte {
	buf := make([]byte, w.width/8)
	w.value.FillBytes(buf)
	return buf
}

func (w *Word) store(f Field, value uint64) {
	v := new(big.Int).SetUint64(value)
	v.And(v, widthMask(f.Width))
	v.Lsh(v, f.Offset)

	w.value.AndNot(w.value, fieldMask(f))
	w.value.Or(w.value, v)
}

func fieldMask(f Field) *big.Int {
	return new(big.Int).Lsh(widthMask(f.Width), f.Offset)
}

func widthMask(width uint) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), width)
	return m.Sub(m, big.NewInt(1))
}
