package iio

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// DataFormat describes how one sample of a channel is stored in a buffer.
type DataFormat struct {
	Bits        int  // significant bits
	StorageBits int  // bits occupied in memory
	Shift       int  // right shift applied before masking
	Signed      bool // sign-extend after masking
	BigEndian   bool
	Repeat      int // elements per sample, 0 and 1 both mean one
}

// ParseFormat parses the sysfs scan element type string, e.g.
// "le:s12/16>>4" or "be:u16/32X2>>0".
func ParseFormat(s string) (DataFormat, error) {
	var f DataFormat
	endian, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return f, fmt.Errorf("format %q: missing endianness", s)
	}
	switch endian {
	case "le":
	case "be":
		f.BigEndian = true
	default:
		return f, fmt.Errorf("format %q: unknown endianness %q", s, endian)
	}
	if rest == "" {
		return f, fmt.Errorf("format %q: missing sign", s)
	}
	switch rest[0] {
	case 's', 'S':
		f.Signed = true
	case 'u', 'U':
	default:
		return f, fmt.Errorf("format %q: unknown sign %q", s, rest[0])
	}
	rest = rest[1:]

	sizes, shift, hasShift := strings.Cut(rest, ">>")
	if hasShift {
		n, err := strconv.Atoi(shift)
		if err != nil {
			return f, fmt.Errorf("format %q: shift: %w", s, err)
		}
		f.Shift = n
	}
	if before, repeat, ok := strings.Cut(sizes, "X"); ok {
		n, err := strconv.Atoi(repeat)
		if err != nil {
			return f, fmt.Errorf("format %q: repeat: %w", s, err)
		}
		f.Repeat = n
		sizes = before
	}
	bits, storage, ok := strings.Cut(sizes, "/")
	if !ok {
		return f, fmt.Errorf("format %q: missing storage bits", s)
	}
	var err error
	if f.Bits, err = strconv.Atoi(bits); err != nil {
		return f, fmt.Errorf("format %q: bits: %w", s, err)
	}
	if f.StorageBits, err = strconv.Atoi(storage); err != nil {
		return f, fmt.Errorf("format %q: storage bits: %w", s, err)
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("format %q: %w", s, err)
	}
	return f, nil
}

// MustParseFormat is ParseFormat for constant formats.
func MustParseFormat(s string) DataFormat {
	f, err := ParseFormat(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f DataFormat) Validate() error {
	switch f.StorageBits {
	case 8, 16, 32, 64:
	default:
		return newError("format", syscall.EINVAL)
	}
	if f.Bits <= 0 || f.Shift < 0 || f.Bits+f.Shift > f.StorageBits || f.Repeat < 0 {
		return newError("format", syscall.EINVAL)
	}
	return nil
}

func (f DataFormat) String() string {
	endian := "le"
	if f.BigEndian {
		endian = "be"
	}
	sign := "u"
	if f.Signed {
		sign = "s"
	}
	repeat := ""
	if f.Repeat > 1 {
		repeat = fmt.Sprintf("X%d", f.Repeat)
	}
	return fmt.Sprintf("%s:%s%d/%d%s>>%d", endian, sign, f.Bits, f.StorageBits, repeat, f.Shift)
}

// ElementSize is the storage size of one element in bytes.
func (f DataFormat) ElementSize() int {
	return f.StorageBits / 8
}

// SampleSize is the size of one sample in bytes, repeats included.
func (f DataFormat) SampleSize() int {
	return f.ElementSize() * max(f.Repeat, 1)
}

func (f DataFormat) byteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Load reads the raw storage word of one element from b.
func (f DataFormat) Load(b []byte) uint64 {
	order := f.byteOrder()
	switch f.StorageBits {
	case 8:
		return uint64(b[0])
	case 16:
		return uint64(order.Uint16(b))
	case 32:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

// Store writes the raw storage word of one element into b.
func (f DataFormat) Store(b []byte, raw uint64) {
	order := f.byteOrder()
	switch f.StorageBits {
	case 8:
		b[0] = byte(raw)
	case 16:
		order.PutUint16(b, uint16(raw))
	case 32:
		order.PutUint32(b, uint32(raw))
	default:
		order.PutUint64(b, raw)
	}
}

// Convert turns a raw storage word into the sample value: shift, mask to
// Bits and sign-extend.
func (f DataFormat) Convert(raw uint64) int64 {
	v := raw >> f.Shift
	if f.Bits < 64 {
		v &= 1<<f.Bits - 1
	}
	if f.Signed && f.Bits < 64 {
		s := 64 - f.Bits
		return int64(v<<s) >> s
	}
	return int64(v)
}

// Unconvert is the inverse of Convert.
func (f DataFormat) Unconvert(v int64) uint64 {
	raw := uint64(v)
	if f.Bits < 64 {
		raw &= 1<<f.Bits - 1
	}
	return raw << f.Shift
}

// Max is the largest value representable in Bits.
func (f DataFormat) Max() int64 {
	if f.Signed {
		return 1<<(f.Bits-1) - 1
	}
	if f.Bits >= 63 {
		return 1<<63 - 1
	}
	return 1<<f.Bits - 1
}
