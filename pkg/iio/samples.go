package iio

import (
	"slices"
	"syscall"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// ReadChannel copies the samples of ch out of the buffer.
func ReadChannel[T Sample](b *Buffer, ch *Channel) ([]T, error) {
	it, err := ChannelIter[T](b, ch)
	if err != nil {
		return nil, err
	}
	return slices.Collect(it.All()), nil
}

// WriteChannel encodes samples into the slots of ch, starting at the first
// sample of the buffer. It returns the number of samples written, at most
// the buffer capacity.
func WriteChannel[T any](b *Buffer, ch *Channel, layout Layout[T], samples []T) (int, error) {
	size := layout.Size()
	if size <= 0 || b.layout.Stride%size != 0 {
		return 0, newError("write channel "+ch.ID(), syscall.EINVAL)
	}
	pos := b.First(ch)
	n := 0
	for _, v := range samples {
		if n == b.cap || pos+size > len(b.mem) {
			break
		}
		layout.Encode(b.mem[pos:pos+size], v)
		pos += b.layout.Stride
		n++
	}
	return n, nil
}

// ReadScaled decodes ch with its data format and converts the values to
// physical units using the channel scale.
func ReadScaled(b *Buffer, ch *Channel) ([]float64, error) {
	it, err := NewIterator(b, ch, FormatLayout(ch.Format()))
	if err != nil {
		return nil, err
	}
	raw := make([]float64, 0, it.Remaining())
	for v := range it.All() {
		raw = append(raw, float64(v))
	}
	out := make([]float64, len(raw))
	vecmath.ScaleBlock(out, raw, ch.Scale())
	return out, nil
}
