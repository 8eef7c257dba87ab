package iio

import (
	"encoding/binary"
	"iter"
	"math"
	"syscall"
	"unsafe"
)

// Sample is a fixed-size numeric type a channel can be read as.
type Sample interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Layout decodes and encodes one element of type T.
type Layout[T any] interface {
	Size() int
	Decode(b []byte) T
	Encode(b []byte, v T)
}

type nativeLayout[T Sample] struct{}

// Native is the in-memory layout of T on the host, the layout the hardware
// leaves samples in.
func Native[T Sample]() Layout[T] {
	return nativeLayout[T]{}
}

func (nativeLayout[T]) Size() int {
	var v T
	return int(unsafe.Sizeof(v))
}

func (nativeLayout[T]) Decode(b []byte) T {
	var v T
	order := binary.NativeEndian
	switch p := any(&v).(type) {
	case *int8:
		*p = int8(b[0])
	case *uint8:
		*p = b[0]
	case *int16:
		*p = int16(order.Uint16(b))
	case *uint16:
		*p = order.Uint16(b)
	case *int32:
		*p = int32(order.Uint32(b))
	case *uint32:
		*p = order.Uint32(b)
	case *int64:
		*p = int64(order.Uint64(b))
	case *uint64:
		*p = order.Uint64(b)
	case *float32:
		*p = math.Float32frombits(order.Uint32(b))
	case *float64:
		*p = math.Float64frombits(order.Uint64(b))
	}
	return v
}

func (nativeLayout[T]) Encode(b []byte, v T) {
	order := binary.NativeEndian
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case int16:
		order.PutUint16(b, uint16(x))
	case uint16:
		order.PutUint16(b, x)
	case int32:
		order.PutUint32(b, uint32(x))
	case uint32:
		order.PutUint32(b, x)
	case int64:
		order.PutUint64(b, uint64(x))
	case uint64:
		order.PutUint64(b, x)
	case float32:
		order.PutUint32(b, math.Float32bits(x))
	case float64:
		order.PutUint64(b, math.Float64bits(x))
	}
}

type formatLayout struct {
	f DataFormat
}

// FormatLayout decodes the first element of each sample with the channel's
// data format: byte order, shift, mask and sign extension.
func FormatLayout(f DataFormat) Layout[int64] {
	return formatLayout{f: f}
}

func (l formatLayout) Size() int                { return l.f.ElementSize() }
func (l formatLayout) Decode(b []byte) int64    { return l.f.Convert(l.f.Load(b)) }
func (l formatLayout) Encode(b []byte, v int64) { l.f.Store(b, l.f.Unconvert(v)) }

// Iterator walks the samples of one channel of a Buffer. It is single pass:
// request a new one to iterate again.
type Iterator[T any] struct {
	mem    []byte
	pos    int
	end    int
	step   int
	layout Layout[T]
}

// NewIterator returns an iterator over the samples of ch decoded with
// layout. The layout size must divide the buffer step.
//
// The caller must pick a layout matching the channel's sample size and must
// only pass channels that were enabled when the buffer was created; neither
// is checked. The iterator reads the buffer memory in place and must not be
// used after the buffer is closed or refilled.
func NewIterator[T any](b *Buffer, ch *Channel, layout Layout[T]) (*Iterator[T], error) {
	size := layout.Size()
	if size <= 0 || b.layout.Stride%size != 0 {
		return nil, newError("channel iter "+ch.ID(), syscall.EINVAL)
	}
	return &Iterator[T]{
		mem:    b.mem,
		pos:    b.First(ch),
		end:    b.end,
		step:   b.layout.Stride,
		layout: layout,
	}, nil
}

// ChannelIter returns an iterator over the samples of ch read as T.
func ChannelIter[T Sample](b *Buffer, ch *Channel) (*Iterator[T], error) {
	return NewIterator(b, ch, Native[T]())
}

// Next returns the sample under the cursor and advances by one step.
func (it *Iterator[T]) Next() (T, bool) {
	size := it.layout.Size()
	if it.pos >= it.end || it.pos+size > len(it.mem) {
		var zero T
		return zero, false
	}
	prev := it.pos
	it.pos += it.step
	return it.layout.Decode(it.mem[prev : prev+size]), true
}

// All yields the remaining samples.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Remaining is the number of samples Next will still return.
func (it *Iterator[T]) Remaining() int {
	last := min(it.end-1, len(it.mem)-it.layout.Size())
	if it.pos > last {
		return 0
	}
	return (last-it.pos)/it.step + 1
}
