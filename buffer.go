package psi

import (
	"bytes"

	"github.com/asticode/go-astikit"
	"github.com/icza/bitio"
)

// ByteBuffer is a length-checked big-endian reader/writer with independent
// read-head and write-head cursors (spec §4.1). Every operation that would
// over/underflow sets a sticky error: subsequent reads return zero and
// writes become no-ops, so callers can perform a whole record and check
// Err() once at the end instead of after every field.
//
// Reads are backed by astikit.BytesIterator; writes accumulate into an
// astikit.BitsWriter so that bit-granular fields (versions, reserved bits,
// 13-bit PIDs, ...) can be emitted without manual shifting at each call
// site, the same way the teacher's muxer.go does.
type ByteBuffer struct {
	it  *astikit.BytesIterator
	err error

	wbuf bytes.Buffer
	w    *astikit.BitsWriter
	wb   astikit.BitsWriterBatch
}

// NewByteBuffer creates a buffer for reading bs and/or accumulating writes.
func NewByteBuffer(bs []byte) *ByteBuffer {
	b := &ByteBuffer{it: astikit.NewBytesIterator(bs)}
	b.w = astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &b.wbuf})
	b.wb = astikit.NewBitsWriterBatch(b.w)
	return b
}

// Err returns the sticky error, if any over/underflow occurred.
func (b *ByteBuffer) Err() error { return b.err }

// setErr records the first error seen; later errors do not overwrite it.
func (b *ByteBuffer) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// --- reading ---

// ReadOffset returns the current read-head offset in bytes.
func (b *ByteBuffer) ReadOffset() int { return b.it.Offset() }

// Seek moves the read-head to an absolute byte offset.
func (b *ByteBuffer) Seek(n int) { b.it.Seek(n) }

// Skip advances the read-head by n bytes.
func (b *ByteBuffer) Skip(n int) { b.it.Skip(n) }

// HasBytesLeft reports whether the read-head has not reached the end.
func (b *ByteBuffer) HasBytesLeft() bool { return b.it.HasBytesLeft() }

// Len returns the total length of the backing slice.
func (b *ByteBuffer) Len() int { return b.it.Len() }

func (b *ByteBuffer) readN(n int) []byte {
	if b.err != nil {
		return make([]byte, n)
	}
	bs, err := b.it.NextBytes(n)
	if err != nil {
		b.setErr(ErrInvalidLength)
		return make([]byte, n)
	}
	return bs
}

// ReadUint8 reads an unsigned 8-bit big-endian integer.
func (b *ByteBuffer) ReadUint8() uint8 { return b.readN(1)[0] }

// ReadUint16 reads an unsigned 16-bit big-endian integer.
func (b *ByteBuffer) ReadUint16() uint16 {
	bs := b.readN(2)
	return uint16(bs[0])<<8 | uint16(bs[1])
}

// ReadUint24 reads an unsigned 24-bit big-endian integer.
func (b *ByteBuffer) ReadUint24() uint32 {
	bs := b.readN(3)
	return uint32(bs[0])<<16 | uint32(bs[1])<<8 | uint32(bs[2])
}

// ReadUint32 reads an unsigned 32-bit big-endian integer.
func (b *ByteBuffer) ReadUint32() uint32 {
	bs := b.readN(4)
	return uint32(bs[0])<<24 | uint32(bs[1])<<16 | uint32(bs[2])<<8 | uint32(bs[3])
}

// ReadUint40 reads an unsigned 40-bit big-endian integer.
func (b *ByteBuffer) ReadUint40() uint64 {
	bs := b.readN(5)
	return uint64(bs[0])<<32 | uint64(bs[1])<<24 | uint64(bs[2])<<16 | uint64(bs[3])<<8 | uint64(bs[4])
}

// ReadUint48 reads an unsigned 48-bit big-endian integer.
func (b *ByteBuffer) ReadUint48() uint64 {
	bs := b.readN(6)
	var v uint64
	for _, x := range bs {
		v = v<<8 | uint64(x)
	}
	return v
}

// ReadUint64 reads an unsigned 64-bit big-endian integer.
func (b *ByteBuffer) ReadUint64() uint64 {
	bs := b.readN(8)
	var v uint64
	for _, x := range bs {
		v = v<<8 | uint64(x)
	}
	return v
}

// ReadBytes reads n raw bytes.
func (b *ByteBuffer) ReadBytes(n int) []byte {
	bs := b.readN(n)
	out := make([]byte, n)
	copy(out, bs)
	return out
}

// ReadBytesNoCopy reads n raw bytes without copying; the caller must not
// retain the slice beyond the current parse.
func (b *ByteBuffer) ReadBytesNoCopy(n int) []byte { return b.readN(n) }

// ReadRemaining reads every byte left under the read-head.
func (b *ByteBuffer) ReadRemaining() []byte {
	if b.err != nil {
		return nil
	}
	return b.it.Dump()
}

// ReadBCDDigits reads n BCD digits (each nibble one decimal digit) and
// returns them as an integer. Uses a bit-level reader over the already
// length-checked bytes so odd digit counts don't need special-casing at the
// byte level (the digits are read from the high nibble of the first byte).
func (b *ByteBuffer) ReadBCDDigits(n int) uint32 {
	nbytes := (n + 1) / 2
	bs := b.readN(nbytes)
	r := bitio.NewReader(bytes.NewReader(bs))
	var v uint32
	for i := 0; i < n; i++ {
		nib, err := r.ReadBits(4)
		if err != nil {
			b.setErr(ErrInvalidLength)
			return v
		}
		v = v*10 + uint32(nib)
	}
	return v
}

// --- writing ---

// flushWriteErr funnels a BitsWriter batch error into the sticky flag.
func (b *ByteBuffer) flushWriteErr() {
	if err := b.wb.Err(); err != nil {
		b.setErr(err)
	}
}

// WriteUint8 appends an unsigned 8-bit big-endian integer.
func (b *ByteBuffer) WriteUint8(v uint8) {
	b.wb.Write(v)
	b.flushWriteErr()
}

// WriteUint16 appends an unsigned 16-bit big-endian integer.
func (b *ByteBuffer) WriteUint16(v uint16) {
	b.wb.Write(v)
	b.flushWriteErr()
}

// WriteUint24 appends an unsigned 24-bit big-endian integer.
func (b *ByteBuffer) WriteUint24(v uint32) {
	b.wb.WriteN(v, 24)
	b.flushWriteErr()
}

// WriteUint32 appends an unsigned 32-bit big-endian integer.
func (b *ByteBuffer) WriteUint32(v uint32) {
	b.wb.Write(v)
	b.flushWriteErr()
}

// WriteUint40 appends an unsigned 40-bit big-endian integer.
func (b *ByteBuffer) WriteUint40(v uint64) {
	b.wb.WriteN(v, 40)
	b.flushWriteErr()
}

// WriteUint48 appends an unsigned 48-bit big-endian integer.
func (b *ByteBuffer) WriteUint48(v uint64) {
	b.wb.WriteN(v, 48)
	b.flushWriteErr()
}

// WriteUint64 appends an unsigned 64-bit big-endian integer.
func (b *ByteBuffer) WriteUint64(v uint64) {
	b.wb.Write(v)
	b.flushWriteErr()
}

// WriteBitsN appends the low n bits of v, MSB-first.
func (b *ByteBuffer) WriteBitsN(v uint64, n int) {
	b.wb.WriteN(v, n)
	b.flushWriteErr()
}

// WriteBytes appends raw bytes.
func (b *ByteBuffer) WriteBytes(bs []byte) {
	b.wb.Write(bs)
	b.flushWriteErr()
}

// WriteBCDDigits appends n BCD digits encoding the decimal representation of v.
func (b *ByteBuffer) WriteBCDDigits(v uint32, n int) {
	nbytes := (n + 1) / 2
	digits := make([]byte, nbytes*2)
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i] = byte(v % 10)
		v /= 10
	}
	for i := 0; i < nbytes; i++ {
		b.WriteUint8(digits[i*2]<<4 | digits[i*2+1])
	}
}

// Written returns everything accumulated on the write side so far.
func (b *ByteBuffer) Written() []byte {
	out := make([]byte, b.wbuf.Len())
	copy(out, b.wbuf.Bytes())
	return out
}

// ResetWrite clears the write-side accumulator.
func (b *ByteBuffer) ResetWrite() {
	b.wbuf.Reset()
}
