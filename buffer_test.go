package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteBuffer_ReadWriteRoundTrip(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteUint8(0x12)
	b.WriteUint16(0x3456)
	b.WriteUint24(0x789abc)
	b.WriteUint32(0xdeadbeef)
	b.WriteUint40(0x0102030405)
	b.WriteUint48(0x010203040506)
	b.WriteUint64(0x0102030405060708)
	b.WriteBytes([]byte{0xaa, 0xbb, 0xcc})
	assert.NoError(t, b.Err())

	r := NewByteBuffer(b.Written())
	assert.Equal(t, uint8(0x12), r.ReadUint8())
	assert.Equal(t, uint16(0x3456), r.ReadUint16())
	assert.Equal(t, uint32(0x789abc), r.ReadUint24())
	assert.Equal(t, uint32(0xdeadbeef), r.ReadUint32())
	assert.Equal(t, uint64(0x0102030405), r.ReadUint40())
	assert.Equal(t, uint64(0x010203040506), r.ReadUint48())
	assert.Equal(t, uint64(0x0102030405060708), r.ReadUint64())
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, r.ReadBytes(3))
	assert.NoError(t, r.Err())
	assert.False(t, r.HasBytesLeft())
}

func TestByteBuffer_WriteBitsN(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteBitsN(0x1, 1)
	b.WriteBitsN(0x1, 1)
	b.WriteBitsN(0x3, 2)
	b.WriteBitsN(0xaaa, 12)
	assert.NoError(t, b.Err())
	assert.Equal(t, 2, len(b.Written()))

	r := NewByteBuffer(b.Written())
	assert.Equal(t, uint16(0xaaa), r.ReadUint16()&0xfff)
}

func TestByteBuffer_ReadUnderflowSetsStickyError(t *testing.T) {
	r := NewByteBuffer([]byte{0x01})
	got := r.ReadUint16()
	assert.Equal(t, uint16(0), got)
	assert.Error(t, r.Err())

	// further reads stay zeroed and do not overwrite the first error
	firstErr := r.Err()
	assert.Equal(t, uint8(0), r.ReadUint8())
	assert.Equal(t, firstErr, r.Err())
}

func TestByteBuffer_BCDDigitsRoundTrip(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteBCDDigits(1234, 4)
	b.WriteBCDDigits(56, 2)
	assert.NoError(t, b.Err())

	r := NewByteBuffer(b.Written())
	assert.Equal(t, uint32(1234), r.ReadBCDDigits(4))
	assert.Equal(t, uint32(56), r.ReadBCDDigits(2))
}

func TestByteBuffer_SeekSkipSubscript(t *testing.T) {
	r := NewByteBuffer([]byte{0, 1, 2, 3, 4})
	r.Skip(2)
	assert.Equal(t, 2, r.ReadOffset())
	assert.Equal(t, uint8(2), r.ReadUint8())
	r.Seek(0)
	assert.Equal(t, uint8(0), r.ReadUint8())
	assert.Equal(t, 5, r.Len())
}

func TestByteBuffer_ReadRemaining(t *testing.T) {
	r := NewByteBuffer([]byte{1, 2, 3, 4})
	r.Skip(1)
	assert.Equal(t, []byte{2, 3, 4}, r.ReadRemaining())
}

func BenchmarkByteBuffer_WriteUint32(b *testing.B) {
	b.ReportAllocs()
	buf := NewByteBuffer(nil)
	for i := 0; i < b.N; i++ {
		buf.ResetWrite()
		buf.WriteUint32(uint32(i))
	}
}
