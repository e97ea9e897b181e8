package psi

import "testing"

import "github.com/stretchr/testify/assert"

func TestComputeCRC32_CheckValue(t *testing.T) {
	// Standard CRC-32/MPEG-2 check value for the ASCII string "123456789".
	assert.Equal(t, uint32(0x0376E6E7), computeCRC32([]byte("123456789")))
}

func TestComputeCRC32_Empty(t *testing.T) {
	assert.Equal(t, crc32Init, computeCRC32(nil))
}

func TestUpdateCRC32_MatchesOneShot(t *testing.T) {
	bs := []byte("the quick brown fox jumps over the lazy dog")
	want := computeCRC32(bs)

	acc := crc32Init
	acc = updateCRC32(acc, bs[:10])
	acc = updateCRC32(acc, bs[10:])
	assert.Equal(t, want, acc)
}

func BenchmarkComputeCRC32(b *testing.B) {
	bs := make([]byte, 1024)
	for i := range bs {
		bs[i] = byte(i)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		computeCRC32(bs)
	}
}
