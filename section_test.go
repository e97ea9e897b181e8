package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSection_LongSectionSealAndParseRoundTrip(t *testing.T) {
	s := NewLongSection(TableIDPAT, 0x1234, 5, true)
	s.SectionNumber = 0
	s.LastSectionNumber = 0
	s.Payload = []byte{0x00, 0x02, 0xe0, 0x10}

	assert.NoError(t, s.Seal())
	assert.True(t, s.IsSealed())
	s.Validate(CRCCheck)
	assert.True(t, s.IsReadable())

	wire := s.Bytes()
	b := NewByteBuffer(wire)
	parsed, stop, err := sectionFromWire(b, CRCCheck, true)
	assert.NoError(t, err)
	assert.False(t, stop)
	assert.True(t, parsed.IsReadable())
	assert.Equal(t, TableIDPAT, parsed.TableID)
	assert.Equal(t, uint16(0x1234), parsed.TableIDExtension)
	assert.Equal(t, uint8(5), parsed.VersionNumber)
	assert.True(t, parsed.CurrentNextIndicator)
	assert.Equal(t, s.Payload, parsed.Payload)
	assert.True(t, s.Equal(parsed))
}

func TestSection_ShortSectionHasNoCRC(t *testing.T) {
	s := NewShortSection(TableIDTDT)
	s.Payload = []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	assert.NoError(t, s.Seal())
	s.Validate(CRCIgnore)
	assert.True(t, s.IsReadable())
	assert.Equal(t, 3+5, s.EncodedSize())

	b := NewByteBuffer(s.Bytes())
	parsed, _, err := sectionFromWire(b, CRCIgnore, true)
	assert.NoError(t, err)
	assert.False(t, parsed.SectionSyntaxIndicator)
	assert.False(t, parsed.ForceCRC)
}

func TestSection_TOTForcesCRCOnShortSection(t *testing.T) {
	s := NewShortSection(TableIDTOT)
	s.ForceCRC = true
	s.Payload = []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	assert.NoError(t, s.Seal())
	assert.Equal(t, 3+5+4, s.EncodedSize())
	s.Validate(CRCCompute)
	assert.True(t, s.IsReadable())

	b := NewByteBuffer(s.Bytes())
	parsed, _, err := sectionFromWire(b, CRCCheck, true)
	assert.NoError(t, err)
	assert.False(t, parsed.SectionSyntaxIndicator)
	assert.True(t, parsed.ForceCRC)
	assert.True(t, parsed.IsReadable())
	assert.Equal(t, s.Payload, parsed.Payload)
}

func TestSection_BadCRCIsInvalidUnderCRCCheck(t *testing.T) {
	s := NewLongSection(TableIDSDTActual, 1, 0, true)
	s.SectionNumber = 0
	s.LastSectionNumber = 0
	s.Payload = []byte{0x00, 0x01, 0x02, 0x03}
	assert.NoError(t, s.Seal())

	wire := s.Bytes()
	wire[len(wire)-1] ^= 0xff // corrupt the CRC

	b := NewByteBuffer(wire)
	_, _, err := sectionFromWire(b, CRCCheck, true)
	assert.ErrorIs(t, err, ErrBadCRC)
}

func TestSection_CRCIgnorePolicyAcceptsBadCRC(t *testing.T) {
	s := NewLongSection(TableIDSDTActual, 1, 0, true)
	s.SectionNumber = 0
	s.LastSectionNumber = 0
	s.Payload = []byte{0x00, 0x01}
	assert.NoError(t, s.Seal())

	wire := s.Bytes()
	wire[len(wire)-1] ^= 0xff

	b := NewByteBuffer(wire)
	parsed, _, err := sectionFromWire(b, CRCIgnore, true)
	assert.NoError(t, err)
	assert.True(t, parsed.IsReadable())
}

func TestSection_StopByteOnPadding(t *testing.T) {
	b := NewByteBuffer([]byte{0xff, 0xff, 0xff})
	s, stop, err := sectionFromWire(b, CRCIgnore, true)
	assert.NoError(t, err)
	assert.True(t, stop)
	assert.Nil(t, s)
}

func TestSection_SealRejectsOversizedSection(t *testing.T) {
	s := NewShortSection(TableIDTDT)
	s.Payload = make([]byte, 1022) // + 3 header bytes exceeds 1024
	assert.ErrorIs(t, s.Seal(), ErrOverflow)
}

func TestSection_SealRejectsSectionNumberPastLast(t *testing.T) {
	s := NewLongSection(TableIDPAT, 1, 0, true)
	s.SectionNumber = 2
	s.LastSectionNumber = 1
	assert.ErrorIs(t, s.Seal(), ErrInvalidStructure)
}

func TestSection_CloneIsIndependent(t *testing.T) {
	s := NewShortSection(TableIDTDT)
	s.Payload = []byte{1, 2, 3, 4, 5}
	assert.NoError(t, s.Seal())
	s.Validate(CRCIgnore)

	c := s.Clone()
	c.Payload[0] = 0xff
	assert.NotEqual(t, s.Payload[0], c.Payload[0])
	assert.True(t, s.Equal(c))
}

func BenchmarkSection_Seal(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s := NewLongSection(TableIDPAT, 1, 0, true)
		s.Payload = []byte{0x00, 0x01, 0xe0, 0x20}
		s.Seal()
	}
}
