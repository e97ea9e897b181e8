package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func batStream(tsid uint16) *BATTransportStream {
	return &BATTransportStream{
		TransportStreamID: tsid,
		OriginalNetworkID: 1,
		Descriptors:       []*Descriptor{tenByteDescriptor(DescriptorTagCA)},
	}
}

func TestBAT_SerializeDeserializeRoundTrip(t *testing.T) {
	bat := &BAT{
		BouquetID:   5,
		Version:     2,
		Current:     true,
		Descriptors: []*Descriptor{tenByteDescriptor(DescriptorTagCA)},
		Streams:     []*BATTransportStream{batStream(10), batStream(11)},
	}
	ctx := NewDuckContext()
	bt, err := bat.Serialize(ctx, bat.Version, bat.Current)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())

	var out BAT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, len(bat.Descriptors), len(out.Descriptors))
	assert.Equal(t, len(bat.Streams), len(out.Streams))
	for i := range bat.Streams {
		assert.Equal(t, bat.Streams[i].TransportStreamID, out.Streams[i].TransportStreamID)
	}
}

func TestBAT_SegmentsAcrossMultipleSectionsPreservesLoops(t *testing.T) {
	bat := &BAT{BouquetID: 9}
	for i := 0; i < 50; i++ {
		bat.Descriptors = append(bat.Descriptors, tenByteDescriptor(DescriptorTagCA))
	}
	for i := 0; i < 50; i++ {
		bat.Streams = append(bat.Streams, batStream(uint16(200+i)))
	}
	ctx := NewDuckContext()
	bt, err := bat.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, bt.SectionCount(), 2)

	var out BAT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, len(bat.Descriptors), len(out.Descriptors))
	assert.Equal(t, len(bat.Streams), len(out.Streams))
	for i := range bat.Streams {
		assert.Equal(t, bat.Streams[i].TransportStreamID, out.Streams[i].TransportStreamID)
	}
}

func TestBAT_DeserializeRejectsWrongTableID(t *testing.T) {
	s := NewLongSection(TableIDPAT, 1, 0, true)
	s.SectionNumber, s.LastSectionNumber = 0, 0
	assert.NoError(t, s.Seal())
	s.Validate(CRCCompute)
	bt := assembleBinaryTable([]*Section{s})

	var out BAT
	assert.ErrorIs(t, out.Deserialize(NewDuckContext(), bt), ErrWrongTableID)
}

func BenchmarkBAT_Serialize(b *testing.B) {
	bat := &BAT{BouquetID: 1, Streams: []*BATTransportStream{batStream(1)}}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bat.Serialize(ctx, 0, true)
	}
}
