package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nitStream(tsid uint16) *NITTransportStream {
	return &NITTransportStream{
		TransportStreamID: tsid,
		OriginalNetworkID: 1,
		Descriptors:       []*Descriptor{tenByteDescriptor(DescriptorTagCA)},
	}
}

func TestNIT_SerializeDeserializeRoundTrip(t *testing.T) {
	nit := &NIT{
		Actual:      true,
		NetworkID:   3,
		Version:     1,
		Current:     true,
		Descriptors: []*Descriptor{tenByteDescriptor(DescriptorTagCA)},
		Streams:     []*NITTransportStream{nitStream(10), nitStream(11)},
	}
	ctx := NewDuckContext()
	bt, err := nit.Serialize(ctx, nit.Version, nit.Current)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())

	out := NIT{Actual: true}
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, len(nit.Descriptors), len(out.Descriptors))
	assert.Equal(t, len(nit.Streams), len(out.Streams))
	for i := range nit.Streams {
		assert.Equal(t, nit.Streams[i].TransportStreamID, out.Streams[i].TransportStreamID)
		assert.Equal(t, nit.Streams[i].OriginalNetworkID, out.Streams[i].OriginalNetworkID)
	}
}

// Forces multiple sections; both the network-descriptors-length and
// transport-stream-loop-length fields are rewritten per section and must be
// consumed locally rather than concatenated across section boundaries.
func TestNIT_SegmentsAcrossMultipleSectionsPreservesLoops(t *testing.T) {
	nit := &NIT{Actual: true, NetworkID: 9}
	for i := 0; i < 50; i++ {
		nit.Descriptors = append(nit.Descriptors, tenByteDescriptor(DescriptorTagCA))
	}
	for i := 0; i < 50; i++ {
		nit.Streams = append(nit.Streams, nitStream(uint16(200+i)))
	}
	ctx := NewDuckContext()
	bt, err := nit.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, bt.SectionCount(), 2)

	out := NIT{Actual: true}
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, len(nit.Descriptors), len(out.Descriptors))
	assert.Equal(t, len(nit.Streams), len(out.Streams))
	for i := range nit.Streams {
		assert.Equal(t, nit.Streams[i].TransportStreamID, out.Streams[i].TransportStreamID)
	}
}

func TestNIT_DeserializeRejectsWrongFlavor(t *testing.T) {
	nit := &NIT{Actual: true, NetworkID: 1}
	ctx := NewDuckContext()
	bt, err := nit.Serialize(ctx, 0, true)
	assert.NoError(t, err)

	var out NIT
	out.Actual = false
	assert.ErrorIs(t, out.Deserialize(ctx, bt), ErrWrongTableID)
}

func BenchmarkNIT_Serialize(b *testing.B) {
	nit := &NIT{Actual: true, NetworkID: 1, Streams: []*NITTransportStream{nitStream(1)}}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		nit.Serialize(ctx, 0, true)
	}
}
