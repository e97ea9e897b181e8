package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sdtService(id uint16) *SDTService {
	return &SDTService{
		ServiceID:           id,
		EITScheduleFlag:     true,
		EITPresentFollowing: false,
		RunningStatus:       4,
		FreeCAMode:          true,
		Descriptors:         []*Descriptor{tenByteDescriptor(DescriptorTagService)},
	}
}

func TestSDT_SerializeDeserializeRoundTrip(t *testing.T) {
	sdt := &SDT{
		Actual:            true,
		TransportStreamID: 1,
		OriginalNetworkID: 2,
		Version:           9,
		Current:           true,
		Services:          []*SDTService{sdtService(10), sdtService(11)},
	}
	ctx := NewDuckContext()
	bt, err := sdt.Serialize(ctx, sdt.Version, sdt.Current)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())

	out := SDT{Actual: true}
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, sdt.OriginalNetworkID, out.OriginalNetworkID)
	assert.Equal(t, len(sdt.Services), len(out.Services))
	for i := range sdt.Services {
		assert.Equal(t, sdt.Services[i].ServiceID, out.Services[i].ServiceID)
		assert.Equal(t, sdt.Services[i].RunningStatus, out.Services[i].RunningStatus)
		assert.True(t, out.Services[i].EITScheduleFlag)
		assert.False(t, out.Services[i].EITPresentFollowing)
		assert.True(t, out.Services[i].FreeCAMode)
	}
}

// Each service entry is 15 bytes (5-byte header plus one 10-byte
// descriptor); enough entries force a second section
// whose per-section original_network_id/reserved preamble must be stripped
// rather than concatenated into the service loop.
func TestSDT_SegmentsAcrossMultipleSectionsPreservesPreamble(t *testing.T) {
	sdt := &SDT{Actual: true, TransportStreamID: 5, OriginalNetworkID: 42}
	for i := 0; i < 80; i++ {
		sdt.Services = append(sdt.Services, sdtService(uint16(100+i)))
	}
	ctx := NewDuckContext()
	bt, err := sdt.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, bt.SectionCount(), 2)

	out := SDT{Actual: true}
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, uint16(42), out.OriginalNetworkID)
	assert.Equal(t, len(sdt.Services), len(out.Services))
	for i := range sdt.Services {
		assert.Equal(t, sdt.Services[i].ServiceID, out.Services[i].ServiceID)
	}
}

func TestSDT_DeserializeRejectsWrongFlavor(t *testing.T) {
	sdt := &SDT{Actual: true, TransportStreamID: 1}
	ctx := NewDuckContext()
	bt, err := sdt.Serialize(ctx, 0, true)
	assert.NoError(t, err)

	var out SDT
	out.Actual = false
	assert.ErrorIs(t, out.Deserialize(ctx, bt), ErrWrongTableID)
}

func BenchmarkSDT_Serialize(b *testing.B) {
	sdt := &SDT{Actual: true, TransportStreamID: 1, Services: []*SDTService{sdtService(1)}}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sdt.Serialize(ctx, 0, true)
	}
}
