package psi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func eitEvent(id uint16) *EITEvent {
	return &EITEvent{
		EventID:       id,
		StartTime:     time.Date(2026, 8, 2, 20, 0, 0, 0, time.UTC),
		Duration:      90 * time.Minute,
		RunningStatus: 4,
		FreeCAMode:    false,
		Descriptors:   []*Descriptor{tenByteDescriptor(DescriptorTagCA)},
	}
}

func TestEIT_SerializeDeserializeRoundTrip(t *testing.T) {
	eit := &EIT{
		Actual:                   true,
		ServiceID:                7,
		TransportStreamID:        1,
		OriginalNetworkID:        2,
		SegmentLastSectionNumber: 0,
		LastTableID:              TableIDEITActualPF,
		Version:                  12,
		Current:                  true,
		Events:                   []*EITEvent{eitEvent(1), eitEvent(2)},
	}
	ctx := NewDuckContext()
	bt, err := eit.Serialize(ctx, eit.Version, eit.Current)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())

	var out EIT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, eit.TransportStreamID, out.TransportStreamID)
	assert.Equal(t, eit.OriginalNetworkID, out.OriginalNetworkID)
	assert.Equal(t, len(eit.Events), len(out.Events))
	for i := range eit.Events {
		assert.Equal(t, eit.Events[i].EventID, out.Events[i].EventID)
		assert.True(t, eit.Events[i].StartTime.Equal(out.Events[i].StartTime))
		assert.Equal(t, eit.Events[i].RunningStatus, out.Events[i].RunningStatus)
	}
}

// Each event entry is 22 bytes (12-byte header plus one 10-byte descriptor),
// so enough of them force a second section; the repeated tsid/onid/segment/last_table_id preamble must
// be stripped per section rather than landing mid-event-loop.
func TestEIT_SegmentsAcrossMultipleSectionsPreservesPreamble(t *testing.T) {
	eit := &EIT{Actual: true, ServiceID: 9, TransportStreamID: 3, OriginalNetworkID: 4}
	for i := 0; i < 60; i++ {
		eit.Events = append(eit.Events, eitEvent(uint16(1000+i)))
	}
	ctx := NewDuckContext()
	bt, err := eit.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, bt.SectionCount(), 2)

	var out EIT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, uint16(3), out.TransportStreamID)
	assert.Equal(t, uint16(4), out.OriginalNetworkID)
	assert.Equal(t, len(eit.Events), len(out.Events))
	for i := range eit.Events {
		assert.Equal(t, eit.Events[i].EventID, out.Events[i].EventID)
	}
}

func TestEIT_DeserializeRejectsNonEITTableID(t *testing.T) {
	s := NewLongSection(TableIDPAT, 1, 0, true)
	s.SectionNumber, s.LastSectionNumber = 0, 0
	assert.NoError(t, s.Seal())
	s.Validate(CRCCompute)
	bt := assembleBinaryTable([]*Section{s})

	var out EIT
	assert.ErrorIs(t, out.Deserialize(NewDuckContext(), bt), ErrWrongTableID)
}

func BenchmarkEIT_Serialize(b *testing.B) {
	eit := &EIT{Actual: true, ServiceID: 1, Events: []*EITEvent{eitEvent(1)}}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		eit.Serialize(ctx, 0, true)
	}
}
