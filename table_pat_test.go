package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPAT_SerializeDeserializeRoundTrip(t *testing.T) {
	pat := &PAT{
		TransportStreamID: 7,
		Version:           3,
		Current:           true,
		Programs: []PATProgram{
			{ProgramNumber: 0, PID: 16},   // network PID
			{ProgramNumber: 100, PID: 256},
			{ProgramNumber: 101, PID: 257},
		},
	}

	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, pat.Version, pat.Current)
	assert.NoError(t, err)
	assert.True(t, bt.IsComplete())
	assert.Equal(t, 1, bt.SectionCount())

	var out PAT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, pat.TransportStreamID, out.TransportStreamID)
	assert.Equal(t, pat.Version, out.Version)
	assert.Equal(t, pat.Current, out.Current)
	assert.Equal(t, pat.Programs, out.Programs)

	pid, ok := out.NetworkPID()
	assert.True(t, ok)
	assert.Equal(t, uint16(16), pid)
}

func TestPAT_SegmentsAcrossMultipleSections(t *testing.T) {
	const recordsPerSection = sectionBudget / 4
	pat := &PAT{TransportStreamID: 1}
	for i := 0; i < recordsPerSection+10; i++ {
		pat.Programs = append(pat.Programs, PATProgram{ProgramNumber: uint16(i + 1), PID: uint16(100 + i)})
	}

	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.Equal(t, 2, bt.SectionCount())
	assert.True(t, bt.IsComplete())

	var out PAT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, pat.Programs, out.Programs)
}

// 305 four-byte program entries segment into two sections of 1012/208
// payload bytes (253 programs fill the 1012-byte budget exactly, 52 remain).
func TestPAT_SegmentationMatchesBudgetArithmetic(t *testing.T) {
	pat := &PAT{TransportStreamID: 3}
	for i := 0; i < 305; i++ {
		pat.Programs = append(pat.Programs, PATProgram{ProgramNumber: uint16(i + 1), PID: uint16(100 + i)})
	}
	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.Equal(t, 2, bt.SectionCount())
	assert.Equal(t, 1012, len(bt.SectionAt(0).Payload))
	assert.Equal(t, 208, len(bt.SectionAt(1).Payload))

	var out PAT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.Equal(t, pat.Programs, out.Programs)
}

func TestPAT_EmptyProgramsStillEmitsOneSection(t *testing.T) {
	pat := &PAT{TransportStreamID: 2}
	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())
}

func TestPAT_DeserializeRejectsWrongTableID(t *testing.T) {
	s := NewLongSection(TableIDCAT, nonSemanticTableIDExtension, 0, true)
	s.SectionNumber, s.LastSectionNumber = 0, 0
	assert.NoError(t, s.Seal())
	s.Validate(CRCCompute)
	bt := assembleBinaryTable([]*Section{s})

	var out PAT
	assert.ErrorIs(t, out.Deserialize(NewDuckContext(), bt), ErrWrongTableID)
}

func TestPAT_DeserializeRejectsMisalignedPayload(t *testing.T) {
	s := NewLongSection(TableIDPAT, 1, 0, true)
	s.SectionNumber, s.LastSectionNumber = 0, 0
	s.Payload = []byte{0x00, 0x01, 0x02}
	assert.NoError(t, s.Seal())
	s.Validate(CRCCompute)
	bt := assembleBinaryTable([]*Section{s})

	var out PAT
	assert.ErrorIs(t, out.Deserialize(NewDuckContext(), bt), ErrInvalidStructure)
}

func BenchmarkPAT_Serialize(b *testing.B) {
	pat := &PAT{TransportStreamID: 1, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pat.Serialize(ctx, 0, true)
	}
}
