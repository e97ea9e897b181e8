package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackAtomicRecords_EmptyProducesOneEmptySection(t *testing.T) {
	sections, err := packAtomicRecords(nil, sectionBudget)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{{}}, sections)
}

func TestPackAtomicRecords_FillsGreedily(t *testing.T) {
	var records []atomicRecord
	for i := 0; i < 5; i++ {
		records = append(records, tenByteDescriptor(DescriptorTagCA))
	}
	sections, err := packAtomicRecords(records, 25) // fits 2 per section (2x10=20<=25, 3rd would be 30>25)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(sections))
	assert.Equal(t, 20, len(sections[0]))
	assert.Equal(t, 20, len(sections[1]))
	assert.Equal(t, 10, len(sections[2]))
}

func TestPackAtomicRecords_OversizedRecordOverflows(t *testing.T) {
	records := []atomicRecord{&Descriptor{Tag: 1, Length: 250, Payload: make([]byte, 250)}}
	_, err := packAtomicRecords(records, 100)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPackAtomicRecords_ExactBudgetFitsOneSection(t *testing.T) {
	records := []atomicRecord{tenByteDescriptor(DescriptorTagCA), tenByteDescriptor(DescriptorTagCA)}
	sections, err := packAtomicRecords(records, 20)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(sections))
	assert.Equal(t, 20, len(sections[0]))
}

func BenchmarkPackAtomicRecords(b *testing.B) {
	var records []atomicRecord
	for i := 0; i < 300; i++ {
		records = append(records, tenByteDescriptor(DescriptorTagCA))
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		packAtomicRecords(records, sectionBudget)
	}
}
