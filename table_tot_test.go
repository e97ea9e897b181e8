package psi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTOT_SerializeDeserializeRoundTrip(t *testing.T) {
	tot := &TOT{
		UTC: time.Date(2026, 3, 29, 1, 0, 0, 0, time.UTC),
		Descriptors: []*Descriptor{{
			Tag: DescriptorTagLocalTimeOffset,
			Body: &DescriptorLocalTimeOffset{Items: []*DescriptorLocalTimeOffsetItem{{
				CountryCode:             []byte("FRA"),
				CountryRegionID:         0,
				LocalTimeOffsetPolarity: false,
				LocalTimeOffset:         time.Hour,
				TimeOfChange:            time.Date(2026, 3, 29, 1, 0, 0, 0, time.UTC),
				NextTimeOffset:          2 * time.Hour,
			}}},
		}},
	}
	ctx := NewDuckContext()
	bt, err := tot.Serialize(ctx, 0, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, bt.SectionCount())
	assert.False(t, bt.SectionAt(0).SectionSyntaxIndicator)
	assert.True(t, bt.SectionAt(0).ForceCRC)

	var out TOT
	assert.NoError(t, out.Deserialize(ctx, bt))
	assert.True(t, tot.UTC.Equal(out.UTC))
	assert.Len(t, out.Descriptors, 1)
	lto, ok := out.Descriptors[0].Body.(*DescriptorLocalTimeOffset)
	assert.True(t, ok)
	assert.False(t, lto.Items[0].LocalTimeOffsetPolarity)
	assert.Equal(t, time.Hour, lto.Items[0].LocalTimeOffset)
}

func TestTOT_SerializeRejectsOversizedDescriptorLoop(t *testing.T) {
	tot := &TOT{}
	for i := 0; i < 150; i++ {
		tot.Descriptors = append(tot.Descriptors, tenByteDescriptor(DescriptorTagCA))
	}
	_, err := tot.Serialize(NewDuckContext(), 0, true)
	assert.ErrorIs(t, err, ErrOverflow)
}

func BenchmarkTOT_Serialize(b *testing.B) {
	tot := &TOT{UTC: time.Now().UTC()}
	ctx := NewDuckContext()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tot.Serialize(ctx, 0, true)
	}
}
