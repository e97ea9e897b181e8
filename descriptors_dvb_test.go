package psi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorLocalTimeOffset_PolarityRoundTrip(t *testing.T) {
	for _, polarity := range []bool{false, true} {
		d := &DescriptorLocalTimeOffset{Items: []*DescriptorLocalTimeOffsetItem{{
			CountryCode:             []byte("FRA"),
			CountryRegionID:         3,
			LocalTimeOffsetPolarity: polarity,
			LocalTimeOffset:         2 * time.Hour,
			TimeOfChange:            time.Date(2026, 10, 25, 1, 0, 0, 0, time.UTC),
			NextTimeOffset:          time.Hour,
		}}}
		wire := d.toWire()

		parsed, err := newDescriptorLocalTimeOffset(wire)
		assert.NoError(t, err)
		assert.Len(t, parsed.Items, 1)
		assert.Equal(t, polarity, parsed.Items[0].LocalTimeOffsetPolarity)
		assert.Equal(t, uint8(3), parsed.Items[0].CountryRegionID)
		assert.Equal(t, 2*time.Hour, parsed.Items[0].LocalTimeOffset)
	}
}

func TestDescriptorService_RoundTrip(t *testing.T) {
	d := &DescriptorService{Type: 1, Provider: []byte("ProviderX"), Name: []byte("ServiceY")}
	wire := d.toWire()
	parsed, err := newDescriptorService(wire)
	assert.NoError(t, err)
	assert.Equal(t, d.Type, parsed.Type)
	assert.Equal(t, d.Provider, parsed.Provider)
	assert.Equal(t, d.Name, parsed.Name)
}

func TestDescriptorFromWire_UnknownTagKeepsRawPayload(t *testing.T) {
	b := NewByteBuffer(nil)
	b.WriteUint8(0xf3) // unallocated
	b.WriteUint8(2)
	b.WriteBytes([]byte{0xaa, 0xbb})

	d, err := descriptorFromWire(NewByteBuffer(b.Written()), DescriptorContext{Standard: StandardDVB})
	assert.NoError(t, err)
	assert.Nil(t, d.Body)
	assert.Equal(t, []byte{0xaa, 0xbb}, d.Payload)
	assert.Equal(t, b.Written(), d.toWire())
}

func TestDescriptorList_PrivateDataSpecifierUpdatesContext(t *testing.T) {
	pds := &Descriptor{Tag: DescriptorTagPrivateDataSpecifier, Body: &DescriptorPrivateDataSpecifier{Specifier: 0x1234}}
	list := &DescriptorList{Descriptors: []*Descriptor{pds}}
	wire := list.toWire()

	parsed, err := parseDescriptorList(NewByteBuffer(wire), len(wire), DescriptorContext{Standard: StandardDVB})
	assert.NoError(t, err)
	assert.Len(t, parsed.Descriptors, 1)
	got, ok := parsed.Descriptors[0].Body.(*DescriptorPrivateDataSpecifier)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x1234), got.Specifier)

	// A descriptor after the specifier is classified under that specifier.
	registerPrivateDescriptor(0x80, 0x1234, func(p []byte) (DescriptorBody, error) { return newDescriptorService(p) })
	defer delete(descriptorRegistry, descriptorKey{tag: 0x80, specifier: 0x1234, hasSpecifier: true})
	private := &Descriptor{Tag: 0x80, Body: &DescriptorService{Type: 1, Provider: []byte("P"), Name: []byte("N")}}
	wire = (&DescriptorList{Descriptors: []*Descriptor{pds, private}}).toWire()

	parsed, err = parseDescriptorList(NewByteBuffer(wire), len(wire), DescriptorContext{Standard: StandardDVB})
	assert.NoError(t, err)
	assert.Len(t, parsed.Descriptors, 2)
	_, ok = parsed.Descriptors[1].Body.(*DescriptorService)
	assert.True(t, ok)
}
