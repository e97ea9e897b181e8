package psi

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Concrete descriptor bodies, ported from the teacher's descriptor.go
// (newDescriptorXxx functions) and given a matching toWire() so they
// round-trip (spec §8 property 3) instead of only supporting parse.

func init() {
	registerDescriptor(DescriptorTagNetworkName, StandardDVB, func(p []byte) (DescriptorBody, error) { return &DescriptorNetworkName{Name: append([]byte(nil), p...)}, nil })
	registerDescriptor(DescriptorTagService, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorService(p) })
	registerDescriptor(DescriptorTagShortEvent, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorShortEvent(p) })
	registerDescriptor(DescriptorTagExtendedEvent, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorExtendedEvent(p) })
	registerDescriptor(DescriptorTagStreamIdentifier, StandardDVB, func(p []byte) (DescriptorBody, error) { return &DescriptorStreamIdentifier{ComponentTag: p[0]}, nil })
	registerDescriptor(DescriptorTagParentalRating, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorParentalRating(p) })
	registerDescriptor(DescriptorTagLocalTimeOffset, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorLocalTimeOffset(p) })
	registerDescriptor(DescriptorTagSubtitling, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorSubtitling(p) })
	registerDescriptor(DescriptorTagTeletext, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorTeletext(p) })
	registerDescriptor(DescriptorTagComponent, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorComponent(p) })
	registerDescriptor(DescriptorTagContent, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorContent(p) })
	registerDescriptor(DescriptorTagAC3, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorAC3(p) })
	registerDescriptor(DescriptorTagEnhancedAC3, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorEnhancedAC3(p) })
	registerDescriptor(DescriptorTagPrivateDataSpecifier, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorPrivateDataSpecifier(p) })
	registerDescriptor(DescriptorTagMaximumBitrate, StandardMPEG, func(p []byte) (DescriptorBody, error) { return newDescriptorMaximumBitrate(p) })
	registerDescriptor(DescriptorTagISO639LanguageAndAudioType, StandardMPEG, func(p []byte) (DescriptorBody, error) { return newDescriptorISO639LanguageAndAudioType(p) })
	registerDescriptor(DescriptorTagCA, StandardMPEG, func(p []byte) (DescriptorBody, error) { return newDescriptorCA(p) })
	registerDescriptor(DescriptorTagServiceList, StandardDVB, func(p []byte) (DescriptorBody, error) { return newDescriptorServiceList(p) })

	registerDescriptorXML("network_name_descriptor", DescriptorTagNetworkName, func(n *xmlNode) (DescriptorBody, error) { return networkNameFromXML(n) })
	registerDescriptorXML("service_descriptor", DescriptorTagService, func(n *xmlNode) (DescriptorBody, error) { return serviceFromXML(n) })
	registerDescriptorXML("short_event_descriptor", DescriptorTagShortEvent, func(n *xmlNode) (DescriptorBody, error) { return shortEventFromXML(n) })
	registerDescriptorXML("extended_event_descriptor", DescriptorTagExtendedEvent, func(n *xmlNode) (DescriptorBody, error) { return extendedEventFromXML(n) })
	registerDescriptorXML("stream_identifier_descriptor", DescriptorTagStreamIdentifier, func(n *xmlNode) (DescriptorBody, error) { return streamIdentifierFromXML(n) })
	registerDescriptorXML("parental_rating_descriptor", DescriptorTagParentalRating, func(n *xmlNode) (DescriptorBody, error) { return parentalRatingFromXML(n) })
	registerDescriptorXML("local_time_offset_descriptor", DescriptorTagLocalTimeOffset, func(n *xmlNode) (DescriptorBody, error) { return localTimeOffsetFromXML(n) })
	registerDescriptorXML("subtitling_descriptor", DescriptorTagSubtitling, func(n *xmlNode) (DescriptorBody, error) { return subtitlingFromXML(n) })
	registerDescriptorXML("teletext_descriptor", DescriptorTagTeletext, func(n *xmlNode) (DescriptorBody, error) { return teletextFromXML(n) })
	registerDescriptorXML("component_descriptor", DescriptorTagComponent, func(n *xmlNode) (DescriptorBody, error) { return componentFromXML(n) })
	registerDescriptorXML("content_descriptor", DescriptorTagContent, func(n *xmlNode) (DescriptorBody, error) { return contentFromXML(n) })
	registerDescriptorXML("ac3_descriptor", DescriptorTagAC3, func(n *xmlNode) (DescriptorBody, error) { return ac3FromXML(n) })
	registerDescriptorXML("enhanced_ac3_descriptor", DescriptorTagEnhancedAC3, func(n *xmlNode) (DescriptorBody, error) { return enhancedAC3FromXML(n) })
	registerDescriptorXML("private_data_specifier_descriptor", DescriptorTagPrivateDataSpecifier, func(n *xmlNode) (DescriptorBody, error) { return privateDataSpecifierFromXML(n) })
	registerDescriptorXML("maximum_bitrate_descriptor", DescriptorTagMaximumBitrate, func(n *xmlNode) (DescriptorBody, error) { return maximumBitrateFromXML(n) })
	registerDescriptorXML("iso_639_language_descriptor", DescriptorTagISO639LanguageAndAudioType, func(n *xmlNode) (DescriptorBody, error) { return iso639LanguageFromXML(n) })
	registerDescriptorXML("ca_descriptor", DescriptorTagCA, func(n *xmlNode) (DescriptorBody, error) { return caFromXML(n) })
	registerDescriptorXML("service_list_descriptor", DescriptorTagServiceList, func(n *xmlNode) (DescriptorBody, error) { return serviceListFromXML(n) })
}

// --- network_name_descriptor (0x40) ---

type DescriptorNetworkName struct{ Name []byte }

func (d *DescriptorNetworkName) toWire() []byte { return d.Name }

// --- service_descriptor (0x48) ---

type DescriptorService struct {
	Type     uint8
	Provider []byte
	Name     []byte
}

func newDescriptorService(i []byte) (*DescriptorService, error) {
	if len(i) < 2 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorService{Type: i[0]}
	off := 1
	provLen := int(i[off])
	off++
	if off+provLen > len(i) {
		return nil, ErrInvalidLength
	}
	d.Provider = i[off : off+provLen]
	off += provLen
	if off >= len(i) {
		return nil, ErrInvalidLength
	}
	nameLen := int(i[off])
	off++
	if off+nameLen > len(i) {
		return nil, ErrInvalidLength
	}
	d.Name = i[off : off+nameLen]
	return d, nil
}

func (d *DescriptorService) toWire() []byte {
	out := []byte{d.Type, uint8(len(d.Provider))}
	out = append(out, d.Provider...)
	out = append(out, uint8(len(d.Name)))
	out = append(out, d.Name...)
	return out
}

// --- short_event_descriptor (0x4d) ---

type DescriptorShortEvent struct {
	Language  []byte
	EventName []byte
	Text      []byte
}

func newDescriptorShortEvent(i []byte) (*DescriptorShortEvent, error) {
	if len(i) < 4 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorShortEvent{Language: i[:3]}
	off := 3
	l := int(i[off])
	off++
	if off+l > len(i) {
		return nil, ErrInvalidLength
	}
	d.EventName = i[off : off+l]
	off += l
	if off >= len(i) {
		return nil, ErrInvalidLength
	}
	l = int(i[off])
	off++
	if off+l > len(i) {
		return nil, ErrInvalidLength
	}
	d.Text = i[off : off+l]
	return d, nil
}

func (d *DescriptorShortEvent) toWire() []byte {
	out := append([]byte{}, d.Language...)
	out = append(out, uint8(len(d.EventName)))
	out = append(out, d.EventName...)
	out = append(out, uint8(len(d.Text)))
	out = append(out, d.Text...)
	return out
}

// --- extended_event_descriptor (0x4e) ---

type DescriptorExtendedEventItem struct {
	Description []byte
	Content     []byte
}

type DescriptorExtendedEvent struct {
	Number               uint8
	LastDescriptorNumber uint8
	Language             []byte
	Items                []*DescriptorExtendedEventItem
	Text                 []byte
}

func newDescriptorExtendedEvent(i []byte) (*DescriptorExtendedEvent, error) {
	if len(i) < 5 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorExtendedEvent{
		Number:               i[0] >> 4,
		LastDescriptorNumber: i[0] & 0xf,
		Language:             i[1:4],
	}
	off := 4
	itemsLen := int(i[off])
	off++
	end := off + itemsLen
	if end > len(i) {
		return nil, ErrInvalidLength
	}
	for off < end {
		itm := &DescriptorExtendedEventItem{}
		dl := int(i[off])
		off++
		itm.Description = i[off : off+dl]
		off += dl
		cl := int(i[off])
		off++
		itm.Content = i[off : off+cl]
		off += cl
		d.Items = append(d.Items, itm)
	}
	if off >= len(i) {
		return nil, ErrInvalidLength
	}
	tl := int(i[off])
	off++
	if off+tl > len(i) {
		return nil, ErrInvalidLength
	}
	d.Text = i[off : off+tl]
	return d, nil
}

func (d *DescriptorExtendedEvent) toWire() []byte {
	out := []byte{d.Number<<4 | d.LastDescriptorNumber&0xf}
	out = append(out, d.Language...)
	items := []byte{}
	for _, itm := range d.Items {
		items = append(items, uint8(len(itm.Description)))
		items = append(items, itm.Description...)
		items = append(items, uint8(len(itm.Content)))
		items = append(items, itm.Content...)
	}
	out = append(out, uint8(len(items)))
	out = append(out, items...)
	out = append(out, uint8(len(d.Text)))
	out = append(out, d.Text...)
	return out
}

// --- stream_identifier_descriptor (0x52) ---

type DescriptorStreamIdentifier struct{ ComponentTag uint8 }

func (d *DescriptorStreamIdentifier) toWire() []byte { return []byte{d.ComponentTag} }

// --- parental_rating_descriptor (0x55) ---

type DescriptorParentalRatingItem struct {
	CountryCode []byte
	Rating      uint8
}

func (d DescriptorParentalRatingItem) MinimumAge() int {
	if d.Rating == 0 || d.Rating > 0x10 {
		return 0
	}
	return int(d.Rating) + 3
}

type DescriptorParentalRating struct{ Items []*DescriptorParentalRatingItem }

func newDescriptorParentalRating(i []byte) (*DescriptorParentalRating, error) {
	if len(i)%4 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorParentalRating{}
	for off := 0; off < len(i); off += 4 {
		d.Items = append(d.Items, &DescriptorParentalRatingItem{
			CountryCode: i[off : off+3],
			Rating:      i[off+3],
		})
	}
	return d, nil
}

func (d *DescriptorParentalRating) toWire() []byte {
	out := []byte{}
	for _, itm := range d.Items {
		out = append(out, itm.CountryCode...)
		out = append(out, itm.Rating)
	}
	return out
}

// --- local_time_offset_descriptor (0x58) ---

type DescriptorLocalTimeOffsetItem struct {
	CountryCode             []byte
	CountryRegionID         uint8
	LocalTimeOffsetPolarity bool
	LocalTimeOffset         time.Duration
	TimeOfChange            time.Time
	NextTimeOffset          time.Duration
}

type DescriptorLocalTimeOffset struct{ Items []*DescriptorLocalTimeOffsetItem }

func newDescriptorLocalTimeOffset(i []byte) (*DescriptorLocalTimeOffset, error) {
	if len(i)%13 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorLocalTimeOffset{}
	b := NewByteBuffer(i)
	for b.HasBytesLeft() {
		itm := &DescriptorLocalTimeOffsetItem{CountryCode: b.ReadBytes(3)}
		r := b.ReadUint8()
		itm.CountryRegionID = r >> 2
		itm.LocalTimeOffsetPolarity = r&0x1 > 0
		itm.LocalTimeOffset = readDVBDurationMinutes(b)
		itm.TimeOfChange = readDVBTime(b)
		itm.NextTimeOffset = readDVBDurationMinutes(b)
		d.Items = append(d.Items, itm)
	}
	if b.Err() != nil {
		return nil, b.Err()
	}
	return d, nil
}

func (d *DescriptorLocalTimeOffset) toWire() []byte {
	b := NewByteBuffer(nil)
	for _, itm := range d.Items {
		b.WriteBytes(itm.CountryCode)
		polarity := uint8(0)
		if itm.LocalTimeOffsetPolarity {
			polarity = 1
		}
		b.WriteUint8(itm.CountryRegionID<<2 | 0x2 | polarity&0x1)
		writeDVBDurationMinutes(b, itm.LocalTimeOffset)
		writeDVBTime(b, itm.TimeOfChange)
		writeDVBDurationMinutes(b, itm.NextTimeOffset)
	}
	return b.Written()
}

// --- subtitling_descriptor (0x59) ---

type DescriptorSubtitlingItem struct {
	Language          []byte
	Type              uint8
	CompositionPageID uint16
	AncillaryPageID   uint16
}

type DescriptorSubtitling struct{ Items []*DescriptorSubtitlingItem }

func newDescriptorSubtitling(i []byte) (*DescriptorSubtitling, error) {
	if len(i)%8 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorSubtitling{}
	for off := 0; off < len(i); off += 8 {
		d.Items = append(d.Items, &DescriptorSubtitlingItem{
			Language:          i[off : off+3],
			Type:              i[off+3],
			CompositionPageID: uint16(i[off+4])<<8 | uint16(i[off+5]),
			AncillaryPageID:   uint16(i[off+6])<<8 | uint16(i[off+7]),
		})
	}
	return d, nil
}

func (d *DescriptorSubtitling) toWire() []byte {
	out := []byte{}
	for _, itm := range d.Items {
		out = append(out, itm.Language...)
		out = append(out, itm.Type, byte(itm.CompositionPageID>>8), byte(itm.CompositionPageID), byte(itm.AncillaryPageID>>8), byte(itm.AncillaryPageID))
	}
	return out
}

// --- teletext_descriptor (0x56) ---

type DescriptorTeletextItem struct {
	Language []byte
	Type     uint8
	Magazine uint8
	Page     uint8
}

type DescriptorTeletext struct{ Items []*DescriptorTeletextItem }

func newDescriptorTeletext(i []byte) (*DescriptorTeletext, error) {
	if len(i)%5 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorTeletext{}
	for off := 0; off < len(i); off += 5 {
		d.Items = append(d.Items, &DescriptorTeletextItem{
			Language: i[off : off+3],
			Type:     i[off+3] >> 3,
			Magazine: i[off+3] & 0x7,
			Page:     (i[off+4]>>4)*10 + (i[off+4] & 0xf),
		})
	}
	return d, nil
}

func (d *DescriptorTeletext) toWire() []byte {
	out := []byte{}
	for _, itm := range d.Items {
		out = append(out, itm.Language...)
		out = append(out, itm.Type<<3|itm.Magazine&0x7, (itm.Page/10)<<4|(itm.Page%10))
	}
	return out
}

// --- component_descriptor (0x50) ---

type DescriptorComponent struct {
	StreamContentExt   uint8
	StreamContent      uint8
	ComponentType      uint8
	ComponentTag       uint8
	ISO639LanguageCode []byte
	Text               []byte
}

func newDescriptorComponent(i []byte) (*DescriptorComponent, error) {
	if len(i) < 6 {
		return nil, ErrInvalidLength
	}
	return &DescriptorComponent{
		StreamContentExt:   i[0] >> 4,
		StreamContent:      i[0] & 0xf,
		ComponentType:      i[1],
		ComponentTag:       i[2],
		ISO639LanguageCode: i[3:6],
		Text:               i[6:],
	}, nil
}

func (d *DescriptorComponent) toWire() []byte {
	out := []byte{d.StreamContentExt<<4 | d.StreamContent&0xf, d.ComponentType, d.ComponentTag}
	out = append(out, d.ISO639LanguageCode...)
	out = append(out, d.Text...)
	return out
}

// --- content_descriptor (0x54) ---

type DescriptorContentItem struct {
	ContentNibbleLevel1 uint8
	ContentNibbleLevel2 uint8
	UserByte            uint8
}

type DescriptorContent struct{ Items []*DescriptorContentItem }

func newDescriptorContent(i []byte) (*DescriptorContent, error) {
	if len(i)%2 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorContent{}
	for off := 0; off < len(i); off += 2 {
		d.Items = append(d.Items, &DescriptorContentItem{
			ContentNibbleLevel1: i[off] >> 4,
			ContentNibbleLevel2: i[off] & 0xf,
			UserByte:            i[off+1],
		})
	}
	return d, nil
}

func (d *DescriptorContent) toWire() []byte {
	out := []byte{}
	for _, itm := range d.Items {
		out = append(out, itm.ContentNibbleLevel1<<4|itm.ContentNibbleLevel2&0xf, itm.UserByte)
	}
	return out
}

// --- AC-3 / enhanced AC-3 descriptors (0x6a / 0x7a) ---

type DescriptorAC3 struct {
	HasComponentType bool
	HasBSID          bool
	HasMainID        bool
	HasASVC          bool
	ComponentType    uint8
	BSID             uint8
	MainID           uint8
	ASVC             uint8
	AdditionalInfo   []byte
}

func newDescriptorAC3(i []byte) (*DescriptorAC3, error) {
	if len(i) < 1 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorAC3{
		HasComponentType: i[0]&0x80 > 0,
		HasBSID:          i[0]&0x40 > 0,
		HasMainID:        i[0]&0x20 > 0,
		HasASVC:          i[0]&0x10 > 0,
	}
	off := 1
	if d.HasComponentType {
		d.ComponentType = i[off]
		off++
	}
	if d.HasBSID {
		d.BSID = i[off]
		off++
	}
	if d.HasMainID {
		d.MainID = i[off]
		off++
	}
	if d.HasASVC {
		d.ASVC = i[off]
		off++
	}
	d.AdditionalInfo = i[off:]
	return d, nil
}

func (d *DescriptorAC3) toWire() []byte {
	flags := uint8(0)
	if d.HasComponentType {
		flags |= 0x80
	}
	if d.HasBSID {
		flags |= 0x40
	}
	if d.HasMainID {
		flags |= 0x20
	}
	if d.HasASVC {
		flags |= 0x10
	}
	out := []byte{flags}
	if d.HasComponentType {
		out = append(out, d.ComponentType)
	}
	if d.HasBSID {
		out = append(out, d.BSID)
	}
	if d.HasMainID {
		out = append(out, d.MainID)
	}
	if d.HasASVC {
		out = append(out, d.ASVC)
	}
	return append(out, d.AdditionalInfo...)
}

type DescriptorEnhancedAC3 struct {
	DescriptorAC3
	MixInfoExists bool
	HasSubStream1 bool
	HasSubStream2 bool
	HasSubStream3 bool
	SubStream1    uint8
	SubStream2    uint8
	SubStream3    uint8
}

func newDescriptorEnhancedAC3(i []byte) (*DescriptorEnhancedAC3, error) {
	if len(i) < 1 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorEnhancedAC3{
		DescriptorAC3: DescriptorAC3{
			HasComponentType: i[0]&0x80 > 0,
			HasBSID:          i[0]&0x40 > 0,
			HasMainID:        i[0]&0x20 > 0,
			HasASVC:          i[0]&0x10 > 0,
		},
		MixInfoExists: i[0]&0x8 > 0,
		HasSubStream1: i[0]&0x4 > 0,
		HasSubStream2: i[0]&0x2 > 0,
		HasSubStream3: i[0]&0x1 > 0,
	}
	off := 1
	if d.HasComponentType {
		d.ComponentType = i[off]
		off++
	}
	if d.HasBSID {
		d.BSID = i[off]
		off++
	}
	if d.HasMainID {
		d.MainID = i[off]
		off++
	}
	if d.HasASVC {
		d.ASVC = i[off]
		off++
	}
	if d.HasSubStream1 {
		d.SubStream1 = i[off]
		off++
	}
	if d.HasSubStream2 {
		d.SubStream2 = i[off]
		off++
	}
	if d.HasSubStream3 {
		d.SubStream3 = i[off]
		off++
	}
	d.AdditionalInfo = i[off:]
	return d, nil
}

func (d *DescriptorEnhancedAC3) toWire() []byte {
	flags := uint8(0)
	if d.HasComponentType {
		flags |= 0x80
	}
	if d.HasBSID {
		flags |= 0x40
	}
	if d.HasMainID {
		flags |= 0x20
	}
	if d.HasASVC {
		flags |= 0x10
	}
	if d.MixInfoExists {
		flags |= 0x8
	}
	if d.HasSubStream1 {
		flags |= 0x4
	}
	if d.HasSubStream2 {
		flags |= 0x2
	}
	if d.HasSubStream3 {
		flags |= 0x1
	}
	out := []byte{flags}
	if d.HasComponentType {
		out = append(out, d.ComponentType)
	}
	if d.HasBSID {
		out = append(out, d.BSID)
	}
	if d.HasMainID {
		out = append(out, d.MainID)
	}
	if d.HasASVC {
		out = append(out, d.ASVC)
	}
	if d.HasSubStream1 {
		out = append(out, d.SubStream1)
	}
	if d.HasSubStream2 {
		out = append(out, d.SubStream2)
	}
	if d.HasSubStream3 {
		out = append(out, d.SubStream3)
	}
	return append(out, d.AdditionalInfo...)
}

// --- private_data_specifier_descriptor (0x5f) ---

// DescriptorPrivateDataSpecifier changes the classification of subsequent
// descriptors in the same list (spec §4.2, §9).
type DescriptorPrivateDataSpecifier struct{ Specifier uint32 }

func newDescriptorPrivateDataSpecifier(i []byte) (*DescriptorPrivateDataSpecifier, error) {
	if len(i) != 4 {
		return nil, ErrInvalidLength
	}
	return &DescriptorPrivateDataSpecifier{Specifier: uint32(i[0])<<24 | uint32(i[1])<<16 | uint32(i[2])<<8 | uint32(i[3])}, nil
}

func (d *DescriptorPrivateDataSpecifier) toWire() []byte {
	return []byte{byte(d.Specifier >> 24), byte(d.Specifier >> 16), byte(d.Specifier >> 8), byte(d.Specifier)}
}

// --- maximum_bitrate_descriptor (0x0e) ---

type DescriptorMaximumBitrate struct{ Bitrate uint32 } // bytes/second

func newDescriptorMaximumBitrate(i []byte) (*DescriptorMaximumBitrate, error) {
	if len(i) != 3 {
		return nil, ErrInvalidLength
	}
	return &DescriptorMaximumBitrate{Bitrate: (uint32(i[0]&0x3f)<<16 | uint32(i[1])<<8 | uint32(i[2])) * 50}, nil
}

func (d *DescriptorMaximumBitrate) toWire() []byte {
	v := d.Bitrate / 50
	return []byte{0xc0 | uint8(v>>16&0x3f), byte(v >> 8), byte(v)}
}

// --- ISO_639_language_descriptor (0x0a) ---

type DescriptorISO639LanguageAndAudioType struct {
	Language []byte
	Type     uint8
}

func newDescriptorISO639LanguageAndAudioType(i []byte) (*DescriptorISO639LanguageAndAudioType, error) {
	if len(i) != 4 {
		return nil, ErrInvalidLength
	}
	return &DescriptorISO639LanguageAndAudioType{Language: i[0:3], Type: i[3]}, nil
}

func (d *DescriptorISO639LanguageAndAudioType) toWire() []byte {
	return append(append([]byte{}, d.Language...), d.Type)
}

// --- CA_descriptor (0x09), used by CAT ---

type DescriptorCA struct {
	CASystemID uint16
	CAPID      uint16
	PrivateData []byte
}

func newDescriptorCA(i []byte) (*DescriptorCA, error) {
	if len(i) < 4 {
		return nil, ErrInvalidLength
	}
	return &DescriptorCA{
		CASystemID:  uint16(i[0])<<8 | uint16(i[1]),
		CAPID:       uint16(i[2]&0x1f)<<8 | uint16(i[3]),
		PrivateData: i[4:],
	}, nil
}

func (d *DescriptorCA) toWire() []byte {
	out := []byte{byte(d.CASystemID >> 8), byte(d.CASystemID), 0xe0 | byte(d.CAPID>>8&0x1f), byte(d.CAPID)}
	return append(out, d.PrivateData...)
}

// --- service_list_descriptor (0x41), used by NIT ---

type DescriptorServiceListItem struct {
	ServiceID   uint16
	ServiceType uint8
}

type DescriptorServiceList struct{ Items []*DescriptorServiceListItem }

func newDescriptorServiceList(i []byte) (*DescriptorServiceList, error) {
	if len(i)%3 != 0 {
		return nil, ErrInvalidLength
	}
	d := &DescriptorServiceList{}
	for off := 0; off < len(i); off += 3 {
		d.Items = append(d.Items, &DescriptorServiceListItem{
			ServiceID:   uint16(i[off])<<8 | uint16(i[off+1]),
			ServiceType: i[off+2],
		})
	}
	return d, nil
}

func (d *DescriptorServiceList) toWire() []byte {
	out := []byte{}
	for _, itm := range d.Items {
		out = append(out, byte(itm.ServiceID>>8), byte(itm.ServiceID), itm.ServiceType)
	}
	return out
}

// --- typed XML rendering (spec §4.2) ---
//
// Byte-string fields (names, free text) are carried as inline hex rather
// than DVB character-set decoded text: this core tracks a CharacterSet on
// DuckContext (spec §9) but does not implement the DVB string tables
// themselves, so hex keeps every field losslessly round-trippable without
// pretending to a decode it doesn't do. Three-byte language/country codes
// are plain ASCII (e.g. "eng") since they are always printable by
// construction.

// langAttr renders a 3-byte ISO-639/country code as plain text.
func langAttr(code []byte) string { return string(code) }

// parseLangAttr is the inverse of langAttr, padding/truncating to 3 bytes.
func parseLangAttr(s string) []byte {
	b := []byte(s)
	for len(b) < 3 {
		b = append(b, ' ')
	}
	return b[:3]
}

func (d *DescriptorNetworkName) xmlElementName() string { return "network_name_descriptor" }
func (d *DescriptorNetworkName) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("name", hexBytesInline(d.Name))
	return n
}
func networkNameFromXML(n *xmlNode) (*DescriptorNetworkName, error) {
	name, err := requiredHexBytesAttr(n, "name")
	if err != nil {
		return nil, err
	}
	return &DescriptorNetworkName{Name: name}, nil
}

func (d *DescriptorService) xmlElementName() string { return "service_descriptor" }
func (d *DescriptorService) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("service_type", hexAttr(uint64(d.Type)))
	n.setAttr("service_provider_name", hexBytesInline(d.Provider))
	n.setAttr("service_name", hexBytesInline(d.Name))
	return n
}
func serviceFromXML(n *xmlNode) (*DescriptorService, error) {
	typ, err := requiredUintAttr(n, "service_type")
	if err != nil {
		return nil, err
	}
	provider, err := requiredHexBytesAttr(n, "service_provider_name")
	if err != nil {
		return nil, err
	}
	name, err := requiredHexBytesAttr(n, "service_name")
	if err != nil {
		return nil, err
	}
	return &DescriptorService{Type: uint8(typ), Provider: provider, Name: name}, nil
}

func (d *DescriptorShortEvent) xmlElementName() string { return "short_event_descriptor" }
func (d *DescriptorShortEvent) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("language_code", langAttr(d.Language))
	n.setAttr("event_name", hexBytesInline(d.EventName))
	n.setAttr("text", hexBytesInline(d.Text))
	return n
}
func shortEventFromXML(n *xmlNode) (*DescriptorShortEvent, error) {
	lang, err := requiredAttr(n, "language_code")
	if err != nil {
		return nil, err
	}
	eventName, err := requiredHexBytesAttr(n, "event_name")
	if err != nil {
		return nil, err
	}
	text, err := requiredHexBytesAttr(n, "text")
	if err != nil {
		return nil, err
	}
	return &DescriptorShortEvent{Language: parseLangAttr(lang), EventName: eventName, Text: text}, nil
}

func (d *DescriptorExtendedEvent) xmlElementName() string { return "extended_event_descriptor" }
func (d *DescriptorExtendedEvent) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("descriptor_number", strconv.Itoa(int(d.Number)))
	n.setAttr("last_descriptor_number", strconv.Itoa(int(d.LastDescriptorNumber)))
	n.setAttr("language_code", langAttr(d.Language))
	n.setAttr("text", hexBytesInline(d.Text))
	for _, itm := range d.Items {
		c := &xmlNode{Name: "item"}
		c.setAttr("description", hexBytesInline(itm.Description))
		c.setAttr("content", hexBytesInline(itm.Content))
		n.Children = append(n.Children, c)
	}
	return n
}
func extendedEventFromXML(n *xmlNode) (*DescriptorExtendedEvent, error) {
	num, err := requiredUintAttr(n, "descriptor_number")
	if err != nil {
		return nil, err
	}
	last, err := requiredUintAttr(n, "last_descriptor_number")
	if err != nil {
		return nil, err
	}
	lang, err := requiredAttr(n, "language_code")
	if err != nil {
		return nil, err
	}
	text, err := requiredHexBytesAttr(n, "text")
	if err != nil {
		return nil, err
	}
	d := &DescriptorExtendedEvent{Number: uint8(num), LastDescriptorNumber: uint8(last), Language: parseLangAttr(lang), Text: text}
	for _, c := range nonDescriptorChildren(n, "item") {
		desc, err := requiredHexBytesAttr(c, "description")
		if err != nil {
			return nil, err
		}
		content, err := requiredHexBytesAttr(c, "content")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorExtendedEventItem{Description: desc, Content: content})
	}
	return d, nil
}

func (d *DescriptorStreamIdentifier) xmlElementName() string { return "stream_identifier_descriptor" }
func (d *DescriptorStreamIdentifier) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("component_tag", hexAttr(uint64(d.ComponentTag)))
	return n
}
func streamIdentifierFromXML(n *xmlNode) (*DescriptorStreamIdentifier, error) {
	tag, err := requiredUintAttr(n, "component_tag")
	if err != nil {
		return nil, err
	}
	return &DescriptorStreamIdentifier{ComponentTag: uint8(tag)}, nil
}

func (d *DescriptorParentalRating) xmlElementName() string { return "parental_rating_descriptor" }
func (d *DescriptorParentalRating) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "country"}
		c.setAttr("country_code", langAttr(itm.CountryCode))
		c.setAttr("rating", hexAttr(uint64(itm.Rating)))
		n.Children = append(n.Children, c)
	}
	return n
}
func parentalRatingFromXML(n *xmlNode) (*DescriptorParentalRating, error) {
	d := &DescriptorParentalRating{}
	for _, c := range nonDescriptorChildren(n, "country") {
		code, err := requiredAttr(c, "country_code")
		if err != nil {
			return nil, err
		}
		rating, err := requiredUintAttr(c, "rating")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorParentalRatingItem{CountryCode: parseLangAttr(code), Rating: uint8(rating)})
	}
	return d, nil
}

func (d *DescriptorLocalTimeOffset) xmlElementName() string { return "local_time_offset_descriptor" }
func (d *DescriptorLocalTimeOffset) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "region"}
		c.setAttr("country_code", langAttr(itm.CountryCode))
		c.setAttr("country_region_id", hexAttr(uint64(itm.CountryRegionID)))
		c.setAttr("local_time_offset_polarity", strconv.FormatBool(itm.LocalTimeOffsetPolarity))
		c.setAttr("local_time_offset", formatDurationHM(itm.LocalTimeOffset))
		c.setAttr("time_of_change", itm.TimeOfChange.UTC().Format(time.RFC3339))
		c.setAttr("next_time_offset", formatDurationHM(itm.NextTimeOffset))
		n.Children = append(n.Children, c)
	}
	return n
}
func localTimeOffsetFromXML(n *xmlNode) (*DescriptorLocalTimeOffset, error) {
	d := &DescriptorLocalTimeOffset{}
	for _, c := range nonDescriptorChildren(n, "region") {
		code, err := requiredAttr(c, "country_code")
		if err != nil {
			return nil, err
		}
		regionID, err := requiredUintAttr(c, "country_region_id")
		if err != nil {
			return nil, err
		}
		polarity := optionalBoolAttr(c, "local_time_offset_polarity", false)
		offStr, err := requiredAttr(c, "local_time_offset")
		if err != nil {
			return nil, err
		}
		off, err := parseDurationHM(offStr)
		if err != nil {
			return nil, err
		}
		changeStr, err := requiredAttr(c, "time_of_change")
		if err != nil {
			return nil, err
		}
		change, err := time.Parse(time.RFC3339, changeStr)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: malformed time_of_change")
		}
		nextStr, err := requiredAttr(c, "next_time_offset")
		if err != nil {
			return nil, err
		}
		next, err := parseDurationHM(nextStr)
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorLocalTimeOffsetItem{
			CountryCode:             parseLangAttr(code),
			CountryRegionID:         uint8(regionID),
			LocalTimeOffsetPolarity: polarity,
			LocalTimeOffset:         off,
			TimeOfChange:            change,
			NextTimeOffset:          next,
		})
	}
	return d, nil
}

func (d *DescriptorSubtitling) xmlElementName() string { return "subtitling_descriptor" }
func (d *DescriptorSubtitling) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "subtitling"}
		c.setAttr("language_code", langAttr(itm.Language))
		c.setAttr("subtitling_type", hexAttr(uint64(itm.Type)))
		c.setAttr("composition_page_id", hexAttr(uint64(itm.CompositionPageID)))
		c.setAttr("ancillary_page_id", hexAttr(uint64(itm.AncillaryPageID)))
		n.Children = append(n.Children, c)
	}
	return n
}
func subtitlingFromXML(n *xmlNode) (*DescriptorSubtitling, error) {
	d := &DescriptorSubtitling{}
	for _, c := range nonDescriptorChildren(n, "subtitling") {
		lang, err := requiredAttr(c, "language_code")
		if err != nil {
			return nil, err
		}
		typ, err := requiredUintAttr(c, "subtitling_type")
		if err != nil {
			return nil, err
		}
		comp, err := requiredUintAttr(c, "composition_page_id")
		if err != nil {
			return nil, err
		}
		anc, err := requiredUintAttr(c, "ancillary_page_id")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorSubtitlingItem{Language: parseLangAttr(lang), Type: uint8(typ), CompositionPageID: uint16(comp), AncillaryPageID: uint16(anc)})
	}
	return d, nil
}

func (d *DescriptorTeletext) xmlElementName() string { return "teletext_descriptor" }
func (d *DescriptorTeletext) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "teletext"}
		c.setAttr("language_code", langAttr(itm.Language))
		c.setAttr("teletext_type", hexAttr(uint64(itm.Type)))
		c.setAttr("teletext_magazine_number", strconv.Itoa(int(itm.Magazine)))
		c.setAttr("teletext_page_number", strconv.Itoa(int(itm.Page)))
		n.Children = append(n.Children, c)
	}
	return n
}
func teletextFromXML(n *xmlNode) (*DescriptorTeletext, error) {
	d := &DescriptorTeletext{}
	for _, c := range nonDescriptorChildren(n, "teletext") {
		lang, err := requiredAttr(c, "language_code")
		if err != nil {
			return nil, err
		}
		typ, err := requiredUintAttr(c, "teletext_type")
		if err != nil {
			return nil, err
		}
		mag, err := requiredUintAttr(c, "teletext_magazine_number")
		if err != nil {
			return nil, err
		}
		page, err := requiredUintAttr(c, "teletext_page_number")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorTeletextItem{Language: parseLangAttr(lang), Type: uint8(typ), Magazine: uint8(mag), Page: uint8(page)})
	}
	return d, nil
}

func (d *DescriptorComponent) xmlElementName() string { return "component_descriptor" }
func (d *DescriptorComponent) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("stream_content_ext", hexAttr(uint64(d.StreamContentExt)))
	n.setAttr("stream_content", hexAttr(uint64(d.StreamContent)))
	n.setAttr("component_type", hexAttr(uint64(d.ComponentType)))
	n.setAttr("component_tag", hexAttr(uint64(d.ComponentTag)))
	n.setAttr("language_code", langAttr(d.ISO639LanguageCode))
	n.setAttr("text", hexBytesInline(d.Text))
	return n
}
func componentFromXML(n *xmlNode) (*DescriptorComponent, error) {
	ext, err := requiredUintAttr(n, "stream_content_ext")
	if err != nil {
		return nil, err
	}
	content, err := requiredUintAttr(n, "stream_content")
	if err != nil {
		return nil, err
	}
	typ, err := requiredUintAttr(n, "component_type")
	if err != nil {
		return nil, err
	}
	tag, err := requiredUintAttr(n, "component_tag")
	if err != nil {
		return nil, err
	}
	lang, err := requiredAttr(n, "language_code")
	if err != nil {
		return nil, err
	}
	text, err := requiredHexBytesAttr(n, "text")
	if err != nil {
		return nil, err
	}
	return &DescriptorComponent{
		StreamContentExt:   uint8(ext),
		StreamContent:      uint8(content),
		ComponentType:      uint8(typ),
		ComponentTag:       uint8(tag),
		ISO639LanguageCode: parseLangAttr(lang),
		Text:               text,
	}, nil
}

func (d *DescriptorContent) xmlElementName() string { return "content_descriptor" }
func (d *DescriptorContent) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "content"}
		c.setAttr("content_nibble_level_1", hexAttr(uint64(itm.ContentNibbleLevel1)))
		c.setAttr("content_nibble_level_2", hexAttr(uint64(itm.ContentNibbleLevel2)))
		c.setAttr("user_byte", hexAttr(uint64(itm.UserByte)))
		n.Children = append(n.Children, c)
	}
	return n
}
func contentFromXML(n *xmlNode) (*DescriptorContent, error) {
	d := &DescriptorContent{}
	for _, c := range nonDescriptorChildren(n, "content") {
		l1, err := requiredUintAttr(c, "content_nibble_level_1")
		if err != nil {
			return nil, err
		}
		l2, err := requiredUintAttr(c, "content_nibble_level_2")
		if err != nil {
			return nil, err
		}
		ub, err := requiredUintAttr(c, "user_byte")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorContentItem{ContentNibbleLevel1: uint8(l1), ContentNibbleLevel2: uint8(l2), UserByte: uint8(ub)})
	}
	return d, nil
}

func (d *DescriptorAC3) xmlElementName() string { return "ac3_descriptor" }
func (d *DescriptorAC3) toXMLNode() *xmlNode {
	n := &xmlNode{}
	if d.HasComponentType {
		n.setAttr("component_type", hexAttr(uint64(d.ComponentType)))
	}
	if d.HasBSID {
		n.setAttr("bsid", hexAttr(uint64(d.BSID)))
	}
	if d.HasMainID {
		n.setAttr("mainid", hexAttr(uint64(d.MainID)))
	}
	if d.HasASVC {
		n.setAttr("asvc", hexAttr(uint64(d.ASVC)))
	}
	if len(d.AdditionalInfo) > 0 {
		n.setAttr("additional_info", hexBytesInline(d.AdditionalInfo))
	}
	return n
}
func ac3FromXML(n *xmlNode) (*DescriptorAC3, error) {
	d := &DescriptorAC3{}
	if v, ok := n.attr("component_type"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: ac3_descriptor.component_type not an integer")
		}
		d.HasComponentType, d.ComponentType = true, uint8(iv)
	}
	if v, ok := n.attr("bsid"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: ac3_descriptor.bsid not an integer")
		}
		d.HasBSID, d.BSID = true, uint8(iv)
	}
	if v, ok := n.attr("mainid"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: ac3_descriptor.mainid not an integer")
		}
		d.HasMainID, d.MainID = true, uint8(iv)
	}
	if v, ok := n.attr("asvc"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: ac3_descriptor.asvc not an integer")
		}
		d.HasASVC, d.ASVC = true, uint8(iv)
	}
	if v, ok := n.attr("additional_info"); ok {
		info, err := parseHexInline(v)
		if err != nil {
			return nil, err
		}
		d.AdditionalInfo = info
	}
	return d, nil
}

func (d *DescriptorEnhancedAC3) xmlElementName() string { return "enhanced_ac3_descriptor" }
func (d *DescriptorEnhancedAC3) toXMLNode() *xmlNode {
	n := d.DescriptorAC3.toXMLNode()
	n.setAttr("mix_info_exists", strconv.FormatBool(d.MixInfoExists))
	if d.HasSubStream1 {
		n.setAttr("substream1", hexAttr(uint64(d.SubStream1)))
	}
	if d.HasSubStream2 {
		n.setAttr("substream2", hexAttr(uint64(d.SubStream2)))
	}
	if d.HasSubStream3 {
		n.setAttr("substream3", hexAttr(uint64(d.SubStream3)))
	}
	return n
}
func enhancedAC3FromXML(n *xmlNode) (*DescriptorEnhancedAC3, error) {
	base, err := ac3FromXML(n)
	if err != nil {
		return nil, err
	}
	d := &DescriptorEnhancedAC3{DescriptorAC3: *base}
	d.MixInfoExists = optionalBoolAttr(n, "mix_info_exists", false)
	if v, ok := n.attr("substream1"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: enhanced_ac3_descriptor.substream1 not an integer")
		}
		d.HasSubStream1, d.SubStream1 = true, uint8(iv)
	}
	if v, ok := n.attr("substream2"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: enhanced_ac3_descriptor.substream2 not an integer")
		}
		d.HasSubStream2, d.SubStream2 = true, uint8(iv)
	}
	if v, ok := n.attr("substream3"); ok {
		iv, err := parseIntAttr(v)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: enhanced_ac3_descriptor.substream3 not an integer")
		}
		d.HasSubStream3, d.SubStream3 = true, uint8(iv)
	}
	return d, nil
}

func (d *DescriptorPrivateDataSpecifier) xmlElementName() string {
	return "private_data_specifier_descriptor"
}
func (d *DescriptorPrivateDataSpecifier) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("specifier", hexAttr(uint64(d.Specifier)))
	return n
}
func privateDataSpecifierFromXML(n *xmlNode) (*DescriptorPrivateDataSpecifier, error) {
	v, err := requiredUintAttr(n, "specifier")
	if err != nil {
		return nil, err
	}
	return &DescriptorPrivateDataSpecifier{Specifier: uint32(v)}, nil
}

func (d *DescriptorMaximumBitrate) xmlElementName() string { return "maximum_bitrate_descriptor" }
func (d *DescriptorMaximumBitrate) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("bitrate", strconv.FormatUint(uint64(d.Bitrate), 10))
	return n
}
func maximumBitrateFromXML(n *xmlNode) (*DescriptorMaximumBitrate, error) {
	v, err := requiredUintAttr(n, "bitrate")
	if err != nil {
		return nil, err
	}
	return &DescriptorMaximumBitrate{Bitrate: uint32(v)}, nil
}

func (d *DescriptorISO639LanguageAndAudioType) xmlElementName() string {
	return "iso_639_language_descriptor"
}
func (d *DescriptorISO639LanguageAndAudioType) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("language_code", langAttr(d.Language))
	n.setAttr("audio_type", hexAttr(uint64(d.Type)))
	return n
}
func iso639LanguageFromXML(n *xmlNode) (*DescriptorISO639LanguageAndAudioType, error) {
	lang, err := requiredAttr(n, "language_code")
	if err != nil {
		return nil, err
	}
	typ, err := requiredUintAttr(n, "audio_type")
	if err != nil {
		return nil, err
	}
	return &DescriptorISO639LanguageAndAudioType{Language: parseLangAttr(lang), Type: uint8(typ)}, nil
}

func (d *DescriptorCA) xmlElementName() string { return "ca_descriptor" }
func (d *DescriptorCA) toXMLNode() *xmlNode {
	n := &xmlNode{}
	n.setAttr("ca_system_id", hexAttr(uint64(d.CASystemID)))
	n.setAttr("ca_pid", hexAttr(uint64(d.CAPID)))
	if len(d.PrivateData) > 0 {
		n.setAttr("private_data", hexBytesInline(d.PrivateData))
	}
	return n
}
func caFromXML(n *xmlNode) (*DescriptorCA, error) {
	sysID, err := requiredUintAttr(n, "ca_system_id")
	if err != nil {
		return nil, err
	}
	pid, err := requiredUintAttr(n, "ca_pid")
	if err != nil {
		return nil, err
	}
	d := &DescriptorCA{CASystemID: uint16(sysID), CAPID: uint16(pid)}
	if v, ok := n.attr("private_data"); ok {
		pd, err := parseHexInline(v)
		if err != nil {
			return nil, err
		}
		d.PrivateData = pd
	}
	return d, nil
}

func (d *DescriptorServiceList) xmlElementName() string { return "service_list_descriptor" }
func (d *DescriptorServiceList) toXMLNode() *xmlNode {
	n := &xmlNode{}
	for _, itm := range d.Items {
		c := &xmlNode{Name: "service"}
		c.setAttr("service_id", hexAttr(uint64(itm.ServiceID)))
		c.setAttr("service_type", hexAttr(uint64(itm.ServiceType)))
		n.Children = append(n.Children, c)
	}
	return n
}
func serviceListFromXML(n *xmlNode) (*DescriptorServiceList, error) {
	d := &DescriptorServiceList{}
	for _, c := range nonDescriptorChildren(n, "service") {
		sid, err := requiredUintAttr(c, "service_id")
		if err != nil {
			return nil, err
		}
		styp, err := requiredUintAttr(c, "service_type")
		if err != nil {
			return nil, err
		}
		d.Items = append(d.Items, &DescriptorServiceListItem{ServiceID: uint16(sid), ServiceType: uint8(styp)})
	}
	return d, nil
}
