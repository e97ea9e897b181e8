package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("nit", TableIDNITActual, func() TypedTable { return &NIT{Actual: true} })
	registerTable("nit_other", TableIDNITOther, func() TypedTable { return &NIT{Actual: false} })
}

// NITTransportStream is one entry of a NIT's transport stream loop. The
// whole entry (including its descriptor list) is atomic under segmentation
// (spec §9, Open Question resolved: atomic like a PMT stream entry).
type NITTransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Descriptors       []*Descriptor
}

func (e *NITTransportStream) size() int {
	n := 6
	for _, d := range e.Descriptors {
		n += d.size()
	}
	return n
}

func (e *NITTransportStream) toWire() []byte {
	b := NewByteBuffer(nil)
	b.WriteUint16(e.TransportStreamID)
	b.WriteUint16(e.OriginalNetworkID)
	dl := &DescriptorList{Descriptors: e.Descriptors}
	b.WriteBitsN(0xf, 4)
	b.WriteBitsN(uint64(dl.EncodedSize()), 12)
	b.WriteBytes(dl.toWire())
	return b.Written()
}

// NIT is the Network Information Table, in its "actual" or "other" network
// flavor (same wire layout, distinguished only by table_id).
type NIT struct {
	Actual bool // true => table_id 0x40 (actual network), false => 0x41 (other)

	NetworkID   uint16 // table_id_extension
	Version     uint8
	Current     bool
	Descriptors []*Descriptor // network-level
	Streams     []*NITTransportStream
}

func (t *NIT) TableID() TableID {
	if t.Actual {
		return TableIDNITActual
	}
	return TableIDNITOther
}

func (t *NIT) ElementName() string {
	if t.Actual {
		return "nit"
	}
	return "nit_other"
}

func (t *NIT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != t.TableID() {
		return errors.Wrap(ErrWrongTableID, "psi: not a matching NIT flavor")
	}
	t.NetworkID = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Descriptors = nil
	t.Streams = nil

	netDescBytes, streamLoopBytes, err := splitTwoLengthLoops(bt.Sections())
	if err != nil {
		return err
	}

	dctx := DescriptorContext{TableID: t.TableID(), Standard: ctx.Standard}
	list, err := parseDescriptorList(NewByteBuffer(netDescBytes), len(netDescBytes), dctx)
	if err != nil {
		return err
	}
	t.Descriptors = list.Descriptors

	b := NewByteBuffer(streamLoopBytes)
	for b.HasBytesLeft() {
		tsid := b.ReadUint16()
		onid := b.ReadUint16()
		descLenField := b.ReadUint16()
		descLen := int(descLenField & 0xfff)
		streamList, err := parseDescriptorList(b, descLen, dctx)
		if err != nil {
			return err
		}
		t.Streams = append(t.Streams, &NITTransportStream{TransportStreamID: tsid, OriginalNetworkID: onid, Descriptors: streamList.Descriptors})
	}
	if b.Err() != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: NIT transport stream loop truncated")
	}
	return nil
}

func (t *NIT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	// Network descriptors are atomic and may themselves be split across
	// sections (spec §4.6: "CAT / NIT (network loop) ... descriptor loops
	// may be split mid-list but never mid-descriptor").
	type item struct {
		netDesc *Descriptor
		stream  *NITTransportStream
	}
	var items []item
	for _, d := range t.Descriptors {
		items = append(items, item{netDesc: d})
	}
	for _, s := range t.Streams {
		items = append(items, item{stream: s})
	}

	const headerSize = 4 // network_descriptors_length(2) + transport_stream_loop_length(2)
	usable := sectionBudget - headerSize

	type sectionBuf struct {
		netDescLen int
		body       *ByteBuffer
	}
	var bufs []*sectionBuf
	cur := &sectionBuf{body: NewByteBuffer(nil)}
	bufs = append(bufs, cur)
	used := 0
	inNetPhase := true

	for _, it := range items {
		var sz int
		var raw []byte
		if it.netDesc != nil {
			sz = it.netDesc.size()
			raw = it.netDesc.toWire()
		} else {
			inNetPhase = false
			sz = it.stream.size()
			raw = it.stream.toWire()
		}
		if sz > usable {
			return nil, errors.Wrap(ErrOverflow, "psi: NIT record exceeds section budget")
		}
		if used+sz > usable {
			cur = &sectionBuf{body: NewByteBuffer(nil)}
			bufs = append(bufs, cur)
			used = 0
		}
		if inNetPhase {
			cur.netDescLen += sz
		}
		cur.body.WriteBytes(raw)
		used += sz
	}

	sections := make([]*Section, len(bufs))
	for i, buf := range bufs {
		b := NewByteBuffer(nil)
		b.WriteBitsN(0xf, 4)
		b.WriteBitsN(uint64(buf.netDescLen), 12)
		b.WriteBytes(buf.body.Written()[:buf.netDescLen])
		streamBytes := buf.body.Written()[buf.netDescLen:]
		b.WriteBitsN(0xf, 4)
		b.WriteBitsN(uint64(len(streamBytes)), 12)
		b.WriteBytes(streamBytes)

		s := NewLongSection(t.TableID(), t.NetworkID, version, current)
		s.Payload = b.Written()
		s.SectionNumber = uint8(i)
		s.LastSectionNumber = uint8(len(bufs) - 1)
		sections[i] = s
	}

	if err := sealSections(sections, CRCCompute); err != nil {
		return nil, err
	}
	return assembleBinaryTable(sections), nil
}

func (t *NIT) ToXML() *xmlNode {
	n := &xmlNode{Name: t.ElementName()}
	n.setAttr("network_id", hexAttr(uint64(t.NetworkID)))
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	n.Children = append(n.Children, descriptorListToXMLChildren(t.Descriptors)...)
	for _, s := range t.Streams {
		c := &xmlNode{Name: "transport_stream"}
		c.setAttr("transport_stream_id", hexAttr(uint64(s.TransportStreamID)))
		c.setAttr("original_network_id", hexAttr(uint64(s.OriginalNetworkID)))
		c.Children = descriptorListToXMLChildren(s.Descriptors)
		n.Children = append(n.Children, c)
	}
	return n
}

func (t *NIT) FromXML(n *xmlNode) error {
	networkID, err := requiredUintAttr(n, "network_id")
	if err != nil {
		return err
	}
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	t.NetworkID = uint16(networkID)
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)

	descs, err := descriptorListFromXMLChildren(n)
	if err != nil {
		return err
	}
	t.Descriptors = descs

	t.Streams = nil
	for _, c := range nonDescriptorChildren(n, "transport_stream") {
		tsid, err := requiredUintAttr(c, "transport_stream_id")
		if err != nil {
			return err
		}
		onid, err := requiredUintAttr(c, "original_network_id")
		if err != nil {
			return err
		}
		streamDescs, err := descriptorListFromXMLChildren(c)
		if err != nil {
			return err
		}
		t.Streams = append(t.Streams, &NITTransportStream{TransportStreamID: uint16(tsid), OriginalNetworkID: uint16(onid), Descriptors: streamDescs})
	}
	return nil
}
