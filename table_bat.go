package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("bat", TableIDBAT, func() TypedTable { return &BAT{} })
}

// BATTransportStream mirrors NITTransportStream; BAT shares NIT's wire
// layout apart from table_id and the table_id_extension's meaning
// (bouquet_id rather than network_id), spec §4.5.
type BATTransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Descriptors       []*Descriptor
}

func (e *BATTransportStream) size() int {
	n := 6
	for _, d := range e.Descriptors {
		n += d.size()
	}
	return n
}

func (e *BATTransportStream) toWire() []byte {
	b := NewByteBuffer(nil)
	b.WriteUint16(e.TransportStreamID)
	b.WriteUint16(e.OriginalNetworkID)
	dl := &DescriptorList{Descriptors: e.Descriptors}
	b.WriteBitsN(0xf, 4)
	b.WriteBitsN(uint64(dl.EncodedSize()), 12)
	b.WriteBytes(dl.toWire())
	return b.Written()
}

// BAT is the Bouquet Association Table. Its table_id_extension carries the
// bouquet_id.
type BAT struct {
	BouquetID   uint16
	Version     uint8
	Current     bool
	Descriptors []*Descriptor // bouquet-level
	Streams     []*BATTransportStream
}

func (t *BAT) TableID() TableID    { return TableIDBAT }
func (t *BAT) ElementName() string { return "bat" }

func (t *BAT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDBAT {
		return errors.Wrap(ErrWrongTableID, "psi: not a BAT")
	}
	t.BouquetID = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Descriptors = nil
	t.Streams = nil

	bouquetDescBytes, streamLoopBytes, err := splitTwoLengthLoops(bt.Sections())
	if err != nil {
		return err
	}

	dctx := DescriptorContext{TableID: TableIDBAT, Standard: ctx.Standard}
	list, err := parseDescriptorList(NewByteBuffer(bouquetDescBytes), len(bouquetDescBytes), dctx)
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
		t.Streams = append(t.Streams, &BATTransportStream{TransportStreamID: tsid, OriginalNetworkID: onid, Descriptors: streamList.Descriptors})
	}
	if b.Err() != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: BAT transport stream loop truncated")
	}
	return nil
}

func (t *BAT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	type item struct {
		bouquetDesc *Descriptor
		stream      *BATTransportStream
	}
	var items []item
	for _, d := range t.Descriptors {
		items = append(items, item{bouquetDesc: d})
	}
	for _, s := range t.Streams {
		items = append(items, item{stream: s})
	}

	const headerSize = 4
	usable := sectionBudget - headerSize

	type sectionBuf struct {
		bouquetDescLen int
		body           *ByteBuffer
	}
	var bufs []*sectionBuf
	cur := &sectionBuf{body: NewByteBuffer(nil)}
	bufs = append(bufs, cur)
	used := 0
	inBouquetPhase := true

	for _, it := range items {
		var sz int
		var raw []byte
		if it.bouquetDesc != nil {
			sz = it.bouquetDesc.size()
			raw = it.bouquetDesc.toWire()
		} else {
			inBouquetPhase = false
			sz = it.stream.size()
			raw = it.stream.toWire()
		}
		if sz > usable {
			return nil, errors.Wrap(ErrOverflow, "psi: BAT record exceeds section budget")
		}
		if used+sz > usable {
			cur = &sectionBuf{body: NewByteBuffer(nil)}
			bufs = append(bufs, cur)
			used = 0
		}
		if inBouquetPhase {
			cur.bouquetDescLen += sz
		}
		cur.body.WriteBytes(raw)
		used += sz
	}

	sections := make([]*Section, len(bufs))
	for i, buf := range bufs {
		b := NewByteBuffer(nil)
		b.WriteBitsN(0xf, 4)
		b.WriteBitsN(uint64(buf.bouquetDescLen), 12)
		b.WriteBytes(buf.body.Written()[:buf.bouquetDescLen])
		streamBytes := buf.body.Written()[buf.bouquetDescLen:]
		b.WriteBitsN(0xf, 4)
		b.WriteBitsN(uint64(len(streamBytes)), 12)
		b.WriteBytes(streamBytes)

		s := NewLongSection(TableIDBAT, t.BouquetID, version, current)
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

func (t *BAT) ToXML() *xmlNode {
	n := &xmlNode{Name: "bat"}
	n.setAttr("bouquet_id", hexAttr(uint64(t.BouquetID)))
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

func (t *BAT) FromXML(n *xmlNode) error {
	bouquetID, err := requiredUintAttr(n, "bouquet_id")
	if err != nil {
		return err
	}
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	t.BouquetID = uint16(bouquetID)
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
		t.Streams = append(t.Streams, &BATTransportStream{TransportStreamID: uint16(tsid), OriginalNetworkID: uint16(onid), Descriptors: streamDescs})
	}
	return nil
}
