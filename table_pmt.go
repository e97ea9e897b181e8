package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("pmt", TableIDPMT, func() TypedTable { return &PMT{} })
}

// PMTStream is one elementary stream entry inside a PMT stream loop
// (spec §4.5). The whole entry is atomic under segmentation (spec §4.6).
type PMTStream struct {
	StreamType    uint8
	ElementaryPID uint16
	Descriptors   []*Descriptor
}

func (s *PMTStream) size() int {
	n := 5
	for _, d := range s.Descriptors {
		n += d.size()
	}
	return n
}

func (s *PMTStream) toWire() []byte {
	b := NewByteBuffer(nil)
	b.WriteUint8(s.StreamType)
	b.WriteBitsN(0x7, 3)
	b.WriteBitsN(uint64(s.ElementaryPID), 13)
	dl := &DescriptorList{Descriptors: s.Descriptors}
	b.WriteBitsN(0xf, 4)
	b.WriteBitsN(uint64(dl.EncodedSize()), 12)
	b.WriteBytes(dl.toWire())
	return b.Written()
}

// PMT is the Program Map Table (spec §4.5). Its table_id_extension carries
// the program_number (service_id).
type PMT struct {
	ProgramNumber uint16
	Version       uint8
	Current       bool
	PCRPID        uint16
	Descriptors   []*Descriptor // program-level
	Streams       []*PMTStream
}

func (t *PMT) TableID() TableID    { return TableIDPMT }
func (t *PMT) ElementName() string { return "pmt" }

func (t *PMT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDPMT {
		return errors.Wrap(ErrWrongTableID, "psi: not a PMT")
	}
	t.ProgramNumber = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Descriptors = nil
	t.Streams = nil

	pcrPID, progDescBytes, streamBytes, err := splitOneLengthLoop(bt.Sections())
	if err != nil {
		return err
	}
	t.PCRPID = pcrPID

	dctx := DescriptorContext{TableID: TableIDPMT, Standard: ctx.Standard}
	progList, err := parseDescriptorList(NewByteBuffer(progDescBytes), len(progDescBytes), dctx)
	if err != nil {
		return err
	}
	t.Descriptors = progList.Descriptors

	b := NewByteBuffer(streamBytes)
	for b.HasBytesLeft() {
		streamType := b.ReadUint8()
		pidField := b.ReadUint16()
		pid := pidField & 0x1fff
		esInfoLenField := b.ReadUint16()
		esInfoLen := int(esInfoLenField & 0xfff)
		streamList, err := parseDescriptorList(b, esInfoLen, dctx)
		if err != nil {
			return err
		}
		t.Streams = append(t.Streams, &PMTStream{StreamType: streamType, ElementaryPID: pid, Descriptors: streamList.Descriptors})
	}
	if b.Err() != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: PMT stream loop truncated")
	}
	return nil
}

// pmtItem is either a program-level descriptor or a stream-loop entry; both
// are atomic records under segmentation (spec §4.6).
type pmtItem struct {
	descriptor *Descriptor
	stream     *PMTStream
}

func (it pmtItem) size() int {
	if it.descriptor != nil {
		return it.descriptor.size()
	}
	return it.stream.size()
}

func (it pmtItem) bytes() []byte {
	if it.descriptor != nil {
		return it.descriptor.toWire()
	}
	return it.stream.toWire()
}

func (t *PMT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	var items []pmtItem
	for _, d := range t.Descriptors {
		items = append(items, pmtItem{descriptor: d})
	}
	for _, s := range t.Streams {
		items = append(items, pmtItem{stream: s})
	}

	const headerSize = 4
	usable := sectionBudget - headerSize

	type sectionBuf struct {
		progInfoLen int // bytes of program descriptors landed in this section
		body        *ByteBuffer
	}

	var bufs []*sectionBuf
	cur := &sectionBuf{body: NewByteBuffer(nil)}
	bufs = append(bufs, cur)
	used := 0
	inProgramPhase := true

	for _, it := range items {
		sz := it.size()
		if sz > usable {
			return nil, errors.Wrap(ErrOverflow, "psi: PMT record exceeds section budget")
		}
		if it.stream != nil {
			inProgramPhase = false
		}
		if used+sz > usable {
			cur = &sectionBuf{body: NewByteBuffer(nil)}
			bufs = append(bufs, cur)
			used = 0
		}
		if inProgramPhase {
			cur.progInfoLen += sz
		}
		cur.body.WriteBytes(it.bytes())
		used += sz
	}

	sections := make([]*Section, len(bufs))
	for i, buf := range bufs {
		b := NewByteBuffer(nil)
		b.WriteUint16(0xe000 | t.PCRPID&0x1fff)
		b.WriteBitsN(0xf, 4)
		b.WriteBitsN(uint64(buf.progInfoLen), 12)
		b.WriteBytes(buf.body.Written())

		s := NewLongSection(TableIDPMT, t.ProgramNumber, version, current)
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

func (t *PMT) ToXML() *xmlNode {
	n := &xmlNode{Name: "pmt"}
	n.setAttr("service_id", hexAttr(uint64(t.ProgramNumber)))
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	n.setAttr("pcr_pid", hexAttr(uint64(t.PCRPID)))
	n.Children = append(n.Children, descriptorListToXMLChildren(t.Descriptors)...)
	for _, s := range t.Streams {
		c := &xmlNode{Name: "component"}
		c.setAttr("stream_type", hexAttr(uint64(s.StreamType)))
		c.setAttr("elementary_pid", hexAttr(uint64(s.ElementaryPID)))
		c.Children = descriptorListToXMLChildren(s.Descriptors)
		n.Children = append(n.Children, c)
	}
	return n
}

func (t *PMT) FromXML(n *xmlNode) error {
	progNum, err := requiredUintAttr(n, "service_id")
	if err != nil {
		return err
	}
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	pcrPID, err := requiredUintAttr(n, "pcr_pid")
	if err != nil {
		return err
	}
	t.ProgramNumber = uint16(progNum)
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)
	t.PCRPID = uint16(pcrPID)

	descs, err := descriptorListFromXMLChildren(n)
	if err != nil {
		return err
	}
	t.Descriptors = descs

	t.Streams = nil
	for _, c := range nonDescriptorChildren(n, "component") {
		streamType, err := requiredUintAttr(c, "stream_type")
		if err != nil {
			return err
		}
		pid, err := requiredUintAttr(c, "elementary_pid")
		if err != nil {
			return err
		}
		streamDescs, err := descriptorListFromXMLChildren(c)
		if err != nil {
			return err
		}
		t.Streams = append(t.Streams, &PMTStream{StreamType: uint8(streamType), ElementaryPID: uint16(pid), Descriptors: streamDescs})
	}
	return nil
}
