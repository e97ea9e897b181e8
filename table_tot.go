package psi

import (
	"time"

	"github.com/pkg/errors"
)

func init() {
	registerTable("tot", TableIDTOT, func() TypedTable { return &TOT{} })
}

// TOT is the Time Offset Table: a short-section table that, uniquely, still
// carries a trailing CRC-32 (spec §4.5, the TOT exception handled by
// Section.ForceCRC). Payload: 40-bit MJD+BCD UTC time, then a descriptor
// loop (typically local_time_offset_descriptor).
type TOT struct {
	UTC         time.Time
	Descriptors []*Descriptor
}

func (t *TOT) TableID() TableID    { return TableIDTOT }
func (t *TOT) ElementName() string { return "tot" }

func (t *TOT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDTOT {
		return errors.Wrap(ErrWrongTableID, "psi: not a TOT")
	}
	payload := bt.Payload()
	if len(payload) < 7 {
		return errors.Wrap(ErrInvalidStructure, "psi: TOT payload too short")
	}
	b := NewByteBuffer(payload)
	t.UTC = readDVBTime(b)
	descLenField := b.ReadUint16()
	descLen := int(descLenField & 0xfff)

	dctx := DescriptorContext{TableID: TableIDTOT, Standard: ctx.Standard}
	list, err := parseDescriptorList(b, descLen, dctx)
	if err != nil {
		return err
	}
	t.Descriptors = list.Descriptors
	return nil
}

func (t *TOT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	dl := &DescriptorList{Descriptors: t.Descriptors}
	if 7+dl.EncodedSize() > shortSectionBudget {
		return nil, errors.Wrap(ErrOverflow, "psi: TOT descriptor loop exceeds section budget")
	}

	b := NewByteBuffer(nil)
	writeDVBTime(b, t.UTC)
	b.WriteBitsN(0xf, 4)
	b.WriteBitsN(uint64(dl.EncodedSize()), 12)
	b.WriteBytes(dl.toWire())

	s := NewShortSection(TableIDTOT)
	s.ForceCRC = true
	s.Payload = b.Written()
	if err := s.Seal(); err != nil {
		return nil, err
	}
	s.Validate(CRCCompute)
	return assembleBinaryTable([]*Section{s}), nil
}

func (t *TOT) ToXML() *xmlNode {
	n := &xmlNode{Name: "tot"}
	n.setAttr("utc_time", t.UTC.UTC().Format(time.RFC3339))
	n.Children = descriptorListToXMLChildren(t.Descriptors)
	return n
}

func (t *TOT) FromXML(n *xmlNode) error {
	s, err := requiredAttr(n, "utc_time")
	if err != nil {
		return err
	}
	utc, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: malformed tot utc_time")
	}
	t.UTC = utc
	descs, err := descriptorListFromXMLChildren(n)
	if err != nil {
		return err
	}
	t.Descriptors = descs
	return nil
}
