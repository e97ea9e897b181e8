package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("cat", TableIDCAT, func() TypedTable { return &CAT{} })
}

// CAT is the Conditional Access Table: a table_id_extension-less container
// for a single descriptor loop, typically CA_descriptors (spec §4.5).
type CAT struct {
	Version     uint8
	Current     bool
	Descriptors []*Descriptor
}

func (t *CAT) TableID() TableID    { return TableIDCAT }
func (t *CAT) ElementName() string { return "cat" }

func (t *CAT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDCAT {
		return errors.Wrap(ErrWrongTableID, "psi: not a CAT")
	}
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Descriptors = nil

	payload := bt.Payload()
	b := NewByteBuffer(payload)
	dctx := DescriptorContext{TableID: TableIDCAT, Standard: ctx.Standard}
	list, err := parseDescriptorList(b, len(payload), dctx)
	if err != nil {
		return err
	}
	t.Descriptors = list.Descriptors
	return nil
}

func (t *CAT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	records := make([]atomicRecord, len(t.Descriptors))
	for i, d := range t.Descriptors {
		records[i] = d
	}
	payloads, err := packAtomicRecords(records, sectionBudget)
	if err != nil {
		return nil, err
	}

	sections := make([]*Section, len(payloads))
	for i, p := range payloads {
		s := NewLongSection(TableIDCAT, nonSemanticTableIDExtension, version, current)
		s.Payload = p
		s.SectionNumber = uint8(i)
		s.LastSectionNumber = uint8(len(payloads) - 1)
		sections[i] = s
	}
	if err := sealSections(sections, CRCCompute); err != nil {
		return nil, err
	}
	return assembleBinaryTable(sections), nil
}

func (t *CAT) ToXML() *xmlNode {
	n := &xmlNode{Name: "cat"}
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	n.Children = append(n.Children, descriptorListToXMLChildren(t.Descriptors)...)
	return n
}

func (t *CAT) FromXML(n *xmlNode) error {
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)
	descs, err := descriptorListFromXMLChildren(n)
	if err != nil {
		return err
	}
	t.Descriptors = descs
	return nil
}
