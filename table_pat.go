package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("pat", TableIDPAT, func() TypedTable { return &PAT{} })
}

// PATProgram is one program_number -> PID mapping record. Program number 0
// is reserved for the network PID (spec §4.5).
type PATProgram struct {
	ProgramNumber uint16
	PID           uint16
}

// PAT is the Program Association Table (spec §4.5). Its table_id_extension
// carries the transport_stream_id.
type PAT struct {
	TransportStreamID uint16
	Version           uint8
	Current           bool

	// Programs is ordered; a ProgramNumber of 0 designates the network PID.
	// Preserving insertion order is required for deterministic serialization
	// (spec §4.6 "Determinism").
	Programs []PATProgram
}

// NetworkPID returns the PID mapped to program_number 0, if present.
func (t *PAT) NetworkPID() (uint16, bool) {
	for _, p := range t.Programs {
		if p.ProgramNumber == 0 {
			return p.PID, true
		}
	}
	return 0, false
}

func (t *PAT) TableID() TableID    { return TableIDPAT }
func (t *PAT) ElementName() string { return "pat" }

func (t *PAT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDPAT {
		return errors.Wrap(ErrWrongTableID, "psi: not a PAT")
	}
	t.TransportStreamID = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Programs = nil

	payload := bt.Payload()
	if len(payload)%4 != 0 {
		return errors.Wrap(ErrInvalidStructure, "psi: PAT payload not a multiple of 4 bytes")
	}
	for off := 0; off < len(payload); off += 4 {
		progNum := uint16(payload[off])<<8 | uint16(payload[off+1])
		pid := uint16(payload[off+2]&0x1f)<<8 | uint16(payload[off+3])
		t.Programs = append(t.Programs, PATProgram{ProgramNumber: progNum, PID: pid})
	}
	if len(t.Programs) > 8191 {
		return errors.Wrap(ErrInvalidStructure, "psi: PAT carries more than 8191 programs")
	}
	return nil
}

func (t *PAT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if len(t.Programs) > 8191 {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: PAT carries more than 8191 programs")
	}
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	const recordsPerSection = sectionBudget / 4

	var sections []*Section
	numSections := (len(t.Programs) + recordsPerSection - 1) / recordsPerSection
	if numSections == 0 {
		numSections = 1 // still emit one (empty) section
	}

	for i := 0; i < numSections; i++ {
		start := i * recordsPerSection
		end := start + recordsPerSection
		if end > len(t.Programs) {
			end = len(t.Programs)
		}
		b := NewByteBuffer(nil)
		for _, p := range t.Programs[start:end] {
			b.WriteUint16(p.ProgramNumber)
			b.WriteBitsN(0x7, 3)
			b.WriteBitsN(uint64(p.PID), 13)
		}
		s := NewLongSection(TableIDPAT, t.TransportStreamID, version, current)
		s.Payload = b.Written()
		sections = append(sections, s)
	}
	for i, s := range sections {
		s.SectionNumber = uint8(i)
		s.LastSectionNumber = uint8(len(sections) - 1)
	}
	if err := sealSections(sections, CRCCompute); err != nil {
		return nil, err
	}
	return assembleBinaryTable(sections), nil
}

func (t *PAT) ToXML() *xmlNode {
	n := &xmlNode{Name: "pat"}
	n.setAttr("transport_stream_id", hexAttr(uint64(t.TransportStreamID)))
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	for _, p := range t.Programs {
		c := &xmlNode{Name: "service"}
		c.setAttr("service_id", hexAttr(uint64(p.ProgramNumber)))
		c.setAttr("program_map_pid", hexAttr(uint64(p.PID)))
		n.Children = append(n.Children, c)
	}
	return n
}

func (t *PAT) FromXML(n *xmlNode) error {
	tsid, err := requiredUintAttr(n, "transport_stream_id")
	if err != nil {
		return err
	}
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	t.TransportStreamID = uint16(tsid)
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)
	t.Programs = nil
	for _, c := range nonDescriptorChildren(n, "service") {
		progNum, err := requiredUintAttr(c, "service_id")
		if err != nil {
			return err
		}
		pid, err := requiredUintAttr(c, "program_map_pid")
		if err != nil {
			return err
		}
		t.Programs = append(t.Programs, PATProgram{ProgramNumber: uint16(progNum), PID: uint16(pid)})
	}
	return nil
}
