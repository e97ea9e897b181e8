package psi

import (
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	registerTable("sdt", TableIDSDTActual, func() TypedTable { return &SDT{Actual: true} })
	registerTable("sdt_other", TableIDSDTOther, func() TypedTable { return &SDT{Actual: false} })
}

// SDTService is one service entry of a Service Description Table (spec §4.5).
// The entry (including its descriptor list) is atomic under segmentation.
type SDTService struct {
	ServiceID           uint16
	EITScheduleFlag     bool
	EITPresentFollowing bool
	RunningStatus       uint8
	FreeCAMode          bool
	Descriptors         []*Descriptor
}

func (e *SDTService) size() int {
	n := 5
	for _, d := range e.Descriptors {
		n += d.size()
	}
	return n
}

func (e *SDTService) toWire() []byte {
	b := NewByteBuffer(nil)
	b.WriteUint16(e.ServiceID)
	b.WriteBitsN(0x3f, 6)
	eitSched := uint64(0)
	if e.EITScheduleFlag {
		eitSched = 1
	}
	eitPF := uint64(0)
	if e.EITPresentFollowing {
		eitPF = 1
	}
	b.WriteBitsN(eitSched, 1)
	b.WriteBitsN(eitPF, 1)
	dl := &DescriptorList{Descriptors: e.Descriptors}
	b.WriteBitsN(uint64(e.RunningStatus), 3)
	freeCA := uint64(0)
	if e.FreeCAMode {
		freeCA = 1
	}
	b.WriteBitsN(freeCA, 1)
	b.WriteBitsN(uint64(dl.EncodedSize()), 12)
	b.WriteBytes(dl.toWire())
	return b.Written()
}

// SDT is the Service Description Table, "actual" or "other" transport
// stream flavor (spec §4.5). Its table_id_extension carries transport_stream_id.
type SDT struct {
	Actual bool

	TransportStreamID uint16 // table_id_extension
	OriginalNetworkID uint16
	Version           uint8
	Current           bool
	Services          []*SDTService
}

func (t *SDT) TableID() TableID {
	if t.Actual {
		return TableIDSDTActual
	}
	return TableIDSDTOther
}

func (t *SDT) ElementName() string {
	if t.Actual {
		return "sdt"
	}
	return "sdt_other"
}

func (t *SDT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != t.TableID() {
		return errors.Wrap(ErrWrongTableID, "psi: not a matching SDT flavor")
	}
	t.TransportStreamID = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Services = nil

	preamble, body, err := stripFixedPreamble(bt.Sections(), 3)
	if err != nil {
		return err
	}
	pb := NewByteBuffer(preamble)
	t.OriginalNetworkID = pb.ReadUint16()

	b := NewByteBuffer(body)

	dctx := DescriptorContext{TableID: t.TableID(), Standard: ctx.Standard}
	for b.HasBytesLeft() {
		serviceID := b.ReadUint16()
		flags := b.ReadUint8()
		hdr := b.ReadUint16() // running_status(3) free_CA_mode(1) descriptors_loop_length(12)
		descLen := int(hdr & 0x0fff)
		svc := &SDTService{
			ServiceID:           serviceID,
			EITScheduleFlag:     flags&0x2 > 0,
			EITPresentFollowing: flags&0x1 > 0,
		}
		svc.RunningStatus = uint8(hdr >> 13)
		svc.FreeCAMode = (hdr>>12)&0x1 > 0
		list, err := parseDescriptorList(b, descLen, dctx)
		if err != nil {
			return err
		}
		svc.Descriptors = list.Descriptors
		t.Services = append(t.Services, svc)
	}
	if b.Err() != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: SDT service loop truncated")
	}
	return nil
}

func (t *SDT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	const headerSize = 3 // original_network_id(2) + reserved(1)
	usable := sectionBudget - headerSize

	records := make([]atomicRecord, len(t.Services))
	for i, svc := range t.Services {
		records[i] = svc
	}
	payloads, err := packAtomicRecords(records, usable)
	if err != nil {
		return nil, err
	}

	sections := make([]*Section, len(payloads))
	for i, p := range payloads {
		sections[i] = t.buildSection(p, version, current)
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

func (t *SDT) buildSection(body []byte, version uint8, current bool) *Section {
	b := NewByteBuffer(nil)
	b.WriteUint16(t.OriginalNetworkID)
	b.WriteUint8(0xff) // reserved_future_use
	b.WriteBytes(body)
	s := NewLongSection(t.TableID(), t.TransportStreamID, version, current)
	s.Payload = b.Written()
	return s
}

func (t *SDT) ToXML() *xmlNode {
	n := &xmlNode{Name: t.ElementName()}
	n.setAttr("transport_stream_id", hexAttr(uint64(t.TransportStreamID)))
	n.setAttr("original_network_id", hexAttr(uint64(t.OriginalNetworkID)))
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	for _, svc := range t.Services {
		c := &xmlNode{Name: "service"}
		c.setAttr("service_id", hexAttr(uint64(svc.ServiceID)))
		c.setAttr("eit_schedule_flag", strconv.FormatBool(svc.EITScheduleFlag))
		c.setAttr("eit_present_following", strconv.FormatBool(svc.EITPresentFollowing))
		c.setAttr("running_status", strconv.Itoa(int(svc.RunningStatus)))
		c.setAttr("free_ca_mode", strconv.FormatBool(svc.FreeCAMode))
		c.Children = descriptorListToXMLChildren(svc.Descriptors)
		n.Children = append(n.Children, c)
	}
	return n
}

func (t *SDT) FromXML(n *xmlNode) error {
	tsid, err := requiredUintAttr(n, "transport_stream_id")
	if err != nil {
		return err
	}
	onid, err := requiredUintAttr(n, "original_network_id")
	if err != nil {
		return err
	}
	version, err := requiredUintAttr(n, "version")
	if err != nil {
		return err
	}
	t.TransportStreamID = uint16(tsid)
	t.OriginalNetworkID = uint16(onid)
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)

	t.Services = nil
	for _, c := range nonDescriptorChildren(n, "service") {
		serviceID, err := requiredUintAttr(c, "service_id")
		if err != nil {
			return err
		}
		runningStatus, err := requiredUintAttr(c, "running_status")
		if err != nil {
			return err
		}
		descs, err := descriptorListFromXMLChildren(c)
		if err != nil {
			return err
		}
		t.Services = append(t.Services, &SDTService{
			ServiceID:           uint16(serviceID),
			EITScheduleFlag:     optionalBoolAttr(c, "eit_schedule_flag", false),
			EITPresentFollowing: optionalBoolAttr(c, "eit_present_following", false),
			RunningStatus:       uint8(runningStatus),
			FreeCAMode:          optionalBoolAttr(c, "free_ca_mode", false),
			Descriptors:         descs,
		})
	}
	return nil
}
