package psi

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

func init() {
	registerTable("eit", TableIDEITActualPF, func() TypedTable { return &EIT{Actual: true} })
	registerTable("eit_other", TableIDEITOtherPF, func() TypedTable { return &EIT{Actual: false} })
}

// EITEvent is one event entry of an Event Information Table (spec §4.5).
// The event (including its descriptor list) is atomic under segmentation.
type EITEvent struct {
	EventID       uint16
	StartTime     time.Time
	Duration      time.Duration
	RunningStatus uint8
	FreeCAMode    bool
	Descriptors   []*Descriptor
}

func (e *EITEvent) size() int {
	n := 12
	for _, d := range e.Descriptors {
		n += d.size()
	}
	return n
}

func (e *EITEvent) toWire() []byte {
	b := NewByteBuffer(nil)
	b.WriteUint16(e.EventID)
	writeDVBTime(b, e.StartTime)
	writeDVBDurationHMS(b, e.Duration)
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

// EIT is the Event Information Table: present/following ("actual"/"other"
// network) or one of the 16+16 schedule table ids (spec §4.5).
//
// This implementation segments on the universal atomic-event / 1012-byte
// budget rule (spec §4.6 point 3); the DVB schedule's 32-section/3-hour
// segment grouping (table_id 0x50-0x6f sub-id selection, segment_last_section_
// number bookkeeping across *multiple* table ids) is a broadcast-schedule
// planning concern layered above one EIT instance and is out of this core's
// scope (spec §1: "EIT-inject scheduler" is an external collaborator);
// SegmentLastSectionNumber/LastTableID are carried as plain fields the
// caller sets explicitly rather than derived here.
type EIT struct {
	Actual       bool
	TableIDValue TableID // overrides TableID() when set, for schedule sub-ids

	ServiceID                uint16 // table_id_extension
	TransportStreamID        uint16
	OriginalNetworkID        uint16
	SegmentLastSectionNumber uint8
	LastTableID              TableID
	Version                  uint8
	Current                  bool
	Events                   []*EITEvent
}

func (t *EIT) TableID() TableID {
	if t.TableIDValue != 0 {
		return t.TableIDValue
	}
	if t.Actual {
		return TableIDEITActualPF
	}
	return TableIDEITOtherPF
}

func (t *EIT) ElementName() string {
	if t.Actual {
		return "eit"
	}
	return "eit_other"
}

func (t *EIT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if !bt.TableID().isEIT() {
		return errors.Wrap(ErrWrongTableID, "psi: not an EIT")
	}
	t.TableIDValue = bt.TableID()
	t.Actual = bt.TableID() == TableIDEITActualPF || (bt.TableID() >= TableIDEITSchedStart && (bt.TableID()-TableIDEITSchedStart)%2 == 0)
	t.ServiceID = bt.TableIDExtension()
	t.Version = bt.Version()
	t.Current = bt.CurrentNext()
	t.Events = nil

	preamble, body, err := stripFixedPreamble(bt.Sections(), 6)
	if err != nil {
		return err
	}
	pb := NewByteBuffer(preamble)
	t.TransportStreamID = pb.ReadUint16()
	t.OriginalNetworkID = pb.ReadUint16()
	t.SegmentLastSectionNumber = pb.ReadUint8()
	t.LastTableID = TableID(pb.ReadUint8())

	b := NewByteBuffer(body)

	dctx := DescriptorContext{TableID: t.TableID(), Standard: ctx.Standard}
	for b.HasBytesLeft() {
		eventID := b.ReadUint16()
		start := readDVBTime(b)
		dur := readDVBDurationHMS(b)
		flags := b.ReadUint8()
		lenHi := b.ReadUint8()
		descLen := (int(flags&0xf) << 8) | int(lenHi)
		ev := &EITEvent{
			EventID:       eventID,
			StartTime:     start,
			Duration:      dur,
			RunningStatus: flags >> 5,
			FreeCAMode:    flags&0x10 > 0,
		}
		list, err := parseDescriptorList(b, descLen, dctx)
		if err != nil {
			return err
		}
		ev.Descriptors = list.Descriptors
		t.Events = append(t.Events, ev)
	}
	if b.Err() != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: EIT event loop truncated")
	}
	return nil
}

func (t *EIT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	if version > 31 {
		return nil, ErrVersionExhausted
	}

	const headerSize = 6 // tsid(2)+onid(2)+segment_last_section_number(1)+last_table_id(1)
	usable := sectionBudget - headerSize

	records := make([]atomicRecord, len(t.Events))
	for i, ev := range t.Events {
		records[i] = ev
	}
	payloads, err := packAtomicRecords(records, usable)
	if err != nil {
		return nil, err
	}
	if len(payloads) > 32 {
		return nil, errors.Wrap(ErrOverflow, "psi: EIT schedule segment exceeds 32 sections")
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

func (t *EIT) buildSection(body []byte, version uint8, current bool) *Section {
	b := NewByteBuffer(nil)
	b.WriteUint16(t.TransportStreamID)
	b.WriteUint16(t.OriginalNetworkID)
	segLast := t.SegmentLastSectionNumber
	lastTable := t.LastTableID
	if lastTable == 0 {
		lastTable = t.TableID()
	}
	b.WriteUint8(segLast)
	b.WriteUint8(uint8(lastTable))
	b.WriteBytes(body)
	s := NewLongSection(t.TableID(), t.ServiceID, version, current)
	s.Payload = b.Written()
	return s
}

func (t *EIT) ToXML() *xmlNode {
	n := &xmlNode{Name: t.ElementName()}
	n.setAttr("service_id", hexAttr(uint64(t.ServiceID)))
	n.setAttr("transport_stream_id", hexAttr(uint64(t.TransportStreamID)))
	n.setAttr("original_network_id", hexAttr(uint64(t.OriginalNetworkID)))
	n.setAttr("table_id", hexAttr(uint64(t.TableID())))
	n.setAttr("segment_last_section_number", strconv.Itoa(int(t.SegmentLastSectionNumber)))
	lastTable := t.LastTableID
	if lastTable == 0 {
		lastTable = t.TableID()
	}
	n.setAttr("last_table_id", hexAttr(uint64(lastTable)))
	n.setAttr("version", strconv.Itoa(int(t.Version)))
	n.setAttr("current", strconv.FormatBool(t.Current))
	for _, ev := range t.Events {
		c := &xmlNode{Name: "event"}
		c.setAttr("event_id", hexAttr(uint64(ev.EventID)))
		c.setAttr("start_time", ev.StartTime.UTC().Format(time.RFC3339))
		c.setAttr("duration", formatDurationHMS(ev.Duration))
		c.setAttr("running_status", strconv.Itoa(int(ev.RunningStatus)))
		c.setAttr("free_ca_mode", strconv.FormatBool(ev.FreeCAMode))
		c.Children = descriptorListToXMLChildren(ev.Descriptors)
		n.Children = append(n.Children, c)
	}
	return n
}

func (t *EIT) FromXML(n *xmlNode) error {
	serviceID, err := requiredUintAttr(n, "service_id")
	if err != nil {
		return err
	}
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
	segLast, err := requiredUintAttr(n, "segment_last_section_number")
	if err != nil {
		return err
	}
	t.ServiceID = uint16(serviceID)
	t.TransportStreamID = uint16(tsid)
	t.OriginalNetworkID = uint16(onid)
	t.Version = uint8(version)
	t.Current = optionalBoolAttr(n, "current", true)
	t.SegmentLastSectionNumber = uint8(segLast)
	if v, ok := n.attr("table_id"); ok {
		tid, err := parseIntAttr(v)
		if err != nil {
			return errors.Wrap(ErrInvalidStructure, "psi: eit.table_id not an integer")
		}
		t.TableIDValue = TableID(tid)
	}
	if v, ok := n.attr("last_table_id"); ok {
		ltid, err := parseIntAttr(v)
		if err != nil {
			return errors.Wrap(ErrInvalidStructure, "psi: eit.last_table_id not an integer")
		}
		t.LastTableID = TableID(ltid)
	}
	t.Actual = t.TableID() == TableIDEITActualPF || (t.TableID() >= TableIDEITSchedStart && (t.TableID()-TableIDEITSchedStart)%2 == 0)

	t.Events = nil
	for _, c := range nonDescriptorChildren(n, "event") {
		eventID, err := requiredUintAttr(c, "event_id")
		if err != nil {
			return err
		}
		startStr, err := requiredAttr(c, "start_time")
		if err != nil {
			return err
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return errors.Wrap(ErrInvalidStructure, "psi: malformed event start_time")
		}
		durStr, err := requiredAttr(c, "duration")
		if err != nil {
			return err
		}
		dur, err := parseDurationHMS(durStr)
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
		t.Events = append(t.Events, &EITEvent{
			EventID:       uint16(eventID),
			StartTime:     start,
			Duration:      dur,
			RunningStatus: uint8(runningStatus),
			FreeCAMode:    optionalBoolAttr(c, "free_ca_mode", false),
			Descriptors:   descs,
		})
	}
	return nil
}
