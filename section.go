package psi

import "github.com/pkg/errors"

// TableID identifies the structure of a section's syntax and payload
// (spec §3). It is 8 bits wide on the wire.
type TableID uint8

// Well-known table ids (spec §4.5, GLOSSARY).
const (
	TableIDPAT TableID = 0x00
	TableIDCAT TableID = 0x01
	TableIDPMT TableID = 0x02
	TableIDTDT TableID = 0x70
	TableIDRST TableID = 0x71
	TableIDST  TableID = 0x72
	TableIDTOT TableID = 0x73
	TableIDBAT TableID = 0x4a
	TableIDDIT TableID = 0x7e
	TableIDSIT TableID = 0x7f

	TableIDNITActual TableID = 0x40
	TableIDNITOther  TableID = 0x41
	TableIDSDTActual TableID = 0x42
	TableIDSDTOther  TableID = 0x46

	TableIDEITActualPF   TableID = 0x4e
	TableIDEITOtherPF    TableID = 0x4f
	TableIDEITSchedStart TableID = 0x50
	TableIDEITSchedEnd   TableID = 0x6f
)

// isEIT reports whether a table id belongs to the EIT family (present/
// following or any of the 16+16 schedule sub-ids).
func (t TableID) isEIT() bool {
	return t == TableIDEITActualPF || t == TableIDEITOtherPF || (t >= TableIDEITSchedStart && t <= TableIDEITSchedEnd)
}

// forcesCRCOnShortSection reports the TOT exception: it is wire-formatted as
// a short section (section_syntax_indicator = 0) yet still carries a
// trailing CRC-32 (spec §4.5: "TOT adds ... its own CRC").
func (t TableID) forcesCRCOnShortSection() bool { return t == TableIDTOT }

// nonSemanticTableIDExtension is the value emitted, by convention, for
// tables whose table_id_extension field carries no semantic meaning
// (spec §4.4, §9: CAT/TDT-like tables).
const nonSemanticTableIDExtension uint16 = 0xFFFF

// sectionState is C3's lifecycle (spec §4.3).
type sectionState uint8

const (
	sectionEmpty sectionState = iota
	sectionFilling
	sectionSealed
	sectionReadable
	sectionInvalid
)

// Section is one on-air PSI unit: short (no syntax section, max 1024 bytes)
// or long (with table_id_extension/version/section_number/last_section_number/
// CRC-32), spec §3/§4.3.
type Section struct {
	TableID                TableID
	SectionSyntaxIndicator bool
	PrivateIndicator       bool

	// Long-section fields; zero value when SectionSyntaxIndicator is false.
	TableIDExtension     uint16
	VersionNumber        uint8
	CurrentNextIndicator bool
	SectionNumber        uint8
	LastSectionNumber    uint8
	CRC32                uint32

	Payload []byte

	// ForceCRC handles the TOT exception: short-section syntax with a
	// trailing CRC-32 anyway (spec §4.5).
	ForceCRC bool

	// Attribute is a free-form string not wire-encoded; carried via
	// metadata in the editable (XML/JSON) form (spec §3, §4.7, §8 property 7).
	Attribute string

	state      sectionState
	crcValid   bool
	sealedWire []byte
}

// NewLongSection starts a mutable draft for a long section.
func NewLongSection(tableID TableID, tableIDExt uint16, version uint8, current bool) *Section {
	return &Section{
		TableID:                tableID,
		SectionSyntaxIndicator: true,
		TableIDExtension:       tableIDExt,
		VersionNumber:          version & 0x1f,
		CurrentNextIndicator:   current,
		state:                  sectionFilling,
	}
}

// NewShortSection starts a mutable draft for a short section.
func NewShortSection(tableID TableID) *Section {
	return &Section{TableID: tableID, state: sectionFilling}
}

// IsShortSection reports whether this is a short (no syntax section) section.
func (s *Section) IsShortSection() bool { return !s.SectionSyntaxIndicator }

// IsLongSection reports whether this section carries a long syntax header.
func (s *Section) IsLongSection() bool { return s.SectionSyntaxIndicator }

// IsSealed reports whether the section has been sealed (CRC computed for
// long sections, section_length written).
func (s *Section) IsSealed() bool { return s.state == sectionSealed || s.state == sectionReadable || s.state == sectionInvalid }

// IsReadable reports whether the section passed validation.
func (s *Section) IsReadable() bool { return s.state == sectionReadable }

// IsInvalid reports whether the section failed validation (e.g. bad CRC).
func (s *Section) IsInvalid() bool { return s.state == sectionInvalid }

// headerSize is the 3-byte short header, plus 5 bytes of long syntax header
// when present. The 4-byte CRC is counted by trailerSize, not here.
func (s *Section) headerSize() int {
	if s.SectionSyntaxIndicator {
		return 3 + 5
	}
	return 3
}

// hasCRC reports whether this section carries a trailing CRC-32: always for
// long sections, or for a short section under the TOT exception.
func (s *Section) hasCRC() bool { return s.SectionSyntaxIndicator || s.ForceCRC }

func (s *Section) trailerSize() int {
	if s.hasCRC() {
		return 4
	}
	return 0
}

// EncodedSize returns the section's total on-wire size.
func (s *Section) EncodedSize() int {
	return s.headerSize() + len(s.Payload) + s.trailerSize()
}

// sectionLength is the 12-bit section_length field value: everything after
// the 3-byte fixed header, through the CRC inclusive.
func (s *Section) sectionLength() uint16 {
	n := len(s.Payload) + s.trailerSize()
	if s.SectionSyntaxIndicator {
		n += 5
	}
	return uint16(n)
}

// Seal writes section_length, computes the CRC-32 for long sections, and
// transitions Filling -> Sealed (spec §4.3). Sealed sections are immutable:
// further payload mutation requires building a new draft.
func (s *Section) Seal() error {
	if s.SectionSyntaxIndicator && s.SectionNumber > s.LastSectionNumber {
		return errors.Wrap(ErrInvalidStructure, "psi: section_number exceeds last_section_number")
	}
	if s.EncodedSize() > 1024 {
		return errors.Wrap(ErrOverflow, "psi: section exceeds 1024 bytes")
	}

	b := NewByteBuffer(nil)
	s.writeHeader(b)
	b.WriteBytes(s.Payload)

	if s.hasCRC() {
		s.CRC32 = computeCRC32(b.Written())
		b.WriteUint32(s.CRC32)
	}

	s.sealedWire = b.Written()
	s.state = sectionSealed
	s.crcValid = true
	return nil
}

func (s *Section) writeHeader(b *ByteBuffer) {
	b.WriteUint8(uint8(s.TableID))
	ssi := uint8(0)
	if s.SectionSyntaxIndicator {
		ssi = 1
	}
	priv := uint8(0)
	if s.PrivateIndicator {
		priv = 1
	}
	b.WriteBitsN(uint64(ssi), 1)
	b.WriteBitsN(uint64(priv), 1)
	b.WriteBitsN(0x3, 2) // reserved
	b.WriteBitsN(uint64(s.sectionLength()), 12)

	if s.SectionSyntaxIndicator {
		b.WriteUint16(s.TableIDExtension)
		b.WriteBitsN(0x3, 2) // reserved
		b.WriteBitsN(uint64(s.VersionNumber&0x1f), 5)
		cur := uint64(0)
		if s.CurrentNextIndicator {
			cur = 1
		}
		b.WriteBitsN(cur, 1)
		b.WriteUint8(s.SectionNumber)
		b.WriteUint8(s.LastSectionNumber)
	}
}

// Validate confirms the CRC (per policy), transitioning Sealed -> Readable
// or Invalid (spec §4.3). It checks nothing else: section_number against
// last_section_number and the 1024-byte limit are checked by Seal only, so a
// section parsed from the wire is not checked for them.
func (s *Section) Validate(policy CRCPolicy) {
	if !s.IsSealed() {
		s.state = sectionInvalid
		return
	}
	if !s.hasCRC() {
		s.state = sectionReadable
		return
	}

	body := s.sealedWire[:len(s.sealedWire)-4]
	computed := computeCRC32(body)

	switch policy {
	case CRCIgnore:
		s.crcValid = true
	case CRCCompute:
		s.CRC32 = computed
		s.sealedWire[len(s.sealedWire)-4] = byte(computed >> 24)
		s.sealedWire[len(s.sealedWire)-3] = byte(computed >> 16)
		s.sealedWire[len(s.sealedWire)-2] = byte(computed >> 8)
		s.sealedWire[len(s.sealedWire)-1] = byte(computed)
		s.crcValid = true
	default: // CRCCheck
		s.crcValid = computed == s.CRC32
	}

	if s.crcValid {
		s.state = sectionReadable
	} else {
		s.state = sectionInvalid
	}
}

// Bytes returns the section's full encoded wire form. The section must
// already be sealed.
func (s *Section) Bytes() []byte {
	out := make([]byte, len(s.sealedWire))
	copy(out, s.sealedWire)
	return out
}

// Equal reports whether two sections have identical encoded bytes,
// including CRC (spec §4.3).
func (s *Section) Equal(o *Section) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !s.IsSealed() || !o.IsSealed() {
		return false
	}
	if len(s.sealedWire) != len(o.sealedWire) {
		return false
	}
	for i := range s.sealedWire {
		if s.sealedWire[i] != o.sealedWire[i] {
			return false
		}
	}
	return true
}

// Clone deep-copies a section.
func (s *Section) Clone() *Section {
	c := *s
	c.Payload = append([]byte(nil), s.Payload...)
	c.sealedWire = append([]byte(nil), s.sealedWire...)
	return &c
}

// sectionFromWire parses one section from b's read-head, per CRC policy.
// stopByte reports whether the table id byte is the 0xFF end-of-stream
// padding marker (spec §6).
func sectionFromWire(b *ByteBuffer, policy CRCPolicy, treatFFAsEOF bool) (s *Section, stopByte bool, err error) {
	startOffset := b.ReadOffset()
	tid := b.ReadUint8()
	if b.Err() != nil {
		return nil, false, errors.Wrap(ErrInvalidLength, "psi: reading table_id")
	}
	if treatFFAsEOF && tid == 0xff {
		return nil, true, nil
	}

	hdr := b.ReadUint16()
	if b.Err() != nil {
		return nil, false, errors.Wrap(ErrInvalidLength, "psi: reading section header")
	}
	ssi := hdr&0x8000 > 0
	priv := hdr&0x4000 > 0
	length := hdr & 0xfff

	s = &Section{TableID: TableID(tid), SectionSyntaxIndicator: ssi, PrivateIndicator: priv}
	s.ForceCRC = !ssi && s.TableID.forcesCRCOnShortSection()
	hasCRC := s.hasCRC()
	payloadEnd := b.ReadOffset() + int(length)
	crcEnd := payloadEnd
	if hasCRC {
		crcEnd -= 4
	}

	if ssi {
		s.TableIDExtension = b.ReadUint16()
		vb := b.ReadUint8()
		s.VersionNumber = (vb >> 1) & 0x1f
		s.CurrentNextIndicator = vb&0x1 > 0
		s.SectionNumber = b.ReadUint8()
		s.LastSectionNumber = b.ReadUint8()
	}
	if b.Err() != nil {
		return nil, false, errors.Wrap(ErrInvalidLength, "psi: reading section syntax header")
	}

	payloadLen := crcEnd - b.ReadOffset()
	if payloadLen < 0 {
		return nil, false, errors.Wrap(ErrInvalidLength, "psi: section_length too small for its own header")
	}
	s.Payload = b.ReadBytes(payloadLen)
	if b.Err() != nil {
		return nil, false, errors.Wrap(ErrInvalidLength, "psi: reading section payload")
	}

	if hasCRC {
		s.CRC32 = b.ReadUint32()
		if b.Err() != nil {
			return nil, false, errors.Wrap(ErrInvalidLength, "psi: reading section CRC")
		}
	}

	b.Seek(startOffset)
	raw := b.ReadBytes(payloadEnd - startOffset)
	s.sealedWire = raw
	s.state = sectionSealed
	s.Validate(policy)
	if s.state == sectionInvalid && policy == CRCCheck {
		return s, false, errors.Wrap(ErrBadCRC, "psi: section CRC check failed")
	}
	return s, false, nil
}
