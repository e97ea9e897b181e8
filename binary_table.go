package psi

// addOutcome reports what happened when a section joined a BinaryTable
// (spec §4.4).
type addOutcome uint8

const (
	sectionAdded addOutcome = iota
	sectionDuplicatedSlot
	sectionConflict
	tableCompleted
)

// BinaryTable aggregates the sections that together make up one instance of
// a table: same table_id, table_id_extension, version_number and
// current_next_indicator (spec §4.4). Short-section tables and CAT/TDT-like
// tables (whose table_id_extension carries no meaning) always complete with
// exactly one section.
type BinaryTable struct {
	tableID          TableID
	tableIDExtension uint16
	version          uint8
	current          bool
	isLong           bool

	sections   []*Section // indexed by section_number for long tables
	lastNumber uint8
	have       int
}

// newBinaryTableFrom seeds a BinaryTable from its first section.
func newBinaryTableFrom(s *Section) *BinaryTable {
	t := &BinaryTable{
		tableID: s.TableID,
		isLong:  s.SectionSyntaxIndicator,
	}
	if s.SectionSyntaxIndicator {
		t.tableIDExtension = s.TableIDExtension
		t.version = s.VersionNumber
		t.current = s.CurrentNextIndicator
		t.lastNumber = s.LastSectionNumber
		t.sections = make([]*Section, int(s.LastSectionNumber)+1)
	} else {
		t.sections = make([]*Section, 1)
	}
	return t
}

// addSection inserts s, returning what happened (spec §4.4). A short
// section, or the last needed long section, completes the table.
func (t *BinaryTable) addSection(s *Section) addOutcome {
	if !t.isLong {
		if t.have > 0 {
			if t.sections[0].Equal(s) {
				return sectionDuplicatedSlot
			}
			return sectionConflict
		}
		t.sections[0] = s
		t.have++
		return tableCompleted
	}

	if s.LastSectionNumber != t.lastNumber {
		return sectionConflict
	}
	idx := int(s.SectionNumber)
	if idx >= len(t.sections) {
		return sectionConflict
	}
	if existing := t.sections[idx]; existing != nil {
		if existing.Equal(s) {
			return sectionDuplicatedSlot
		}
		return sectionConflict
	}
	t.sections[idx] = s
	t.have++
	if t.have == len(t.sections) {
		return tableCompleted
	}
	return sectionAdded
}

// TableID returns the table id shared by every section in this table.
func (t *BinaryTable) TableID() TableID { return t.tableID }

// TableIDExtension returns the table_id_extension shared by every section,
// or nonSemanticTableIDExtension for short-section tables (spec §4.4).
func (t *BinaryTable) TableIDExtension() uint16 {
	if !t.isLong {
		return nonSemanticTableIDExtension
	}
	return t.tableIDExtension
}

// Version returns the version_number shared by every section (0 for short
// sections, which carry none).
func (t *BinaryTable) Version() uint8 { return t.version }

// CurrentNext returns the current_next_indicator shared by every section.
func (t *BinaryTable) CurrentNext() bool { return t.current }

// IsShortSection reports whether this table is made of a single short section.
func (t *BinaryTable) IsShortSection() bool { return !t.isLong }

// IsLongSection reports whether this table is made of long sections.
func (t *BinaryTable) IsLongSection() bool { return t.isLong }

// IsComplete reports whether every section_number through last_section_number
// has been filled.
func (t *BinaryTable) IsComplete() bool { return t.have == len(t.sections) }

// SectionCount returns the number of section slots (last_section_number+1),
// regardless of how many have arrived so far.
func (t *BinaryTable) SectionCount() int { return len(t.sections) }

// SectionAt returns the section at index i (0-based section_number), or nil
// if that slot has not arrived yet.
func (t *BinaryTable) SectionAt(i int) *Section {
	if i < 0 || i >= len(t.sections) {
		return nil
	}
	return t.sections[i]
}

// Sections returns every arrived section in section_number order.
func (t *BinaryTable) Sections() []*Section {
	out := make([]*Section, 0, len(t.sections))
	for _, s := range t.sections {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Payload concatenates every section's payload in order, for typed-table
// deserialization (spec §5). Only valid once IsComplete().
func (t *BinaryTable) Payload() []byte {
	var out []byte
	for _, s := range t.sections {
		if s != nil {
			out = append(out, s.Payload...)
		}
	}
	return out
}
