package psi

import "github.com/pkg/errors"

// tableKey identifies one in-progress or completed table instance, matching
// the criteria spec §3/§4.4 uses to group sections.
type tableKey struct {
	id      TableID
	isLong  bool
	ext     uint16
	version uint8
	current bool
}

func keyOf(bt *BinaryTable) tableKey {
	return tableKey{id: bt.TableID(), isLong: bt.IsLongSection(), ext: bt.TableIDExtension(), version: bt.Version(), current: bt.CurrentNext()}
}

// SectionFile aggregates complete BinaryTables and orphan (incomplete)
// sections under one DuckContext (spec §3, §4.8). It is the user-facing
// entry point of the core.
type SectionFile struct {
	ctx *DuckContext

	tables     []*BinaryTable
	inProgress map[tableKey]*BinaryTable
	order      []tableKey // insertion order of in-progress tables, for Sections()
}

// NewSectionFile creates an empty SectionFile under ctx (or a fresh default
// DuckContext if ctx is nil).
func NewSectionFile(ctx *DuckContext) *SectionFile {
	if ctx == nil {
		ctx = NewDuckContext()
	}
	return &SectionFile{ctx: ctx, inProgress: make(map[tableKey]*BinaryTable)}
}

// Context returns the file's DuckContext.
func (f *SectionFile) Context() *DuckContext { return f.ctx }

// AddTable appends an already-complete BinaryTable (spec §4.8: `add(BinaryTable)`).
func (f *SectionFile) AddTable(bt *BinaryTable) {
	f.tables = append(f.tables, bt)
}

// AddSection routes s to the in-progress table matching its identity,
// completing it if this was the last section needed (spec §4.8:
// `add(Section)`, §5: "tolerates repeats ... detects version rollovers").
func (f *SectionFile) AddSection(s *Section) addOutcome {
	probe := newBinaryTableFrom(s)
	key := keyOf(probe)

	bt, ok := f.inProgress[key]
	if !ok {
		bt = probe
		f.inProgress[key] = bt
		f.order = append(f.order, key)
		outcome := bt.addSection(s)
		if outcome == tableCompleted {
			f.promote(key)
		}
		return outcome
	}

	outcome := bt.addSection(s)
	if outcome == tableCompleted {
		f.promote(key)
	}
	return outcome
}

func (f *SectionFile) promote(key tableKey) {
	bt := f.inProgress[key]
	delete(f.inProgress, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.tables = append(f.tables, bt)
}

// Tables returns every complete table, in completion order.
func (f *SectionFile) Tables() []*BinaryTable { return f.tables }

// OrphanSections returns every section belonging to a still-incomplete
// table, across all in-progress tables, in insertion order.
func (f *SectionFile) OrphanSections() []*Section {
	var out []*Section
	for _, k := range f.order {
		out = append(out, f.inProgress[k].Sections()...)
	}
	return out
}

// Sections returns every section of every complete table, followed by every
// orphan section (spec §4.8: "sections() includes every section of every
// table plus orphans").
func (f *SectionFile) Sections() []*Section {
	var out []*Section
	for _, t := range f.tables {
		out = append(out, t.Sections()...)
	}
	return append(out, f.OrphanSections()...)
}

// --- binary load/save ---

// LoadBinary parses consecutive sections from data until EOF (spec §4.8,
// §6). CRC policy is taken from the file's DuckContext. Parsing stops at
// the first unrecoverable error; sections already added remain.
func (f *SectionFile) LoadBinary(data []byte) error {
	_, err := f.LoadBuffer(data, 0, len(data))
	return err
}

// LoadBuffer parses sections from data[offset:offset+length] (spec §8
// property 9, scenario S5).
func (f *SectionFile) LoadBuffer(data []byte, offset, length int) (int, error) {
	if offset < 0 || length < 0 || offset+length > len(data) {
		return 0, errors.Wrap(ErrInvalidLength, "psi: LoadBuffer range out of bounds")
	}
	b := NewByteBuffer(data[offset : offset+length])
	n := 0
	for b.HasBytesLeft() {
		s, stop, err := sectionFromWire(b, f.ctx.CRCPolicy, true)
		if stop {
			break
		}
		if err != nil {
			return n, err
		}
		f.AddSection(s)
		n++
	}
	return n, nil
}

// SaveBinary concatenates every table's sections, then every orphan
// section, in insertion order (spec §4.8).
func (f *SectionFile) SaveBinary() []byte {
	var out []byte
	for _, s := range f.Sections() {
		out = append(out, s.Bytes()...)
	}
	return out
}

// SaveBuffer writes the same bytes as SaveBinary into dst starting at
// offset, returning the number of bytes written (spec §8 property 9,
// scenario S5). dst must have room for offset+len(encoded).
func (f *SectionFile) SaveBuffer(dst []byte, offset int) (int, error) {
	encoded := f.SaveBinary()
	if offset < 0 || offset+len(encoded) > len(dst) {
		return 0, errors.Wrap(ErrInvalidLength, "psi: SaveBuffer destination too small")
	}
	copy(dst[offset:], encoded)
	return len(encoded), nil
}

// --- XML / JSON ---

// LoadXML parses an XML document and builds tables via C7 (spec §4.8).
func (f *SectionFile) LoadXML(data []byte) error {
	root, err := parseXMLDocument(data)
	if err != nil {
		return err
	}
	for _, child := range root.Children {
		bt, err := xmlToBinaryTable(f.ctx, child)
		if err != nil {
			return err
		}
		f.AddTable(bt)
	}
	return nil
}

// LoadJSON parses the mechanical JSON form (spec §4.8, §6) by converting it
// back to an xmlNode tree and reusing LoadXML's table construction.
func (f *SectionFile) LoadJSON(data []byte) error {
	root, err := jsonToXMLNode(data)
	if err != nil {
		return err
	}
	for _, child := range root.Children {
		bt, err := xmlToBinaryTable(f.ctx, child)
		if err != nil {
			return err
		}
		f.AddTable(bt)
	}
	return nil
}

// SaveXML emits every table under a `<tsduck>` root (spec §4.8, §6).
func (f *SectionFile) SaveXML(forceGeneric bool) []byte {
	root := &xmlNode{Name: "tsduck"}
	for _, t := range f.tables {
		root.Children = append(root.Children, binaryTableToXML(f.ctx, t, forceGeneric))
	}
	return renderXMLDocument(root)
}

// SaveJSON emits the same document as SaveXML, shaped per the mechanical
// XML->JSON mapping (spec §4.8, §6).
func (f *SectionFile) SaveJSON(forceGeneric bool) ([]byte, error) {
	root := &xmlNode{Name: "tsduck"}
	for _, t := range f.tables {
		root.Children = append(root.Children, binaryTableToXML(f.ctx, t, forceGeneric))
	}
	return xmlNodeToJSON(root)
}
