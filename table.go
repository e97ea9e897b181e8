package psi

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// TypedTable is the common capability set every concrete PSI/SI table
// implements (spec §4.5, §9): conversion to/from the wire-level BinaryTable,
// and identification for the C7 factory registry.
type TypedTable interface {
	// TableID returns the table id this typed table serializes under.
	TableID() TableID
	// ElementName returns the lowercase XML element name for this table
	// (spec §4.7); used as the C7 registry key.
	ElementName() string
	// Deserialize populates the receiver's fields from a complete BinaryTable.
	Deserialize(ctx *DuckContext, bt *BinaryTable) error
	// Serialize renders the receiver into a fresh BinaryTable, segmenting
	// across as many sections as needed (spec §4.6).
	Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error)
	// ToXML renders the receiver's own fields as attributes and child
	// elements under its ElementName() (spec §4.7: "the typed table consumes
	// its own attributes and child elements").
	ToXML() *xmlNode
	// FromXML populates the receiver's fields from a node previously produced
	// by ToXML (spec §4.7).
	FromXML(n *xmlNode) error
}

// tableFactory builds a zero-value TypedTable instance ready for Deserialize.
type tableFactory func() TypedTable

var tableRegistry = map[string]tableFactory{}
var tableIDElementName = map[TableID]string{}

// registerTable populates the process-wide element-name registry (spec §9:
// "registration should happen at the typed-table definition via a startup
// hook"), keyed case-insensitively by lowercased element name.
func registerTable(elementName string, id TableID, f tableFactory) {
	key := strings.ToLower(elementName)
	tableRegistry[key] = f
	tableIDElementName[id] = key
}

// lookupTableFactory resolves an XML/JSON element name to a factory,
// case-insensitively (spec §4.2, §4.7).
func lookupTableFactory(elementName string) (tableFactory, bool) {
	f, ok := tableRegistry[strings.ToLower(elementName)]
	return f, ok
}

// elementNameForTableID returns the registered element name for a table id,
// used when emitting a BinaryTable through its typed form in XML (spec §4.7).
func elementNameForTableID(id TableID) (string, bool) {
	n, ok := tableIDElementName[id]
	return n, ok
}

// RegisteredTableElementNames returns every element name registered via
// registerTable, sorted ascending. Map iteration order over tableRegistry is
// randomized, so this exists for anything (error messages, diagnostics,
// tests) that needs a deterministic listing of what C7's XML/JSON dispatch
// can resolve.
func RegisteredTableElementNames() []string {
	names := make([]string, 0, len(tableRegistry))
	for name := range tableRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// deserializeTyped resolves bt's table id to a registered typed table and
// deserializes into it. Returns ErrWrongTableID if nothing is registered
// for bt's id (callers fall back to the generic representation).
func deserializeTyped(ctx *DuckContext, bt *BinaryTable) (TypedTable, error) {
	name, ok := elementNameForTableID(bt.TableID())
	if !ok {
		return nil, errors.Wrap(ErrWrongTableID, "psi: no typed table registered for this table id")
	}
	f := tableRegistry[name]
	t := f()
	if err := t.Deserialize(ctx, bt); err != nil {
		return nil, err
	}
	return t, nil
}

// sectionBudget is the maximum payload a single long section may carry
// (spec §4.6: 1024 total - 8 byte header - 4 byte CRC).
const sectionBudget = 1012

// shortSectionBudget is the maximum payload a short section may carry
// (1024 total - 3 byte header, no CRC).
const shortSectionBudget = 1021

// sealSections seals and validates every section built by a segmenter, in
// place, returning the first error encountered.
func sealSections(sections []*Section, policy CRCPolicy) error {
	for _, s := range sections {
		if err := s.Seal(); err != nil {
			return err
		}
		s.Validate(policy)
	}
	return nil
}

// assembleBinaryTable packages freshly sealed sections sharing (id, ext,
// version, current) into a BinaryTable, as C6 hands its output to C4.
func assembleBinaryTable(sections []*Section) *BinaryTable {
	if len(sections) == 0 {
		return nil
	}
	bt := newBinaryTableFrom(sections[0])
	for _, s := range sections {
		bt.addSection(s)
	}
	return bt
}
