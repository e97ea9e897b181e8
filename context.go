package psi

// Standard identifies the registration authority that governs descriptor
// tag interpretation in the 0x40-0xFF range (spec §3).
type Standard uint8

const (
	StandardMPEG Standard = iota
	StandardDVB
	StandardATSC
	StandardISDB
)

// CRCPolicy controls how a long section's CRC-32 is handled on read (spec §4.8).
type CRCPolicy uint8

const (
	// CRCIgnore parses sections unconditionally, never checking the CRC.
	CRCIgnore CRCPolicy = iota
	// CRCCheck rejects sections whose stored CRC does not match the computed one.
	CRCCheck
	// CRCCompute replaces the incoming CRC with a freshly computed one before validation.
	CRCCompute
)

// DescriptorContext carries the ambient state a descriptor needs to
// classify and interpret itself: the table id owning its list, the
// standard in force, and the current private_data_specifier. It is
// threaded through a DescriptorList sequentially because
// private_data_specifier_descriptor is position-sensitive (spec §4.2, §9).
type DescriptorContext struct {
	TableID                 TableID
	Standard                Standard
	PrivateDataSpecifier    uint32
	HasPrivateDataSpecifier bool
}

// withPrivateDataSpecifier returns a copy of the context updated by a
// private_data_specifier_descriptor seen at the current position.
func (c DescriptorContext) withPrivateDataSpecifier(pds uint32) DescriptorContext {
	c.PrivateDataSpecifier = pds
	c.HasPrivateDataSpecifier = true
	return c
}

// DuckContext carries the defaults a SectionFile applies across its
// lifetime: standards flavor, character set name, a reference time for
// relative timestamps, the private-data-specifier registry, and the CRC
// policy applied while loading (spec §3).
type DuckContext struct {
	Standard     Standard
	CharacterSet string
	CRCPolicy    CRCPolicy

	// registry maps a private_data_specifier value to a human label, purely
	// informational: labels are returned by privateDataSpecifierLabel and
	// do not appear in the XML or JSON output.
	registry map[uint32]string
}

// NewDuckContext returns a DuckContext with the spec's stated defaults:
// DVB standard, UTF-8, and CRC policy CRCCheck (the default for user files;
// callers loading from in-memory buffers produced by this package itself
// should switch to CRCIgnore explicitly, per spec §4.8).
func NewDuckContext() *DuckContext {
	return &DuckContext{
		Standard:     StandardDVB,
		CharacterSet: "UTF-8",
		CRCPolicy:    CRCCheck,
		registry:     make(map[uint32]string),
	}
}

// RegisterPrivateDataSpecifier associates a human-readable label with a
// private_data_specifier value. The label is stored in the context only;
// no log line or XML/JSON output includes it.
func (d *DuckContext) RegisterPrivateDataSpecifier(id uint32, label string) {
	d.registry[id] = label
}

func (d *DuckContext) privateDataSpecifierLabel(id uint32) (string, bool) {
	l, ok := d.registry[id]
	return l, ok
}
