package psi

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Known descriptor tags (spec §3, §9). Ranges 0x40-0xFF are DVB; MPEG-common
// tags sit below 0x40. Grounded on the teacher's descriptor.go tag constants,
// extended with the private_data_specifier_descriptor tag needed for the
// context-ordering rule spec §4.2/§9 requires.
const (
	DescriptorTagCA                         = 0x09
	DescriptorTagISO639LanguageAndAudioType = 0x0a
	DescriptorTagMaximumBitrate             = 0x0e
	DescriptorTagPrivateDataSpecifier       = 0x5f
	DescriptorTagNetworkName                = 0x40
	DescriptorTagServiceList                = 0x41
	DescriptorTagComponent                  = 0x50
	DescriptorTagStreamIdentifier           = 0x52
	DescriptorTagContent                    = 0x54
	DescriptorTagParentalRating             = 0x55
	DescriptorTagLocalTimeOffset            = 0x58
	DescriptorTagSubtitling                 = 0x59
	DescriptorTagTeletext                   = 0x56
	DescriptorTagExtendedEvent              = 0x4e
	DescriptorTagShortEvent                 = 0x4d
	DescriptorTagService                    = 0x48
	DescriptorTagAC3                        = 0x6a
	DescriptorTagEnhancedAC3                = 0x7a
	DescriptorTagExtension                  = 0x7f
)

// DescriptorBody is the parsed payload of a descriptor, polymorphic over the
// descriptor's tag (spec §9: "model descriptors... as tagged variants, each
// with a serialize/deserialize/toXml/fromXml capability set").
type DescriptorBody interface {
	toWire() []byte
}

// descriptorFactory builds a DescriptorBody from a descriptor's raw payload.
// The ambient DescriptorContext only decides which factory is chosen (see
// classifyDescriptor); it is not passed to the factory itself.
type descriptorFactory func(payload []byte) (DescriptorBody, error)

type descriptorKey struct {
	tag          uint8
	standard     Standard
	specifier    uint32
	hasSpecifier bool
}

var descriptorRegistry = map[descriptorKey]descriptorFactory{}

// registerDescriptor populates the process-wide registry (spec §5, §9:
// "registration should happen at the typed-table definition via a startup
// hook" — here, at the concrete descriptor's own definition site).
func registerDescriptor(tag uint8, std Standard, f descriptorFactory) {
	descriptorRegistry[descriptorKey{tag: tag, standard: std}] = f
}

// registerPrivateDescriptor registers a factory that only applies under a
// specific private_data_specifier.
func registerPrivateDescriptor(tag uint8, specifier uint32, f descriptorFactory) {
	descriptorRegistry[descriptorKey{tag: tag, specifier: specifier, hasSpecifier: true}] = f
}

// classify resolves (tag, ctx) to a factory, trying the specifier-scoped
// registration first, then the standard-scoped one, then falling back to
// plain MPEG. It never fails: an unrecognized tag classifies as generic.
func classifyDescriptor(tag uint8, ctx DescriptorContext) descriptorFactory {
	if ctx.HasPrivateDataSpecifier {
		if f, ok := descriptorRegistry[descriptorKey{tag: tag, specifier: ctx.PrivateDataSpecifier, hasSpecifier: true}]; ok {
			return f
		}
	}
	if f, ok := descriptorRegistry[descriptorKey{tag: tag, standard: ctx.Standard}]; ok {
		return f
	}
	if f, ok := descriptorRegistry[descriptorKey{tag: tag, standard: StandardMPEG}]; ok {
		return f
	}
	return nil
}

// xmlDescriptorBody is implemented by DescriptorBody variants that also
// support a typed XML rendering (spec §4.2: "typed descriptors emit their
// own element name"), in addition to the generic hex escape hatch every
// descriptor already supports via toWire().
type xmlDescriptorBody interface {
	DescriptorBody
	xmlElementName() string
	toXMLNode() *xmlNode
}

// descriptorXMLFactory parses a typed descriptor's own XML element back into
// a DescriptorBody.
type descriptorXMLFactory func(n *xmlNode) (DescriptorBody, error)

var descriptorXMLRegistry = map[string]descriptorXMLFactory{}
var descriptorXMLTagOf = map[string]uint8{}

// registerDescriptorXML populates the process-wide element-name registry for
// typed descriptor XML, mirroring registerTable's startup-hook pattern.
// Unlike the binary registry, XML classification needs no (standard,
// specifier) disambiguation: the element name alone identifies the type.
func registerDescriptorXML(elementName string, tag uint8, f descriptorXMLFactory) {
	key := strings.ToLower(elementName)
	descriptorXMLRegistry[key] = f
	descriptorXMLTagOf[key] = tag
}

// Descriptor is a tag+length+payload record (spec §3). Total encoded size is
// 2+Length; Payload's length must equal Length.
type Descriptor struct {
	Tag     uint8
	Length  uint8
	Payload []byte // raw bytes, always kept around even when Body is set
	Body    DescriptorBody
}

// descriptorFromWire parses one descriptor starting at b's read-head,
// advancing it past the descriptor. Returns ErrInvalidLength if the payload
// runs past the end of the buffer.
func descriptorFromWire(b *ByteBuffer, ctx DescriptorContext) (*Descriptor, error) {
	tag := b.ReadUint8()
	length := b.ReadUint8()
	if b.Err() != nil {
		return nil, errors.Wrap(ErrInvalidLength, "psi: reading descriptor header")
	}
	payload := b.ReadBytes(int(length))
	if b.Err() != nil {
		return nil, errors.Wrap(ErrInvalidLength, "psi: reading descriptor payload")
	}

	d := &Descriptor{Tag: tag, Length: length, Payload: payload}
	if f := classifyDescriptor(tag, ctx); f != nil {
		body, err := f(payload)
		if err != nil {
			warnUnrecognized("descriptor body", errors.Wrapf(err, "tag 0x%x", tag).Error())
		} else {
			d.Body = body
		}
	} else if IsKnownDescriptorTag(tag, StandardMPEG) || IsKnownDescriptorTag(tag, StandardDVB) {
		warnUnrecognized("descriptor tag", "0x"+strconv.FormatUint(uint64(tag), 16)+" known under another standard/specifier")
	} else {
		warnUnrecognized("descriptor tag", "0x"+strconv.FormatUint(uint64(tag), 16)+" not registered under any standard")
	}
	return d, nil
}

// toWire renders the descriptor back to its 2+Length on-wire bytes. Never
// fails for a valid descriptor (spec §4.2): if Body is set its toWire()
// output is used (allowing round-trip after field mutation), otherwise the
// original Payload bytes are replayed verbatim.
func (d *Descriptor) toWire() []byte {
	payload := d.Payload
	if d.Body != nil {
		payload = d.Body.toWire()
	}
	out := make([]byte, 2+len(payload))
	out[0] = d.Tag
	out[1] = uint8(len(payload))
	copy(out[2:], payload)
	return out
}

// size returns the descriptor's total encoded size (2+length), used by the
// segmenter for atomic-record budgeting.
func (d *Descriptor) size() int {
	if d.Body != nil {
		return 2 + len(d.Body.toWire())
	}
	return 2 + len(d.Payload)
}

// DescriptorList is an ordered sequence of descriptors sharing a table-id
// context (spec §3). Descriptor context evolves sequentially while walking
// the list because private_data_specifier is position-sensitive.
type DescriptorList struct {
	TableID     TableID
	Descriptors []*Descriptor
}

// EncodedSize returns the accumulated wire size of the whole list, excluding
// the 2-byte descriptor-loop length prefix itself.
func (l *DescriptorList) EncodedSize() int {
	n := 0
	for _, d := range l.Descriptors {
		n += d.size()
	}
	return n
}

// parseDescriptorList reads descriptors until n bytes have been consumed,
// maintaining an evolving DescriptorContext (spec §9).
func parseDescriptorList(b *ByteBuffer, n int, ctx DescriptorContext) (*DescriptorList, error) {
	list := &DescriptorList{TableID: ctx.TableID}
	end := b.ReadOffset() + n
	for b.ReadOffset() < end {
		d, err := descriptorFromWire(b, ctx)
		if err != nil {
			return nil, err
		}
		list.Descriptors = append(list.Descriptors, d)
		if pds, ok := d.Body.(*DescriptorPrivateDataSpecifier); ok {
			ctx = ctx.withPrivateDataSpecifier(pds.Specifier)
		}
	}
	return list, nil
}

// toWire renders every descriptor in order.
func (l *DescriptorList) toWire() []byte {
	out := make([]byte, 0, l.EncodedSize())
	for _, d := range l.Descriptors {
		out = append(out, d.toWire()...)
	}
	return out
}

// KnownDescriptorTags returns every tag registered under std, sorted
// ascending. Map iteration order over descriptorRegistry is randomized, so
// this exists for anything (diagnostics, tests) that needs a deterministic
// listing of what classifyDescriptor can resolve.
func KnownDescriptorTags(std Standard) []uint8 {
	var tags []uint8
	for k := range descriptorRegistry {
		if k.hasSpecifier {
			continue
		}
		if k.standard == std && !slices.Contains(tags, k.tag) {
			tags = append(tags, k.tag)
		}
	}
	slices.Sort(tags)
	return tags
}

// IsKnownDescriptorTag reports whether tag is registered under std.
func IsKnownDescriptorTag(tag uint8, std Standard) bool {
	return slices.Contains(KnownDescriptorTags(std), tag)
}
