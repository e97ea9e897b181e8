package psi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// xmlNode is a generic, order-preserving XML element tree (spec §4.7). No
// library in the retrieval pack offers a registry-driven, case-insensitive,
// lossless element tree (see DESIGN.md), so this hand-rolled type sits on
// top of the stdlib encoding/xml token stream the same way the teacher
// hand-rolls bytes.go's BytesIterator instead of pulling in a bit-reader
// library it has no other use for.
type xmlNode struct {
	Name     string
	Attrs    []xmlAttr
	Children []*xmlNode
	Text     string // set only for text-only leaves (hex payloads, values)
}

type xmlAttr struct {
	Key   string
	Value string
}

func (n *xmlNode) attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) setAttr(key, value string) {
	n.Attrs = append(n.Attrs, xmlAttr{Key: key, Value: value})
}

func (n *xmlNode) firstChild(name string) *xmlNode {
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// parseXMLDocument builds an xmlNode tree from a full XML document,
// returning the root element (spec: root is `<tsduck>`).
func parseXMLDocument(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*xmlNode
	var root *xmlNode

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{Name: t.Name.Local}
			for _, a := range t.Attr {
				n.setAttr(a.Name.Local, a.Value)
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = n
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			cur := stack[len(stack)-1]
			if cur.Text == "" {
				cur.Text = text
			} else {
				cur.Text += " " + text
			}
		}
	}
	if root == nil {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: no root element found in XML document")
	}
	return root, nil
}

// renderXMLDocument emits the canonical XML form (spec §6): UTF-8
// declaration, 2-space indent, lowercase snake_case names (the caller is
// responsible for lower-casing when constructing nodes).
func renderXMLDocument(root *xmlNode) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	writeXMLNode(&buf, root, 0)
	return buf.Bytes()
}

func writeXMLNode(buf *bytes.Buffer, n *xmlNode, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteString("<" + n.Name)
	for _, a := range n.Attrs {
		buf.WriteString(fmt.Sprintf(` %s="%s"`, a.Key, xmlEscape(a.Value)))
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteString(">")
	if n.Text != "" && len(n.Children) == 0 {
		buf.WriteString(n.Text)
		buf.WriteString("</" + n.Name + ">\n")
		return
	}
	buf.WriteString("\n")
	for _, c := range n.Children {
		writeXMLNode(buf, c, depth+1)
	}
	buf.WriteString(indent + "</" + n.Name + ">\n")
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// hexBytes renders bs as whitespace-separated uppercase byte pairs, 16 per
// line (spec §6).
func hexBytes(bs []byte) string {
	var b strings.Builder
	for i, x := range bs {
		if i > 0 {
			if i%16 == 0 {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintf(&b, "%02X", x)
	}
	return b.String()
}

// parseHex parses a whitespace-separated hex byte dump back to bytes.
func parseHex(s string) ([]byte, error) {
	fields := strings.Fields(s)
	out := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: malformed hex byte in XML content")
		}
		out[i] = byte(v)
	}
	return out, nil
}

// parseIntAttr parses a decimal or 0x-prefixed hex integer attribute (spec §6).
func parseIntAttr(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func hexAttr(v uint64) string { return fmt.Sprintf("0x%x", v) }

// hexBytesInline renders bs as a single unbroken uppercase hex string,
// suitable for an XML attribute value (spec §4.2/§4.7: typed descriptors and
// typed tables carry their byte-string fields — names, text, language codes
// with non-ASCII content — as hex rather than attempting DVB character-set
// decoding, which is out of this core's scope).
func hexBytesInline(bs []byte) string {
	var b strings.Builder
	for _, x := range bs {
		fmt.Fprintf(&b, "%02X", x)
	}
	return b.String()
}

// parseHexInline is the inverse of hexBytesInline.
func parseHexInline(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s)%2 != 0 {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: odd-length hex attribute")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		v, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidStructure, "psi: malformed hex attribute")
		}
		out[i] = byte(v)
	}
	return out, nil
}

// requiredAttr returns n's key attribute or ErrInvalidStructure if absent.
func requiredAttr(n *xmlNode, key string) (string, error) {
	v, ok := n.attr(key)
	if !ok {
		return "", errors.Wrap(ErrInvalidStructure, "psi: "+n.Name+" missing "+key+" attribute")
	}
	return v, nil
}

// requiredUintAttr parses a required decimal/hex integer attribute.
func requiredUintAttr(n *xmlNode, key string) (uint64, error) {
	s, err := requiredAttr(n, key)
	if err != nil {
		return 0, err
	}
	v, err := parseIntAttr(s)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidStructure, "psi: "+n.Name+"."+key+" is not an integer")
	}
	return v, nil
}

// requiredHexBytesAttr parses a required inline-hex byte-string attribute.
func requiredHexBytesAttr(n *xmlNode, key string) ([]byte, error) {
	s, err := requiredAttr(n, key)
	if err != nil {
		return nil, err
	}
	return parseHexInline(s)
}

// optionalBoolAttr reads a boolean attribute, defaulting to def if absent.
func optionalBoolAttr(n *xmlNode, key string, def bool) bool {
	if v, ok := n.attr(key); ok {
		return strings.EqualFold(v, "true")
	}
	return def
}

// formatDurationHM renders d as a BCD-style "HH:MM" string (spec §4.7's
// local_time_offset_descriptor fields).
func formatDurationHM(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// parseDurationHM is the inverse of formatDurationHM.
func parseDurationHM(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, errors.Wrap(ErrInvalidStructure, "psi: malformed HH:MM duration")
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// formatDurationHMS renders d as a BCD-style "HH:MM:SS" string (spec §4.7's
// EIT event duration field).
func formatDurationHMS(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// parseDurationHMS is the inverse of formatDurationHMS.
func parseDurationHMS(s string) (time.Duration, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, errors.Wrap(ErrInvalidStructure, "psi: malformed HH:MM:SS duration")
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// --- typed descriptor dispatch (spec §4.2) ---

// descriptorToXML renders d through its own typed element (when its Body
// implements xmlDescriptorBody) or the generic hex escape hatch otherwise.
func descriptorToXML(d *Descriptor) *xmlNode {
	if xb, ok := d.Body.(xmlDescriptorBody); ok {
		n := xb.toXMLNode()
		n.Name = xb.xmlElementName()
		return n
	}
	return genericDescriptorToXML(d)
}

// descriptorFromXMLNode parses one descriptor element, typed or generic.
func descriptorFromXMLNode(n *xmlNode) (*Descriptor, error) {
	name := strings.ToLower(n.Name)
	if name == "generic_descriptor" {
		return genericDescriptorFromXML(n)
	}
	f, ok := descriptorXMLRegistry[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownElement, "psi: descriptor element "+n.Name+" not registered")
	}
	body, err := f(n)
	if err != nil {
		return nil, err
	}
	wire := body.toWire()
	return &Descriptor{Tag: descriptorXMLTagOf[name], Length: uint8(len(wire)), Payload: wire, Body: body}, nil
}

// descriptorListToXMLChildren renders a descriptor list as a slice of
// sibling elements, interleavable with a table's other child elements.
func descriptorListToXMLChildren(list []*Descriptor) []*xmlNode {
	out := make([]*xmlNode, 0, len(list))
	for _, d := range list {
		out = append(out, descriptorToXML(d))
	}
	return out
}

// isDescriptorElementName reports whether name names a registered descriptor
// element (typed or generic), used by typed tables to separate their
// descriptor-loop children from other structural children (e.g. PAT's
// <service> entries) when walking an XML node's children.
func isDescriptorElementName(name string) bool {
	name = strings.ToLower(name)
	if name == "generic_descriptor" {
		return true
	}
	_, ok := descriptorXMLRegistry[name]
	return ok
}

// descriptorListFromXMLChildren collects every descriptor-shaped child of n
// (skipping <metadata> and any child that isDescriptorElementName rejects)
// into a descriptor slice in document order.
func descriptorListFromXMLChildren(n *xmlNode) ([]*Descriptor, error) {
	var out []*Descriptor
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, "metadata") {
			continue
		}
		if !isDescriptorElementName(c.Name) {
			continue
		}
		d, err := descriptorFromXMLNode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// nonDescriptorChildren returns every child of n whose name matches
// elementName, case-insensitively, in document order (spec §4.7: typed
// tables' own repeated child elements, e.g. PAT's <service> entries).
func nonDescriptorChildren(n *xmlNode, elementName string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, elementName) {
			out = append(out, c)
		}
	}
	return out
}

// --- generic descriptor escape hatch (spec §4.2, S4) ---

func genericDescriptorToXML(d *Descriptor) *xmlNode {
	n := &xmlNode{Name: "generic_descriptor"}
	n.setAttr("tag", hexAttr(uint64(d.Tag)))
	n.Text = hexBytes(d.Payload)
	return n
}

func genericDescriptorFromXML(n *xmlNode) (*Descriptor, error) {
	tagStr, ok := n.attr("tag")
	if !ok {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: generic_descriptor missing tag attribute")
	}
	tag, err := parseIntAttr(tagStr)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: generic_descriptor tag not an integer")
	}
	payload, err := parseHex(n.Text)
	if err != nil {
		return nil, err
	}
	return &Descriptor{Tag: uint8(tag), Length: uint8(len(payload)), Payload: payload}, nil
}

// --- generic short/long table escape hatches (spec §4.7, S2/S3) ---

func genericShortTableFromXML(n *xmlNode) (*BinaryTable, string, error) {
	tidStr, ok := n.attr("table_id")
	if !ok {
		return nil, "", errors.Wrap(ErrInvalidStructure, "psi: generic_short_table missing table_id")
	}
	tid, err := parseIntAttr(tidStr)
	if err != nil {
		return nil, "", err
	}
	private := false
	if p, ok := n.attr("private"); ok {
		private = strings.EqualFold(p, "true")
	}
	payload, err := parseHex(n.Text)
	if err != nil {
		return nil, "", err
	}
	meta, _ := metadataOf(n)

	s := NewShortSection(TableID(tid))
	s.PrivateIndicator = private
	s.Payload = payload
	s.Attribute = meta
	if err := s.Seal(); err != nil {
		return nil, "", err
	}
	s.Validate(CRCIgnore)
	return assembleBinaryTable([]*Section{s}), meta, nil
}

func genericShortTableToXML(bt *BinaryTable) *xmlNode {
	n := &xmlNode{Name: "generic_short_table"}
	n.setAttr("table_id", hexAttr(uint64(bt.TableID())))
	s := bt.SectionAt(0)
	n.setAttr("private", strconv.FormatBool(s != nil && s.PrivateIndicator))
	if s != nil {
		n.Text = hexBytes(s.Payload)
	}
	return n
}

func genericLongTableFromXML(n *xmlNode) (*BinaryTable, string, error) {
	tidStr, ok := n.attr("table_id")
	if !ok {
		return nil, "", errors.Wrap(ErrInvalidStructure, "psi: generic_long_table missing table_id")
	}
	tid, err := parseIntAttr(tidStr)
	if err != nil {
		return nil, "", err
	}
	extStr, _ := n.attr("table_id_ext")
	ext, _ := parseIntAttr(extStr)
	versionStr, _ := n.attr("version")
	version, _ := parseIntAttr(versionStr)
	current := true
	if c, ok := n.attr("current"); ok {
		current = strings.EqualFold(c, "true")
	}
	private := false
	if p, ok := n.attr("private"); ok {
		private = strings.EqualFold(p, "true")
	}
	meta, _ := metadataOf(n)

	var sectionNodes []*xmlNode
	for _, c := range n.Children {
		if strings.EqualFold(c.Name, "section") {
			sectionNodes = append(sectionNodes, c)
		}
	}
	if len(sectionNodes) == 0 {
		return nil, "", errors.Wrap(ErrInvalidStructure, "psi: generic_long_table has no <section> children")
	}

	sections := make([]*Section, len(sectionNodes))
	for i, sn := range sectionNodes {
		payload, err := parseHex(sn.Text)
		if err != nil {
			return nil, "", err
		}
		s := NewLongSection(TableID(tid), uint16(ext), uint8(version), current)
		s.PrivateIndicator = private
		s.SectionNumber = uint8(i)
		s.LastSectionNumber = uint8(len(sectionNodes) - 1)
		s.Payload = payload
		s.Attribute = meta
		if err := s.Seal(); err != nil {
			return nil, "", err
		}
		s.Validate(CRCCompute)
		sections[i] = s
	}
	return assembleBinaryTable(sections), meta, nil
}

func genericLongTableToXML(bt *BinaryTable) *xmlNode {
	n := &xmlNode{Name: "generic_long_table"}
	n.setAttr("table_id", hexAttr(uint64(bt.TableID())))
	n.setAttr("table_id_ext", hexAttr(uint64(bt.TableIDExtension())))
	n.setAttr("version", strconv.Itoa(int(bt.Version())))
	n.setAttr("current", strconv.FormatBool(bt.CurrentNext()))
	for _, s := range bt.Sections() {
		if s == nil {
			continue
		}
		if s.PrivateIndicator {
			n.setAttr("private", "true")
		}
		sn := &xmlNode{Name: "section", Text: hexBytes(s.Payload)}
		n.Children = append(n.Children, sn)
	}
	return n
}

// metadataOf reads an optional `<metadata attribute="..."/>` first child
// (spec §4.7, testable property 7).
func metadataOf(n *xmlNode) (string, bool) {
	if len(n.Children) == 0 {
		return "", false
	}
	c := n.Children[0]
	if !strings.EqualFold(c.Name, "metadata") {
		return "", false
	}
	v, ok := c.attr("attribute")
	return v, ok
}

func withMetadataChild(n *xmlNode, attribute string) *xmlNode {
	if attribute == "" {
		return n
	}
	meta := &xmlNode{Name: "metadata"}
	meta.setAttr("attribute", attribute)
	n.Children = append([]*xmlNode{meta}, n.Children...)
	return n
}

// binaryTableToXML renders a BinaryTable via its registered typed table's own
// ToXML (field-by-field attributes and child elements, spec §4.7), or
// through the generic hex escape hatch when forceGeneric is set, no typed
// table is registered for its id, or the typed deserialize itself fails
// (a malformed/foreign binary table still round-trips through the generic
// form rather than refusing to render at all).
func binaryTableToXML(ctx *DuckContext, bt *BinaryTable, forceGeneric bool) *xmlNode {
	name, registered := elementNameForTableID(bt.TableID())
	if !forceGeneric && registered {
		if f, ok := lookupTableFactory(name); ok {
			t := f()
			err := t.Deserialize(ctx, bt)
			if err == nil {
				return withMetadataChild(t.ToXML(), firstSectionAttribute(bt))
			}
			warnUnrecognized("typed table", "<"+name+"> failed Deserialize: "+err.Error())
		}
	}

	if bt.IsLongSection() {
		return withMetadataChild(genericLongTableToXML(bt), firstSectionAttribute(bt))
	}
	return withMetadataChild(genericShortTableToXML(bt), firstSectionAttribute(bt))
}

func firstSectionAttribute(bt *BinaryTable) string {
	if s := bt.SectionAt(0); s != nil {
		return s.Attribute
	}
	return ""
}

// xmlToBinaryTable resolves n's (case-insensitive) element name to either a
// generic escape hatch or a registered typed table, parses n into the typed
// table's own fields via FromXML, and serializes it back down to a
// BinaryTable (spec §4.7).
func xmlToBinaryTable(ctx *DuckContext, n *xmlNode) (*BinaryTable, error) {
	name := strings.ToLower(n.Name)
	switch name {
	case "generic_short_table":
		bt, meta, err := genericShortTableFromXML(n)
		return propagateTableAttribute(bt, meta), err
	case "generic_long_table":
		bt, meta, err := genericLongTableFromXML(n)
		return propagateTableAttribute(bt, meta), err
	}

	f, ok := lookupTableFactory(name)
	if !ok {
		known := strings.Join(RegisteredTableElementNames(), ", ")
		return nil, errors.Wrap(ErrUnknownElement, "psi: element name "+n.Name+" not registered (known: "+known+")")
	}
	t := f()
	if err := t.FromXML(n); err != nil {
		return nil, err
	}

	version := uint64(0)
	if v, ok := n.attr("version"); ok {
		version, _ = parseIntAttr(v)
	}
	current := optionalBoolAttr(n, "current", true)

	bt, err := t.Serialize(ctx, uint8(version), current)
	if err != nil {
		return nil, err
	}
	meta, _ := metadataOf(n)
	return propagateTableAttribute(bt, meta), nil
}

func propagateTableAttribute(bt *BinaryTable, meta string) *BinaryTable {
	if bt == nil || meta == "" {
		return bt
	}
	for _, s := range bt.Sections() {
		s.Attribute = meta
	}
	return bt
}
