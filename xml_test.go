package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRenderXMLDocument_RoundTrip(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<tsduck>
  <pat transport_stream_id="0x0001" version="3">
    <service service_id="0x0064" program_map_pid="0x0100"/>
  </pat>
</tsduck>`)

	root, err := parseXMLDocument(doc)
	assert.NoError(t, err)
	assert.Equal(t, "tsduck", root.Name)
	assert.Len(t, root.Children, 1)

	pat := root.Children[0]
	assert.Equal(t, "pat", pat.Name)
	tsid, ok := pat.attr("transport_stream_id")
	assert.True(t, ok)
	assert.Equal(t, "0x0001", tsid)
	assert.Len(t, pat.Children, 1)
	assert.Equal(t, "service", pat.Children[0].Name)

	rendered := renderXMLDocument(root)
	reparsed, err := parseXMLDocument(rendered)
	assert.NoError(t, err)
	assert.Equal(t, root.Name, reparsed.Name)
	assert.Equal(t, root.Children[0].Name, reparsed.Children[0].Name)
}

func TestHexBytesParseHex_RoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xff, 0x7e, 0xab}
	encoded := hexBytes(raw)
	decoded, err := parseHex(encoded)
	assert.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestParseIntAttr_DecimalAndHex(t *testing.T) {
	v, err := parseIntAttr("42")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	v, err = parseIntAttr("0x2A")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestGenericLongTable_XMLRoundTrip(t *testing.T) {
	pat := &PAT{TransportStreamID: 3, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 2, true)
	assert.NoError(t, err)

	n := genericLongTableToXML(bt)
	assert.Equal(t, "generic_long_table", n.Name)
	back, meta, err := genericLongTableFromXML(n)
	assert.NoError(t, err)
	assert.Equal(t, "", meta)
	assert.Equal(t, bt.TableID(), back.TableID())
	assert.Equal(t, bt.TableIDExtension(), back.TableIDExtension())
	assert.Equal(t, bt.Payload(), back.Payload())
}

func TestBinaryTableToXML_UsesRegisteredElementName(t *testing.T) {
	pat := &PAT{TransportStreamID: 3, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 2, true)
	assert.NoError(t, err)

	n := binaryTableToXML(ctx, bt, false)
	assert.Equal(t, "pat", n.Name)

	back, err := xmlToBinaryTable(ctx, n)
	assert.NoError(t, err)
	assert.Equal(t, bt.TableID(), back.TableID())
	assert.Equal(t, bt.Payload(), back.Payload())
}

func TestBinaryTableToXML_ForceGenericUsesGenericElementName(t *testing.T) {
	pat := &PAT{TransportStreamID: 3, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	ctx := NewDuckContext()
	bt, err := pat.Serialize(ctx, 2, true)
	assert.NoError(t, err)

	n := binaryTableToXML(ctx, bt, true)
	assert.Equal(t, "generic_long_table", n.Name)
}

func TestXmlToBinaryTable_UnknownElementErrors(t *testing.T) {
	n := &xmlNode{Name: "not_a_real_table"}
	_, err := xmlToBinaryTable(NewDuckContext(), n)
	assert.ErrorIs(t, err, ErrUnknownElement)
}

func TestMetadataChild_RoundTrip(t *testing.T) {
	n := &xmlNode{Name: "pat"}
	n = withMetadataChild(n, "orbital-42")
	meta, ok := metadataOf(n)
	assert.True(t, ok)
	assert.Equal(t, "orbital-42", meta)
}
