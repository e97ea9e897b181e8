package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXMLNodeToJSON_RoundTrip(t *testing.T) {
	n := &xmlNode{Name: "pat"}
	n.setAttr("transport_stream_id", "0x0001")
	n.setAttr("version", "3")
	child := &xmlNode{Name: "service"}
	child.setAttr("service_id", "0x0064")
	n.Children = append(n.Children, child)

	data, err := xmlNodeToJSON(n)
	assert.NoError(t, err)

	back, err := jsonToXMLNode(data)
	assert.NoError(t, err)
	assert.Equal(t, n.Name, back.Name)
	assert.Len(t, back.Children, 1)
	assert.Equal(t, "service", back.Children[0].Name)
	v, ok := back.Children[0].attr("service_id")
	assert.True(t, ok)
	assert.Equal(t, "0x0064", v)
	v, ok = back.attr("version")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestXMLNodeToJSON_TextLeaf(t *testing.T) {
	n := &xmlNode{Name: "generic_descriptor", Text: "AA BB CC"}
	n.setAttr("tag", "0x40")

	data, err := xmlNodeToJSON(n)
	assert.NoError(t, err)

	back, err := jsonToXMLNode(data)
	assert.NoError(t, err)
	assert.Equal(t, "AA BB CC", back.Text)
	tag, ok := back.attr("tag")
	assert.True(t, ok)
	assert.Equal(t, "0x40", tag)
}

func TestJsonToXMLNode_MalformedInputErrors(t *testing.T) {
	_, err := jsonToXMLNode([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidStructure)
}
