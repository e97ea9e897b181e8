package psi

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// jsonNode mirrors xmlNode as `{"#name", "#attributes", "#nodes"}` (spec
// §4.7, §6). No pack library offers this XML-shaped JSON mapping (see
// DESIGN.md), so it is built directly on stdlib encoding/json, mechanically,
// from the already-built xmlNode tree.
type jsonNode struct {
	Name       string            `json:"#name"`
	Attributes map[string]string `json:"#attributes,omitempty"`
	Nodes      []json.RawMessage `json:"#nodes,omitempty"`
}

// xmlNodeToJSON renders n as the mechanical JSON shape (spec §6): text
// children are plain JSON strings, element children are nested jsonNode
// objects, in order.
func xmlNodeToJSON(n *xmlNode) ([]byte, error) {
	return marshalNode(n)
}

func marshalNode(n *xmlNode) ([]byte, error) {
	jn := jsonNode{Name: n.Name}
	if len(n.Attrs) > 0 {
		jn.Attributes = make(map[string]string, len(n.Attrs))
		for _, a := range n.Attrs {
			jn.Attributes[a.Key] = a.Value
		}
	}
	if n.Text != "" && len(n.Children) == 0 {
		raw, err := json.Marshal(n.Text)
		if err != nil {
			return nil, err
		}
		jn.Nodes = append(jn.Nodes, raw)
	}
	for _, c := range n.Children {
		raw, err := marshalNode(c)
		if err != nil {
			return nil, err
		}
		jn.Nodes = append(jn.Nodes, raw)
	}
	return json.Marshal(jn)
}

// jsonToXMLNode parses the mechanical JSON shape back into an xmlNode, the
// inverse of xmlNodeToJSON except for attribute order: `#attributes` is
// decoded into a map, so attributes come back in map iteration order.
func jsonToXMLNode(data []byte) (*xmlNode, error) {
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return nil, errors.Wrap(ErrInvalidStructure, "psi: malformed JSON node")
	}
	n := &xmlNode{Name: jn.Name}
	for k, v := range jn.Attributes {
		n.setAttr(k, v)
	}
	for _, raw := range jn.Nodes {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if n.Text == "" {
				n.Text = s
			} else {
				n.Text += " " + s
			}
			continue
		}
		child, err := jsonToXMLNode(raw)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
