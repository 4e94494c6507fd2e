package opc

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// XMLNode is a generic element tree over a part body. The package model does
// not interpret part payloads; this tree exists so the validator can check
// well-formedness and the repair engine can patch individual elements
// (relationship lists, the slide-id list) without a schema.
type XMLNode struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*XMLNode
	Text     string
}

// ParseXML builds an element tree from a part body. Any tokenizer error,
// including trailing garbage after the document element, is returned as-is;
// callers treat it as "not well-formed".
func ParseXML(data []byte) (*XMLNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *XMLNode
	var stack []*XMLNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &XMLNode{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, &xml.SyntaxError{Msg: "multiple document elements"}
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, &xml.SyntaxError{Msg: "no document element"}
	}
	return root, nil
}

// Attr returns the value of the attribute with the given local name.
func (n *XMLNode) Attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrNS returns the value of the attribute with the given namespace URI and
// local name.
func (n *XMLNode) AttrNS(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first descendant element (depth-first, the node itself
// included) with the given local name.
func (n *XMLNode) Find(local string) *XMLNode {
	if n.Name.Local == local {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(local); found != nil {
			return found
		}
	}
	return nil
}

// RemoveChild deletes the first direct child identical to the given node and
// reports whether it was present.
func (n *XMLNode) RemoveChild(child *XMLNode) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Marshal writes the tree back out with an XML declaration. Attribute and
// child order are preserved, so patching one element leaves the rest of the
// document in its original shape.
func (n *XMLNode) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteByte('\n')
	n.write(&buf)
	return buf.Bytes()
}

func (n *XMLNode) write(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(qname(n.Name))
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(attrName(a.Name))
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	text := strings.TrimSpace(n.Text)
	if len(n.Children) == 0 && text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if text != "" {
		_ = xml.EscapeText(buf, []byte(text))
	}
	for _, c := range n.Children {
		c.write(buf)
	}
	buf.WriteString("</")
	buf.WriteString(qname(n.Name))
	buf.WriteByte('>')
}

// qname renders an element name. The decoder resolves prefixes to namespace
// URIs; the known presentation namespaces are mapped back to their
// conventional prefixes so patched documents keep their original spelling.
func qname(name xml.Name) string {
	if p, ok := nsPrefixes[name.Space]; ok {
		return p + ":" + name.Local
	}
	return name.Local
}

func attrName(name xml.Name) string {
	if name.Space == "xmlns" {
		return "xmlns:" + name.Local
	}
	if p, ok := nsPrefixes[name.Space]; ok {
		return p + ":" + name.Local
	}
	if name.Space == "" {
		return name.Local
	}
	return name.Local
}

var nsPrefixes = map[string]string{
	"http://schemas.openxmlformats.org/presentationml/2006/main":          "p",
	"http://schemas.openxmlformats.org/drawingml/2006/main":               "a",
	"http://schemas.openxmlformats.org/officeDocument/2006/relationships": "r",
	"http://schemas.openxmlformats.org/markup-compatibility/2006":         "mc",
}
