package opc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"deckfix/internal/errors"
)

const relationshipsNS = "http://schemas.openxmlformats.org/package/2006/relationships"

// Relationship type URIs used by presentation packages.
const (
	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelTypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelTypeSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelTypeTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelTypeChart          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
	RelTypePresProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps"
	RelTypeViewProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/viewProps"
	RelTypeTableStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/tableStyles"
	RelTypeCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelTypeExtProps       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
)

// Relationship is one typed, identified edge from a source to a target.
// Internal targets are absolute PartName strings; external targets are kept
// as the raw URI.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// TargetPart returns the internal target as a PartName. ok is false for
// external relationships.
func (r Relationship) TargetPart() (PartName, bool) {
	if r.External {
		return "", false
	}
	return PartName(r.Target), true
}

// Relationships is the ordered relationship set of one source (a part, or
// the package root). Insertion order is preserved; ids are unique within
// the set.
type Relationships struct {
	source PartName
	rels   []Relationship
}

// NewRelationships returns an empty set for the given source.
func NewRelationships(source PartName) *Relationships {
	return &Relationships{source: source}
}

// Source returns the source this set belongs to.
func (rs *Relationships) Source() PartName { return rs.source }

// Len returns the number of relationships in the set.
func (rs *Relationships) Len() int { return len(rs.rels) }

// List returns the relationships in insertion order. The returned slice is a
// copy; mutating it does not affect the set.
func (rs *Relationships) List() []Relationship {
	out := make([]Relationship, len(rs.rels))
	copy(out, rs.rels)
	return out
}

// Get returns the relationship with the given id, if present.
func (rs *Relationships) Get(id string) (Relationship, bool) {
	for _, r := range rs.rels {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}

// Add appends a relationship. Fails with DUPLICATE_RELATIONSHIP_ID when the
// id is already present in this set.
func (rs *Relationships) Add(rel Relationship) error {
	if _, ok := rs.Get(rel.ID); ok {
		return errors.NewDuplicateRelationshipID(string(rs.source), rel.ID)
	}
	rs.rels = append(rs.rels, rel)
	return nil
}

// Remove deletes the relationship with the given id and reports whether it
// was present. Removing an absent id is a no-op, not an error, so repair
// passes stay idempotent.
func (rs *Relationships) Remove(id string) bool {
	for i, r := range rs.rels {
		if r.ID == id {
			rs.rels = append(rs.rels[:i], rs.rels[i+1:]...)
			return true
		}
	}
	return false
}

// NextID returns the first unused id of the conventional "rIdN" form.
func (rs *Relationships) NextID() string {
	max := 0
	for _, r := range rs.rels {
		if n, ok := strings.CutPrefix(r.ID, "rId"); ok {
			if v, err := strconv.Atoi(n); err == nil && v > max {
				max = v
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

type relXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationshipsXML struct {
	XMLName xml.Name `xml:"Relationships"`
	XMLNS   string   `xml:"xmlns,attr"`
	Rels    []relXML `xml:"Relationship"`
}

// Marshal serializes the set to a relationship-list part body. Internal
// targets are written in absolute "/..." form, which keeps the output
// independent of the source's directory and byte-stable across cycles.
func (rs *Relationships) Marshal() []byte {
	doc := relationshipsXML{XMLNS: relationshipsNS}
	for _, r := range rs.rels {
		entry := relXML{ID: r.ID, Type: r.Type, Target: r.Target}
		if r.External {
			entry.TargetMode = "External"
		}
		doc.Rels = append(doc.Rels, entry)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	_ = enc.Encode(doc)
	_ = enc.Flush()
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ParseRelationships parses a relationship-list part body for the given
// source. Relative internal targets are resolved against the source's
// directory; external targets are kept verbatim.
func ParseRelationships(source PartName, data []byte) (*Relationships, error) {
	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("relationships for %s do not parse: %v", source, err))
	}

	rs := NewRelationships(source)
	for _, e := range doc.Rels {
		rel := Relationship{ID: e.ID, Type: e.Type, Target: e.Target}
		if strings.EqualFold(e.TargetMode, "External") {
			rel.External = true
		} else {
			resolved, err := ResolveTarget(source, e.Target)
			if err != nil {
				return nil, err
			}
			rel.Target = string(resolved)
		}
		if err := rs.Add(rel); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
