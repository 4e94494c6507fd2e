package opc

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"

	"deckfix/internal/errors"
)

// Well-known part names of a presentation package.
const (
	PackageRelsName      PartName = "/_rels/.rels"
	PresentationName     PartName = "/ppt/presentation.xml"
	PresentationRelsName PartName = "/ppt/_rels/presentation.xml.rels"
)

// Part is one named item inside the package. The Package owns the byte
// buffer exclusively; no two parts share a name.
type Part struct {
	Name PartName
	Data []byte
}

// Package is the in-memory model of one container archive: the part set,
// the content-type registry, and the per-source relationship sets. All
// mutation is in-memory; bytes in, bytes out. A Package is not safe for
// concurrent use.
type Package struct {
	parts map[PartName]*Part
	ct    *ContentTypes
	// ctParsed is false when the content-types part was present but did not
	// parse; Save then keeps the raw bytes instead of re-serializing.
	ctParsed bool
	rels     map[PartName]*Relationships
	xmlCache map[PartName]*XMLNode
}

// New returns an empty package with the standard extension defaults. Used by
// builders that assemble a deck from scratch.
func New() *Package {
	return &Package{
		parts:    make(map[PartName]*Part),
		ct:       StandardDefaults(),
		ctParsed: true,
		rels:     make(map[PartName]*Relationships),
		xmlCache: make(map[PartName]*XMLNode),
	}
}

// Open builds a Package from archive bytes. Every entry becomes a part; the
// content-types part and every relationship-list part are parsed into their
// structured models, everything else stays raw until a caller asks for its
// XML. Corrupt ZIP framing fails with NOT_A_ZIP; colliding entry names fail
// with DUPLICATE_PART. Malformed content-types or relationship XML is not
// fatal here: it is left raw for the validator to report.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewNotAZip(err)
	}

	p := &Package{
		parts:    make(map[PartName]*Part),
		ct:       NewContentTypes(),
		rels:     make(map[PartName]*Relationships),
		xmlCache: make(map[PartName]*XMLNode),
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := ParsePartName(f.Name)
		if err != nil {
			return nil, err
		}
		if _, exists := p.parts[name]; exists {
			return nil, errors.NewDuplicatePart(string(name))
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.NewNotAZip(err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.NewNotAZip(err)
		}
		p.parts[name] = &Part{Name: name, Data: body}
	}

	if part, ok := p.parts[ContentTypesName]; ok {
		if ct, err := ParseContentTypes(part.Data); err == nil {
			p.ct = ct
			p.ctParsed = true
		}
	}

	for name, part := range p.parts {
		source, ok := name.RelsSource()
		if !ok {
			continue
		}
		if rs, err := ParseRelationships(source, part.Data); err == nil {
			p.rels[source] = rs
		}
	}

	return p, nil
}

// ContentTypes returns the package's content-type registry.
func (p *Package) ContentTypes() *ContentTypes { return p.ct }

// ContentTypesParsed reports whether the registry reflects a successfully
// parsed (or synthesized) content-types part. False means the part exists
// but is garbage; its raw bytes are preserved.
func (p *Package) ContentTypesParsed() bool { return p.ctParsed }

// ResetContentTypes replaces the registry and marks it authoritative, so
// Save serializes it over whatever raw bytes the part held.
func (p *Package) ResetContentTypes(ct *ContentTypes) {
	p.ct = ct
	p.ctParsed = true
}

// GetPart returns the part with the given name, if present.
func (p *Package) GetPart(name PartName) (*Part, bool) {
	part, ok := p.parts[name]
	return part, ok
}

// HasPart reports whether a part with the given name exists.
func (p *Package) HasPart(name PartName) bool {
	_, ok := p.parts[name]
	return ok
}

// AddPart inserts a part, replacing and returning any previous part at the
// same name. The XML cache entry for that name is invalidated. Adding a
// relationship-list part re-parses it into the structured model; adding the
// content-types part re-parses the registry.
func (p *Package) AddPart(part *Part) *Part {
	prev := p.parts[part.Name]
	p.parts[part.Name] = part
	delete(p.xmlCache, part.Name)

	if part.Name == ContentTypesName {
		if ct, err := ParseContentTypes(part.Data); err == nil {
			p.ct = ct
			p.ctParsed = true
		} else {
			p.ct = NewContentTypes()
			p.ctParsed = false
		}
	}
	if source, ok := part.Name.RelsSource(); ok {
		if rs, err := ParseRelationships(source, part.Data); err == nil {
			p.rels[source] = rs
		} else {
			delete(p.rels, source)
		}
	}
	return prev
}

// RemovePart deletes a part and cascades: the part's outgoing relationship
// set and its relationship-list part are removed with it, so no set ever
// survives its source.
func (p *Package) RemovePart(name PartName) (*Part, bool) {
	part, ok := p.parts[name]
	if !ok {
		return nil, false
	}
	delete(p.parts, name)
	delete(p.xmlCache, name)
	delete(p.rels, name)
	relsName := name.RelsName()
	delete(p.parts, relsName)
	delete(p.xmlCache, relsName)
	if source, ok := name.RelsSource(); ok {
		delete(p.rels, source)
	}
	if name == ContentTypesName {
		p.ct = NewContentTypes()
		p.ctParsed = false
	}
	return part, true
}

// PartNames returns a sorted snapshot of all part names. Mutating the
// package while ranging over the result is safe.
func (p *Package) PartNames() []PartName {
	names := make([]PartName, 0, len(p.parts))
	for name := range p.parts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Rels returns the structured relationship set for a source, or nil when
// the source has none (no relationship-list part, or one that failed to
// parse).
func (p *Package) Rels(source PartName) *Relationships {
	return p.rels[source]
}

// EnsureRels returns the relationship set for a source, creating an empty
// one on first use.
func (p *Package) EnsureRels(source PartName) *Relationships {
	if rs, ok := p.rels[source]; ok {
		return rs
	}
	rs := NewRelationships(source)
	p.rels[source] = rs
	return rs
}

// RelationshipSources returns the sources that have a structured
// relationship set, sorted. PackageRoot sorts first.
func (p *Package) RelationshipSources() []PartName {
	sources := make([]PartName, 0, len(p.rels))
	for s := range p.rels {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// ResolveTargets pairs every relationship of a source with its target part,
// nil for external relationships and for dangling internal targets.
func (p *Package) ResolveTargets(source PartName) []ResolvedRelationship {
	rs := p.rels[source]
	if rs == nil {
		return nil
	}
	out := make([]ResolvedRelationship, 0, rs.Len())
	for _, rel := range rs.List() {
		resolved := ResolvedRelationship{Relationship: rel}
		if target, ok := rel.TargetPart(); ok {
			if part, exists := p.parts[target]; exists {
				resolved.Part = part
			}
		}
		out = append(out, resolved)
	}
	return out
}

// ResolvedRelationship pairs a relationship with its target part. Part is
// nil for external relationships and dangling internal targets.
type ResolvedRelationship struct {
	Relationship Relationship
	Part         *Part
}

// PartXML parses a part body into an element tree, caching the result until
// the part's bytes are replaced.
func (p *Package) PartXML(name PartName) (*XMLNode, error) {
	if node, ok := p.xmlCache[name]; ok {
		return node, nil
	}
	part, ok := p.parts[name]
	if !ok {
		return nil, errors.NewNotFound(string(name))
	}
	node, err := ParseXML(part.Data)
	if err != nil {
		return nil, err
	}
	p.xmlCache[name] = node
	return node, nil
}

// Save serializes the package to archive bytes. The content-types part and
// every structured relationship set are re-serialized; all other parts are
// written byte-for-byte. Entries are written in sorted order so repeated
// saves of an unmutated package produce identical bytes.
func (p *Package) Save() ([]byte, error) {
	bodies := make(map[PartName][]byte, len(p.parts)+len(p.rels))
	for name, part := range p.parts {
		bodies[name] = part.Data
	}
	if p.ctParsed {
		if _, exists := p.parts[ContentTypesName]; exists {
			bodies[ContentTypesName] = p.ct.Marshal()
		}
	}
	for source, rs := range p.rels {
		relsName := source.RelsName()
		_, exists := p.parts[relsName]
		if !exists && rs.Len() == 0 {
			continue
		}
		bodies[relsName] = rs.Marshal()
	}

	names := make([]PartName, 0, len(bodies))
	for name := range bodies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(string(name)[1:])
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if _, err := w.Write(bodies[name]); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return buf.Bytes(), nil
}
