// Package repair opens a package, applies the deterministic fix for each
// fixable issue class, and reports what was found, what was fixed, and what
// remains. It never fabricates content: fixes remove dangling references,
// fill in missing registry entries, or synthesize empty boilerplate parts,
// nothing else.
package repair

import (
	"deckfix/internal/errors"
	"deckfix/internal/opc"
	"deckfix/internal/validate"
)

// State is the session's position in the linear lifecycle.
type State string

const (
	StateOpened    State = "opened"
	StateValidated State = "validated"
	StateRepaired  State = "repaired"
	StateSaved     State = "saved"
)

// Options control repair behavior.
type Options struct {
	// PruneOrphans removes unreachable parts instead of leaving them as
	// warnings. Off by default: orphans are user data.
	PruneOrphans bool
}

// Result summarizes one repair pass. Valid means the post-repair validation
// found no error-severity issues; warnings may remain.
type Result struct {
	IssuesFound []validate.Issue `json:"issues_found"`
	IssuesFixed []validate.Issue `json:"issues_fixed"`
	Remaining   []validate.Issue `json:"remaining"`
	Valid       bool             `json:"is_valid"`
}

// Session drives one package through Opened → Validated → Repaired → Saved.
// Transitions are forward-only; Saved is terminal.
type Session struct {
	pkg    *opc.Package
	state  State
	issues []validate.Issue
}

// Open builds a session from archive bytes. Corrupt ZIP framing is the one
// fatal failure here; everything else is data for Validate to report.
func Open(data []byte) (*Session, error) {
	pkg, err := opc.Open(data)
	if err != nil {
		return nil, err
	}
	return &Session{pkg: pkg, state: StateOpened}, nil
}

// Package exposes the underlying package model.
func (s *Session) Package() *opc.Package { return s.pkg }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Issues returns the issue list from the most recent validation.
func (s *Session) Issues() []validate.Issue { return s.issues }

// Validate runs the structural checks and caches the result. Callable any
// number of times before Save; each call re-validates current package state.
func (s *Session) Validate() ([]validate.Issue, error) {
	if s.state == StateSaved {
		return nil, errors.NewInvalidOperation("session already saved")
	}
	s.issues = validate.Validate(s.pkg)
	if s.state == StateOpened {
		s.state = StateValidated
	}
	return s.issues, nil
}

// Repair validates (implicitly if needed), applies the per-kind fix for
// every fixable issue, and re-validates. Running it twice is safe: every
// fix re-checks the package before mutating.
func (s *Session) Repair(opts Options) (*Result, error) {
	if s.state == StateSaved {
		return nil, errors.NewInvalidOperation("session already saved")
	}

	found, err := s.Validate()
	if err != nil {
		return nil, err
	}

	for _, issue := range found {
		s.applyFix(issue, opts)
	}

	remaining := validate.Validate(s.pkg)
	s.issues = remaining
	s.state = StateRepaired

	return &Result{
		IssuesFound: found,
		IssuesFixed: subtract(found, remaining),
		Remaining:   remaining,
		Valid:       !validate.HasErrors(remaining),
	}, nil
}

// Save serializes the package and seals the session. Any later call on the
// session fails with INVALID_OPERATION.
func (s *Session) Save() ([]byte, error) {
	if s.state == StateSaved {
		return nil, errors.NewInvalidOperation("session already saved")
	}
	data, err := s.pkg.Save()
	if err != nil {
		return nil, err
	}
	s.state = StateSaved
	return data, nil
}

// subtract returns the issues of found that no longer appear in remaining,
// preserving found order.
func subtract(found, remaining []validate.Issue) []validate.Issue {
	left := make(map[validate.Issue]int, len(remaining))
	for _, issue := range remaining {
		left[issue]++
	}
	fixed := make([]validate.Issue, 0, len(found))
	for _, issue := range found {
		if left[issue] > 0 {
			left[issue]--
			continue
		}
		fixed = append(fixed, issue)
	}
	return fixed
}

func (s *Session) applyFix(issue validate.Issue, opts Options) {
	name := opc.PartName(issue.Part)
	switch issue.Kind {
	case validate.KindMissingRequiredPart:
		s.fixMissingRequiredPart(name)
	case validate.KindInvalidXML:
		s.fixInvalidXML(name)
	case validate.KindBrokenRelationship:
		s.fixBrokenRelationships(name)
	case validate.KindMissingContentTypeEntry:
		s.fixMissingContentType(name)
	case validate.KindOrphanPart:
		if opts.PruneOrphans {
			s.pruneOrphan(name)
		}
	case validate.KindInvalidContentType:
		s.fixInvalidContentType(name)
	case validate.KindMissingSlideReference:
		s.fixSlideList()
	}
}

// fixMissingRequiredPart synthesizes a minimal valid part at the expected
// name. Nothing is guessed: the presentation gets an empty slide list and
// the relationship lists start empty (the package list keeps its one edge
// to the presentation part).
func (s *Session) fixMissingRequiredPart(name opc.PartName) {
	if s.pkg.HasPart(name) {
		return
	}
	switch name {
	case opc.ContentTypesName:
		ct := opc.StandardDefaults()
		// Re-type the existing parts from their names so roles with a
		// specific type (presentation, slides) do not end up on the
		// generic xml default.
		for _, existing := range s.pkg.PartNames() {
			if existing == name || existing.IsRelsPart() {
				continue
			}
			inferred := opc.InferContentType(existing)
			if def, ok := ct.Default(existing.Extension()); ok && def == inferred {
				continue
			}
			ct.SetOverride(existing, inferred)
		}
		s.pkg.AddPart(&opc.Part{Name: name, Data: ct.Marshal()})
	case opc.PackageRelsName:
		rels := opc.NewRelationships(opc.PackageRoot)
		// The presentation part is either present or about to be
		// synthesized by the fix for its own missing-part issue.
		_ = rels.Add(opc.Relationship{
			ID:     "rId1",
			Type:   opc.RelTypeOfficeDocument,
			Target: string(opc.PresentationName),
		})
		s.pkg.AddPart(&opc.Part{Name: name, Data: rels.Marshal()})
	case opc.PresentationName:
		s.pkg.AddPart(&opc.Part{Name: name, Data: []byte(emptyPresentationXML)})
		s.pkg.ContentTypes().SetOverride(name, opc.TypePresentationMain)
	case opc.PresentationRelsName:
		rels := opc.NewRelationships(opc.PresentationName)
		s.pkg.AddPart(&opc.Part{Name: name, Data: rels.Marshal()})
	}
}

// essential parts cannot be dropped to cure bad XML; their issues stay in
// the result as unfixed.
func essential(name opc.PartName) bool {
	if name.IsRelsPart() {
		return true
	}
	for _, required := range validate.RequiredParts {
		if name == required {
			return true
		}
	}
	return false
}

// fixInvalidXML removes a non-essential malformed part together with every
// relationship and registry entry that pointed at it.
func (s *Session) fixInvalidXML(name opc.PartName) {
	if essential(name) {
		return
	}
	if _, ok := s.pkg.RemovePart(name); !ok {
		return
	}
	s.pkg.ContentTypes().RemoveOverride(name)
	s.dropRelationshipsTo(name)
}

func (s *Session) dropRelationshipsTo(target opc.PartName) {
	for _, source := range s.pkg.RelationshipSources() {
		rs := s.pkg.Rels(source)
		for _, rel := range rs.List() {
			if t, ok := rel.TargetPart(); ok && t == target {
				rs.Remove(rel.ID)
			}
		}
	}
}

// fixBrokenRelationships removes every dangling internal relationship of one
// source. Targets are never fabricated.
func (s *Session) fixBrokenRelationships(source opc.PartName) {
	rs := s.pkg.Rels(source)
	if rs == nil {
		return
	}
	for _, rel := range rs.List() {
		target, ok := rel.TargetPart()
		if !ok {
			continue
		}
		if !s.pkg.HasPart(target) {
			rs.Remove(rel.ID)
		}
	}
}

// fixMissingContentType registers an override inferred from the part's name,
// falling back to octet-stream for unknown binary payloads.
func (s *Session) fixMissingContentType(name opc.PartName) {
	if !s.pkg.HasPart(name) {
		return
	}
	if _, ok := s.pkg.ContentTypes().EffectiveType(name); ok {
		return
	}
	s.pkg.ContentTypes().SetOverride(name, opc.InferContentType(name))
}

func (s *Session) pruneOrphan(name opc.PartName) {
	if !s.pkg.HasPart(name) {
		return
	}
	if validate.Reachable(s.pkg)[name] {
		return
	}
	s.pkg.RemovePart(name)
	s.pkg.ContentTypes().RemoveOverride(name)
}

func (s *Session) fixInvalidContentType(name opc.PartName) {
	want, known := validate.ExpectedType(name)
	if !known || !s.pkg.HasPart(name) {
		return
	}
	if got, ok := s.pkg.ContentTypes().EffectiveType(name); ok && got != want {
		s.pkg.ContentTypes().SetOverride(name, want)
	}
}

// fixSlideList drops slide-list entries that no longer resolve: entries with
// no relationship, or whose relationship targets a missing part. The list is
// patched in place so surviving entries keep their order.
func (s *Session) fixSlideList() {
	root, err := s.pkg.PartXML(opc.PresentationName)
	if err != nil {
		return
	}
	lst := root.Find("sldIdLst")
	if lst == nil {
		return
	}
	rels := s.pkg.Rels(opc.PresentationName)

	var drop []*opc.XMLNode
	for _, child := range lst.Children {
		if child.Name.Local != "sldId" {
			continue
		}
		relID, ok := child.AttrNS(relationshipRefNS, "id")
		if !ok {
			drop = append(drop, child)
			continue
		}
		if rels == nil {
			drop = append(drop, child)
			continue
		}
		rel, ok := rels.Get(relID)
		if !ok {
			drop = append(drop, child)
			continue
		}
		target, internal := rel.TargetPart()
		if !internal || !s.pkg.HasPart(target) {
			drop = append(drop, child)
		}
	}
	if len(drop) == 0 {
		return
	}
	for _, child := range drop {
		lst.RemoveChild(child)
	}
	s.pkg.AddPart(&opc.Part{Name: opc.PresentationName, Data: root.Marshal()})
}

const relationshipRefNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

const emptyPresentationXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:sldIdLst/>
  <p:sldSz cx="9144000" cy="6858000"/>
  <p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>`
