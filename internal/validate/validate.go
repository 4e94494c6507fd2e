// Package validate walks a package and reports structural issues without
// mutating anything. The issue list is deterministic: checks run in a fixed
// order and each check reports in ascending part-name order, so repeated
// runs over the same package produce identical sequences.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"deckfix/internal/opc"
)

// Kind identifies one class of structural issue.
type Kind string

const (
	KindMissingRequiredPart     Kind = "missing_required_part"
	KindInvalidXML              Kind = "invalid_xml"
	KindBrokenRelationship      Kind = "broken_relationship"
	KindMissingContentTypeEntry Kind = "missing_content_type_entry"
	KindOrphanPart              Kind = "orphan_part"
	KindInvalidContentType      Kind = "invalid_content_type"
	KindMissingSlideReference   Kind = "missing_slide_reference"
)

// Severity classifies an issue. Only errors make a package invalid;
// warnings survive repair.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one structural violation. Part is the name of the part the issue
// is anchored to (the source part for relationship issues).
type Issue struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Part        string   `json:"part,omitempty"`
	Description string   `json:"description"`
}

// RequiredParts lists the parts every presentation package must carry.
var RequiredParts = []opc.PartName{
	opc.ContentTypesName,
	opc.PackageRelsName,
	opc.PresentationName,
	opc.PresentationRelsName,
}

// HasErrors reports whether any issue in the list is error-severity.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs every check against the package, read-only. Issues come back
// grouped by check in the fixed check order.
func Validate(p *opc.Package) []Issue {
	var issues []Issue
	issues = append(issues, checkRequiredParts(p)...)
	issues = append(issues, checkXMLValidity(p)...)
	issues = append(issues, checkRelationships(p)...)
	issues = append(issues, checkContentTypeEntries(p)...)
	issues = append(issues, checkOrphanParts(p)...)
	issues = append(issues, checkContentTypeValues(p)...)
	issues = append(issues, checkSlideReferences(p)...)
	return issues
}

func checkRequiredParts(p *opc.Package) []Issue {
	required := make([]opc.PartName, len(RequiredParts))
	copy(required, RequiredParts)
	sort.Slice(required, func(i, j int) bool { return required[i] < required[j] })

	var issues []Issue
	for _, name := range required {
		if !p.HasPart(name) {
			issues = append(issues, Issue{
				Kind:        KindMissingRequiredPart,
				Severity:    SeverityError,
				Part:        string(name),
				Description: fmt.Sprintf("required part %s is missing", name),
			})
		}
	}
	return issues
}

// xmlType reports whether a content type declares an XML payload.
func xmlType(typ string) bool {
	return typ == opc.TypeXML || strings.HasSuffix(typ, "+xml")
}

func checkXMLValidity(p *opc.Package) []Issue {
	var issues []Issue
	ct := p.ContentTypes()
	for _, name := range p.PartNames() {
		part, _ := p.GetPart(name)

		if name == opc.ContentTypesName {
			// The registry types every part except itself; it is checked by
			// attempting the structured parse.
			if !p.ContentTypesParsed() {
				_, err := opc.ParseContentTypes(part.Data)
				issues = append(issues, Issue{
					Kind:        KindInvalidXML,
					Severity:    SeverityError,
					Part:        string(name),
					Description: fmt.Sprintf("content types part does not parse: %v", parseErrString(err)),
				})
			}
			continue
		}

		typ, ok := ct.EffectiveType(name)
		if !ok || !xmlType(typ) {
			continue
		}

		if source, isRels := name.RelsSource(); isRels {
			// Relationship lists must parse into the structured model, not
			// just as XML: duplicate ids and bad targets count too.
			if p.Rels(source) == nil {
				_, err := opc.ParseRelationships(source, part.Data)
				issues = append(issues, Issue{
					Kind:        KindInvalidXML,
					Severity:    SeverityError,
					Part:        string(name),
					Description: fmt.Sprintf("relationship list does not parse: %v", parseErrString(err)),
				})
			}
			continue
		}

		if _, err := opc.ParseXML(part.Data); err != nil {
			issues = append(issues, Issue{
				Kind:        KindInvalidXML,
				Severity:    SeverityError,
				Part:        string(name),
				Description: fmt.Sprintf("part is not well-formed XML: %v", err),
			})
		}
	}
	return issues
}

func checkRelationships(p *opc.Package) []Issue {
	var issues []Issue
	for _, source := range p.RelationshipSources() {
		for _, resolved := range p.ResolveTargets(source) {
			rel := resolved.Relationship
			if rel.External || resolved.Part != nil {
				continue
			}
			issues = append(issues, Issue{
				Kind:        KindBrokenRelationship,
				Severity:    SeverityError,
				Part:        string(source),
				Description: fmt.Sprintf("relationship %s of %s targets missing part %s", rel.ID, sourceLabel(source), rel.Target),
			})
		}
	}
	sortIssues(issues)
	return issues
}

func checkContentTypeEntries(p *opc.Package) []Issue {
	var issues []Issue
	ct := p.ContentTypes()
	for _, name := range p.PartNames() {
		if name == opc.ContentTypesName {
			continue
		}
		if _, ok := ct.EffectiveType(name); !ok {
			issues = append(issues, Issue{
				Kind:        KindMissingContentTypeEntry,
				Severity:    SeverityWarning,
				Part:        string(name),
				Description: fmt.Sprintf("part %s has no content type (no override, no default for extension %q)", name, name.Extension()),
			})
		}
	}
	return issues
}

// checkOrphanParts flags parts unreachable from the package root through the
// relationship graph. The content-types part and relationship lists are
// addressing infrastructure, not graph nodes, and are exempt.
func checkOrphanParts(p *opc.Package) []Issue {
	reachable := Reachable(p)

	var issues []Issue
	for _, name := range p.PartNames() {
		if name == opc.ContentTypesName || name.IsRelsPart() {
			continue
		}
		if reachable[name] {
			continue
		}
		issues = append(issues, Issue{
			Kind:        KindOrphanPart,
			Severity:    SeverityWarning,
			Part:        string(name),
			Description: fmt.Sprintf("part %s is not reachable from the package root", name),
		})
	}
	return issues
}

// Reachable returns the set of parts reachable from the package root by
// following internal relationships transitively.
func Reachable(p *opc.Package) map[opc.PartName]bool {
	reachable := make(map[opc.PartName]bool)
	queue := []opc.PartName{opc.PackageRoot}
	visited := map[opc.PartName]bool{opc.PackageRoot: true}

	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]
		for _, resolved := range p.ResolveTargets(source) {
			if resolved.Part == nil {
				continue
			}
			target := resolved.Part.Name
			reachable[target] = true
			if !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ExpectedType returns the required content type for parts with a fixed
// structural role.
func ExpectedType(name opc.PartName) (string, bool) {
	switch {
	case name == opc.PresentationName:
		return opc.TypePresentationMain, true
	case name.IsRelsPart():
		return opc.TypeRelationships, true
	case strings.HasPrefix(string(name), "/ppt/slides/") && name.Extension() == "xml":
		return opc.TypeSlide, true
	}
	return "", false
}

func checkContentTypeValues(p *opc.Package) []Issue {
	var issues []Issue
	ct := p.ContentTypes()
	for _, name := range p.PartNames() {
		want, known := ExpectedType(name)
		if !known {
			continue
		}
		got, ok := ct.EffectiveType(name)
		if !ok {
			continue // reported by the missing-entry check
		}
		if got != want {
			issues = append(issues, Issue{
				Kind:        KindInvalidContentType,
				Severity:    SeverityError,
				Part:        string(name),
				Description: fmt.Sprintf("part %s is typed %q, expected %q", name, got, want),
			})
		}
	}
	return issues
}

// checkSlideReferences verifies every entry of the presentation's ordered
// slide list against the presentation relationships and the part set.
func checkSlideReferences(p *opc.Package) []Issue {
	entries := SlideListEntries(p)
	rels := p.Rels(opc.PresentationName)
	ct := p.ContentTypes()
	// With no usable registry at all, every part is untyped; that single
	// root cause is already an error of its own and is not compounded here.
	registryOK := p.HasPart(opc.ContentTypesName) && p.ContentTypesParsed()

	var issues []Issue
	for _, entry := range entries {
		issue := Issue{
			Kind:     KindMissingSlideReference,
			Severity: SeverityError,
			Part:     string(opc.PresentationName),
		}
		if rels == nil {
			issue.Description = fmt.Sprintf("slide list entry %s has no relationship list to resolve against", entry.RelID)
			issues = append(issues, issue)
			continue
		}
		rel, ok := rels.Get(entry.RelID)
		if !ok {
			issue.Description = fmt.Sprintf("slide list entry %s has no matching relationship", entry.RelID)
			issues = append(issues, issue)
			continue
		}
		target, internal := rel.TargetPart()
		if !internal || !p.HasPart(target) {
			if internal {
				issue.Part = string(target)
			}
			issue.Description = fmt.Sprintf("slide list entry %s targets missing slide %s", entry.RelID, rel.Target)
			issues = append(issues, issue)
			continue
		}
		if _, typed := ct.EffectiveType(target); registryOK && !typed {
			issue.Part = string(target)
			issue.Description = fmt.Sprintf("slide list entry %s targets untyped slide %s", entry.RelID, target)
			issues = append(issues, issue)
		}
	}
	sortIssues(issues)
	return issues
}

// SlideListEntry is one <p:sldId> of the presentation's ordered slide list.
type SlideListEntry struct {
	SlideID string
	RelID   string
}

const relationshipRefNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// SlideListEntries reads the ordered slide list from the presentation part.
// Returns nil when the part or the list is absent or unparseable; those
// conditions are reported by other checks.
func SlideListEntries(p *opc.Package) []SlideListEntry {
	root, err := p.PartXML(opc.PresentationName)
	if err != nil {
		return nil
	}
	lst := root.Find("sldIdLst")
	if lst == nil {
		return nil
	}
	var entries []SlideListEntry
	for _, child := range lst.Children {
		if child.Name.Local != "sldId" {
			continue
		}
		slideID, _ := child.Attr("id")
		relID, ok := child.AttrNS(relationshipRefNS, "id")
		if !ok {
			continue
		}
		entries = append(entries, SlideListEntry{SlideID: slideID, RelID: relID})
	}
	return entries
}

func sourceLabel(source opc.PartName) string {
	if source == opc.PackageRoot {
		return "the package root"
	}
	return string(source)
}

func parseErrString(err error) string {
	if err == nil {
		return "unknown parse failure"
	}
	return err.Error()
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Part != issues[j].Part {
			return issues[i].Part < issues[j].Part
		}
		return issues[i].Description < issues[j].Description
	})
}
