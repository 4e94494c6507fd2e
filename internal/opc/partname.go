// Package opc implements the package model for OPC (Open Packaging
// Conventions) containers: part names, the content-type registry,
// relationship sets, and the ZIP-backed Package itself.
package opc

import (
	"strings"

	"deckfix/internal/errors"
)

// PartName is a normalized part identifier: absolute, forward-slash
// separated, rooted at "/", with no "." or ".." segments. Part names are
// case-sensitive and immutable once constructed.
type PartName string

// PackageRoot is the sentinel source for the package-level relationship set.
const PackageRoot PartName = "/"

// ParsePartName normalizes a raw entry path into a PartName.
// Backslashes are folded to forward slashes and a leading "/" is added if
// absent. "." and ".." segments are resolved; a ".." that would climb above
// the root is rejected.
func ParsePartName(raw string) (PartName, error) {
	s := strings.ReplaceAll(raw, "\\", "/")
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return "", errors.NewMalformedPartName(raw, "empty name")
	}
	if strings.HasSuffix(s, "/") {
		return "", errors.NewMalformedPartName(raw, "trailing slash")
	}

	var stack []string
	for _, seg := range strings.Split(s, "/") {
		switch seg {
		case "", ".":
			// collapse
		case "..":
			if len(stack) == 0 {
				return "", errors.NewMalformedPartName(raw, "escapes package root")
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return "", errors.NewMalformedPartName(raw, "resolves to the package root")
	}
	return PartName("/" + strings.Join(stack, "/")), nil
}

// ResolveTarget resolves a relationship target against a base part name.
// Absolute targets ("/...") are normalized directly; relative targets are
// resolved from the base part's containing directory.
func ResolveTarget(base PartName, target string) (PartName, error) {
	if target == "" {
		return "", errors.NewMalformedPartName(target, "empty target")
	}
	t := strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(t, "/") {
		return ParsePartName(t)
	}
	dir := base.Dir()
	if dir == "/" {
		return ParsePartName("/" + t)
	}
	return ParsePartName(dir + "/" + t)
}

// Dir returns the containing directory of the part, "/" for top-level parts.
func (n PartName) Dir() string {
	s := string(n)
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return "/"
	}
	return s[:i]
}

// Base returns the final segment of the part name.
func (n PartName) Base() string {
	s := string(n)
	return s[strings.LastIndexByte(s, '/')+1:]
}

// Extension returns the lowercased substring after the last "." in the final
// segment, or "" if the segment has no extension.
func (n PartName) Extension() string {
	base := n.Base()
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// RelsName returns the name of the relationship-list part for this source,
// following the "_rels/<basename>.rels" convention. The package root maps to
// "/_rels/.rels".
func (n PartName) RelsName() PartName {
	if n == PackageRoot {
		return "/_rels/.rels"
	}
	dir := n.Dir()
	if dir == "/" {
		return PartName("/_rels/" + n.Base() + ".rels")
	}
	return PartName(dir + "/_rels/" + n.Base() + ".rels")
}

// IsRelsPart reports whether the part name is a relationship-list part.
func (n PartName) IsRelsPart() bool {
	return strings.HasSuffix(string(n), ".rels") && strings.Contains(string(n), "/_rels/")
}

// RelsSource returns the source part a relationship-list part belongs to,
// and whether the receiver is a relationship-list part at all. The package
// relationship list "/_rels/.rels" maps to PackageRoot.
func (n PartName) RelsSource() (PartName, bool) {
	if !n.IsRelsPart() {
		return "", false
	}
	base := strings.TrimSuffix(n.Base(), ".rels")
	dir := n.Dir() // ".../_rels"
	parent := PartName(dir).Dir()
	if base == "" {
		return PackageRoot, true
	}
	if parent == "/" {
		return PartName("/" + base), true
	}
	return PartName(parent + "/" + base), true
}
