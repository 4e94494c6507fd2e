package ops

import (
	"io"
	"strings"

	"deckfix/internal/config"
	"deckfix/internal/errors"
	"deckfix/internal/opc"
	"deckfix/internal/validate"
)

// InspectInput contains parameters for the Inspect operation.
type InspectInput struct {
	Path string
}

// PartInfo is one part in the inspection census.
type PartInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// InspectOutput contains the result of the Inspect operation.
type InspectOutput struct {
	Path       string     `json:"path"`
	Size       int        `json:"size"`
	PartCount  int        `json:"part_count"`
	SlideCount int        `json:"slide_count"`
	Title      string     `json:"title,omitempty"`
	Parts      []PartInfo `json:"parts"`
}

// Inspect opens a deck and reports its part census without validating or
// changing anything.
func Inspect(cfg *config.Config, input InspectInput) (*InspectOutput, error) {
	if err := ValidateDeckPath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	data, err := readInputFile(input.Path)
	if err != nil {
		return nil, err
	}

	p, err := opc.Open(data)
	if err != nil {
		return nil, err
	}

	out := &InspectOutput{
		Path:       input.Path,
		Size:       len(data),
		SlideCount: len(validate.SlideListEntries(p)),
		Title:      deckTitle(p),
	}
	ct := p.ContentTypes()
	for _, name := range p.PartNames() {
		part, _ := p.GetPart(name)
		info := PartInfo{Name: string(name), Size: len(part.Data)}
		if typ, ok := ct.EffectiveType(name); ok {
			info.ContentType = typ
		}
		out.Parts = append(out.Parts, info)
	}
	out.PartCount = len(out.Parts)
	return out, nil
}

// deckTitle reads dc:title from the core properties part, best-effort.
func deckTitle(p *opc.Package) string {
	root, err := p.PartXML("/docProps/core.xml")
	if err != nil {
		return ""
	}
	node := root.Find("title")
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Text)
}

// readInputFile reads a validated input file with symlink protection on the
// final path component.
func readInputFile(path string) ([]byte, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}
