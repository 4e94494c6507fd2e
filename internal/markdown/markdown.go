// Package markdown turns a markdown outline into slide contents. A level-1
// heading opens a title slide, a level-2 heading opens a content slide, list
// items become bullets, and a fenced code block becomes the slide's code
// body. Everything else in the document is ignored.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Slide is the content of one slide extracted from the outline.
type Slide struct {
	Title     string   `json:"title"`
	Bullets   []string `json:"bullets,omitempty"`
	Code      string   `json:"code,omitempty"`
	TitleOnly bool     `json:"title_only,omitempty"`
}

// Parse extracts the slide sequence from markdown source. Bullets or code
// appearing before any heading open an untitled slide, so no content is
// silently dropped.
func Parse(src []byte) []Slide {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var slides []*Slide
	var current *Slide

	ensure := func() *Slide {
		if current == nil {
			current = &Slide{Title: "Slide"}
			slides = append(slides, current)
		}
		return current
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(nodeText(n, src))
			if title == "" {
				continue
			}
			if n.Level > 2 {
				// Sub-headings nest inside the current slide.
				slide := ensure()
				slide.Bullets = append(slide.Bullets, title)
				continue
			}
			current = &Slide{Title: title, TitleOnly: n.Level == 1}
			slides = append(slides, current)
		case *ast.List:
			slide := ensure()
			slide.Bullets = append(slide.Bullets, listBullets(n, src)...)
		case *ast.FencedCodeBlock:
			ensure().Code = linesText(n, src)
		}
	}

	out := make([]Slide, len(slides))
	for i, s := range slides {
		out[i] = *s
	}
	return out
}

// listBullets flattens a list into bullet strings, nested items included.
func listBullets(list *ast.List, src []byte) []string {
	var bullets []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var nested []string
		var own strings.Builder
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				nested = append(nested, listBullets(sub, src)...)
				continue
			}
			own.WriteString(nodeText(child, src))
		}
		if s := strings.TrimSpace(own.String()); s != "" {
			bullets = append(bullets, s)
		}
		bullets = append(bullets, nested...)
	}
	return bullets
}

// nodeText concatenates the raw text of a node's descendants.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// linesText joins the raw lines of a block node.
func linesText(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}
