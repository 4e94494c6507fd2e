package deck

import (
	"fmt"

	"deckfix/internal/errors"
	"deckfix/internal/opc"
)

// SlideContent is the input for one built slide.
type SlideContent struct {
	Title     string
	Bullets   []string
	Code      string
	TitleOnly bool
}

// Builder assembles a presentation package from slide contents. The zero
// slide case still produces a structurally complete deck with an empty slide
// list.
type Builder struct {
	title  string
	theme  Theme
	slides []SlideContent
}

// NewBuilder returns a builder for a deck with the given document title.
func NewBuilder(title string, theme Theme) *Builder {
	return &Builder{title: title, theme: theme}
}

// AddSlide appends one slide to the deck.
func (b *Builder) AddSlide(content SlideContent) *Builder {
	b.slides = append(b.slides, content)
	return b
}

// AddSlides appends a slide per content entry.
func (b *Builder) AddSlides(contents []SlideContent) *Builder {
	b.slides = append(b.slides, contents...)
	return b
}

// SlideCount returns the number of slides added so far.
func (b *Builder) SlideCount() int { return len(b.slides) }

const (
	layoutName     = opc.PartName("/ppt/slideLayouts/slideLayout1.xml")
	layoutRelsName = opc.PartName("/ppt/slideLayouts/_rels/slideLayout1.xml.rels")
	masterName     = opc.PartName("/ppt/slideMasters/slideMaster1.xml")
	masterRelsName = opc.PartName("/ppt/slideMasters/_rels/slideMaster1.xml.rels")
	themeName      = opc.PartName("/ppt/theme/theme1.xml")
	corePropsName  = opc.PartName("/docProps/core.xml")
	appPropsName   = opc.PartName("/docProps/app.xml")
)

func slidePartName(i int) opc.PartName {
	return opc.PartName(fmt.Sprintf("/ppt/slides/slide%d.xml", i))
}

func slideRelsPartName(i int) opc.PartName {
	return opc.PartName(fmt.Sprintf("/ppt/slides/_rels/slide%d.xml.rels", i))
}

// Build assembles the package: content types, the relationship graph rooted
// at the package, the presentation with its ordered slide list, one layout
// and master, the theme, and document properties.
func (b *Builder) Build() (*opc.Package, error) {
	p := opc.New()

	ct := opc.StandardDefaults()
	ct.SetOverride(opc.PresentationName, opc.TypePresentationMain)
	ct.SetOverride(layoutName, opc.TypeSlideLayout)
	ct.SetOverride(masterName, opc.TypeSlideMaster)
	ct.SetOverride(themeName, opc.TypeTheme)
	ct.SetOverride(corePropsName, opc.TypeCoreProperties)
	ct.SetOverride(appPropsName, opc.TypeExtProperties)
	for i := range b.slides {
		ct.SetOverride(slidePartName(i+1), opc.TypeSlide)
	}
	p.AddPart(&opc.Part{Name: opc.ContentTypesName, Data: ct.Marshal()})

	rootRels := opc.NewRelationships(opc.PackageRoot)
	for _, rel := range []opc.Relationship{
		{ID: "rId1", Type: opc.RelTypeOfficeDocument, Target: string(opc.PresentationName)},
		{ID: "rId2", Type: opc.RelTypeCoreProps, Target: string(corePropsName)},
		{ID: "rId3", Type: opc.RelTypeExtProps, Target: string(appPropsName)},
	} {
		if err := rootRels.Add(rel); err != nil {
			return nil, err
		}
	}
	p.AddPart(&opc.Part{Name: opc.PackageRelsName, Data: rootRels.Marshal()})

	presRels := opc.NewRelationships(opc.PresentationName)
	if err := presRels.Add(opc.Relationship{ID: "rId1", Type: opc.RelTypeSlideMaster, Target: string(masterName)}); err != nil {
		return nil, err
	}
	if err := presRels.Add(opc.Relationship{ID: "rId2", Type: opc.RelTypeTheme, Target: string(themeName)}); err != nil {
		return nil, err
	}
	for i := range b.slides {
		rel := opc.Relationship{
			ID:     fmt.Sprintf("rId%d", slideRIDBase+i+1),
			Type:   opc.RelTypeSlide,
			Target: string(slidePartName(i + 1)),
		}
		if err := presRels.Add(rel); err != nil {
			return nil, err
		}
	}
	p.AddPart(&opc.Part{Name: opc.PresentationRelsName, Data: presRels.Marshal()})

	p.AddPart(&opc.Part{Name: opc.PresentationName, Data: presentationXML(len(b.slides))})

	for i, content := range b.slides {
		p.AddPart(&opc.Part{Name: slidePartName(i + 1), Data: slideXML(b.theme, content)})

		slideRels := opc.NewRelationships(slidePartName(i + 1))
		if err := slideRels.Add(opc.Relationship{ID: "rId1", Type: opc.RelTypeSlideLayout, Target: string(layoutName)}); err != nil {
			return nil, err
		}
		p.AddPart(&opc.Part{Name: slideRelsPartName(i + 1), Data: slideRels.Marshal()})
	}

	p.AddPart(&opc.Part{Name: layoutName, Data: slideLayoutXML()})
	layoutRels := opc.NewRelationships(layoutName)
	if err := layoutRels.Add(opc.Relationship{ID: "rId1", Type: opc.RelTypeSlideMaster, Target: string(masterName)}); err != nil {
		return nil, err
	}
	p.AddPart(&opc.Part{Name: layoutRelsName, Data: layoutRels.Marshal()})

	p.AddPart(&opc.Part{Name: masterName, Data: slideMasterXML()})
	masterRels := opc.NewRelationships(masterName)
	if err := masterRels.Add(opc.Relationship{ID: "rId1", Type: opc.RelTypeSlideLayout, Target: string(layoutName)}); err != nil {
		return nil, err
	}
	if err := masterRels.Add(opc.Relationship{ID: "rId2", Type: opc.RelTypeTheme, Target: string(themeName)}); err != nil {
		return nil, err
	}
	p.AddPart(&opc.Part{Name: masterRelsName, Data: masterRels.Marshal()})

	p.AddPart(&opc.Part{Name: themeName, Data: themeXML(b.theme)})
	p.AddPart(&opc.Part{Name: corePropsName, Data: corePropsXML(b.title)})
	p.AddPart(&opc.Part{Name: appPropsName, Data: appPropsXML(len(b.slides))})

	return p, nil
}

// BuildBytes assembles the package and serializes it to archive bytes.
func (b *Builder) BuildBytes() ([]byte, error) {
	p, err := b.Build()
	if err != nil {
		return nil, err
	}
	data, err := p.Save()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}
