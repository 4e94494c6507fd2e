package deck

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const presentationNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

// escape renders s safe for XML text and attribute content.
func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// presentationXML emits the presentation part: one master, the ordered slide
// list, and the slide size. Slide i is wired to rId(i+2).
func presentationXML(slideCount int) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDecl)
	sb.WriteString(`<p:presentation ` + presentationNS + ` saveSubsetFonts="1">` + "\n")
	sb.WriteString("  <p:sldMasterIdLst><p:sldMasterId id=\"2147483648\" r:id=\"rId1\"/></p:sldMasterIdLst>\n")
	sb.WriteString("  <p:sldIdLst>")
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, slideIDBase+i, slideRIDBase+i)
	}
	sb.WriteString("</p:sldIdLst>\n")
	fmt.Fprintf(&sb, "  <p:sldSz cx=\"%d\" cy=\"%d\" type=\"screen4x3\"/>\n", SlideWidth, SlideHeight)
	fmt.Fprintf(&sb, "  <p:notesSz cx=\"%d\" cy=\"%d\"/>\n", SlideHeight, SlideWidth)
	sb.WriteString("</p:presentation>")
	return []byte(sb.String())
}

// slideXML emits one slide part. A title-only slide centers its title; a
// content slide places the title at the top with bullets and an optional
// code body below it.
func slideXML(theme Theme, content SlideContent) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDecl)
	sb.WriteString(`<p:sld ` + presentationNS + `>` + "\n")
	sb.WriteString("<p:cSld>\n<p:spTree>\n")
	sb.WriteString("<p:nvGrpSpPr><p:cNvPr id=\"1\" name=\"\"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>\n")
	sb.WriteString("<p:grpSpPr><a:xfrm><a:off x=\"0\" y=\"0\"/><a:ext cx=\"0\" cy=\"0\"/><a:chOff x=\"0\" y=\"0\"/><a:chExt cx=\"0\" cy=\"0\"/></a:xfrm></p:grpSpPr>\n")

	titleY, titleHeight, phType := TitleY, TitleHeight, "title"
	if content.TitleOnly {
		titleY, titleHeight, phType = CenteredTitleY, CenteredTitleHeight, "ctrTitle"
	}

	sb.WriteString("<p:sp>\n")
	sb.WriteString("<p:nvSpPr><p:cNvPr id=\"2\" name=\"Title\"/><p:cNvSpPr><a:spLocks noGrp=\"1\"/></p:cNvSpPr>")
	fmt.Fprintf(&sb, "<p:nvPr><p:ph type=\"%s\"/></p:nvPr></p:nvSpPr>\n", phType)
	fmt.Fprintf(&sb, "<p:spPr><a:xfrm><a:off x=\"%d\" y=\"%d\"/><a:ext cx=\"%d\" cy=\"%d\"/></a:xfrm><a:prstGeom prst=\"rect\"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>\n",
		TitleX, titleY, TitleWidth, titleHeight)
	sb.WriteString("<p:txBody><a:bodyPr/><a:lstStyle/>\n")
	fmt.Fprintf(&sb, "<a:p><a:r><a:rPr lang=\"%s\" sz=\"%d\" b=\"%s\"/><a:t>%s</a:t></a:r></a:p>\n",
		theme.Lang, theme.TitleSize*100, boolAttr(theme.TitleBold), escape(content.Title))
	sb.WriteString("</p:txBody>\n</p:sp>\n")

	if len(content.Bullets) > 0 || content.Code != "" {
		sb.WriteString("<p:sp>\n")
		sb.WriteString("<p:nvSpPr><p:cNvPr id=\"3\" name=\"Content\"/><p:cNvSpPr><a:spLocks noGrp=\"1\"/></p:cNvSpPr>")
		sb.WriteString("<p:nvPr><p:ph type=\"body\" idx=\"1\"/></p:nvPr></p:nvSpPr>\n")
		fmt.Fprintf(&sb, "<p:spPr><a:xfrm><a:off x=\"%d\" y=\"%d\"/><a:ext cx=\"%d\" cy=\"%d\"/></a:xfrm><a:prstGeom prst=\"rect\"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>\n",
			ContentX, ContentYStart, ContentWidth, ContentHeight)
		sb.WriteString("<p:txBody><a:bodyPr/><a:lstStyle/>\n")
		for _, bullet := range content.Bullets {
			fmt.Fprintf(&sb, "<a:p><a:pPr lvl=\"0\"/><a:r><a:rPr lang=\"%s\" sz=\"%d\"/><a:t>%s</a:t></a:r></a:p>\n",
				theme.Lang, theme.ContentSize*100, escape(bullet))
		}
		if content.Code != "" {
			for _, line := range strings.Split(content.Code, "\n") {
				fmt.Fprintf(&sb, "<a:p><a:pPr lvl=\"0\"><a:buNone/></a:pPr><a:r><a:rPr lang=\"%s\" sz=\"%d\"><a:latin typeface=\"Consolas\"/></a:rPr><a:t>%s</a:t></a:r></a:p>\n",
					theme.Lang, theme.ContentSize*100/2, escape(line))
			}
		}
		sb.WriteString("</p:txBody>\n</p:sp>\n")
	}

	sb.WriteString("</p:spTree>\n</p:cSld>\n<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>\n</p:sld>")
	return []byte(sb.String())
}

// slideLayoutXML emits the single blank layout every built slide references.
func slideLayoutXML() []byte {
	return []byte(xmlDecl + `<p:sldLayout ` + presentationNS + ` type="blank" preserve="1">
<p:cSld name="Blank">
<p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>
</p:spTree>
</p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>`)
}

// slideMasterXML emits the single master with the standard color map.
func slideMasterXML() []byte {
	return []byte(xmlDecl + `<p:sldMaster ` + presentationNS + `>
<p:cSld>
<p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg>
<p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>
</p:spTree>
</p:cSld>
<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
</p:sldMaster>`)
}

// themeXML emits the theme part from the color scheme and font pair.
func themeXML(theme Theme) []byte {
	c := theme.Colors
	var sb strings.Builder
	sb.WriteString(xmlDecl)
	fmt.Fprintf(&sb, `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="%s">`+"\n", escape(theme.Name))
	sb.WriteString("<a:themeElements>\n")
	fmt.Fprintf(&sb, `<a:clrScheme name="%s">`+"\n", escape(theme.Name))
	fmt.Fprintf(&sb, "<a:dk1><a:sysClr val=\"windowText\" lastClr=\"%s\"/></a:dk1>\n", escape(c.Dark1))
	fmt.Fprintf(&sb, "<a:lt1><a:sysClr val=\"window\" lastClr=\"%s\"/></a:lt1>\n", escape(c.Light1))
	fmt.Fprintf(&sb, "<a:dk2><a:srgbClr val=\"%s\"/></a:dk2>\n", escape(c.Dark2))
	fmt.Fprintf(&sb, "<a:lt2><a:srgbClr val=\"%s\"/></a:lt2>\n", escape(c.Light2))
	for i, accent := range []string{c.Accent1, c.Accent2, c.Accent3, c.Accent4, c.Accent5, c.Accent6} {
		fmt.Fprintf(&sb, "<a:accent%d><a:srgbClr val=\"%s\"/></a:accent%d>\n", i+1, escape(accent), i+1)
	}
	fmt.Fprintf(&sb, "<a:hlink><a:srgbClr val=\"%s\"/></a:hlink>\n", escape(c.Hyperlink))
	fmt.Fprintf(&sb, "<a:folHlink><a:srgbClr val=\"%s\"/></a:folHlink>\n", escape(c.FollowedHyperlink))
	sb.WriteString("</a:clrScheme>\n")
	fmt.Fprintf(&sb, `<a:fontScheme name="%s">`+"\n", escape(theme.Name))
	fmt.Fprintf(&sb, "<a:majorFont><a:latin typeface=\"%s\"/><a:ea typeface=\"\"/><a:cs typeface=\"\"/></a:majorFont>\n", escape(theme.MajorFont))
	fmt.Fprintf(&sb, "<a:minorFont><a:latin typeface=\"%s\"/><a:ea typeface=\"\"/><a:cs typeface=\"\"/></a:minorFont>\n", escape(theme.MinorFont))
	sb.WriteString("</a:fontScheme>\n")
	sb.WriteString(`<a:fmtScheme name="Office">
<a:fillStyleLst>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"><a:tint val="50000"/></a:schemeClr></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"><a:shade val="75000"/></a:schemeClr></a:solidFill>
</a:fillStyleLst>
<a:lnStyleLst>
<a:ln w="9525" cap="flat" cmpd="sng" algn="ctr"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:prstDash val="solid"/></a:ln>
<a:ln w="25400" cap="flat" cmpd="sng" algn="ctr"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:prstDash val="solid"/></a:ln>
<a:ln w="38100" cap="flat" cmpd="sng" algn="ctr"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:prstDash val="solid"/></a:ln>
</a:lnStyleLst>
<a:effectStyleLst>
<a:effectStyle><a:effectLst/></a:effectStyle>
<a:effectStyle><a:effectLst/></a:effectStyle>
<a:effectStyle><a:effectLst/></a:effectStyle>
</a:effectStyleLst>
<a:bgFillStyleLst>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"><a:tint val="95000"/></a:schemeClr></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"><a:shade val="85000"/></a:schemeClr></a:solidFill>
</a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
<a:objectDefaults/>
<a:extraClrSchemeLst/>
</a:theme>`)
	return []byte(sb.String())
}

// corePropsXML emits /docProps/core.xml.
func corePropsXML(title string) []byte {
	return []byte(fmt.Sprintf(xmlDecl+`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>%s</dc:title>
<dc:creator>deckfix</dc:creator>
<cp:lastModifiedBy>deckfix</cp:lastModifiedBy>
<cp:revision>1</cp:revision>
</cp:coreProperties>`, escape(title)))
}

// appPropsXML emits /docProps/app.xml.
func appPropsXML(slideCount int) []byte {
	return []byte(fmt.Sprintf(xmlDecl+`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
<TotalTime>0</TotalTime>
<Application>deckfix</Application>
<PresentationFormat>On-screen Show (4:3)</PresentationFormat>
<Slides>%d</Slides>
<ScaleCrop>false</ScaleCrop>
<LinksUpToDate>false</LinksUpToDate>
<SharedDoc>false</SharedDoc>
<HyperlinksChanged>false</HyperlinksChanged>
<AppVersion>16.0000</AppVersion>
</Properties>`, slideCount))
}
