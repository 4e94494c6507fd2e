package opc

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strings"

	"deckfix/internal/errors"
)

// ContentTypesName is the fixed name of the content-types part.
const ContentTypesName PartName = "/[Content_Types].xml"

const contentTypesNS = "http://schemas.openxmlformats.org/package/2006/content-types"

// Well-known content type strings.
const (
	TypeRelationships    = "application/vnd.openxmlformats-package.relationships+xml"
	TypeXML              = "application/xml"
	TypePresentationMain = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	TypeSlide            = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	TypeSlideLayout      = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	TypeSlideMaster      = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	TypeTheme            = "application/vnd.openxmlformats-officedocument.theme+xml"
	TypePresProps        = "application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"
	TypeViewProps        = "application/vnd.openxmlformats-officedocument.presentationml.viewProps+xml"
	TypeTableStyles      = "application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"
	TypeCoreProperties   = "application/vnd.openxmlformats-package.core-properties+xml"
	TypeExtProperties    = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	TypeOctetStream      = "application/octet-stream"
)

// ContentTypes is the package-wide registry mapping extensions to default
// types and individual part names to override types. A part's effective type
// is its override if present, else the default for its extension.
type ContentTypes struct {
	defaults  map[string]string
	overrides map[PartName]string
}

// NewContentTypes returns an empty registry.
func NewContentTypes() *ContentTypes {
	return &ContentTypes{
		defaults:  make(map[string]string),
		overrides: make(map[PartName]string),
	}
}

// StandardDefaults returns a registry pre-loaded with the extension defaults
// every generated deck carries.
func StandardDefaults() *ContentTypes {
	ct := NewContentTypes()
	ct.SetDefault("rels", TypeRelationships)
	ct.SetDefault("xml", TypeXML)
	ct.SetDefault("jpeg", "image/jpeg")
	ct.SetDefault("png", "image/png")
	return ct
}

// EffectiveType resolves a part's declared type: override first, then the
// default for its extension. ok is false when the part is untyped.
func (ct *ContentTypes) EffectiveType(name PartName) (string, bool) {
	if t, ok := ct.overrides[name]; ok {
		return t, true
	}
	if t, ok := ct.defaults[name.Extension()]; ok {
		return t, true
	}
	return "", false
}

// SetDefault registers a default type for an extension. Last write wins.
func (ct *ContentTypes) SetDefault(ext, typ string) {
	ct.defaults[strings.ToLower(ext)] = typ
}

// SetOverride registers an explicit type for one part. Last write wins.
func (ct *ContentTypes) SetOverride(name PartName, typ string) {
	ct.overrides[name] = typ
}

// RemoveOverride drops the override for a part if present.
func (ct *ContentTypes) RemoveOverride(name PartName) {
	delete(ct.overrides, name)
}

// Override returns the explicit override for a part, if any.
func (ct *ContentTypes) Override(name PartName) (string, bool) {
	t, ok := ct.overrides[name]
	return t, ok
}

// Default returns the default type for an extension, if any.
func (ct *ContentTypes) Default(ext string) (string, bool) {
	t, ok := ct.defaults[strings.ToLower(ext)]
	return t, ok
}

type ctDefaultXML struct {
	Extension   string `xml:",attr"`
	ContentType string `xml:",attr"`
}

type ctOverrideXML struct {
	PartName    string `xml:",attr"`
	ContentType string `xml:",attr"`
}

type ctTypesXML struct {
	XMLName   xml.Name        `xml:"Types"`
	XMLNS     string          `xml:"xmlns,attr"`
	Defaults  []ctDefaultXML  `xml:"Default"`
	Overrides []ctOverrideXML `xml:"Override"`
}

// Marshal serializes the registry to the content-types part body. Output is
// deterministic: defaults then overrides, each sorted by key.
func (ct *ContentTypes) Marshal() []byte {
	doc := ctTypesXML{XMLNS: contentTypesNS}

	exts := make([]string, 0, len(ct.defaults))
	for ext := range ct.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		doc.Defaults = append(doc.Defaults, ctDefaultXML{Extension: ext, ContentType: ct.defaults[ext]})
	}

	names := make([]string, 0, len(ct.overrides))
	for name := range ct.overrides {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Overrides = append(doc.Overrides, ctOverrideXML{PartName: name, ContentType: ct.overrides[PartName(name)]})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	// Encoding a static struct cannot fail.
	_ = enc.Encode(doc)
	_ = enc.Flush()
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ParseContentTypes parses the content-types part body. Malformed XML or
// entries with a missing key fail with INVALID_CONTENT_TYPES_XML; nothing is
// silently dropped.
func ParseContentTypes(data []byte) (*ContentTypes, error) {
	var doc ctTypesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewInvalidContentTypesXML(err)
	}

	ct := NewContentTypes()
	for _, d := range doc.Defaults {
		if d.Extension == "" || d.ContentType == "" {
			return nil, errors.NewInvalidContentTypesXML(
				errors.NewInvalidRequest("Default entry missing Extension or ContentType"))
		}
		ct.SetDefault(d.Extension, d.ContentType)
	}
	for _, o := range doc.Overrides {
		if o.PartName == "" || o.ContentType == "" {
			return nil, errors.NewInvalidContentTypesXML(
				errors.NewInvalidRequest("Override entry missing PartName or ContentType"))
		}
		name, err := ParsePartName(o.PartName)
		if err != nil {
			return nil, errors.NewInvalidContentTypesXML(err)
		}
		ct.SetOverride(name, o.ContentType)
	}
	return ct, nil
}

// InferContentType maps a part name to the type its name implies, falling
// back to application/xml for unknown XML parts and octet-stream otherwise.
func InferContentType(name PartName) string {
	s := string(name)
	switch {
	case strings.Contains(s, "slideLayout"):
		return TypeSlideLayout
	case strings.Contains(s, "slideMaster"):
		return TypeSlideMaster
	case strings.Contains(s, "/theme"):
		return TypeTheme
	case strings.HasSuffix(s, "/presentation.xml"):
		return TypePresentationMain
	case strings.Contains(s, "/slides/") && name.Extension() == "xml":
		return TypeSlide
	case name.Extension() == "rels":
		return TypeRelationships
	case name.Extension() == "xml":
		return TypeXML
	case name.Extension() == "png":
		return "image/png"
	case name.Extension() == "jpeg" || name.Extension() == "jpg":
		return "image/jpeg"
	default:
		return TypeOctetStream
	}
}
