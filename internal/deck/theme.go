// Package deck builds presentation packages from slide contents. Everything
// goes through the package model, so anything the builder produces passes the
// structural checks.
package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Positioning and sizing values are in EMU (English Metric Units), the
// standard unit of the file format: 1 inch = 914400 EMU, 1 pt = 12700 EMU.
const (
	SlideWidth  = 9144000 // 10 inches
	SlideHeight = 6858000 // 7.5 inches

	TitleX      = 457200  // 0.5 inches
	TitleY      = 274638  // ~0.3 inches
	TitleWidth  = 8230200 // 9 inches
	TitleHeight = 1143000 // 1.25 inches

	ContentX      = 457200  // 0.5 inches
	ContentYStart = 1600200 // ~1.67 inches
	ContentWidth  = 8230200 // 9 inches
	ContentHeight = 4572000 // 5 inches

	CenteredTitleY      = 2743200 // ~3 inches
	CenteredTitleHeight = 1371600 // 1.5 inches
)

// Slide ids start above 255 to avoid the reserved range; relationship ids
// start at rId3 because rId1/rId2 address the master and theme.
const (
	slideIDBase  = 255
	slideRIDBase = 2
)

// ColorScheme is the twelve-slot theme color map. Values are RRGGBB hex
// without a leading #.
type ColorScheme struct {
	Dark1             string `yaml:"dark1"`
	Light1            string `yaml:"light1"`
	Dark2             string `yaml:"dark2"`
	Light2            string `yaml:"light2"`
	Accent1           string `yaml:"accent1"`
	Accent2           string `yaml:"accent2"`
	Accent3           string `yaml:"accent3"`
	Accent4           string `yaml:"accent4"`
	Accent5           string `yaml:"accent5"`
	Accent6           string `yaml:"accent6"`
	Hyperlink         string `yaml:"hyperlink"`
	FollowedHyperlink string `yaml:"followed_hyperlink"`
}

// Theme carries the visual defaults baked into built decks. Sizes are in
// points; the emitters convert to the format's hundredths-of-a-point unit.
type Theme struct {
	Name        string      `yaml:"name"`
	Lang        string      `yaml:"lang"`
	MajorFont   string      `yaml:"major_font"`
	MinorFont   string      `yaml:"minor_font"`
	TitleSize   int         `yaml:"title_size"`
	ContentSize int         `yaml:"content_size"`
	TitleBold   bool        `yaml:"title_bold"`
	Colors      ColorScheme `yaml:"colors"`
}

// DefaultTheme returns the built-in Office-like theme.
func DefaultTheme() Theme {
	return Theme{
		Name:        "Office Theme",
		Lang:        "en-US",
		MajorFont:   "Calibri",
		MinorFont:   "Calibri",
		TitleSize:   44,
		ContentSize: 28,
		TitleBold:   true,
		Colors: ColorScheme{
			Dark1:             "000000",
			Light1:            "FFFFFF",
			Dark2:             "1F497D",
			Light2:            "EEECE1",
			Accent1:           "4F81BD",
			Accent2:           "C0504D",
			Accent3:           "9BBB59",
			Accent4:           "8064A2",
			Accent5:           "4BACC6",
			Accent6:           "F79646",
			Hyperlink:         "0000FF",
			FollowedHyperlink: "800080",
		},
	}
}

// LoadTheme reads a YAML theme file and overlays it on the default theme, so
// a file only needs to name the fields it changes.
func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()
	data, err := os.ReadFile(path)
	if err != nil {
		return theme, fmt.Errorf("failed to read theme file: %w", err)
	}
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return theme, fmt.Errorf("failed to parse theme file: %w", err)
	}
	return theme, nil
}
