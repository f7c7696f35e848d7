package drawing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSettings is wrapped by every PrintSettings validation failure.
var ErrInvalidSettings = errors.New("invalid print settings")

// Copies bounds.
const (
	MinCopies = 1
	MaxCopies = 10
)

// PageSize is the paper format of a printed page.
type PageSize string

const (
	PageA4 PageSize = "A4"
	PageA3 PageSize = "A3"
)

var pageSizes = []PageSize{PageA4, PageA3}

// OutlineThickness is the stroke weight of the printed outline frame.
type OutlineThickness string

const (
	ThicknessThin   OutlineThickness = "thin"
	ThicknessMedium OutlineThickness = "medium"
	ThicknessThick  OutlineThickness = "thick"
)

var thicknesses = []OutlineThickness{ThicknessThin, ThicknessMedium, ThicknessThick}

// OutlineColor is the stroke color of the printed outline frame.
type OutlineColor string

const (
	ColorBlack OutlineColor = "black"
	ColorGray  OutlineColor = "gray"
	ColorBlue  OutlineColor = "blue"
)

var outlineColors = []OutlineColor{ColorBlack, ColorGray, ColorBlue}

// PrintSettings controls how the selected outline is printed.
type PrintSettings struct {
	PageSize         PageSize         `json:"pageSize" yaml:"page_size"`
	OutlineThickness OutlineThickness `json:"outlineThickness" yaml:"outline_thickness"`
	OutlineColor     OutlineColor     `json:"outlineColor" yaml:"outline_color"`
	Copies           int              `json:"copies" yaml:"copies"`
}

// DefaultPrintSettings returns A4, medium, black, one copy.
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{
		PageSize:         PageA4,
		OutlineThickness: ThicknessMedium,
		OutlineColor:     ColorBlack,
		Copies:           1,
	}
}

// Validate reports unknown enum values and copies outside [MinCopies, MaxCopies].
func (p PrintSettings) Validate() error {
	if !contains(pageSizes, p.PageSize) {
		return fmt.Errorf("%w: unknown page size %q", ErrInvalidSettings, p.PageSize)
	}
	if !contains(thicknesses, p.OutlineThickness) {
		return fmt.Errorf("%w: unknown outline thickness %q", ErrInvalidSettings, p.OutlineThickness)
	}
	if !contains(outlineColors, p.OutlineColor) {
		return fmt.Errorf("%w: unknown outline color %q", ErrInvalidSettings, p.OutlineColor)
	}
	if p.Copies < MinCopies || p.Copies > MaxCopies {
		return fmt.Errorf("%w: copies must be between %d and %d, got %d", ErrInvalidSettings, MinCopies, MaxCopies, p.Copies)
	}

	return nil
}

// WithCopiesDelta returns p with copies moved by delta and clamped into range.
func (p PrintSettings) WithCopiesDelta(delta int) PrintSettings {
	p.Copies = max(MinCopies, min(MaxCopies, p.Copies+delta))
	return p
}

// Next cycles to the following page size.
func (s PageSize) Next() PageSize { return cycle(pageSizes, s, 1) }

// Prev cycles to the preceding page size.
func (s PageSize) Prev() PageSize { return cycle(pageSizes, s, -1) }

// Next cycles to the following thickness.
func (t OutlineThickness) Next() OutlineThickness { return cycle(thicknesses, t, 1) }

// Prev cycles to the preceding thickness.
func (t OutlineThickness) Prev() OutlineThickness { return cycle(thicknesses, t, -1) }

// LineWidthMM is the printed stroke width in millimetres.
func (t OutlineThickness) LineWidthMM() float64 {
	switch t {
	case ThicknessThin:
		return 0.3
	case ThicknessThick:
		return 1.6
	default:
		return 0.8
	}
}

// Next cycles to the following color.
func (c OutlineColor) Next() OutlineColor { return cycle(outlineColors, c, 1) }

// Prev cycles to the preceding color.
func (c OutlineColor) Prev() OutlineColor { return cycle(outlineColors, c, -1) }

// RGB returns the color as 8-bit channels.
func (c OutlineColor) RGB() (r, g, b int) {
	switch c {
	case ColorGray:
		return 128, 128, 128
	case ColorBlue:
		return 37, 99, 235
	default:
		return 0, 0, 0
	}
}

// ParsePageSize parses "A4" or "A3" (case-insensitive).
func ParsePageSize(s string) (PageSize, error) {
	return parse(pageSizes, PageSize(strings.ToUpper(strings.TrimSpace(s))), "page size")
}

// ParseOutlineThickness parses thin, medium, or thick.
func ParseOutlineThickness(s string) (OutlineThickness, error) {
	return parse(thicknesses, OutlineThickness(strings.ToLower(strings.TrimSpace(s))), "outline thickness")
}

// ParseOutlineColor parses black, gray, or blue.
func ParseOutlineColor(s string) (OutlineColor, error) {
	return parse(outlineColors, OutlineColor(strings.ToLower(strings.TrimSpace(s))), "outline color")
}

func contains[T comparable](all []T, v T) bool {
	for _, x := range all {
		if x == v {
			return true
		}
	}

	return false
}

func cycle[T comparable](all []T, v T, step int) T {
	for i, x := range all {
		if x == v {
			return all[(i+step+len(all))%len(all)]
		}
	}

	return all[0]
}

func parse[T ~string](all []T, v T, what string) (T, error) {
	if !contains(all, v) {
		return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, what, string(v))
	}

	return v, nil
}
