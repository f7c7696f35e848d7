package imagegen

import "strings"

// OutlineStyle selects how detailed a line-art conversion is.
type OutlineStyle string

const (
	StyleSimple   OutlineStyle = "simple"
	StyleDetailed OutlineStyle = "detailed"
	StyleArtistic OutlineStyle = "artistic"
)

var stylePrompts = map[OutlineStyle]string{
	StyleSimple:   "Convert this image into a simple black and white line drawing suitable for children to color. Use thick, clear outlines with minimal detail.",
	StyleDetailed: "Convert this image into a detailed black and white coloring page with medium-thick outlines and moderate detail level.",
	StyleArtistic: "Convert this image into an artistic black and white line drawing with varied line weights and intricate details suitable for adult coloring.",
}

// Prompt returns the conversion instruction for the style. Unknown styles use
// the simple prompt.
func (s OutlineStyle) Prompt() string {
	if p, ok := stylePrompts[s]; ok {
		return p
	}

	return stylePrompts[StyleSimple]
}

// ParseOutlineStyle parses a style name. The empty string means simple.
func ParseOutlineStyle(s string) (OutlineStyle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StyleSimple, nil
	}

	style := OutlineStyle(s)
	if _, ok := stylePrompts[style]; !ok {
		return "", Errorf(KindValidation, "unknown outline style %q", s)
	}

	return style, nil
}

// KnownOutlineStyles lists the accepted styles in display order.
func KnownOutlineStyles() []string {
	return []string{string(StyleSimple), string(StyleDetailed), string(StyleArtistic)}
}

// String implements fmt.Stringer.
func (s OutlineStyle) String() string { return string(s) }
