package drawing

import "strconv"

// ImageOption is one generated image. Options are produced by generation calls
// and never mutated afterwards; later steps only reference them.
type ImageOption struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// NumberOptions turns a list of image URLs into options with sequential ids
// "1".."n". alt receives the zero-based index and returns the description.
func NumberOptions(urls []string, alt func(i int) string) []ImageOption {
	opts := make([]ImageOption, 0, len(urls))
	for i, u := range urls {
		opts = append(opts, ImageOption{
			ID:  strconv.Itoa(i + 1),
			URL: u,
			Alt: alt(i),
		})
	}

	return opts
}

// Find returns the option with the given id.
func Find(opts []ImageOption, id string) (ImageOption, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}

	return ImageOption{}, false
}

// Clone returns a copy of opts that does not share the backing array.
// A nil or empty slice yields nil.
func Clone(opts []ImageOption) []ImageOption {
	if len(opts) == 0 {
		return nil
	}

	cp := make([]ImageOption, len(opts))
	copy(cp, opts)

	return cp
}
