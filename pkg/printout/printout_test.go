package printout_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/printout"
)

type staticFetcher struct {
	data        []byte
	contentType string
	err         error
	url         string
}

func (f *staticFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	f.url = url
	return f.data, f.contentType, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		img.SetGray(x, 10, color.Gray{Y: 0})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestRender_OnePagePerCopy(t *testing.T) {
	for _, copies := range []int{1, 3} {
		f := &staticFetcher{data: pngBytes(t), contentType: "image/png"}
		r := printout.NewRenderer(f, nil)

		ps := drawing.DefaultPrintSettings()
		ps.Copies = copies
		ps.PageSize = drawing.PageA3
		ps.OutlineColor = drawing.ColorBlue

		var out bytes.Buffer
		err := r.Render(context.Background(), drawing.ImageOption{ID: "1", URL: "https://o/1.png"}, ps, "A cat in a crown", &out)
		require.NoError(t, err)
		assert.Equal(t, "https://o/1.png", f.url)

		rd, err := pdf.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
		require.NoError(t, err)
		assert.Equal(t, copies, rd.NumPage())
	}
}

func TestRender_SniffsMissingContentType(t *testing.T) {
	f := &staticFetcher{data: pngBytes(t)}
	r := printout.NewRenderer(f, nil)

	var out bytes.Buffer
	err := r.Render(context.Background(), drawing.ImageOption{ID: "1", URL: "u"}, drawing.DefaultPrintSettings(), "", &out)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")))
}

func TestRender_UnsupportedImage(t *testing.T) {
	f := &staticFetcher{data: []byte("<html></html>"), contentType: "text/html"}
	r := printout.NewRenderer(f, nil)

	err := r.Render(context.Background(), drawing.ImageOption{ID: "1", URL: "u"}, drawing.DefaultPrintSettings(), "t", &bytes.Buffer{})

	assert.ErrorContains(t, err, "unsupported image type")
}

func TestRender_FetchError(t *testing.T) {
	boom := errors.New("offline")
	r := printout.NewRenderer(&staticFetcher{err: boom}, nil)

	err := r.Render(context.Background(), drawing.ImageOption{ID: "1", URL: "u"}, drawing.DefaultPrintSettings(), "t", &bytes.Buffer{})

	assert.ErrorIs(t, err, boom)
}

func TestRender_InvalidSettings(t *testing.T) {
	f := &staticFetcher{data: pngBytes(t), contentType: "image/png"}
	r := printout.NewRenderer(f, nil)

	ps := drawing.DefaultPrintSettings()
	ps.Copies = 0

	err := r.Render(context.Background(), drawing.ImageOption{ID: "1", URL: "u"}, ps, "t", &bytes.Buffer{})

	assert.ErrorIs(t, err, drawing.ErrInvalidSettings)
	assert.Empty(t, f.url)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a-cat-in-a-crown.pdf", printout.FileName("A cat in a crown!"))
	assert.Equal(t, "coloring-page.pdf", printout.FileName("  "))
	assert.LessOrEqual(t, len(printout.FileName(string(bytes.Repeat([]byte("word "), 40)))), 64)
}
