// Package printout renders a chosen outline into a print-ready PDF.
package printout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/drawing"
)

const (
	marginMM      = 12.0
	footerMM      = 10.0
	framePadMM    = 3.0
	imageName     = "outline"
	defaultTitle  = "Color King coloring page"
	defaultPrefix = "coloring-page"
)

// Fetcher downloads an image and reports its content type.
// *imagegen.Adapter satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Renderer turns outlines into PDFs.
type Renderer struct {
	fetch Fetcher
	log   *zap.Logger
}

// NewRenderer creates a Renderer that downloads images with f.
func NewRenderer(f Fetcher, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Renderer{fetch: f, log: log.Named("printout")}
}

// Render writes one page per copy to w. Each page holds the outline image
// scaled to fit, framed in the configured thickness and color, with title in
// the footer.
func (r *Renderer) Render(ctx context.Context, outline drawing.ImageOption, ps drawing.PrintSettings, title string, w io.Writer) error {
	if err := ps.Validate(); err != nil {
		return fmt.Errorf("printout: %w", err)
	}

	data, contentType, err := r.fetch.Fetch(ctx, outline.URL)
	if err != nil {
		return fmt.Errorf("printout: fetch outline %s: %w", outline.ID, err)
	}

	imageType, err := detectImageType(data, contentType)
	if err != nil {
		return fmt.Errorf("printout: outline %s: %w", outline.ID, err)
	}

	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	pdf := gofpdf.New("P", "mm", string(ps.PageSize), "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(title, true)
	pdf.SetCreator("colorking", false)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(false, 0)

	pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if pdf.Err() {
		return fmt.Errorf("printout: decode outline %s: %w", outline.ID, pdf.Error())
	}

	info := pdf.GetImageInfo(imageName)
	pageW, pageH := pdf.GetPageSize()

	// Usable box inside margins, above the footer, inside the frame padding.
	boxX := marginMM + framePadMM
	boxY := marginMM + framePadMM
	boxW := pageW - 2*(marginMM+framePadMM)
	boxH := pageH - 2*(marginMM+framePadMM) - footerMM

	imgW, imgH := fit(info.Width(), info.Height(), boxW, boxH)
	imgX := boxX + (boxW-imgW)/2
	imgY := boxY + (boxH-imgH)/2

	red, green, blue := ps.OutlineColor.RGB()

	for copyN := 1; copyN <= ps.Copies; copyN++ {
		pdf.AddPage()

		pdf.ImageOptions(imageName, imgX, imgY, imgW, imgH, false, gofpdf.ImageOptions{ImageType: imageType}, 0, "")

		pdf.SetDrawColor(red, green, blue)
		pdf.SetLineWidth(ps.OutlineThickness.LineWidthMM())
		pdf.Rect(marginMM, marginMM, pageW-2*marginMM, pageH-2*marginMM-footerMM, "D")

		pdf.SetY(pageH - marginMM - footerMM + 2)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, footerMM-2, tr(footer(title, copyN, ps.Copies)), "", 0, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("printout: write pdf: %w", err)
	}

	r.log.Info("printout rendered",
		zap.String("outline", outline.ID),
		zap.String("page_size", string(ps.PageSize)),
		zap.Int("copies", ps.Copies))

	return nil
}

// FileName derives a PDF file name from a description.
func FileName(description string) string {
	s := slug.Make(description)
	if s == "" {
		s = defaultPrefix
	}

	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}

	return s + ".pdf"
}

func footer(title string, n, total int) string {
	if total == 1 {
		return title
	}

	return fmt.Sprintf("%s - copy %d of %d", title, n, total)
}

// fit scales w x h to the largest size that fits inside maxW x maxH.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}

	scale := min(maxW/w, maxH/h)

	return w * scale, h * scale
}

func detectImageType(data []byte, contentType string) (string, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	mediaType, _, _ := strings.Cut(contentType, ";")

	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
}
