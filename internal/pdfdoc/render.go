package pdfdoc

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rotisserie/eris"
)

// NewRasterizer returns the rasterizer named by renderer: "pdftoppm" (the
// default) or "mupdf".
func NewRasterizer(renderer, binPath string) (Rasterizer, error) {
	switch renderer {
	case "pdftoppm", "":
		return NewPdfToPPM(binPath), nil
	case "mupdf":
		return MuPDF{}, nil
	default:
		return nil, eris.Errorf("pdfdoc: unknown renderer %q", renderer)
	}
}

// PdfToPPM rasterizes pages with the poppler pdftoppm CLI.
type PdfToPPM struct {
	binPath string
}

// NewPdfToPPM creates a PdfToPPM rasterizer. If binPath is empty, "pdftoppm" is used.
func NewPdfToPPM(binPath string) *PdfToPPM {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	return &PdfToPPM{binPath: binPath}
}

// Rasterize runs pdftoppm -png -singlefile for a single page.
func (p *PdfToPPM) Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return eris.Wrap(err, "pdfdoc: create image dir")
	}

	prefix := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	args := []string{
		"-png", "-singlefile",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath, prefix,
	}
	cmd := exec.CommandContext(ctx, p.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "pdfdoc: pdftoppm page %d of %s: %s", page, pdfPath, stderr.String())
	}

	// pdftoppm always appends .png to the prefix.
	if rendered := prefix + ".png"; rendered != outPath {
		if err := os.Rename(rendered, outPath); err != nil {
			return eris.Wrap(err, "pdfdoc: move rendered page")
		}
	}
	return nil
}

// MuPDF rasterizes pages in-process through go-fitz.
type MuPDF struct{}

// Rasterize renders page at dpi and encodes it as PNG at outPath.
func (MuPDF) Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return eris.Wrapf(err, "pdfdoc: mupdf open %s", pdfPath)
	}
	defer doc.Close() //nolint:errcheck

	if page < 1 || page > doc.NumPage() {
		return eris.Errorf("pdfdoc: page %d out of range 1..%d", page, doc.NumPage())
	}
	img, err := doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return eris.Wrapf(err, "pdfdoc: mupdf render page %d", page)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return eris.Wrap(err, "pdfdoc: create image dir")
	}
	tmp := outPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "pdfdoc: create image")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrap(err, "pdfdoc: encode png")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrap(err, "pdfdoc: close image")
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return eris.Wrap(err, "pdfdoc: finalize image")
	}
	return nil
}
