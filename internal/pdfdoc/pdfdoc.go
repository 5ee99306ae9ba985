// Package pdfdoc provides page text, word boxes and rasterization for PDF
// documents.
package pdfdoc

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Word is one word on a page in top-left origin coordinates (PDF points).
type Word struct {
	Text   string
	X0     float64
	X1     float64
	Top    float64
	Bottom float64
}

// Document is a read-only view of an open PDF. Page numbers are 1-based.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	PageWords(page int) ([]Word, error)
	Close() error
}

// Opener opens a PDF at path.
type Opener func(path string) (Document, error)

// Rasterizer renders one page of a PDF to a PNG file.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, page, dpi int, outPath string) error
}

// letterHeight is the page height assumed when a page has no usable MediaBox.
const letterHeight = 792.0

type document struct {
	f *os.File
	r *pdf.Reader
}

// Open opens path with the pure-Go reader.
func Open(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pdfdoc: open %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfdoc: open %s", path)
	}
	return &document{f: f, r: r}, nil
}

func (d *document) NumPages() int {
	return d.r.NumPage()
}

func (d *document) page(n int) (pdf.Page, error) {
	if n < 1 || n > d.r.NumPage() {
		return pdf.Page{}, eris.Errorf("pdfdoc: page %d out of range 1..%d", n, d.r.NumPage())
	}
	p := d.r.Page(n)
	if p.V.IsNull() {
		return pdf.Page{}, eris.Errorf("pdfdoc: page %d is empty", n)
	}
	return p, nil
}

func (d *document) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pdfdoc: page %d text: %v", n, r)
		}
	}()

	p, err := d.page(n)
	if err != nil {
		return "", err
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", eris.Wrapf(err, "pdfdoc: page %d text", n)
	}
	return text, nil
}

func (d *document) PageWords(n int) (words []Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pdfdoc: page %d words: %v", n, r)
		}
	}()

	p, err := d.page(n)
	if err != nil {
		return nil, err
	}

	content := p.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{S: t.S, X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize})
	}
	return GroupWords(glyphs, pageHeight(p)), nil
}

func (d *document) Close() error {
	return d.f.Close()
}

func pageHeight(p pdf.Page) float64 {
	box := p.V.Key("MediaBox")
	for parent := p.V; box.IsNull() && !parent.IsNull(); {
		parent = parent.Key("Parent")
		box = parent.Key("MediaBox")
	}
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return letterHeight
	}
	lly, ury := box.Index(1).Float64(), box.Index(3).Float64()
	if ury <= lly {
		return letterHeight
	}
	return ury - lly
}

// Glyph is one positioned text run in PDF user space (bottom-left origin).
type Glyph struct {
	S        string
	X, Y, W  float64
	FontSize float64
}

// GroupWords joins glyphs into words. A word ends at whitespace, a baseline
// change, or a horizontal gap wider than a quarter of the font size. Results
// are ordered top to bottom, then left to right.
func GroupWords(glyphs []Glyph, height float64) []Word {
	var (
		words []Word
		cur   strings.Builder
		w     Word
		lastX float64
		lastY float64
		open  bool
	)

	flush := func() {
		if open && cur.Len() > 0 {
			w.Text = cur.String()
			words = append(words, w)
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		size := g.FontSize
		if size <= 0 {
			size = 1
		}
		if open {
			sameLine := abs(g.Y-lastY) <= size*0.5
			adjacent := g.X-lastX <= size*0.25 && g.X >= w.X0-size*0.25
			if !sameLine || !adjacent {
				flush()
			}
		}
		if !open {
			w = Word{
				X0:     g.X,
				X1:     g.X + g.W,
				Top:    height - (g.Y + size),
				Bottom: height - g.Y,
			}
			open = true
		}
		for _, part := range strings.Fields(g.S) {
			cur.WriteString(part)
		}
		if g.X+g.W > w.X1 {
			w.X1 = g.X + g.W
		}
		if top := height - (g.Y + size); top < w.Top {
			w.Top = top
		}
		lastX = g.X + g.W
		lastY = g.Y
		if strings.ContainsAny(g.S, " \t") {
			flush()
		}
	}
	flush()

	sort.SliceStable(words, func(i, j int) bool {
		if abs(words[i].Top-words[j].Top) > 1 {
			return words[i].Top < words[j].Top
		}
		return words[i].X0 < words[j].X0
	})
	return words
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// String renders a word for debug logging.
func (w Word) String() string {
	return fmt.Sprintf("%q@(%.1f,%.1f)", w.Text, w.X0, w.Top)
}
