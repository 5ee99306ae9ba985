// Package imaging decodes chart images and builds the preprocessing variants
// submitted to the OCR oracle.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	"image/png"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
)

// Variant names.
const (
	VariantOriginal  = "original"
	VariantGrayscale = "grayscale"
	VariantOtsu      = "otsu"
	VariantEqualized = "equalized"
	VariantDenoised  = "denoised"
	VariantUpscaled  = "upscaled"
)

// upscaleFactor is applied by the upscaled variant.
const upscaleFactor = 2

// Variant is one preprocessed rendition of a chart. Scale maps variant
// coordinates back to the original image: original = variant / Scale.
type Variant struct {
	Name  string
	Image image.Image
	Scale float64
}

// Decode decodes PNG, JPEG, BMP or TIFF data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "imaging: decode")
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "imaging: encode png")
	}
	return buf.Bytes(), nil
}

// Known reports whether name is a supported variant.
func Known(name string) bool {
	switch name {
	case VariantOriginal, VariantGrayscale, VariantOtsu, VariantEqualized, VariantDenoised, VariantUpscaled:
		return true
	}
	return false
}

// Variants builds the named variants of img in the order given. Duplicate
// names are built once.
func Variants(img image.Image, names []string) ([]Variant, error) {
	seen := make(map[string]bool, len(names))
	out := make([]Variant, 0, len(names))
	var gray *image.Gray

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if gray == nil && name != VariantOriginal && name != VariantUpscaled {
			gray = Grayscale(img)
		}

		v := Variant{Name: name, Scale: 1}
		switch name {
		case VariantOriginal:
			v.Image = img
		case VariantGrayscale:
			v.Image = gray
		case VariantOtsu:
			v.Image = Binarize(gray, OtsuThreshold(gray))
		case VariantEqualized:
			v.Image = Equalize(gray)
		case VariantDenoised:
			d := Median3(gray)
			v.Image = Binarize(d, OtsuThreshold(d))
		case VariantUpscaled:
			v.Image = Upscale(img, upscaleFactor)
			v.Scale = upscaleFactor
		default:
			return nil, eris.Errorf("imaging: unknown variant %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}

// Grayscale converts img to 8-bit luma.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// OtsuThreshold returns the threshold that maximizes between-class variance
// of g's histogram.
func OtsuThreshold(g *image.Gray) uint8 {
	hist := histogram(g)
	total := 0
	sum := 0.0
	for i, n := range hist {
		total += n
		sum += float64(i * n)
	}
	if total == 0 {
		return 128
	}

	var (
		sumB   float64
		wB     int
		best   float64
		thresh int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return uint8(thresh)
}

// Binarize maps pixels above t to white and the rest to black.
func Binarize(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, p := range g.Pix {
		if p > t {
			out.Pix[i] = 255
		}
	}
	return out
}

// Equalize spreads g's histogram over the full 0..255 range.
func Equalize(g *image.Gray) *image.Gray {
	hist := histogram(g)
	var cdf [256]int
	run := 0
	for i, n := range hist {
		run += n
		cdf[i] = run
	}
	total := run
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}

	out := image.NewGray(g.Bounds())
	if total == cdfMin {
		copy(out.Pix, g.Pix)
		return out
	}
	var lut [256]uint8
	for i := range lut {
		v := float64(cdf[i]-cdfMin) / float64(total-cdfMin) * 255
		if v < 0 {
			v = 0
		}
		lut[i] = uint8(v + 0.5)
	}
	for i, p := range g.Pix {
		out.Pix[i] = lut[p]
	}
	return out
}

// Median3 applies a 3x3 median filter; edge pixels use the clamped neighborhood.
func Median3(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	window := make([]uint8, 0, 9)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					p := image.Pt(x+dx, y+dy)
					if p.In(b) {
						window = append(window, g.GrayAt(p.X, p.Y).Y)
					}
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return out
}

// Upscale enlarges img by factor with Catmull-Rom resampling.
func Upscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func histogram(g *image.Gray) [256]int {
	var h [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]
		for _, p := range row {
			h[p]++
		}
	}
	return h
}
