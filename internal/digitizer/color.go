package digitizer

import (
	"image"
	"image/color"
	"math"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/imaging"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/ocr"
)

// Palette holds the reference colors bars are classified against.
type Palette struct {
	Dark        color.RGBA
	Light       color.RGBA
	Background  color.RGBA
	MaxDistance float64 // 0 disables the distance cutoff
}

// PaletteFromConfig builds a Palette from the digitize config section.
func PaletteFromConfig(cfg config.DigitizeConfig) Palette {
	return Palette{
		Dark:        rgb(cfg.Palette.Dark),
		Light:       rgb(cfg.Palette.Light),
		Background:  rgb(cfg.Palette.Background),
		MaxDistance: cfg.MaxColorDistance,
	}
}

func rgb(c []int) color.RGBA {
	if len(c) != 3 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), A: 255}
}

// Classify buckets c by Euclidean RGB distance. Ties resolve in the order
// dark, light, background. Background, or anything beyond MaxDistance from
// every entry, is unknown.
func (p Palette) Classify(c color.RGBA) model.BarColor {
	entries := []struct {
		class model.BarColor
		ref   color.RGBA
	}{
		{model.BarColorDark, p.Dark},
		{model.BarColorLight, p.Light},
		{model.BarColorUnknown, p.Background},
	}

	best := model.BarColorUnknown
	bestDist := math.Inf(1)
	for _, e := range entries {
		if d := distance(c, e.ref); d < bestDist {
			best, bestDist = e.class, d
		}
	}
	if p.MaxDistance > 0 && bestDist > p.MaxDistance {
		return model.BarColorUnknown
	}
	return best
}

func distance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// barWindow is the region sampled beneath a value label: the middle half of
// the label's width, starting offset pixels below its bottom edge.
func barWindow(box ocr.Rect, offset, height int) image.Rectangle {
	w := box.MaxX - box.MinX
	cx := box.CenterX()
	x0 := int(math.Floor(cx - w/4))
	x1 := int(math.Ceil(cx + w/4))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	y0 := int(math.Ceil(box.MaxY)) + offset
	if height <= 0 {
		height = 1
	}
	return image.Rect(x0, y0, x1, y0+height)
}

// sampleBarColor classifies the bar directly beneath a value label.
func sampleBarColor(img image.Image, box ocr.Rect, offset, height int, p Palette) model.BarColor {
	c, ok := imaging.MeanColor(img, barWindow(box, offset, height))
	if !ok {
		return model.BarColorUnknown
	}
	return p.Classify(c)
}
