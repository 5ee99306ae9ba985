package digitizer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/ocr"
)

var (
	darkBar  = color.RGBA{R: 0, G: 51, B: 102, A: 255}
	lightBar = color.RGBA{R: 153, G: 187, B: 221, A: 255}
	white    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func testPalette() Palette {
	return PaletteFromConfig(config.DigitizeConfig{
		Palette: config.PaletteConfig{
			Dark:       []int{0, 51, 102},
			Light:      []int{153, 187, 221},
			Background: []int{255, 255, 255},
		},
		MaxColorDistance: 120,
	})
}

func TestPalette_Classify(t *testing.T) {
	p := testPalette()
	assert.Equal(t, model.BarColorDark, p.Classify(darkBar))
	assert.Equal(t, model.BarColorDark, p.Classify(color.RGBA{R: 10, G: 60, B: 110, A: 255}))
	assert.Equal(t, model.BarColorLight, p.Classify(lightBar))
	assert.Equal(t, model.BarColorUnknown, p.Classify(white))
	// Pure red is far from every entry.
	assert.Equal(t, model.BarColorUnknown, p.Classify(color.RGBA{R: 255, A: 255}))
}

func TestPalette_TieGoesToDark(t *testing.T) {
	p := Palette{
		Dark:       color.RGBA{R: 0, A: 255},
		Light:      color.RGBA{R: 100, A: 255},
		Background: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
	assert.Equal(t, model.BarColorDark, p.Classify(color.RGBA{R: 50, A: 255}))
}

func TestPalette_NoCutoff(t *testing.T) {
	p := testPalette()
	p.MaxDistance = 0
	assert.Equal(t, model.BarColorDark, p.Classify(color.RGBA{R: 0, G: 0, B: 0, A: 255}))
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestSampleBarColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	fill(img, img.Bounds(), white)
	fill(img, image.Rect(80, 115, 120, 300), darkBar)
	fill(img, image.Rect(180, 145, 220, 300), lightBar)
	p := testPalette()

	assert.Equal(t, model.BarColorDark, sampleBarColor(img, ocr.Rect{MinX: 90, MinY: 100, MaxX: 110, MaxY: 112}, 6, 12, p))
	assert.Equal(t, model.BarColorLight, sampleBarColor(img, ocr.Rect{MinX: 190, MinY: 130, MaxX: 210, MaxY: 142}, 6, 12, p))
	// Label with no bar beneath it.
	assert.Equal(t, model.BarColorUnknown, sampleBarColor(img, ocr.Rect{MinX: 250, MinY: 100, MaxX: 270, MaxY: 112}, 6, 12, p))
	// Window entirely outside the image.
	assert.Equal(t, model.BarColorUnknown, sampleBarColor(img, ocr.Rect{MinX: 90, MinY: 400, MaxX: 110, MaxY: 410}, 6, 12, p))
}

func TestBarWindow(t *testing.T) {
	r := barWindow(ocr.Rect{MinX: 90, MinY: 100, MaxX: 110, MaxY: 112}, 6, 12)
	assert.Equal(t, image.Rect(95, 118, 105, 130), r)

	narrow := barWindow(ocr.Rect{MinX: 10, MaxX: 10, MaxY: 5}, 0, 0)
	assert.Equal(t, 1, narrow.Dx())
	assert.Equal(t, 1, narrow.Dy())
}
