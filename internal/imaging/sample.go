package imaging

import (
	"image"
	"image/color"
)

// MeanColor averages the pixels of img inside r, clipped to the image
// bounds. ok is false when the clipped window is empty.
func MeanColor(img image.Image, r image.Rectangle) (c color.RGBA, ok bool) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return color.RGBA{}, false
	}

	var sr, sg, sb, n uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			sr += uint64(pr >> 8)
			sg += uint64(pg >> 8)
			sb += uint64(pb >> 8)
			n++
		}
	}
	return color.RGBA{
		R: uint8(sr / n),
		G: uint8(sg / n),
		B: uint8(sb / n),
		A: 255,
	}, true
}
