// Package warp resamples images through affine and projective
// transforms using inverse mapping with bilinear interpolation.
package warp

import (
	"fmt"
	"image"
	"image/color"

	"github.com/steadycam/steady/internal/geometry"
)

// Warper is a pure-Go resampler. It is stateless and safe for
// concurrent use.
type Warper struct{}

// New returns a ready-to-use warper.
func New() *Warper { return &Warper{} }

// ApplyAffine resamples img through m into an outW x outH canvas.
// Pixels that map outside the source are filled with opaque black.
// Fails when m is not invertible.
func (w *Warper) ApplyAffine(img image.Image, m geometry.AffineMatrix, outW, outH int) (image.Image, error) {
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", outW, outH)
	}
	inv, ok := m.Invert()
	if !ok {
		return nil, fmt.Errorf("affine matrix is singular, determinant %.6g", m.Determinant())
	}

	sb := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := range outH {
		for x := range outW {
			// Inverse map the destination pixel into source space.
			sx, sy := inv.Apply(float64(x), float64(y))
			out.Set(x, y, bilinearSample(img, sx+float64(sb.Min.X), sy+float64(sb.Min.Y)))
		}
	}
	return out, nil
}

// ApplyHomography resamples img through h into an outW x outH canvas.
// Fails when h is singular.
func (w *Warper) ApplyHomography(img image.Image, h geometry.Homography, outW, outH int) (image.Image, error) {
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", outW, outH)
	}
	inv, ok := h.Invert()
	if !ok {
		return nil, fmt.Errorf("homography is singular, determinant %.6g", h.Determinant())
	}

	sb := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := range outH {
		for x := range outW {
			sx, sy := inv.TransformPoint(float64(x), float64(y))
			out.Set(x, y, bilinearSample(img, sx+float64(sb.Min.X), sy+float64(sb.Min.Y)))
		}
	}
	return out, nil
}

// bilinearSample interpolates the source at fractional coordinates,
// returning opaque black outside the source bounds.
func bilinearSample(src image.Image, x, y float64) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.RGBA{0, 0, 0, 255}
	}
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	c00 := toChannels(src.At(x0, y0))
	c10 := toChannels(src.At(x1, y0))
	c01 := toChannels(src.At(x0, y1))
	c11 := toChannels(src.At(x1, y1))
	r := lerp(lerp(c00.r, c10.r, fx), lerp(c01.r, c11.r, fx), fy)
	g := lerp(lerp(c00.g, c10.g, fx), lerp(c01.g, c11.g, fx), fy)
	bl := lerp(lerp(c00.b, c10.b, fx), lerp(c01.b, c11.b, fx), fy)
	a := lerp(lerp(c00.a, c10.a, fx), lerp(c01.a, c11.a, fx), fy)
	return color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), uint8(a + 0.5)}
}

type channels struct{ r, g, b, a float64 }

func toChannels(c color.Color) channels {
	r, g, b, a := c.RGBA()
	return channels{r: float64(r >> 8), g: float64(g >> 8), b: float64(b >> 8), a: float64(a >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
