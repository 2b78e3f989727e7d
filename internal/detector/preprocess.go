package detector

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/steadycam/steady/internal/mempool"
)

// preprocess stretches the frame to a size x size square and converts
// it to a normalized NCHW float32 buffer. The buffer comes from the
// shared pool; callers must return it via mempool.PutFloat32.
func preprocess(img image.Image, size int) []float32 {
	resized := imaging.Resize(img, size, size, imaging.Linear)

	data := mempool.GetFloat32(3 * size * size)
	plane := size * size
	for y := range size {
		for x := range size {
			c := resized.NRGBAAt(x, y)
			idx := y*size + x
			data[idx] = float32(c.R) / 255.0
			data[plane+idx] = float32(c.G) / 255.0
			data[2*plane+idx] = float32(c.B) / 255.0
		}
	}
	return data
}
