package pipeline

import (
	"image"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/utils"
	"github.com/steadycam/steady/internal/warp"
)

// Transformer bundles every image operation the pipeline performs, so
// tests can substitute a recording fake and the alignment logic never
// touches pixels directly.
type Transformer interface {
	ApplyAffine(img image.Image, m geometry.AffineMatrix, outW, outH int) (image.Image, error)
	ApplyHomography(img image.Image, h geometry.Homography, outW, outH int) (image.Image, error)
	Load(path string) (image.Image, utils.ImageMetadata, error)
	Save(img image.Image, path string) error
	Resize(img image.Image, width, height int) (image.Image, error)
	Crop(img image.Image, rect image.Rectangle) (image.Image, error)
	Rotate(img image.Image, degrees float64) (image.Image, error)
}

type defaultTransformer struct {
	warper *warp.Warper
}

// NewTransformer returns the standard transformer backed by the given
// warper and the image IO helpers.
func NewTransformer(w *warp.Warper) Transformer {
	return &defaultTransformer{warper: w}
}

func (t *defaultTransformer) ApplyAffine(img image.Image, m geometry.AffineMatrix, outW, outH int) (image.Image, error) {
	return t.warper.ApplyAffine(img, m, outW, outH)
}

func (t *defaultTransformer) ApplyHomography(img image.Image, h geometry.Homography, outW, outH int) (image.Image, error) {
	return t.warper.ApplyHomography(img, h, outW, outH)
}

func (t *defaultTransformer) Load(path string) (image.Image, utils.ImageMetadata, error) {
	return utils.LoadImage(path)
}

func (t *defaultTransformer) Save(img image.Image, path string) error {
	return utils.SaveImage(img, path)
}

func (t *defaultTransformer) Resize(img image.Image, width, height int) (image.Image, error) {
	return utils.ResizeImage(img, width, height)
}

func (t *defaultTransformer) Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	return utils.CropImageRect(img, rect)
}

func (t *defaultTransformer) Rotate(img image.Image, degrees float64) (image.Image, error) {
	return utils.RotateImage(img, degrees)
}
