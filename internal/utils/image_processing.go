package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError wraps a failure in an image operation with the
// operation name for diagnostics.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds acceptable input dimensions.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the constraints used when the caller
// supplies none. Frames below the minimum carry too little detail for
// landmark detection to be trustworthy.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MinWidth:  64,
		MinHeight: 64,
		MaxWidth:  8192,
		MaxHeight: 8192,
	}
}

// ValidateImageConstraints checks dimensions against the provided
// constraints. Exceeding the maximum is not an error; the pipeline
// scales oversized frames down.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", w, h, constraints.MinWidth, constraints.MinHeight),
		}
	}
	return nil
}

// ResizeImage scales the image to exactly width x height with Lanczos
// resampling.
func ResizeImage(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: fmt.Errorf("invalid target size %dx%d", width, height)}
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// ResizeToFit scales the image down to fit within maxWidth x maxHeight
// preserving aspect ratio. Images already within bounds are returned
// unchanged.
func ResizeToFit(img image.Image, maxWidth, maxHeight int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() <= maxWidth && b.Dy() <= maxHeight {
		return img, nil
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos), nil
}

// CropImageRect crops to the intersection of rect and the image bounds.
func CropImageRect(img image.Image, rect image.Rectangle) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, &ImageProcessingError{Operation: "crop", Err: errors.New("crop rectangle outside image bounds")}
	}
	return imaging.Crop(img, rect), nil
}

// RotateImage rotates counter-clockwise by the given angle in degrees,
// filling exposed corners with black.
func RotateImage(img image.Image, degrees float64) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "rotate", Err: errors.New("input image is nil")}
	}
	return imaging.Rotate(img, degrees, color.Black), nil
}
