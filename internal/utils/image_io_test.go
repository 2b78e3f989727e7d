package utils

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steadycam/steady/internal/testutil"
)

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"frame.jpg", true},
		{"frame.JPEG", true},
		{"frame.png", true},
		{"frame.bmp", true},
		{"frame.gif", false},
		{"frame.tiff", false},
		{"frame", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSupportedImage(tt.path), tt.path)
	}
}

func TestLoadImage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	require.NoError(t, SaveImage(testutil.NewTestImage(48, 32), path))

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 48, meta.Width)
	assert.Equal(t, 32, meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.InDelta(t, 1.5, meta.AspectRatio, 1e-9)
	assert.Positive(t, meta.SizeBytes)
	assert.Equal(t, 48, img.Bounds().Dx())
}

func TestLoadImage_Errors(t *testing.T) {
	var procErr *ImageProcessingError

	_, _, err := LoadImage("")
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "load", procErr.Operation)

	_, _, err = LoadImage("frame.tiff")
	require.ErrorAs(t, err, &procErr)

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.ErrorAs(t, err, &procErr)
}

func TestSaveImage_Errors(t *testing.T) {
	var procErr *ImageProcessingError

	err := SaveImage(nil, "frame.png")
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "save", procErr.Operation)

	err = SaveImage(testutil.NewTestImage(8, 8), "frame.tiff")
	require.ErrorAs(t, err, &procErr)
}

func TestValidateImageConstraints(t *testing.T) {
	constraints := DefaultImageConstraints()

	assert.NoError(t, ValidateImageConstraints(testutil.NewTestImage(64, 64), constraints))
	assert.Error(t, ValidateImageConstraints(testutil.NewTestImage(63, 64), constraints))
	assert.Error(t, ValidateImageConstraints(nil, constraints))

	// Oversized frames pass; the pipeline scales them down later.
	assert.NoError(t, ValidateImageConstraints(testutil.NewTestImage(9000, 64), constraints))
}

func TestResizeImage(t *testing.T) {
	out, err := ResizeImage(testutil.NewTestImage(100, 50), 40, 20)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())

	_, err = ResizeImage(nil, 40, 20)
	assert.Error(t, err)
	_, err = ResizeImage(testutil.NewTestImage(10, 10), 0, 20)
	assert.Error(t, err)
}

func TestResizeToFit(t *testing.T) {
	small := testutil.NewTestImage(100, 50)
	out, err := ResizeToFit(small, 200, 200)
	require.NoError(t, err)
	assert.Same(t, image.Image(small), out)

	out, err = ResizeToFit(testutil.NewTestImage(400, 200), 200, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())
}

func TestCropImageRect(t *testing.T) {
	out, err := CropImageRect(testutil.NewTestImage(100, 100), image.Rect(10, 10, 60, 40))
	require.NoError(t, err)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 30, out.Bounds().Dy())

	_, err = CropImageRect(testutil.NewTestImage(100, 100), image.Rect(200, 200, 300, 300))
	assert.Error(t, err)
}

func TestRotateImage(t *testing.T) {
	out, err := RotateImage(testutil.NewTestImage(100, 50), 90)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())
}
