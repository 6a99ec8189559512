// Package imaging decodes dataset binaries into bitmaps and prepares crops
// for the vision services.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// JPEGQuality is the quality used when shipping bitmaps to inference services.
const JPEGQuality = 90

// Decode turns raw image bytes into a bitmap, applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty binary", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Dimensions returns the width and height of img.
func Dimensions(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

// Crop extracts rect from img. rect is expressed relative to the image
// origin and must lie inside the image.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	bounds := img.Bounds()
	rect = rect.Add(bounds.Min)

	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty region %v", ErrInvalidRegion, rect)
	}
	if !rect.In(bounds) {
		return nil, fmt.Errorf("%w: region %v outside image bounds %v", ErrInvalidRegion, rect, bounds)
	}

	return imaging.Crop(img, rect), nil
}

// EncodeJPEG encodes img as an RGB JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
