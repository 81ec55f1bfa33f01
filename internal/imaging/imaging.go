package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 1920

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// ErrUnsupported is returned for data that is not a JPEG or PNG image.
// Callers store such uploads unchanged.
var ErrUnsupported = errors.New("unsupported image format")

// encoders maps a sniffed MIME type to its re-encoder.
var encoders = map[string]func(*bytes.Buffer, image.Image) error{
	"image/jpeg": func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	},
	"image/png": func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	},
}

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data    []byte
	MIME    string
	Resized bool
}

// Process validates the format by sniffing bytes and downscales images
// larger than MaxDimension, re-encoding in the original format. Images
// already within bounds are returned byte-for-byte.
func Process(data []byte) (*ProcessResult, error) {
	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	encode, ok := encoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return &ProcessResult{Data: data, MIME: detected}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, downscale(img, MaxDimension)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", detected, err)
	}

	return &ProcessResult{Data: buf.Bytes(), MIME: detected, Resized: true}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
