// Package media converts screenshots between the backend's native resolution
// and the fixed logical canvas the model reasons in.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultMaxSide is the longest edge allowed for a derived canvas.
const DefaultMaxSide = 2048

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// String renders the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// FitWithin scales width/height down so the longest edge is at most maxSide,
// preserving aspect ratio and truncating to integers. Sizes already within the
// bound are returned unchanged; it never scales up.
func FitWithin(width, height, maxSide int) Size {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	longest := max(width, height)
	if longest <= maxSide {
		return Size{Width: width, Height: height}
	}
	scale := float64(maxSide) / float64(longest)
	return Size{
		Width:  int(float64(width) * scale),
		Height: int(float64(height) * scale),
	}
}

// ScaleRatio returns the uniform ratio that maps the real screen into the canvas:
// min(canvas.Width/screen.Width, canvas.Height/screen.Height).
func ScaleRatio(canvas, screen Size) (float64, error) {
	if !screen.Valid() {
		return 0, fmt.Errorf("invalid screen size %s", screen)
	}
	if !canvas.Valid() {
		return 0, fmt.Errorf("invalid canvas size %s", canvas)
	}
	return min(
		float64(canvas.Width)/float64(screen.Width),
		float64(canvas.Height)/float64(screen.Height),
	), nil
}

// Letterbox resizes img by the canvas scale ratio with CatmullRom resampling and
// pastes it at the top-left corner of a black canvas-sized image.
func Letterbox(img image.Image, canvas Size) (image.Image, error) {
	bounds := img.Bounds()
	screen := Size{Width: bounds.Dx(), Height: bounds.Dy()}
	ratio, err := ScaleRatio(canvas, screen)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	newWidth := int(float64(screen.Width) * ratio)
	newHeight := int(float64(screen.Height) * ratio)
	if newWidth == 0 || newHeight == 0 {
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, image.Rect(0, 0, newWidth, newHeight), img, bounds, draw.Over, nil)
	return dst, nil
}

// DecodeBase64 decodes a base64 encoded PNG or JPEG screenshot.
func DecodeBase64(encoded string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNGBase64 encodes img as a base64 PNG payload.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeBytes base64 encodes raw image bytes as returned by capture tools.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL wraps a base64 PNG payload in a data URL.
func DataURL(encoded string) string {
	return "data:image/png;base64," + encoded
}

// GetImageMetadata reads the dimensions of a base64 encoded screenshot from
// its header without decoding the pixels.
func GetImageMetadata(encoded string) (*ImageMetadata, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	return &ImageMetadata{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}

// ImageMetadata contains basic image information
type ImageMetadata struct {
	Width  int
	Height int
	Format string
}
