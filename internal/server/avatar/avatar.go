// Package avatar validates uploaded profile pictures and normalizes them
// to a fixed-size PNG.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"regexp"

	"golang.org/x/image/draw"
)

const (
	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize = 1_000_000
	// Size is the edge of the stored square image in pixels.
	Size = 250
)

var allowedName = regexp.MustCompile(`(?i)\.(png|jpg|jpeg)$`)

var (
	// ErrTooLarge: upload exceeds MaxUploadSize.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType: file name is not .png, .jpg or .jpeg.
	ErrUnsupportedType = errors.New("please upload an image")
	// ErrDecode: content is not a decodable PNG or JPEG.
	ErrDecode = errors.New("cannot decode image")
)

// CheckUpload validates name and size of an upload before reading it.
func CheckUpload(filename string, size int64) error {
	if size > MaxUploadSize {
		return ErrTooLarge
	}
	if !allowedName.MatchString(filename) {
		return ErrUnsupportedType
	}
	return nil
}

// Normalize decodes a PNG or JPEG, scales it to Size x Size and encodes it
// as PNG. At most MaxUploadSize bytes are read from r.
func Normalize(r io.Reader) ([]byte, error) {
	limited := io.LimitReader(r, MaxUploadSize+1)

	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return buf.Bytes(), nil
}
