// Package photo turns a selected image file into the inline data URL stored
// on a moment.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/fiftytwo/internal/apperr"
)

const (
	DefaultMaxBytes     = 10 << 20 // 10 MB
	DefaultMaxDimension = 1600
	jpegQuality         = 85
)

// Options bounds what Encode accepts and produces.
type Options struct {
	MaxBytes     int64
	MaxDimension int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	return o
}

var encodable = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.JPEG,
	"image/bmp":  imaging.JPEG,
	"image/tiff": imaging.JPEG,
}

var ErrNotImage = fmt.Errorf("%w: file is not a supported image", apperr.ErrValidation)

// Encode reads an image, fits it within MaxDimension on both sides, and
// returns it as a base64 data URL. PNGs stay PNG; other formats become JPEG.
func Encode(r io.Reader, opts Options) (string, error) {
	opts = opts.withDefaults()

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return "", fmt.Errorf("%w: photo exceeds %d bytes", apperr.ErrValidation, opts.MaxBytes)
	}

	mt := mimetype.Detect(data)
	format, ok := encodable[mt.String()]
	if !ok {
		return "", ErrNotImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %s", apperr.ErrValidation, mt.String(), err.Error())
	}
	img = fit(img, opts.MaxDimension)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	contentType := "image/jpeg"
	if format == imaging.PNG {
		contentType = "image/png"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// Decode parses a data:<mime>;base64,<payload> URL and checks that the
// payload really is an image.
func Decode(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: photo must be a data URL", apperr.ErrValidation)
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data URL missing comma separator", apperr.ErrValidation)
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: only base64 data URLs are supported", apperr.ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return "", nil, fmt.Errorf("%w: invalid base64 data", apperr.ErrValidation)
		}
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", nil, ErrNotImage
	}
	return mt.String(), data, nil
}

// Validate checks an optional photo; nil and empty mean "no photo".
func Validate(p *string) error {
	if p == nil || *p == "" {
		return nil
	}
	_, _, err := Decode(*p)
	return err
}

// IsNotImage reports whether err means the input was not an image.
func IsNotImage(err error) bool {
	return errors.Is(err, ErrNotImage)
}
