// Package receipt validates and shrinks captured receipt images before they
// are queued or sent for analysis.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"walleet/internal/core"
)

var (
	ErrTooLarge = errors.New("image exceeds the maximum size")
	ErrNotImage = errors.New("payload is not an image")
)

type Options struct {
	MaxBytes     int
	MaxDimension int
	JPEGQuality  int
}

func DefaultOptions() Options {
	return Options{MaxBytes: 10 << 20, MaxDimension: 2048, JPEGQuality: 85}
}

// Image is a payload ready to be stored or analyzed.
type Image struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Resized  bool
}

// Prepare checks the payload, resolves its content type from the bytes and
// downscales images whose longest side exceeds MaxDimension, re-encoding
// them as JPEG. Formats that cannot be decoded are passed through as-is.
func Prepare(data []byte, declared string, opts Options) (Image, error) {
	if len(data) == 0 {
		return Image{}, core.ErrEmptyImage
	}
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return Image{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), opts.MaxBytes)
	}

	mime := detect(data, declared)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	out := Image{Data: data, MimeType: mime}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// HEIC, WebP and friends: keep the original bytes.
		return out, nil
	}
	out.Width, out.Height = cfg.Width, cfg.Height

	if opts.MaxDimension <= 0 || max(cfg.Width, cfg.Height) <= opts.MaxDimension {
		return out, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	fitted := imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Image{}, fmt.Errorf("encode image: %w", err)
	}

	b := fitted.Bounds()
	return Image{
		Data:     buf.Bytes(),
		MimeType: "image/jpeg",
		Width:    b.Dx(),
		Height:   b.Dy(),
		Resized:  true,
	}, nil
}

// detect trusts the payload over the declared type.
func detect(data []byte, declared string) string {
	m := mimetype.Detect(data)
	if m.Is("application/octet-stream") {
		if declared != "" {
			return strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
		}
		return "application/octet-stream"
	}
	return strings.SplitN(m.String(), ";", 2)[0]
}
