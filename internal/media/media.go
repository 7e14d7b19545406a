// Package media inspects and normalises uploaded image payloads.
package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// Info describes a sniffed payload.
type Info struct {
	ContentType string
	Ext         string
}

// ErrNotImage is returned when the payload is not an image.
var ErrNotImage = fmt.Errorf("file is not an image")

// Inspect detects the content type from the payload bytes, ignoring whatever
// the client claimed. filename is only a fallback for the extension.
func Inspect(data []byte, filename string) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrNotImage
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Info{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	ctype, _, _ := strings.Cut(mt.String(), ";")
	return Info{ContentType: ctype, Ext: ext}, nil
}

var formats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/tiff": imaging.TIFF,
	"image/bmp":  imaging.BMP,
}

// Fit shrinks the image so neither side exceeds maxDim, keeping its aspect
// ratio and format. Images that already fit, formats imaging cannot encode,
// and maxDim <= 0 return data unchanged.
func Fit(data []byte, info Info, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		return data, nil
	}
	format, ok := formats[info.ContentType]
	if !ok {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
