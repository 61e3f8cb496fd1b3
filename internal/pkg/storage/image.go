package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// Thumbnailer renders JPEG previews that fit inside a Width x Height box.
type Thumbnailer struct {
	Width   int
	Height  int
	Quality int
}

// NewThumbnailer returns the preview size used for listing photos.
func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{Width: 400, Height: 300, Quality: 80}
}

// Thumbnail decodes a JPEG, PNG or GIF and returns the encoded preview.
// Images already inside the box are re-encoded without upscaling.
func (t *Thumbnailer) Thumbnail(content io.Reader) ([]byte, error) {
	img, err := imaging.Decode(content, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var thumb image.Image = img
	b := img.Bounds()
	if b.Dx() > t.Width || b.Dy() > t.Height {
		thumb = imaging.Fit(img, t.Width, t.Height, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: t.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
