package storage

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"

	"purpaws/internal/models"

	_ "golang.org/x/image/webp" // register WebP decoder
)

const maxImageDimension = 10000

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var formatTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Image is an upload that passed ReadImage.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Reader returns a fresh reader over the image bytes.
func (i *Image) Reader() io.Reader { return bytes.NewReader(i.Data) }

// Size is the byte length.
func (i *Image) Size() int64 { return int64(len(i.Data)) }

// ReadImage reads at most maxBytes from r and checks it is a decodable jpeg, png, gif or
// webp image. Failures are validation errors on field.
func ReadImage(field string, r io.Reader, maxBytes int64) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(data) == 0 {
		return nil, models.NewFieldError(field, "Image is required")
	}
	if int64(len(data)) > maxBytes {
		return nil, models.NewFieldError(field, "Image is too large")
	}

	sniffed := http.DetectContentType(data)
	if _, ok := imageTypes[sniffed]; !ok {
		return nil, models.NewFieldError(field, "Upload a valid JPEG, PNG, GIF or WebP image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || formatTypes[format] != sniffed {
		return nil, models.NewFieldError(field, "Upload a valid JPEG, PNG, GIF or WebP image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxImageDimension || cfg.Height > maxImageDimension {
		return nil, models.NewFieldError(field, "Image dimensions are out of range")
	}
	return &Image{Data: data, ContentType: sniffed, Width: cfg.Width, Height: cfg.Height}, nil
}

func extensionFor(contentType string) string {
	if ext, ok := imageTypes[contentType]; ok {
		return ext
	}
	return ".bin"
}

func contentTypeForExt(ext string) string {
	for ct, e := range imageTypes {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

// ContentTypeForKey guesses the MIME type to serve a blob with.
func ContentTypeForKey(key string) string {
	return contentTypeForExt(Ext(key))
}
