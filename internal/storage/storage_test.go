package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"purpaws/internal/config"
	"purpaws/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateKey(t *testing.T) {
	t.Parallel()
	valid := []string{
		"pet_images/abc.png",
		"adoption_images/0b6f.jpg",
		"profile_pics/x.webp",
	}
	for _, key := range valid {
		assert.NoError(t, ValidateKey(key), key)
	}
	invalid := []string{
		"",
		"abc.png",
		"pet_images/",
		"pet_images/../secret",
		"../pet_images/a.png",
		"pet_images/sub/a.png",
		"pet_images/.hidden",
		"other/a.png",
		"pet_images\\a.png",
		"/pet_images/a.png",
	}
	for _, key := range invalid {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestNewKey(t *testing.T) {
	t.Parallel()
	key, err := NewKey(PrefixPetImages, ".png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "pet_images/"))
	assert.Equal(t, ".png", Ext(key))
	assert.NoError(t, ValidateKey(key))

	other, err := NewKey(PrefixPetImages, ".png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = NewKey("tmp", ".png")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestContentTypeForKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "image/png", ContentTypeForKey("pet_images/a.png"))
	assert.Equal(t, "image/jpeg", ContentTypeForKey("pet_images/a.jpg"))
	assert.Equal(t, "image/webp", ContentTypeForKey("pet_images/a.webp"))
	assert.Equal(t, "application/octet-stream", ContentTypeForKey("pet_images/a"))
}

func TestReadImage(t *testing.T) {
	t.Parallel()
	img, err := ReadImage("pet_image", bytes.NewReader(pngBytes(t, 8, 6)), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, 8, img.Width)
	assert.Equal(t, 6, img.Height)
	assert.Equal(t, int64(len(img.Data)), img.Size())

	tests := []struct {
		name    string
		data    []byte
		max     int64
		message string
	}{
		{"empty", nil, 1 << 20, "Image is required"},
		{"too large", pngBytes(t, 8, 6), 10, "Image is too large"},
		{"text", []byte("definitely not an image"), 1 << 20, "Upload a valid JPEG, PNG, GIF or WebP image"},
		{"truncated png", pngBytes(t, 8, 6)[:20], 1 << 20, "Upload a valid JPEG, PNG, GIF or WebP image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadImage("pet_image", bytes.NewReader(tt.data), tt.max)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Equal(t, "pet_image", appErr.Field)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestLocalStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	data := pngBytes(t, 4, 4)
	key, err := store.Put(ctx, PrefixPetImages, bytes.NewReader(data), int64(len(data)), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "pet_images/"))
	assert.Equal(t, ".png", Ext(key))

	copied, err := store.Copy(ctx, key, PrefixAdoptionImages)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(copied, "adoption_images/"))
	assert.Equal(t, ".png", Ext(copied))

	// Deleting the source leaves the copy intact.
	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	rc, err := store.Open(ctx, copied)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.NoError(t, store.Delete(ctx, key), "deleting twice is fine")
	_, err = store.Open(ctx, "pet_images/../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Copy(ctx, "pet_images/missing.png", PrefixAdoptionImages)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew(t *testing.T) {
	t.Parallel()
	store, err := New(context.Background(), &config.Config{BlobDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)

	_, err = New(context.Background(), &config.Config{BlobBackend: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.Config{BlobBackend: "s3"})
	assert.Error(t, err, "bucket is required")
}
