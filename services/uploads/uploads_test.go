package uploads

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"novelchat/apperrors"
	"novelchat/config"
	"novelchat/pkg/wire"
	"novelchat/services/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	v := NewValidator(config.Default().Upload)

	info, err := v.ValidateImage("cat.png", "image/png", pngBytes(t, 20, 10))
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 20, info.Width)
	assert.Equal(t, 10, info.Height)
	assert.Equal(t, "image/png", info.DetectedMIME)
}

func TestValidateImageRejects(t *testing.T) {
	data := pngBytes(t, 4, 4)

	tests := []struct {
		name     string
		file     string
		declared string
		data     []byte
		code     apperrors.ErrorCode
	}{
		{"empty", "a.png", "image/png", nil, apperrors.ErrCodeValidationFailed},
		{"mime not allowed", "a.png", "application/pdf", data, apperrors.ErrCodeInvalidFileType},
		{"extension not allowed", "a.txt", "image/png", data, apperrors.ErrCodeInvalidFileType},
		{"path traversal", "../a.png", "image/png", data, apperrors.ErrCodeInvalidFilename},
		{"magic mismatch", "a.jpg", "image/jpeg", data, apperrors.ErrCodeValidationFailed},
		{"not an image", "a.png", "image/png", []byte("\x89PNG\r\n\x1a\ngarbage"), apperrors.ErrCodeValidationFailed},
		{"extension lies about format", "a.gif", "image/png", data, apperrors.ErrCodeValidationFailed},
		{"too wide", "a.png", "image/png", pngBytes(t, MaxImageDimension+1, 1), apperrors.ErrCodeValidationFailed},
	}

	v := NewValidator(config.Default().Upload)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateImage(tt.file, tt.declared, tt.data)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestValidateImageSizeCap(t *testing.T) {
	cfg := config.Default().Upload
	cfg.MaxImageSize = 16
	v := NewValidator(cfg)

	_, err := v.ValidateImage("a.png", "image/png", pngBytes(t, 4, 4))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileTooLarge))
}

func TestValidateMagicBytesWebP(t *testing.T) {
	good := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	bad := []byte("RIFF\x00\x00\x00\x00WAVEfmt ")

	assert.True(t, validateMagicBytes(good, "image/webp"))
	assert.False(t, validateMagicBytes(bad, "image/webp"))
	assert.False(t, validateMagicBytes([]byte("RIFF"), "image/webp"))
	assert.False(t, validateMagicBytes(good, "image/bmp"))
}

func TestValidateFile(t *testing.T) {
	cfg := config.Default().Upload
	cfg.MaxFileSize = 100
	v := NewValidator(cfg)

	assert.NoError(t, v.ValidateFile("report.pdf", 100))
	assert.True(t, apperrors.HasCode(v.ValidateFile("report.pdf", 101), apperrors.ErrCodeFileTooLarge))
	assert.True(t, apperrors.HasCode(v.ValidateFile("report.pdf", 0), apperrors.ErrCodeValidationFailed))
	assert.True(t, apperrors.HasCode(v.ValidateFile("a\\b.pdf", 10), apperrors.ErrCodeInvalidFilename))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("/tmp/../etc/passwd"))
	assert.Equal(t, "ab.txt", SanitizeFilename("a..b.txt"))
	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
}

type fakeBackend struct {
	calls       int
	contentType string
	data        []byte
	err         error
}

func (f *fakeBackend) UploadImage(_ context.Context, name, contentType string, data []byte) (*api.FileUploadResult, error) {
	return f.store("/img/", name, contentType, data)
}

func (f *fakeBackend) UploadFile(_ context.Context, name, contentType string, data []byte) (*api.FileUploadResult, error) {
	return f.store("/files/", name, contentType, data)
}

func (f *fakeBackend) store(prefix, name, contentType string, data []byte) (*api.FileUploadResult, error) {
	f.calls++
	f.contentType = contentType
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return &api.FileUploadResult{
		FileName: name,
		FileURL:  "http://files.local" + prefix + name,
		FileSize: wire.Size(len(data)),
	}, nil
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestPrepareImage(t *testing.T) {
	data := pngBytes(t, 8, 8)
	path := writeTemp(t, "pic.png", data)
	backend := &fakeBackend{}

	att, err := NewUploader(backend, config.Default().Upload).PrepareImage(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, wire.KindImage, att.Kind)
	assert.Equal(t, "http://files.local/img/pic.png", att.URL)
	assert.Equal(t, "pic.png", att.Name)
	assert.Equal(t, wire.Size(len(data)), att.Size)
	assert.Equal(t, "image/png", backend.contentType)
	assert.Equal(t, data, backend.data)
}

func TestPrepareImageInvalidSkipsUpload(t *testing.T) {
	path := writeTemp(t, "fake.png", []byte("not really a png"))
	backend := &fakeBackend{}

	_, err := NewUploader(backend, config.Default().Upload).PrepareImage(context.Background(), path)
	require.Error(t, err)
	assert.Zero(t, backend.calls)
}

func TestPrepareFile(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("hello"))
	backend := &fakeBackend{}

	att, err := NewUploader(backend, config.Default().Upload).PrepareFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, wire.KindFile, att.Kind)
	assert.Equal(t, "notes.txt", att.Name)
	assert.Equal(t, wire.Size(5), att.Size)
	assert.Equal(t, "text/plain", att.ContentType)
}

func TestPrepareFileErrors(t *testing.T) {
	u := NewUploader(&fakeBackend{}, config.Default().Upload)

	_, err := u.PrepareFile(context.Background(), filepath.Join(t.TempDir(), "missing.bin"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUploadFailed))

	empty := writeTemp(t, "empty.bin", nil)
	_, err = u.PrepareFile(context.Background(), empty)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))

	boom := errors.New("backend down")
	u = NewUploader(&fakeBackend{err: boom}, config.Default().Upload)
	_, err = u.PrepareFile(context.Background(), writeTemp(t, "a.bin", []byte{1, 2, 3}))
	assert.ErrorIs(t, err, boom)
}
