package uploads

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"novelchat/apperrors"
	"novelchat/config"
	"novelchat/pkg/logger"
	"novelchat/pkg/wire"
	"novelchat/services/api"
)

// Backend stores attachment bytes and returns where they live.
type Backend interface {
	UploadImage(ctx context.Context, name, contentType string, data []byte) (*api.FileUploadResult, error)
	UploadFile(ctx context.Context, name, contentType string, data []byte) (*api.FileUploadResult, error)
}

// Attachment is an uploaded file ready to be sent as an IMAGE or FILE message.
type Attachment struct {
	Kind        wire.Kind
	URL         string
	Name        string
	Size        wire.Size
	ContentType string
}

type Uploader struct {
	backend   Backend
	validator *Validator
	log       *logger.Logger
}

func NewUploader(backend Backend, cfg config.UploadConfig) *Uploader {
	return &Uploader{
		backend:   backend,
		validator: NewValidator(cfg),
		log:       logger.WithComponent("uploads"),
	}
}

func (u *Uploader) Validator() *Validator {
	return u.validator
}

// PrepareImage validates and uploads the image at path.
func (u *Uploader) PrepareImage(ctx context.Context, path string) (Attachment, error) {
	name := SanitizeFilename(path)
	data, err := readLimited(path, u.validator.maxImageSize)
	if err != nil {
		return Attachment{}, err
	}

	contentType := contentTypeOf(name, data)
	info, err := u.validator.ValidateImage(name, contentType, data)
	if err != nil {
		return Attachment{}, err
	}

	res, err := u.backend.UploadImage(ctx, name, info.DeclaredMIME, data)
	if err != nil {
		return Attachment{}, err
	}

	u.log.WithFields(map[string]any{
		"file": name,
		"info": info.String(),
		"url":  res.FileURL,
	}).Info("Image uploaded")

	return attachment(wire.KindImage, name, info.DeclaredMIME, res), nil
}

// PrepareFile validates and uploads any file at path.
func (u *Uploader) PrepareFile(ctx context.Context, path string) (Attachment, error) {
	name := SanitizeFilename(path)

	st, err := os.Stat(path)
	if err != nil {
		return Attachment{}, apperrors.NewFileUploadError(name, "cannot read file", err)
	}
	if err := u.validator.ValidateFile(name, st.Size()); err != nil {
		return Attachment{}, err
	}

	data, err := readLimited(path, u.validator.maxFileSize)
	if err != nil {
		return Attachment{}, err
	}

	contentType := contentTypeOf(name, data)
	res, err := u.backend.UploadFile(ctx, name, contentType, data)
	if err != nil {
		return Attachment{}, err
	}

	u.log.WithFields(map[string]any{
		"file": name,
		"size": len(data),
		"url":  res.FileURL,
	}).Info("File uploaded")

	return attachment(wire.KindFile, name, contentType, res), nil
}

func attachment(kind wire.Kind, name, contentType string, res *api.FileUploadResult) Attachment {
	a := Attachment{
		Kind:        kind,
		URL:         res.FileURL,
		Name:        res.FileName,
		Size:        res.FileSize,
		ContentType: contentType,
	}
	if a.Name == "" {
		a.Name = name
	}
	return a
}

func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewFileUploadError(filepath.Base(path), "cannot open file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, apperrors.NewFileUploadError(filepath.Base(path), "cannot read file", err)
	}
	if int64(len(data)) > max {
		return nil, apperrors.NewFileTooLarge(max)
	}
	return data, nil
}

// contentTypeOf prefers the extension and falls back to sniffing.
func contentTypeOf(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return normalizeMIME(ct)
	}
	return normalizeMIME(http.DetectContentType(data))
}
