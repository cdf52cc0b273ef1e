package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"novelchat/apperrors"
	"novelchat/pkg/metrics"
	"novelchat/pkg/wire"

	"github.com/valyala/fasthttp"
)

const (
	uploadImagePath = "/files/upload/chat-images"
	uploadFilePath  = "/files/upload/chat-files"
)

// UploadImage stores a chat image and returns where it can be fetched.
func (c *Client) UploadImage(ctx context.Context, name, contentType string, data []byte) (*FileUploadResult, error) {
	return c.upload(ctx, uploadImagePath, "image", name, contentType, data)
}

// UploadFile stores a chat attachment of any type.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, data []byte) (*FileUploadResult, error) {
	return c.upload(ctx, uploadFilePath, "file", name, contentType, data)
}

func (c *Client) upload(ctx context.Context, path, kind, name, contentType string, data []byte) (*FileUploadResult, error) {
	body, boundary, err := multipartBody(name, contentType, data)
	if err != nil {
		metrics.RecordUpload(kind, false)
		return nil, apperrors.NewFileUploadError(name, "could not build request", err)
	}

	var result FileUploadResult
	err = c.do(ctx, request{
		method:      fasthttp.MethodPost,
		path:        path,
		body:        body,
		contentType: "multipart/form-data; boundary=" + boundary,
	}, &result)
	metrics.RecordUpload(kind, err == nil)
	if err != nil {
		return nil, err
	}

	if result.FileURL == "" {
		return nil, apperrors.NewFileUploadError(name, "backend returned no file URL", nil)
	}
	if result.FileName == "" {
		result.FileName = name
	}
	if result.FileSize == 0 {
		result.FileSize = wire.Size(len(data))
	}
	return &result, nil
}

// multipartBody encodes data as the "file" part of a form.
func multipartBody(name, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.Boundary(), nil
}
