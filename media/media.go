package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrInvalidImage    = errors.New("file is not a supported image")
	ErrUploadsDisabled = errors.New("media uploads are disabled")
	ErrNoURL           = errors.New("media host returned no url")
)

// Uploader stores a file on a media host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder, name string) (string, error)
}

// Images normalises uploaded images and hands them to an Uploader.
type Images struct {
	uploader     Uploader
	maxDimension int
}

func NewImages(uploader Uploader, maxDimension int) *Images {
	return &Images{uploader: uploader, maxDimension: maxDimension}
}

// UploadImage re-encodes file as a JPEG no larger than the configured
// dimension and uploads it into folder.
func (i *Images) UploadImage(ctx context.Context, file io.Reader, folder string) (string, error) {
	data, err := Prepare(file, i.maxDimension)
	if err != nil {
		return "", err
	}

	url, err := i.uploader.Upload(ctx, bytes.NewReader(data), folder, uuid.New().String())
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", ErrNoURL
	}
	return url, nil
}

// Prepare decodes an image honouring its EXIF orientation, shrinks it to fit
// in maxDimension x maxDimension and encodes it as JPEG.
func Prepare(file io.Reader, maxDimension int) ([]byte, error) {
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if maxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > maxDimension || b.Dy() > maxDimension {
			img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DisabledUploader rejects every upload.
type DisabledUploader struct{}

func (DisabledUploader) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrUploadsDisabled
}
