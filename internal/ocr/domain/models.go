package domain

import (
	"context"
	"errors"
	"io"
)

// MaxImageBytes bounds decoded image payloads.
const MaxImageBytes = 10 << 20

type Input struct {
	ImageDataURI string `json:"imageDataUri" validate:"required,datauri" jsonschema:"an image of an invoice or receipt as a base64 data URI"`
}

type Output struct {
	ExtractedText string `json:"extractedText" jsonschema:"the raw text extracted from the image"`
}

type Service interface {
	Extract(ctx context.Context, in Input) (Output, error)
	// ExtractUpload sniffs an uploaded file and runs Extract on it.
	ExtractUpload(ctx context.Context, r io.Reader) (Output, error)
}

var (
	ErrInvalidImage  = errors.New("invalid_image")
	ErrImageTooLarge = errors.New("image_too_large")
)
