package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/flow"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/ocr/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const flowName = "extractInvoiceData"

const prompt = `You are an optical character recognition service.
Extract all visible text from the attached image.
Reproduce the text as accurately as possible, keeping its layout. Do not summarize or interpret it.`

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Generator flow.Generator
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log  *zap.Logger
	flow *flow.Flow[domain.Input, domain.Output]
}

func New(p Params) (domain.Service, error) {
	log := p.Log.Named("ocr.service")

	f, err := flow.Define(p.Generator, flow.Definition[domain.Input, domain.Output]{
		Name:    flowName,
		Prompt:  prompt,
		Timeout: p.Config.AI.Timeout,
		Media: func(in domain.Input) []flow.Media {
			return []flow.Media{{URL: in.ImageDataURI}}
		},
	}, flow.WithLogger(log), flow.WithMetrics(p.Metrics))
	if err != nil {
		return nil, err
	}
	return &Service{log: log, flow: f}, nil
}

// Extract returns the text found in the image. An image without text
// yields an empty ExtractedText rather than an error.
func (s *Service) Extract(ctx context.Context, in domain.Input) (domain.Output, error) {
	in.ImageDataURI = strings.TrimSpace(in.ImageDataURI)
	if err := checkDataURI(in.ImageDataURI); err != nil {
		return domain.Output{}, err
	}
	return s.flow.Run(ctx, in)
}

func (s *Service) ExtractUpload(ctx context.Context, r io.Reader) (domain.Output, error) {
	data, err := io.ReadAll(io.LimitReader(r, domain.MaxImageBytes+1))
	if err != nil {
		return domain.Output{}, fmt.Errorf("%w: read upload: %w", domain.ErrInvalidImage, err)
	}
	uri, err := DataURI(data)
	if err != nil {
		return domain.Output{}, err
	}
	return s.Extract(ctx, domain.Input{ImageDataURI: uri})
}

// DataURI encodes raw image bytes with their sniffed MIME type.
func DataURI(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", domain.ErrInvalidImage)
	}
	if len(data) > domain.MaxImageBytes {
		return "", domain.ErrImageTooLarge
	}
	mime := mimetype.Detect(data)
	if !isImage(mime) {
		return "", fmt.Errorf("%w: unsupported content type %s", domain.ErrInvalidImage, mime.String())
	}
	return "data:" + baseType(mime.String()) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// checkDataURI accepts data:<image type>[;params];base64,<payload> where the
// payload decodes and its content is an image.
func checkDataURI(uri string) error {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return fmt.Errorf("%w: not a data uri", domain.ErrInvalidImage)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return fmt.Errorf("%w: data uri has no payload", domain.ErrInvalidImage)
	}

	params := strings.Split(header, ";")
	declared := strings.ToLower(strings.TrimSpace(params[0]))
	if !strings.HasPrefix(declared, "image/") {
		return fmt.Errorf("%w: declared type %q is not an image", domain.ErrInvalidImage, declared)
	}
	if !strings.EqualFold(params[len(params)-1], "base64") {
		return fmt.Errorf("%w: data uri must be base64 encoded", domain.ErrInvalidImage)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > domain.MaxImageBytes+3 {
		return domain.ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: payload: %w", domain.ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", domain.ErrInvalidImage)
	}
	if mime := mimetype.Detect(data); !isImage(mime) {
		return fmt.Errorf("%w: payload is %s", domain.ErrInvalidImage, mime.String())
	}
	return nil
}

func isImage(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func baseType(mime string) string {
	t, _, _ := strings.Cut(mime, ";")
	return t
}
