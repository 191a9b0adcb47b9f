package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/flow"
	"github.com/smallbiznis/invoicer/internal/ocr/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

func pngURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func newService(t *testing.T, gen flow.Generator) domain.Service {
	t.Helper()
	svc, err := New(Params{
		Log:       zap.NewNop(),
		Config:    config.Config{AI: config.AIConfig{Timeout: time.Second}},
		Generator: gen,
	})
	require.NoError(t, err)
	return svc
}

func TestExtractSendsImage(t *testing.T) {
	var got flow.Request
	gen := flow.GeneratorFunc(func(_ context.Context, req flow.Request) (flow.Response, error) {
		got = req
		return flow.Response{Output: json.RawMessage(`{"extractedText":"ACME Ltd\nTotal 12.00"}`)}, nil
	})

	out, err := newService(t, gen).Extract(context.Background(), domain.Input{ImageDataURI: pngURI()})
	require.NoError(t, err)
	assert.Equal(t, "ACME Ltd\nTotal 12.00", out.ExtractedText)

	assert.Equal(t, flowName, got.Flow)
	require.Len(t, got.Media, 1)
	assert.Equal(t, pngURI(), got.Media[0].URL)
}

func TestExtractAllowsEmptyText(t *testing.T) {
	out, err := newService(t, flow.Static(domain.Output{})).Extract(context.Background(), domain.Input{ImageDataURI: pngURI()})
	require.NoError(t, err)
	assert.Empty(t, out.ExtractedText)
}

func TestExtractRejectsBadImages(t *testing.T) {
	called := false
	gen := flow.GeneratorFunc(func(context.Context, flow.Request) (flow.Response, error) {
		called = true
		return flow.Response{}, nil
	})
	svc := newService(t, gen)

	text := base64.StdEncoding.EncodeToString([]byte("just some text"))
	cases := map[string]string{
		"empty":           "",
		"not a data uri":  "https://example.com/receipt.png",
		"no payload":      "data:image/png;base64",
		"not an image":    "data:text/plain;base64," + text,
		"not base64":      "data:image/png,raw",
		"corrupt payload": "data:image/png;base64,@@@",
		"lying type":      "data:image/png;base64," + text,
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Extract(context.Background(), domain.Input{ImageDataURI: uri})
			assert.ErrorIs(t, err, domain.ErrInvalidImage)
		})
	}
	assert.False(t, called)
}

func TestExtractGenerationFailure(t *testing.T) {
	out, err := newService(t, flow.Unavailable("offline")).Extract(context.Background(), domain.Input{ImageDataURI: pngURI()})
	assert.ErrorIs(t, err, flow.ErrGenerationFailed)
	assert.Empty(t, out.ExtractedText)
}

func TestExtractUpload(t *testing.T) {
	var got flow.Request
	gen := flow.GeneratorFunc(func(_ context.Context, req flow.Request) (flow.Response, error) {
		got = req
		return flow.Response{Output: json.RawMessage(`{"extractedText":"ok"}`)}, nil
	})
	svc := newService(t, gen)

	out, err := svc.ExtractUpload(context.Background(), bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "ok", out.ExtractedText)
	require.Len(t, got.Media, 1)
	assert.True(t, strings.HasPrefix(got.Media[0].URL, "data:image/png;base64,"))

	_, err = svc.ExtractUpload(context.Background(), strings.NewReader("%PDF-1.7 not an image"))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	_, err = svc.ExtractUpload(context.Background(), bytes.NewReader(make([]byte, domain.MaxImageBytes+1)))
	assert.ErrorIs(t, err, domain.ErrImageTooLarge)
}
