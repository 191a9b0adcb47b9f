package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(req *http.Request, status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func completion(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1736845200,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
	})
	return string(raw)
}

type extracted struct {
	ExtractedText string `json:"extractedText"`
}

func TestNewRequiresKeyAndModel(t *testing.T) {
	_, err := New(Config{Model: "gpt-4o-mini"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(Config{APIKey: "sk-1", Model: " "})
	assert.ErrorIs(t, err, ErrMissingModel)
}

func TestGenerateSendsSchemaAndImages(t *testing.T) {
	schema, err := jsonschema.For[extracted](nil)
	require.NoError(t, err)

	var body map[string]any
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk-1", req.Header.Get("Authorization"))
		assert.True(t, strings.HasSuffix(req.URL.Path, "/chat/completions"), req.URL.Path)
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		return response(req, http.StatusOK, completion(`{"extractedText":"Total 12.00"}`)), nil
	})}

	gen, err := New(Config{APIKey: "sk-1", Model: "gpt-4o-mini", BaseURL: "https://llm.test/v1/", HTTPClient: client})
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), flow.Request{
		Flow:       "extractTextFromImage",
		Prompt:     "Extract the text.",
		Media:      []flow.Media{{URL: "data:image/png;base64,iVBORw0KGgo="}},
		SchemaName: "extractTextFromImage",
		Schema:     schema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"extractedText":"Total 12.00"}`, string(resp.Output))
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "extractTextFromImage", format["json_schema"].(map[string]any)["name"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
}

func TestGenerateFailures(t *testing.T) {
	cases := map[string]roundTripFunc{
		"transport": func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial timeout")
		},
		"server error": func(req *http.Request) (*http.Response, error) {
			return response(req, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`), nil
		},
		"no choices": func(req *http.Request) (*http.Response, error) {
			return response(req, http.StatusOK, `{"id":"x","object":"chat.completion","model":"m","choices":[]}`), nil
		},
		"blank content": func(req *http.Request) (*http.Response, error) {
			return response(req, http.StatusOK, completion("  ")), nil
		},
	}

	for name, rt := range cases {
		t.Run(name, func(t *testing.T) {
			gen, err := New(Config{APIKey: "sk-1", Model: "gpt-4o-mini", HTTPClient: &http.Client{Transport: rt}})
			require.NoError(t, err)

			resp, err := gen.Generate(context.Background(), flow.Request{Flow: "f", Prompt: "p"})
			assert.Error(t, err)
			assert.Empty(t, resp.Output)
		})
	}
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "invoice_reminder", schemaName(flow.Request{Flow: "invoice reminder"}))
	assert.Equal(t, "explicit", schemaName(flow.Request{Flow: "f", SchemaName: "explicit"}))
	assert.Equal(t, "output", schemaName(flow.Request{}))
}

func TestNewGeneratorWithoutKeyIsUnavailable(t *testing.T) {
	gen := NewGenerator(config.Config{AI: config.AIConfig{Provider: "openai", Model: "gpt-4o-mini"}}, zap.NewNop())

	_, err := gen.Generate(context.Background(), flow.Request{Flow: "f"})
	assert.ErrorIs(t, err, flow.ErrGeneratorUnavailable)

	gen = NewGenerator(config.Config{AI: config.AIConfig{Provider: "vertex", APIKey: "k", Model: "m"}}, zap.NewNop())
	_, err = gen.Generate(context.Background(), flow.Request{Flow: "f"})
	assert.ErrorIs(t, err, flow.ErrGeneratorUnavailable)
}
