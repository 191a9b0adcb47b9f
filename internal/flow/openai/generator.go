// Package openai answers flow requests with OpenAI chat completions using
// structured (json_schema) output.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/smallbiznis/invoicer/internal/flow"
)

const DefaultBaseURL = "https://api.openai.com/v1/"

var (
	ErrMissingAPIKey = errors.New("missing_api_key")
	ErrMissingModel  = errors.New("missing_model")
	ErrEmptyResponse = errors.New("empty_completion")
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

type Generator struct {
	client sdk.Client
	model  string
}

func New(cfg Config) (*Generator, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, ErrMissingModel
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	client := sdk.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(cfg.HTTPClient),
		// Flows are retried by callers, never here.
		option.WithMaxRetries(0),
	)
	return &Generator{client: client, model: cfg.Model}, nil
}

func (g *Generator) Generate(ctx context.Context, req flow.Request) (flow.Response, error) {
	params, err := g.params(req)
	if err != nil {
		return flow.Response{}, err
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return flow.Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return flow.Response{}, ErrEmptyResponse
	}

	choice := completion.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return flow.Response{}, fmt.Errorf("model refused: %s", refusal)
	}
	if choice.FinishReason == "length" {
		return flow.Response{}, errors.New("completion truncated")
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return flow.Response{}, ErrEmptyResponse
	}

	return flow.Response{
		Output: json.RawMessage(content),
		Model:  completion.Model,
	}, nil
}

func (g *Generator) params(req flow.Request) (sdk.ChatCompletionNewParams, error) {
	parts := []sdk.ChatCompletionContentPartUnionParam{sdk.TextContentPart(req.Prompt)}
	for _, m := range req.Media {
		if strings.TrimSpace(m.URL) == "" {
			continue
		}
		parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL: m.URL,
		}))
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(g.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(parts)},
	}
	if req.Schema == nil {
		return params, nil
	}

	raw, err := json.Marshal(req.Schema)
	if err != nil {
		return params, fmt.Errorf("encode output schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return params, fmt.Errorf("encode output schema: %w", err)
	}

	params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{
			JSONSchema: sdk.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName(req),
				Schema: schema,
				Strict: sdk.Bool(true),
			},
		},
	}
	return params, nil
}

// schemaName keeps the characters the API accepts in a schema name.
func schemaName(req flow.Request) string {
	name := req.SchemaName
	if name == "" {
		name = req.Flow
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "output"
	}
	return b.String()
}
