// Package flow runs schema-checked prompts against a text generation
// backend.
//
// A flow validates its typed input, renders a fixed prompt template, asks
// the Generator for JSON matching the schema of its output type, and
// validates the answer before decoding it. Every backend or output problem
// surfaces as ErrGenerationFailed; nothing is returned on failure.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrGenerationFailed = errors.New("generation_failed")
	ErrInvalidInput     = errors.New("invalid_flow_input")
	ErrInvalidFlow      = errors.New("invalid_flow_definition")

	ErrGeneratorUnavailable = errors.New("generator_unavailable")
)

// Media is an attachment sent with the prompt, addressed by URL or data URI.
type Media struct {
	URL string
}

type Request struct {
	Flow       string
	Prompt     string
	Media      []Media
	SchemaName string
	Schema     *jsonschema.Schema
}

type Response struct {
	Output json.RawMessage
	Model  string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Static answers every request with output encoded as JSON.
func Static(output any) Generator {
	return GeneratorFunc(func(ctx context.Context, _ Request) (Response, error) {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		raw, err := json.Marshal(output)
		if err != nil {
			return Response{}, err
		}
		return Response{Output: raw, Model: "static"}, nil
	})
}

// Unavailable fails every request. It stands in when no backend is
// configured so flows still resolve and fail as generation errors.
func Unavailable(reason string) Generator {
	return GeneratorFunc(func(context.Context, Request) (Response, error) {
		return Response{}, fmt.Errorf("%w: %s", ErrGeneratorUnavailable, reason)
	})
}

// Definition describes a flow. Prompt is a text/template executed with the
// input value.
type Definition[In, Out any] struct {
	Name    string
	Prompt  string
	Media   func(In) []Media
	Timeout time.Duration
	// Check rejects decoded output that matches the schema but is unusable.
	Check func(Out) error
}

type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type Flow[In, Out any] struct {
	def      Definition[In, Out]
	gen      Generator
	tmpl     *template.Template
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
	validate *validator.Validate
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// Define compiles the prompt and the output schema once.
func Define[In, Out any](gen Generator, def Definition[In, Out], opts ...Option) (*Flow[In, Out], error) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidFlow)
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: %s has no generator", ErrInvalidFlow, def.Name)
	}

	tmpl, err := template.New(def.Name).Option("missingkey=error").Parse(def.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s prompt: %w", ErrInvalidFlow, def.Name, err)
	}
	schema, err := jsonschema.For[Out](nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s output schema: %w", ErrInvalidFlow, def.Name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s output schema: %w", ErrInvalidFlow, def.Name, err)
	}

	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Flow[In, Out]{
		def:      def,
		gen:      gen,
		tmpl:     tmpl,
		schema:   schema,
		resolved: resolved,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      o.log.Named("flow").With(zap.String("flow", def.Name)),
		metrics:  o.metrics,
	}, nil
}

func (f *Flow[In, Out]) Name() string { return f.def.Name }

// OutputSchema is the JSON schema the generator must satisfy.
func (f *Flow[In, Out]) OutputSchema() *jsonschema.Schema { return f.schema }

func (f *Flow[In, Out]) Run(ctx context.Context, in In) (out Out, err error) {
	if err := f.validate.Struct(in); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var prompt bytes.Buffer
	if err := f.tmpl.Execute(&prompt, in); err != nil {
		return out, fmt.Errorf("%w: render prompt: %w", ErrInvalidInput, err)
	}

	ctx = obscontext.WithFlow(ctx, f.def.Name)
	if f.def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.def.Timeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer("flow").Start(ctx, "flow."+f.def.Name)
	start := time.Now()
	defer func() {
		f.metrics.RecordFlow(ctx, f.def.Name, time.Since(start), err)
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "generation failed")
		}
		span.End()
	}()

	req := Request{
		Flow:       f.def.Name,
		Prompt:     prompt.String(),
		SchemaName: f.def.Name,
		Schema:     f.schema,
	}
	if f.def.Media != nil {
		req.Media = f.def.Media(in)
	}
	span.SetAttributes(attribute.Int("flow.media_count", len(req.Media)))

	resp, err := f.gen.Generate(ctx, req)
	if err != nil {
		f.log.Warn("generator failed", zap.Error(err))
		return out, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if resp.Model != "" {
		span.SetAttributes(attribute.String("flow.model", resp.Model))
	}

	out, err = f.decode(resp.Output)
	if err != nil {
		f.log.Warn("unusable generator output", zap.Error(err))
		var zero Out
		return zero, err
	}
	return out, nil
}

func (f *Flow[In, Out]) decode(raw json.RawMessage) (Out, error) {
	var out Out
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, fmt.Errorf("%w: empty output", ErrGenerationFailed)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return out, fmt.Errorf("%w: output is not json: %w", ErrGenerationFailed, err)
	}
	if instance == nil {
		return out, fmt.Errorf("%w: empty output", ErrGenerationFailed)
	}
	if err := f.resolved.Validate(instance); err != nil {
		return out, fmt.Errorf("%w: output schema: %w", ErrGenerationFailed, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode output: %w", ErrGenerationFailed, err)
	}
	if f.def.Check != nil {
		if err := f.def.Check(out); err != nil {
			return out, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
	}
	return out, nil
}
