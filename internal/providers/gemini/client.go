// Package gemini adapts the Gemini streaming API to the chunk stream consumed
// by the job service.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"imagestudio/internal/infra"
	"imagestudio/internal/media"
)

// ErrMissingAPIKey is returned when no API key is configured or stored.
var ErrMissingAPIKey = errors.New("gemini api key is not configured")

const defaultModel = "gemini-2.5-flash-image"

// KeySource supplies a stored API key. It returns "" when none is stored.
type KeySource interface {
	GeminiAPIKey(ctx context.Context) (string, error)
}

// Options controls how generators are built.
type Options struct {
	APIKey     string
	Model      string
	ImageSize  string
	Keys       KeySource
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Generator streams a model response for one prompt.
type Generator interface {
	Stream(ctx context.Context, prompt string, inputs []media.Payload) iter.Seq2[Chunk, error]
}

// Factory builds a Generator per request so that key rotation in the
// credential store takes effect without a restart.
type Factory struct {
	apiKey     string
	model      string
	imageSize  string
	keys       KeySource
	httpClient *http.Client
	logger     *infra.Logger
}

func NewFactory(opts Options) *Factory {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &Factory{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		imageSize:  strings.TrimSpace(opts.ImageSize),
		keys:       opts.Keys,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// APIKey resolves the key from configuration first, then the credential
// store.
func (f *Factory) APIKey(ctx context.Context) (string, error) {
	if f.apiKey != "" {
		return f.apiKey, nil
	}
	if f.keys != nil {
		key, err := f.keys.GeminiAPIKey(ctx)
		if err != nil {
			return "", fmt.Errorf("load stored api key: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}

// NewGenerator returns a Generator bound to the current API key.
func (f *Factory) NewGenerator(ctx context.Context) (Generator, error) {
	key, err := f.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: f.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if f.logger != nil {
		f.logger.Debug().Str("model", f.model).Msg("gemini client ready")
	}
	return &modelGenerator{models: client.Models, model: f.model, imageSize: f.imageSize}, nil
}

type modelGenerator struct {
	models    *genai.Models
	model     string
	imageSize string
}

func (g *modelGenerator) Stream(ctx context.Context, prompt string, inputs []media.Payload) iter.Seq2[Chunk, error] {
	contents := buildContents(prompt, inputs)
	config := buildConfig(g.imageSize)
	return func(yield func(Chunk, error) bool) {
		for resp, err := range g.models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			if !yield(ChunkFrom(resp), nil) {
				return
			}
		}
	}
}

func buildContents(prompt string, inputs []media.Payload) []*genai.Content {
	parts := make([]*genai.Part, 0, len(inputs)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, in := range inputs {
		mimeType := in.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: in.Data}})
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(imageSize string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if imageSize != "" {
		config.ImageConfig = &genai.ImageConfig{ImageSize: imageSize}
	}
	return config
}
