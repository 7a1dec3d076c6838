package jobs

import (
	"context"
	"strings"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/media"
	"imagestudio/internal/providers/gemini"
)

// OutputImage is a generated image in arrival order.
type OutputImage struct {
	Asset   domain.ImageAsset
	DataURL string
}

// StreamResult holds what a stream produced, possibly partial.
type StreamResult struct {
	Outputs []OutputImage
	Text    string
}

// PersistFunc durably stores one generated image and records it.
type PersistFunc func(ctx context.Context, img media.Payload) (domain.ImageAsset, error)

// Consumer drains a generator stream, persisting images as they arrive and
// buffering text.
type Consumer struct {
	logger infra.Logger
}

func NewConsumer(logger infra.Logger) *Consumer {
	return &Consumer{logger: logger}
}

// Run consumes the stream. Each image chunk is persisted before the next
// chunk is read. On a stream error the partial result is returned together
// with an ErrGeneration error; on a persist error the stream is abandoned
// and the persist error is returned.
func (c *Consumer) Run(ctx context.Context, gen gemini.Generator, prompt string, inputs []media.Payload, persist PersistFunc) (StreamResult, error) {
	var (
		result StreamResult
		text   strings.Builder
		chunks int
	)
	for chunk, err := range gen.Stream(ctx, prompt, inputs) {
		if err != nil {
			result.Text = text.String()
			c.logger.Warn().Err(err).Int("chunks", chunks).Int("outputs", len(result.Outputs)).Msg("generation stream failed")
			return result, domain.Wrap(domain.ErrGeneration, err)
		}
		chunks++
		switch {
		case chunk.IsImage():
			img := media.Payload{MIMEType: chunk.MIMEType, Data: chunk.Data}
			asset, err := persist(ctx, img)
			if err != nil {
				result.Text = text.String()
				return result, err
			}
			result.Outputs = append(result.Outputs, OutputImage{Asset: asset, DataURL: media.Encode(img)})
		case chunk.Text != "":
			text.WriteString(chunk.Text)
		}
	}
	result.Text = text.String()
	c.logger.Debug().Int("chunks", chunks).Int("outputs", len(result.Outputs)).Msg("generation stream finished")
	return result, nil
}
