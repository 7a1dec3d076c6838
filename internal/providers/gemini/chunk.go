package gemini

import (
	"strings"

	"google.golang.org/genai"
)

// Chunk is one element of a model response stream. A chunk carries either
// image bytes or text; a chunk with neither is empty and carries nothing.
type Chunk struct {
	MIMEType string
	Data     []byte
	Text     string
}

// IsImage reports whether the chunk carries image bytes.
func (c Chunk) IsImage() bool { return len(c.Data) > 0 }

// Empty reports whether the chunk carries nothing.
func (c Chunk) Empty() bool { return !c.IsImage() && c.Text == "" }

// ChunkFrom classifies a streamed response. Only the first candidate is
// considered: inline data on its first part makes an image chunk, otherwise
// the candidate's non-thought text makes a text chunk.
func ChunkFrom(resp *genai.GenerateContentResponse) Chunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return Chunk{}
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Chunk{}
	}
	parts := candidate.Content.Parts
	if first := parts[0]; first != nil && first.InlineData != nil && len(first.InlineData.Data) > 0 {
		return Chunk{MIMEType: first.InlineData.MIMEType, Data: first.InlineData.Data}
	}
	var text strings.Builder
	for _, part := range parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	return Chunk{Text: text.String()}
}
