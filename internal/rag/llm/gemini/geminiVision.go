package gemini

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

const visionPrompt = "Transcribe all readable text from this document. " +
	"Preserve item names, prices and section headings as plain text lines. " +
	"Do not summarize, do not add commentary."

// VisionClient reads text out of images and scanned documents. Satisfies the
// extractor's vision collaborator.
type VisionClient struct {
	client    *genai.Client
	modelName string
}

var visionLogger *logger_i.Logger
var visionOnce sync.Once
var vision *VisionClient

func GetGeminiVisionClient(ctx context.Context, modelName string, apikey string) *VisionClient {
	visionOnce.Do(func() {
		visionLogger = logger_i.NewLogger("llm_gemini_vision")
		c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
		if err != nil {
			visionLogger.Error("Error creating Gemini vision client:", "error", err)
			return
		}
		vision = &VisionClient{client: c, modelName: modelName}
		visionLogger.Info("Gemini vision client created", "model", modelName)
	})
	return vision
}

func (v *VisionClient) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	log := visionLogger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "mime", mimeType, "bytes", len(data))

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: visionPrompt},
		},
	}}

	result, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, nil)
	if err != nil {
		log.Error("vision extraction failed", "error", err.Error())
		return "", err
	}
	if result == nil || result.Text() == "" {
		return "", errors.New("vision model returned no text")
	}
	return result.Text(), nil
}
