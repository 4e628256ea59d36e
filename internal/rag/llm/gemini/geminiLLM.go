package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/rag/llm"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	prompt    string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName, prompt: geminiClient.prompt}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
	}
	if c != nil {
		geminiClient = &llmClient{client: c, modelName: modelName, prompt: config.AnswerSystemPrompt}
		logger.Info("Gemini client created", "model", modelName)
		go closeClient(ctx, geminiClient)
	}
}

func (c *llmClient) Generate(ctx context.Context, question string, contextBlock string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: c.prompt},
		},
	}
	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser Question: %s", contextBlock, question)

	temperature := config.ModelTemperature
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temperature,
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(userPrompt),
		contentConfig,
	)
	if err != nil {
		log.Error("Gemini generation failed", "error", err.Error())
		return "", err
	}
	if result == nil {
		return "", errors.New("empty generation response")
	}
	return result.Text(), nil
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
	llm.modelName = ""
	llm.prompt = ""
}
