package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

// ItemGenerator turns extracted source text into structured catalog items.
type ItemGenerator interface {
	GenerateItems(ctx context.Context, kind string, text string) ([]ingestjob.ExtractedItem, error)
}

const generatorSystemPrompt = `You extract catalog items from raw website or document text.
Return ONLY a JSON object of this exact shape, nothing else:
{"items":[{"name":"...","description":"...","price":12.5,"currency":"EUR","category":"..."}]}
Rules:
- one entry per distinct item of the requested kind
- omit "price" and "currency" entirely when no price is visible in the text; NEVER invent one
- "description" and "category" may be empty strings
- do not include items of other kinds`

type generatedItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
}

type generatedResponse struct {
	Items []generatedItem `json:"items"`
}

type openAIGenerator struct {
	client openai.Client
	model  string
	logger *logger_i.Logger
}

var generatorOnce sync.Once
var generatorInstance *openAIGenerator

func GetOpenAIItemGenerator(apikey string) ItemGenerator {
	generatorOnce.Do(func() {
		generatorInstance = &openAIGenerator{
			client: openai.NewClient(option.WithAPIKey(apikey)),
			model:  config.OpenAIExtractionModel,
			logger: logger_i.NewLogger("Item Generator"),
		}
	})
	return generatorInstance
}

func (g *openAIGenerator) GenerateItems(ctx context.Context, kind string, text string) ([]ingestjob.ExtractedItem, error) {
	log := g.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "kind", kind)

	userPrompt := "Kind of item to extract: " + kind + "\n\nSource text:\n" + text

	// malformed JSON gets one repaired parse and one fresh model attempt
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(g.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(generatorSystemPrompt),
				openai.UserMessage(userPrompt),
			},
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			},
			Temperature: openai.Float(0),
		})
		if err != nil {
			log.Error("item generation call failed", "attempt", attempt+1, "error", err)
			return nil, err
		}
		if len(completion.Choices) == 0 {
			return nil, errors.New("no choices in generation response")
		}

		parsed, err := parseItemResponse(completion.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			log.Warn("unparseable generation response", "attempt", attempt+1, "error", err)
			continue
		}
		return toExtractedItems(parsed), nil
	}
	return nil, lastErr
}

var trailingCommaFix = regexp.MustCompile(`,\s*([}\]])`)

func parseItemResponse(raw string) (generatedResponse, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = trailingCommaFix.ReplaceAllString(cleaned, "$1")

	var parsed generatedResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return generatedResponse{}, err
	}
	return parsed, nil
}

func toExtractedItems(parsed generatedResponse) []ingestjob.ExtractedItem {
	items := make([]ingestjob.ExtractedItem, 0, len(parsed.Items))
	for _, gi := range parsed.Items {
		name := strings.TrimSpace(gi.Name)
		if name == "" {
			continue
		}
		item := ingestjob.ExtractedItem{
			Name:        name,
			Description: strings.TrimSpace(gi.Description),
			Category:    strings.TrimSpace(gi.Category),
		}
		if gi.Price != nil {
			item.Price = *gi.Price
			item.HasPrice = true
			item.Currency = strings.TrimSpace(gi.Currency)
		}
		items = append(items, item)
	}
	return items
}
