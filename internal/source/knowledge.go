package source

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/pkg/claude"
)

const knowledgeSystem = `You are a food product data service. Answer only from verified knowledge of the exact product asked about. Respond with a single JSON object matching the requested schema. If you are not certain the data is for this exact product, set "confident" to false and leave the data fields empty. Never estimate or supply typical values.`

// knowledgeReply is the schema the service is asked to fill. A reply with
// confident=false is discarded unconditionally, even when data is present.
type knowledgeReply struct {
	Confident   bool     `json:"confident"`
	Confidence  int      `json:"confidence"`
	Ingredients string   `json:"ingredients"`
	ServingSize string   `json:"serving_size"`
	Allergens   string   `json:"allergens"`
	Per100g     struct {
		EnergyKcal *float64 `json:"energy_kcal"`
		EnergyKJ   *float64 `json:"energy_kj"`
		Fat        *float64 `json:"fat"`
		Saturates  *float64 `json:"saturates"`
		Carbs      *float64 `json:"carbs"`
		Sugar      *float64 `json:"sugar"`
		Fiber      *float64 `json:"fiber"`
		Protein    *float64 `json:"protein"`
		Salt       *float64 `json:"salt"`
	} `json:"per_100g"`
}

// Knowledge queries an external knowledge service with a schema-constrained
// request carrying an explicit self-reported confidence field.
type Knowledge struct {
	client    claude.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewKnowledge creates the structured query source.
func NewKnowledge(client claude.Client, modelID string, maxTokens int, perMinute int) *Knowledge {
	return &Knowledge{
		client:    client,
		model:     modelID,
		maxTokens: int64(maxTokens),
		limiter:   newLimiter(perMinute),
	}
}

func (k *Knowledge) Name() string { return NameKnowledge }

func (k *Knowledge) Lookup(ctx context.Context, name, brand string) (*model.Candidate, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := buildKnowledgePrompt(name, brand)
	resp, err := k.client.Complete(ctx, claude.CompletionRequest{
		Model:     k.model,
		MaxTokens: k.maxTokens,
		System:    knowledgeSystem,
		Prompt:    prompt,
	})
	if err != nil {
		return nil, err
	}

	var reply knowledgeReply
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &reply); err != nil {
		zap.L().Warn("knowledge source: malformed reply",
			zap.String("product", name),
			zap.Error(err),
		)
		return nil, nil
	}

	if !reply.Confident {
		return nil, nil
	}

	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}

	c := &model.Candidate{
		Source:      NameKnowledge,
		Confidence:  conf,
		Ingredients: reply.Ingredients,
		ServingSize: reply.ServingSize,
		Allergens:   reply.Allergens,
		Per100g: model.Nutrition{
			EnergyKcal: reply.Per100g.EnergyKcal,
			EnergyKJ:   reply.Per100g.EnergyKJ,
			Fat:        reply.Per100g.Fat,
			Saturates:  reply.Per100g.Saturates,
			Carbs:      reply.Per100g.Carbs,
			Sugar:      reply.Per100g.Sugar,
			Fiber:      reply.Per100g.Fiber,
			Protein:    reply.Per100g.Protein,
			Salt:       reply.Per100g.Salt,
		},
	}
	if !c.HasAnyField() {
		return nil, nil
	}
	return c, nil
}

func buildKnowledgePrompt(name, brand string) string {
	var b strings.Builder
	b.WriteString("Product: ")
	b.WriteString(name)
	if brand != "" {
		b.WriteString("\nBrand: ")
		b.WriteString(brand)
	}
	b.WriteString("\n\nReturn JSON with keys: confident (bool), confidence (0-100), ingredients (string), serving_size (string), allergens (string), per_100g (object with energy_kcal, energy_kj, fat, saturates, carbs, sugar, fiber, protein, salt as numbers or null).")
	return b.String()
}

// stripFences removes a markdown code fence if the reply is wrapped in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
