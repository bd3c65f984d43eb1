package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Service with the Gemini API.
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini backed service.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGemini(client.Models, cfg.Model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model}
}

var ideasSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"ideas": {
			Type:        genai.TypeArray,
			Description: "An array of blog post ideas.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"outlines": {
			Type:        genai.TypeArray,
			Description: "An array of blog post outlines.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required:         []string{"ideas", "outlines"},
	PropertyOrdering: []string{"ideas", "outlines"},
}

var rephraseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"rephrasedText": {
			Type:        genai.TypeString,
			Description: "The rephrased and formatted HTML text.",
		},
	},
	Required: []string{"rephrasedText"},
}

// GenerateIdeas implements Service.
func (g *Gemini) GenerateIdeas(ctx context.Context, req IdeasRequest) (*Ideas, error) {
	if req.Count <= 0 {
		req.Count = DefaultIdeaCount
	}

	prompt, err := render(ideasPrompt, req)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	var out Ideas
	if err := g.generateJSON(ctx, "ideas", prompt, ideasSchema, &out); err != nil {
		return nil, err
	}

	if len(out.Ideas) == 0 || len(out.Outlines) == 0 {
		return nil, ErrEmptyResult
	}

	return &out, nil
}

// Rephrase implements Service. The result is an HTML fragment.
func (g *Gemini) Rephrase(ctx context.Context, text string) (string, error) {
	prompt, err := render(rephrasePrompt, struct{ Text string }{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	var out struct {
		RephrasedText string `json:"rephrasedText"`
	}
	if err := g.generateJSON(ctx, "rephrase", prompt, rephraseSchema, &out); err != nil {
		return "", err
	}

	html := strings.TrimSpace(out.RephrasedText)
	if html == "" {
		return "", ErrEmptyResult
	}
	return html, nil
}

func (g *Gemini) generateJSON(ctx context.Context, op, prompt string, schema *genai.Schema, out any) error {
	start := time.Now()
	metrics := telemetry.GetMetrics()

	res, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})

	attrs := metric.WithAttributes(attribute.String("operation", op), attribute.Bool("error", err != nil))
	metrics.AIRequestsTotal.Add(ctx, 1, attrs)
	metrics.AIRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		return fmt.Errorf("failed to generate content: %w", err)
	}
	if res == nil {
		return ErrEmptyResult
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return ErrEmptyResult
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		log.Debug().Err(err).Str("operation", op).Msg("model returned malformed json")
		return fmt.Errorf("%w: %v", ErrEmptyResult, err)
	}

	log.Debug().
		Str("operation", op).
		Str("model", g.model).
		Dur("duration", time.Since(start)).
		Msg("generated content")

	return nil
}
