package actions

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/editor"
)

// GenerateIdeas validates the idea form and asks the model for ideas. Data holds *ai.Ideas.
func (a *Actions) GenerateIdeas(ctx context.Context, form url.Values) Result {
	var in ideasForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "generate_ideas", msg)
	}
	if in.Count == 0 {
		in.Count = ai.DefaultIdeaCount
	}

	if a.gen == nil {
		return failure(ctx, "generate_ideas", "Idea generation is not configured.")
	}

	ideas, err := a.gen.GenerateIdeas(ctx, ai.IdeasRequest{Topic: in.Topic, Keywords: in.Keywords, Count: in.Count})
	if err != nil {
		log.Error().Err(err).Msg("error generating blog post ideas")
		if errors.Is(err, ai.ErrEmptyResult) {
			return failure(ctx, "generate_ideas", "Failed to generate ideas. The AI returned an unexpected result.")
		}
		return failure(ctx, "generate_ideas", "An unexpected error occurred while generating ideas. Please try again later.")
	}

	return success(ctx, "generate_ideas", "Successfully generated ideas!", ideas)
}

// Rephrase rewrites text as an HTML fragment. Data holds the fragment.
func (a *Actions) Rephrase(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return failure(ctx, "rephrase", "No text selected to rephrase.")
	}

	if a.gen == nil {
		return failure(ctx, "rephrase", "Rephrasing is not configured.")
	}

	html, err := a.gen.Rephrase(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("error rephrasing text")
		if errors.Is(err, ai.ErrEmptyResult) {
			return failure(ctx, "rephrase", "Failed to rephrase text. AI returned an unexpected result.")
		}
		return failure(ctx, "rephrase", "An unexpected error occurred while rephrasing text.")
	}

	return success(ctx, "rephrase", "Text rephrased.", html)
}

// RephraseSelection rephrases the bridge's selection and splices the result back in.
func (a *Actions) RephraseSelection(ctx context.Context, b editor.Bridge) Result {
	sel, ok := b.Selection()
	if !ok {
		return a.Rephrase(ctx, "")
	}

	res := a.Rephrase(ctx, sel.Text)
	if !res.OK() {
		return res
	}

	if html, ok := res.Data.(string); ok {
		b.ReplaceSelection(html)
	}
	return res
}
