// Package ai generates blog post ideas and rephrases text with a generative model.
package ai

import (
	"context"
	"errors"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultIdeaCount is the number of ideas requested when the caller does not say.
	DefaultIdeaCount = 5
)

// ErrEmptyResult is returned when the model answered without a usable result.
var ErrEmptyResult = errors.New("model returned an empty result")

// Service is a generative text backend.
type Service interface {
	GenerateIdeas(ctx context.Context, req IdeasRequest) (*Ideas, error)
	Rephrase(ctx context.Context, text string) (string, error)
}

// IdeasRequest asks for Count ideas about Topic. Keywords is a comma separated list.
type IdeasRequest struct {
	Topic    string
	Keywords string
	Count    int
}

// Ideas pairs each idea with its outline by index.
type Ideas struct {
	Ideas    []string `json:"ideas"`
	Outlines []string `json:"outlines"`
}

// Pairs returns the idea/outline pairs. Unpaired trailing entries are dropped.
func (i *Ideas) Pairs() [][2]string {
	n := min(len(i.Ideas), len(i.Outlines))
	pairs := make([][2]string, 0, n)
	for k := range n {
		pairs = append(pairs, [2]string{i.Ideas[k], i.Outlines[k]})
	}
	return pairs
}
