package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/editor"
)

// IdeasCmd asks the model for blog post ideas.
type IdeasCmd struct {
	Topic    string `help:"Topic to write about" required:""`
	Keywords string `help:"Keywords to include" required:""`
	Count    int    `help:"Number of ideas (1-10)" default:"5"`
}

func (c *IdeasCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	res := a.actions.GenerateIdeas(ctx, url.Values{
		"topic":    {c.Topic},
		"keywords": {c.Keywords},
		"count":    {strconv.Itoa(c.Count)},
	})
	if err := a.report(res); err != nil {
		return err
	}

	ideas, ok := res.Data.(*ai.Ideas)
	if !ok {
		return nil
	}
	for i, pair := range ideas.Pairs() {
		fmt.Fprintf(a.out, "\n%d. %s\n   %s\n", i+1, pair[0], pair[1])
	}
	return nil
}

// RephraseCmd rewrites part of an HTML document with the model.
type RephraseCmd struct {
	File   string `arg:"" help:"HTML file to edit" type:"existingfile"`
	Match  string `help:"Select the first occurrence of this text" xor:"selection"`
	Index  int    `help:"Start of the selection in plain text characters" xor:"selection"`
	Length int    `help:"Length of the selection in plain text characters"`
	Write  bool   `help:"Write the result back to the file instead of printing it" short:"w"`
}

func (c *RephraseCmd) Run(ctx context.Context, globals *Globals) error {
	src, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	doc := editor.NewDocument(string(src))
	if c.Match != "" {
		err = doc.SelectText(c.Match)
	} else {
		err = doc.Select(c.Index, c.Length)
	}
	if err != nil {
		if errors.Is(err, editor.ErrOutOfRange) {
			return fmt.Errorf("invalid selection: %w", err)
		}
		return err
	}

	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	res := a.actions.RephraseSelection(ctx, doc)
	if !res.OK() {
		return errors.New(res.Error)
	}

	if !c.Write {
		fmt.Fprintln(a.out, doc.HTML())
		return nil
	}

	info, err := os.Stat(c.File)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.File, []byte(doc.HTML()), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.File, err)
	}
	fmt.Fprintf(a.out, "%s (cursor at %d)\n", res.Message, doc.Cursor())
	return nil
}
