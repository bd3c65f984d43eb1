package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/wolfeidau/reflections/internal/models"
)

// PostsCmd groups the blog post commands.
type PostsCmd struct {
	List   PostsListCmd   `cmd:"" help:"List posts" default:"withargs"`
	Show   PostsShowCmd   `cmd:"" help:"Show a post"`
	Create PostsCreateCmd `cmd:"" help:"Create a post"`
	Update PostsUpdateCmd `cmd:"" help:"Update a post"`
	Delete PostsDeleteCmd `cmd:"" help:"Delete a post"`
}

// PostsListCmd lists the signed in user's posts, another author's posts or every post.
type PostsListCmd struct {
	All    bool   `help:"List every published post"`
	Author string `help:"List the posts of this author id"`
}

func (c *PostsListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	var posts []models.Post
	switch {
	case c.All:
		posts = a.actions.ListPosts(ctx)
	case c.Author != "":
		posts = a.actions.PostsByAuthor(ctx, c.Author)
	default:
		if !a.sessions.Authenticated() {
			return errors.New("not signed in, run \"reflections login\" or use --all")
		}
		posts = a.actions.MyPosts(ctx)
	}

	printPosts(a, posts)
	return nil
}

func printPosts(a *app, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts found.")
		return
	}

	fmt.Fprintf(a.out, "%-26s %-10s %-20s %-20s %s\n", "ID", "Status", "Author", "Updated", "Title")
	fmt.Fprintln(a.out, strings.Repeat("─", 100))
	for _, p := range posts {
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(a.out, "%-26s %-10s %-20s %-20s %s\n",
			p.ID, p.Status, truncate(p.Author.Username, 20), updated, p.Title)
	}
}

// PostsShowCmd prints one post.
type PostsShowCmd struct {
	ID string `arg:"" help:"Post id"`
}

func (c *PostsShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	p := a.actions.Post(ctx, c.ID)
	if p == nil {
		return fmt.Errorf("post %q not found", c.ID)
	}

	fmt.Fprintf(a.out, "Title:   %s\n", p.Title)
	fmt.Fprintf(a.out, "Status:  %s\n", p.Status)
	fmt.Fprintf(a.out, "Author:  %s %s (%s)\n", p.Author.FirstName, p.Author.LastName, p.Author.Username)
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "Created: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if p.FeaturedImageURL != "" {
		fmt.Fprintf(a.out, "Image:   %s\n", p.FeaturedImageURL)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, p.Content)
	return nil
}

// PostFields are the editable fields of a post.
type PostFields struct {
	Title       string `help:"Post title (at least 3 characters)" required:""`
	Content     string `help:"Post content as HTML" xor:"content"`
	ContentFile string `help:"Read the post content from a file" type:"existingfile" xor:"content"`
	Status      string `help:"DRAFT or PUBLISHED, case insensitive" default:"DRAFT"`
	Image       string `help:"Featured image URL"`
}

func (f PostFields) form() (url.Values, error) {
	status, err := models.ParsePostStatus(strings.ToUpper(strings.TrimSpace(f.Status)))
	if err != nil {
		return nil, fmt.Errorf("invalid --status: %w", err)
	}

	content := f.Content
	if f.ContentFile != "" {
		data, err := os.ReadFile(f.ContentFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
		content = string(data)
	}

	return url.Values{
		"title":            {f.Title},
		"content":          {content},
		"status":           {string(status)},
		"featuredImageUrl": {f.Image},
	}, nil
}

// PostsCreateCmd creates a post as the signed in user.
type PostsCreateCmd struct {
	PostFields `embed:""`
}

func (c *PostsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	form, err := c.form()
	if err != nil {
		return err
	}

	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}

	res := a.actions.CreatePost(ctx, form)
	if err := a.report(res); err != nil {
		return err
	}
	if p, ok := res.Data.(models.Post); ok && p.ID != "" {
		fmt.Fprintf(a.out, "ID: %s\n", p.ID)
	}
	return nil
}

// PostsUpdateCmd replaces the editable fields of a post.
type PostsUpdateCmd struct {
	ID        string `arg:"" help:"Post id"`
	PostFields `embed:""`
}

func (c *PostsUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	form, err := c.form()
	if err != nil {
		return err
	}

	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	return a.report(a.actions.UpdatePost(ctx, c.ID, form))
}

// PostsDeleteCmd deletes a post.
type PostsDeleteCmd struct {
	ID string `arg:"" help:"Post id"`
}

func (c *PostsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, false)
	if err != nil {
		return err
	}
	return a.report(a.actions.DeletePost(ctx, c.ID))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
