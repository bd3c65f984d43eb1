package actions

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/models"
)

const (
	// ExcerptLength is the number of content characters copied into a new post's excerpt.
	ExcerptLength = 150

	// DefaultFeaturedImageURL is used when a new post has no featured image.
	DefaultFeaturedImageURL = "https://placehold.co/600x400.png"
)

// Excerpt returns the first ExcerptLength characters of content.
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) > ExcerptLength {
		r = r[:ExcerptLength]
	}
	return string(r)
}

// CreatePost validates the post form and creates the post as the signed in user.
func (a *Actions) CreatePost(ctx context.Context, form url.Values) Result {
	var in postForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "create_post", msg)
	}

	user, ok := a.signedIn()
	if !ok {
		return failure(ctx, "create_post", notSignedInMessage)
	}

	author := models.AuthorFromUser(user)
	input := models.PostInput{
		Title:            in.Title,
		Content:          in.Content,
		Excerpt:          Excerpt(in.Content),
		Status:           models.PostStatus(in.Status),
		FeaturedImageURL: in.FeaturedImageURL,
		Author:           &author,
	}
	if input.FeaturedImageURL == "" {
		input.FeaturedImageURL = DefaultFeaturedImageURL
	}

	res, err := a.api.CreatePost(ctx, input)
	if err != nil {
		return apiFailure(ctx, "create_post", err, messages{
			fallback:    "Failed to create post.",
			unreachable: "Could not connect to the API service. Please try again later.",
		})
	}

	return success(ctx, "create_post", orDefault(res.Message, "Post created successfully."), res.Data)
}

// UpdatePost validates the post form and updates post id.
func (a *Actions) UpdatePost(ctx context.Context, id string, form url.Values) Result {
	if strings.TrimSpace(id) == "" {
		return failure(ctx, "update_post", "Post id is required.")
	}

	var in postForm
	if msg, ok := bind(form, &in); !ok {
		return failure(ctx, "update_post", msg)
	}

	res, err := a.api.UpdatePost(ctx, id, models.PostInput{
		Title:            in.Title,
		Content:          in.Content,
		Status:           models.PostStatus(in.Status),
		FeaturedImageURL: in.FeaturedImageURL,
	})
	if err != nil {
		return apiFailure(ctx, "update_post", err, messages{
			fallback:    "Failed to update post.",
			unreachable: "Could not connect to the API service.",
		})
	}

	return success(ctx, "update_post", orDefault(res.Message, "Post updated successfully."), res.Data)
}

// DeletePost deletes post id.
func (a *Actions) DeletePost(ctx context.Context, id string) Result {
	if strings.TrimSpace(id) == "" {
		return failure(ctx, "delete_post", "Post id is required.")
	}

	if _, err := a.api.DeletePost(ctx, id); err != nil {
		return apiFailure(ctx, "delete_post", err, messages{
			fallback:    "Failed to delete post.",
			unreachable: "Could not connect to the API service.",
		})
	}

	return success(ctx, "delete_post", "Post deleted successfully.", nil)
}

// PostsByAuthor lists the posts of authorID. Without a signed in session or an author
// it returns an empty list without calling the API; failures also yield an empty list.
func (a *Actions) PostsByAuthor(ctx context.Context, authorID string) []models.Post {
	if authorID == "" {
		return []models.Post{}
	}
	if _, ok := a.signedIn(); !ok {
		return []models.Post{}
	}

	posts, err := a.api.PostsByAuthor(ctx, authorID)
	if err != nil {
		log.Error().Err(err).Str("author_id", authorID).Msg("failed to fetch posts")
		return []models.Post{}
	}
	if posts == nil {
		return []models.Post{}
	}
	return posts
}

// MyPosts lists the signed in user's posts.
func (a *Actions) MyPosts(ctx context.Context) []models.Post {
	user, ok := a.signedIn()
	if !ok {
		return []models.Post{}
	}
	return a.PostsByAuthor(ctx, user.ID)
}

// Post fetches one post, or nil on any failure.
func (a *Actions) Post(ctx context.Context, id string) *models.Post {
	if id == "" {
		return nil
	}

	post, err := a.api.GetPost(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("failed to fetch post")
		return nil
	}
	return post
}

// ListPosts lists all posts, or an empty list on any failure.
func (a *Actions) ListPosts(ctx context.Context) []models.Post {
	posts, err := a.api.ListPosts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch posts")
		return []models.Post{}
	}
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
