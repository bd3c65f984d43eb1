package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/wolfeidau/reflections/internal/models"
)

const postsPath = "/api/blogposts"

func postPath(id string) string {
	return postsPath + "/" + url.PathEscape(id)
}

func authorPostsPath(authorID string) string {
	return postsPath + "/author/" + url.PathEscape(authorID)
}

// ListPosts returns every post visible to the caller.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if _, err := c.do(ctx, request{method: http.MethodGet, path: postsPath}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns a single post.
func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if _, err := c.do(ctx, request{method: http.MethodGet, path: postPath(id)}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// PostsByAuthor returns the posts written by authorID.
func (c *Client) PostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	var posts []models.Post
	if _, err := c.do(ctx, request{method: http.MethodGet, path: authorPostsPath(authorID)}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost publishes or drafts a new post.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput) (*Result[models.Post], error) {
	res := &Result[models.Post]{}
	msg, err := c.do(ctx, request{method: http.MethodPost, path: postsPath, body: in}, &res.Data)
	if err != nil {
		return nil, err
	}
	res.Message = msg

	paths := []string{postsPath}
	if in.Author != nil && in.Author.ID != "" {
		paths = append(paths, authorPostsPath(in.Author.ID))
	}
	c.invalidate(paths...)

	return res, nil
}

// UpdatePost replaces the editable fields of a post.
func (c *Client) UpdatePost(ctx context.Context, id string, in models.PostInput) (*Result[models.Post], error) {
	res := &Result[models.Post]{}
	msg, err := c.do(ctx, request{method: http.MethodPut, path: postPath(id), body: in}, &res.Data)
	if err != nil {
		return nil, err
	}
	res.Message = msg

	c.invalidate(append([]string{postsPath, postPath(id)}, c.authorPaths(ctx, res.Data.Author.ID)...)...)

	return res, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) (string, error) {
	msg, err := c.do(ctx, request{method: http.MethodDelete, path: postPath(id)}, nil)
	if err != nil {
		return "", err
	}

	c.invalidate(append([]string{postsPath, postPath(id)}, c.authorPaths(ctx, "")...)...)

	return msg, nil
}

// authorPaths returns the author listing paths a mutation may have changed: the post's
// author when known and the signed in user.
func (c *Client) authorPaths(ctx context.Context, authorID string) []string {
	if c.cache == nil {
		return nil
	}

	var paths []string
	if authorID != "" {
		paths = append(paths, authorPostsPath(authorID))
	}
	if rec, err := c.store.Read(ctx); err == nil && rec != nil && rec.User.ID != authorID {
		paths = append(paths, authorPostsPath(rec.User.ID))
	}
	return paths
}
