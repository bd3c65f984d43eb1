package models

import "fmt"

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

// ParsePostStatus converts a string into a PostStatus.
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return PostStatus(s), nil
	default:
		return "", fmt.Errorf("unknown post status: %q", s)
	}
}

// PostAuthor is the subset of the author profile embedded in a post.
type PostAuthor struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AuthorFromUser builds the embedded author from a full profile.
func AuthorFromUser(u *User) PostAuthor {
	return PostAuthor{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

// Post is a blog post owned by the remote API. Clients hold read-through copies only.
type Post struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"` // HTML
	Excerpt          string     `json:"excerpt,omitempty"`
	Author           PostAuthor `json:"author"`
	CreatedAt        Timestamp  `json:"createdAt,omitzero"`
	UpdatedAt        Timestamp  `json:"updatedAt,omitzero"`
	Status           PostStatus `json:"status"`
	FeaturedImageURL string     `json:"featuredImageUrl,omitempty"`
}

// PostInput is the request body for creating or updating a post.
type PostInput struct {
	Title            string      `json:"title"`
	Content          string      `json:"content"`
	Excerpt          string      `json:"excerpt,omitempty"`
	Status           PostStatus  `json:"status"`
	FeaturedImageURL string      `json:"featuredImageUrl,omitempty"`
	Author           *PostAuthor `json:"author,omitempty"`
}
