package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wolfeidau/reflections/internal/actions"
	"github.com/wolfeidau/reflections/internal/editor"
	"github.com/wolfeidau/reflections/internal/models"
)

const maxFormMemory = 1 << 20

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	State         string       `json:"state"`
	User          *models.User `json:"user,omitempty"`
	Expiry        *time.Time   `json:"expiry,omitempty"`
}

// currentSession confirms the stored session with the API and reports it.
func (s *Server) currentSession(c *gin.Context) {
	rs := sessionFrom(c)
	if err := rs.manager.Hydrate(c.Request.Context()); err != nil {
		_ = c.Error(err)
	}

	cur := rs.manager.Current()
	res := sessionResponse{
		Authenticated: cur.Authenticated(),
		State:         cur.State.String(),
		User:          cur.User,
	}
	if !cur.Expiry.IsZero() {
		res.Expiry = &cur.Expiry
	}
	respondRead(c, http.StatusOK, res)
}

func (s *Server) signup(c *gin.Context) {
	s.withForm(c, sessionFrom(c).actions.Signup)
}

func (s *Server) login(c *gin.Context) {
	s.withForm(c, sessionFrom(c).actions.Login)
}

func (s *Server) logout(c *gin.Context) {
	respond(c, sessionFrom(c).actions.Logout(c.Request.Context()))
}

func (s *Server) updateProfile(c *gin.Context) {
	s.withForm(c, sessionFrom(c).actions.UpdateProfile)
}

// listPosts returns the caller's posts, the posts of ?author= or every post with ?all=true.
func (s *Server) listPosts(c *gin.Context) {
	ctx := c.Request.Context()
	acts := sessionFrom(c).actions

	var posts []models.Post
	switch {
	case c.Query("all") == "true":
		posts = acts.ListPosts(ctx)
	case c.Query("author") != "":
		posts = acts.PostsByAuthor(ctx, c.Query("author"))
	default:
		posts = acts.MyPosts(ctx)
	}

	respondRead(c, http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) getPost(c *gin.Context) {
	post := sessionFrom(c).actions.Post(c.Request.Context(), c.Param("id"))
	if post == nil {
		respondRead(c, http.StatusNotFound, actions.Result{Error: "Post not found."})
		return
	}
	respondRead(c, http.StatusOK, gin.H{"post": post})
}

func (s *Server) createPost(c *gin.Context) {
	s.withForm(c, sessionFrom(c).actions.CreatePost)
}

func (s *Server) updatePost(c *gin.Context) {
	id := c.Param("id")
	s.withForm(c, func(ctx context.Context, form url.Values) actions.Result {
		return sessionFrom(c).actions.UpdatePost(ctx, id, form)
	})
}

func (s *Server) deletePost(c *gin.Context) {
	respond(c, sessionFrom(c).actions.DeletePost(c.Request.Context(), c.Param("id")))
}

func (s *Server) generateIdeas(c *gin.Context) {
	s.withForm(c, sessionFrom(c).actions.GenerateIdeas)
}

type rephraseRequest struct {
	Text   string `form:"text"`
	HTML   string `form:"html"`
	Index  int    `form:"index"`
	Length int    `form:"length"`
}

// rephrase rewrites the posted text, or the selected range of a posted HTML document.
// For a document the response data holds the updated HTML and cursor.
func (s *Server) rephrase(c *gin.Context) {
	var req rephraseRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, actions.Result{Error: "Invalid form input."})
		return
	}

	ctx := c.Request.Context()
	acts := sessionFrom(c).actions

	if req.HTML == "" {
		respond(c, acts.Rephrase(ctx, req.Text))
		return
	}

	doc := editor.NewDocument(req.HTML)
	if err := doc.Select(req.Index, req.Length); err != nil {
		if errors.Is(err, editor.ErrOutOfRange) {
			c.JSON(http.StatusUnprocessableEntity, actions.Result{Error: "Selection is outside the document."})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, actions.Result{Error: "Invalid selection."})
		return
	}

	res := acts.RephraseSelection(ctx, doc)
	if res.OK() {
		res.Data = gin.H{
			"html":     doc.HTML(),
			"fragment": res.Data,
			"cursor":   doc.Cursor(),
		}
	}
	respond(c, res)
}

// withForm parses the submitted form and runs fn with it.
func (s *Server) withForm(c *gin.Context, fn func(ctx context.Context, form url.Values) actions.Result) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, actions.Result{Error: "Invalid form input."})
		return
	}
	respond(c, fn(c.Request.Context(), c.Request.PostForm))
}
