package view

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"yatube/internal/models"
	"yatube/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postPage struct {
	Posts []*models.Post
	Page  pagination.Page
}

func newRenderer(t *testing.T) *PageRenderer {
	t.Helper()
	pr, err := NewPageRenderer()
	require.NoError(t, err)
	return pr
}

func TestNewPageRenderer_ParsesEveryPage(t *testing.T) {
	pr, err := NewPageRenderer()
	require.NoError(t, err)

	for _, name := range []string{
		"posts/index.html", "posts/group_list.html", "posts/profile.html", "posts/post_detail.html",
		"posts/post_create.html", "posts/follow.html",
		"users/signup.html", "users/login.html", "users/logout.html", "users/change.html",
		"users/change_done.html", "users/reset.html", "users/reset_done.html",
		"users/reset_confirm.html", "users/reset_complete.html",
		"about/author.html", "about/tech.html",
		"core/304.html", "core/400.html", "core/403.html", "core/403csrf.html", "core/404.html", "core/500.html",
	} {
		assert.True(t, pr.Has(name), name)
	}
	assert.False(t, pr.Has("base.html"))
	assert.False(t, pr.Has("includes/paginator.html"))
}

func TestRenderIndex(t *testing.T) {
	pr := newRenderer(t)
	group := &models.Group{Title: "Cats", Slug: "cats"}
	posts := make([]*models.Post, 0, 10)
	for i := 0; i < 10; i++ {
		posts = append(posts, &models.Post{
			ID:      uint(i + 1),
			Text:    "line one\n<b>bold</b>",
			Created: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Author:  models.User{Username: "leo"},
			Group:   group,
			Image:   "posts/a.jpg",
		})
	}
	page := postPage{Posts: posts, Page: pagination.New(25, 10).GetPage("2")}

	var buf bytes.Buffer
	err := pr.RenderTemplate(&buf, "posts/index.html", map[string]any{
		"page":      page,
		"view_name": "index",
		"year":      2024,
	})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, "Latest updates on the site")
	assert.Contains(t, html, "line one &lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, html, `href="/group/cats/"`)
	assert.Contains(t, html, `src="/media/posts/a.jpg"`)
	assert.Contains(t, html, `srcset="/media/posts/a.webp"`)
	assert.Contains(t, html, `href="?page=3"`)
	assert.Contains(t, html, "01 Mar 2024")
	assert.Contains(t, html, "Log in", "anonymous navigation")
}

func TestRenderPostDetailForAuthor(t *testing.T) {
	pr := newRenderer(t)
	viewer := &models.User{ID: 7, Username: "leo"}
	post := &models.Post{ID: 3, Text: "hello\nworld", AuthorID: 7, Author: *viewer}

	var buf bytes.Buffer
	err := pr.RenderTemplate(&buf, "posts/post_detail.html", map[string]any{
		"viewer":       viewer,
		"csrf_token":   "tok",
		"post":         post,
		"author_posts": 1,
		"form":         NewForm(nil),
		"comments":     []*models.Comment{{Text: "nice", Author: models.User{Username: "ann"}}},
	})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, `href="/posts/3/edit/"`)
	assert.Contains(t, html, `action="/posts/3/comment/"`)
	assert.Contains(t, html, `name="csrfmiddlewaretoken" value="tok"`)
	assert.Contains(t, html, "nice")
	assert.Contains(t, html, "hello<br>world")
}

func TestRenderFormErrorsAndNoPasswordEcho(t *testing.T) {
	pr := newRenderer(t)
	form := NewForm(map[string]string{"username": "leo", "password1": "secret-value"})
	form.Errors.Add("password2", "The two password fields didn’t match.")

	var buf bytes.Buffer
	require.NoError(t, pr.RenderTemplate(&buf, "users/signup.html", map[string]any{"form": form}))
	html := buf.String()
	assert.Contains(t, html, `value="leo"`)
	assert.NotContains(t, html, "secret-value")
	assert.Contains(t, html, "didn’t match")
}

func TestRenderMissingTemplate(t *testing.T) {
	err := newRenderer(t).RenderTemplate(&bytes.Buffer{}, "nope.html", nil)
	assert.Error(t, err)
}

func TestErrorPage(t *testing.T) {
	name, data := ErrorPage(http.StatusNotFound)
	assert.Equal(t, "core/404.html", name)
	assert.Equal(t, "404: Not Found", data["title"])
	assert.Equal(t, "Nothing matches the given URI", data["custom_message"])

	name, data = ErrorPage(http.StatusNotModified)
	assert.Equal(t, "core/304.html", name)
	assert.Equal(t, "304: Not Modified", data["title"])

	name, _ = ErrorPage(http.StatusTeapot)
	assert.Equal(t, "core/500.html", name)
	assert.False(t, HasErrorPage(http.StatusTeapot))
}

func TestFilters(t *testing.T) {
	assert.Equal(t, "aBoUt tHe aUtHoR", Uglify("About the author"))
	assert.Equal(t, "пРиВеТ", Uglify("Привет"))
	assert.Equal(t, "one two …", TruncateWords(2, "one two three"))
	assert.Equal(t, "one two", TruncateWords(2, " one  two "))
	assert.Equal(t, "", MediaURL(""))
	assert.Equal(t, "/media/posts/x.jpg", MediaURL("posts/x.jpg"))
}
