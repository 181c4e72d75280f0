package server

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postCard = `<article class="post">`

func TestIndex_Pagination(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	testutil.CreatePosts(t, env.db, leo, nil, 13)

	tests := []struct {
		query     string
		wantCards int
		wantText  string
	}{
		{"", 10, "Post 12 by leo"},
		{"?page=1", 10, "Post 3 by leo"},
		{"?page=2", 3, "Post 0 by leo"},
		{"?page=abc", 10, "Post 12 by leo"},
		{"?page=99", 3, "Post 2 by leo"},
		{"?page=-1", 3, "Post 0 by leo"},
	}
	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			resp, body := env.get(t, "/"+tt.query)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantCards, strings.Count(body, postCard))
			assert.Contains(t, body, tt.wantText)
		})
	}
}

func TestIndex_CachedWithoutInvalidation(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	testutil.CreatePosts(t, env.db, leo, nil, 1)

	resp, body := env.get(t, "/")
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	assert.Equal(t, "max-age=5", resp.Header.Get(fiber.HeaderCacheControl))
	assert.NotContains(t, body, "fresh news")

	fresh := &models.Post{Text: "fresh news", AuthorID: leo.ID, Created: time.Now()}
	require.NoError(t, env.db.Omit("Author", "Group").Create(fresh).Error)

	resp, body = env.get(t, "/")
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.NotContains(t, body, "fresh news", "writes do not invalidate the cache")

	env.mr.FastForward(6 * time.Second)

	resp, body = env.get(t, "/")
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	assert.Contains(t, body, "fresh news")
}

func TestIndex_CacheIsPerViewer(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	session := env.login(t, leo)

	_, body := env.get(t, "/")
	assert.Contains(t, body, "Log in")

	resp, body := env.get(t, "/", session)
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	assert.Contains(t, body, "User: leo")

	resp, body = env.get(t, "/")
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.NotContains(t, body, "User: leo")
}

func TestPageCache_DisabledWithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg := testConfig(t)
	s, err := NewServerWithDeps(cfg, testutil.NewDB(t), nil)
	require.NoError(t, err)
	env := &testEnv{server: s, app: s.App(), cfg: cfg}

	resp, _ := env.get(t, "/")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(cacheHeader))
}

func TestIndex_CacheSurvivesDeleteUntilCleared(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]

	resp, first := env.get(t, "/")
	require.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	require.Contains(t, first, "Post 0 by leo")

	require.NoError(t, env.db.Delete(&models.Post{}, post.ID).Error)

	resp, second := env.get(t, "/")
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.Equal(t, first, second, "the stored page is served unchanged")

	n, err := env.server.pageCache.Clear(context.Background())
	require.NoError(t, err)
	assert.Positive(t, n)

	resp, third := env.get(t, "/")
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	assert.NotContains(t, third, "Post 0 by leo")
	assert.Contains(t, third, "No posts yet.")
}

func TestPostDetail_CachedAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]

	resp, first := env.get(t, post.URL())
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	require.Contains(t, first, "Post 0 by leo")

	require.NoError(t, env.db.Delete(&models.Post{}, post.ID).Error)

	resp, second := env.get(t, post.URL())
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.Equal(t, first, second)

	env.mr.FastForward(6 * time.Second)

	resp, _ = env.get(t, post.URL())
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPostDetail_CachedCommentFormPerBrowser(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.CSRFEnabled = true })
	leo := testutil.CreateUser(t, env.db, "leo")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]
	laptop, phone := env.login(t, leo), env.login(t, leo)

	resp, body := env.get(t, post.URL(), laptop)
	require.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	laptopToken := csrfInput.FindStringSubmatch(body)
	require.Len(t, laptopToken, 2)
	laptopCSRF := responseCookie(resp, csrfCookieName)
	require.NotNil(t, laptopCSRF)

	resp, body = env.get(t, post.URL(), phone)
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader), "another browser gets its own copy")
	phoneToken := csrfInput.FindStringSubmatch(body)
	require.Len(t, phoneToken, 2)
	assert.NotEqual(t, laptopToken[1], phoneToken[1])
	phoneCSRF := responseCookie(resp, csrfCookieName)
	require.NotNil(t, phoneCSRF)

	form := url.Values{"text": {"from the phone"}, csrfFormField: {phoneToken[1]}}
	resp, _ = env.postForm(t, post.URL()+"comment/", form, phone, phoneCSRF)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, post.URL(), resp.Header.Get("Location"))

	resp, body = env.get(t, post.URL(), laptop, laptopCSRF)
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.Contains(t, body, laptopToken[1])
	form = url.Values{"text": {"from the laptop"}, csrfFormField: {laptopToken[1]}}
	resp, _ = env.postForm(t, post.URL()+"comment/", form, laptop, laptopCSRF)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	var n int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestGroupPosts(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	cats := testutil.CreateGroup(t, env.db, "cats")
	dogs := testutil.CreateGroup(t, env.db, "dogs")
	testutil.CreatePosts(t, env.db, leo, cats, 2)
	dogPosts := testutil.CreatePosts(t, env.db, leo, dogs, 1)
	require.NoError(t, env.db.Model(dogPosts[0]).Update("text", "woof").Error)

	resp, body := env.get(t, "/group/cats/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Group cats")
	assert.Equal(t, 2, strings.Count(body, postCard))
	assert.NotContains(t, body, "woof")
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	ann := testutil.CreateUser(t, env.db, "ann")
	testutil.CreatePosts(t, env.db, leo, nil, 3)

	resp, body := env.get(t, "/profile/leo/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Posts: 3")
	assert.NotContains(t, body, "/profile/leo/follow/", "anonymous visitors get no button")

	_, body = env.get(t, "/profile/leo/", env.login(t, ann))
	assert.Contains(t, body, "/profile/leo/follow/")

	_, body = env.get(t, "/profile/leo/", env.login(t, leo))
	assert.NotContains(t, body, "/profile/leo/follow/", "no button on one's own profile")
}

func TestPostDetail(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	ann := testutil.CreateUser(t, env.db, "ann")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]
	require.NoError(t, env.db.Create(&models.Comment{Text: "nice one", PostID: post.ID, AuthorID: ann.ID}).Error)

	resp, body := env.get(t, post.URL())
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "nice one")
	assert.NotContains(t, body, "Add a comment")
	assert.NotContains(t, body, "edit post")

	_, body = env.get(t, post.URL(), env.login(t, leo))
	assert.Contains(t, body, "Add a comment")
	assert.Contains(t, body, "edit post")

	_, body = env.get(t, post.URL(), env.login(t, ann))
	assert.Contains(t, body, "Add a comment")
	assert.NotContains(t, body, "edit post")
}

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]

	tests := []struct {
		target string
		want   string
	}{
		{"/create/", "/auth/login/?next=/create/"},
		{"/follow/", "/auth/login/?next=/follow/"},
		{"/follow/?page=2", "/auth/login/?next=/follow/%3Fpage%3D2"},
		{post.URL() + "edit/", "/auth/login/?next=" + post.URL() + "edit/"},
		{"/profile/leo/follow/", "/auth/login/?next=/profile/leo/follow/"},
		{"/auth/change/", "/auth/login/?next=/auth/change/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, _ := env.get(t, tt.target)
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}

	resp, _ := env.postForm(t, post.URL()+"comment/", url.Values{"text": {"hi"}})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next="+post.URL()+"comment/", resp.Header.Get("Location"))
}

func TestPostCreate(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	cats := testutil.CreateGroup(t, env.db, "cats")
	session := env.login(t, leo)

	resp, body := env.get(t, "/create/", session)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Group cats")

	fields := map[string]string{"text": "  a picture  ", "group": fmt.Sprint(cats.ID)}
	resp, _ = env.postMultipart(t, "/create/", fields, testutil.TinyPNG(t, 40, 30), session)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, env.db.First(&post).Error)
	assert.Equal(t, "a picture", post.Text)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, cats.ID, *post.GroupID)
	require.NotEmpty(t, post.Image)
	_, err := os.Stat(filepath.Join(env.cfg.MediaRoot, post.Image))
	assert.NoError(t, err)

	resp, _ = env.get(t, "/media/"+post.Image)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPostCreate_InvalidFormRerenders(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	session := env.login(t, leo)

	tests := []struct {
		name    string
		fields  map[string]string
		image   []byte
		wantMsg string
	}{
		{"blank text", map[string]string{"text": "   "}, nil, "This field is required."},
		{"unknown group", map[string]string{"text": "hi", "group": "999"}, nil, "Select a valid choice."},
		{"not an image", map[string]string{"text": "hi"}, []byte("plain text"), "Upload a valid image."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.postMultipart(t, "/create/", tt.fields, tt.image, session)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, body, tt.wantMsg)
		})
	}

	var count int64
	env.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestPostEdit(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	ann := testutil.CreateUser(t, env.db, "ann")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]
	editURL := post.URL() + "edit/"

	t.Run("non-owner is redirected", func(t *testing.T) {
		session := env.login(t, ann)
		resp, _ := env.get(t, editURL, session)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, post.URL(), resp.Header.Get("Location"))

		resp, _ = env.postMultipart(t, editURL, map[string]string{"text": "hijacked"}, nil, session)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, post.URL(), resp.Header.Get("Location"))

		var reloaded models.Post
		require.NoError(t, env.db.First(&reloaded, post.ID).Error)
		assert.Equal(t, post.Text, reloaded.Text)
	})

	t.Run("owner sees the form filled in", func(t *testing.T) {
		resp, body := env.get(t, editURL, env.login(t, leo))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Edit post")
		assert.Contains(t, body, post.Text)
	})

	t.Run("owner saves", func(t *testing.T) {
		resp, _ := env.postMultipart(t, editURL, map[string]string{"text": "edited"}, nil, env.login(t, leo))
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, post.URL(), resp.Header.Get("Location"))

		var reloaded models.Post
		require.NoError(t, env.db.First(&reloaded, post.ID).Error)
		assert.Equal(t, "edited", reloaded.Text)
	})

	t.Run("missing post", func(t *testing.T) {
		resp, _ := env.get(t, "/posts/999/edit/", env.login(t, leo))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	ann := testutil.CreateUser(t, env.db, "ann")
	post := testutil.CreatePosts(t, env.db, leo, nil, 1)[0]
	session := env.login(t, ann)

	resp, _ := env.postForm(t, post.URL()+"comment/", url.Values{"text": {"great"}}, session)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, post.URL(), resp.Header.Get("Location"))

	resp, _ = env.postForm(t, post.URL()+"comment/", url.Values{"text": {"  "}}, session)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode, "blank comments are dropped silently")

	var comments []models.Comment
	require.NoError(t, env.db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, "great", comments[0].Text)
	assert.Equal(t, ann.ID, comments[0].AuthorID)

	resp, _ = env.postForm(t, "/posts/999/comment/", url.Values{"text": {"hi"}}, session)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
