package server

import (
	"strconv"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/view"

	"github.com/gofiber/fiber/v2"
)

const (
	createAction = "/create/"
	postFormPage = "posts/post_create.html"
)

// Index handles GET / (every post, newest first)
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), repository.PostFilter{}, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index.html", fiber.Map{
		"page":      page,
		"view_name": "index",
	})
}

// FollowIndex handles GET /follow/ (posts by the authors the viewer follows)
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	filter := repository.PostFilter{FollowerID: viewer(c).ID}
	page, err := s.postService.ListPosts(c.UserContext(), filter, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow.html", fiber.Map{
		"page":      page,
		"view_name": "follow",
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	group, err := s.postService.GroupBySlug(ctx, c.Params("slug"))
	if err != nil {
		return err
	}

	page, err := s.postService.ListPosts(ctx, repository.PostFilter{GroupID: group.ID}, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list.html", fiber.Map{
		"group": group,
		"page":  page,
	})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.commentService.ListForPost(ctx, post.ID)
	if err != nil {
		return err
	}
	authorPosts, err := s.postService.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return err
	}

	return s.render(c, "posts/post_detail.html", fiber.Map{
		"post":         post,
		"comments":     comments,
		"author_posts": authorPosts,
		"form":         view.NewForm(nil),
	})
}

// PostCreateForm handles GET /create/
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, view.NewForm(nil), false, createAction, "")
}

// PostCreate handles POST /create/
func (s *Server) PostCreate(c *fiber.Ctx) error {
	in, form, err := readPostForm(c)
	if err != nil {
		return err
	}

	author := viewer(c)
	_, err = s.postService.CreatePost(c.UserContext(), author.ID, in)
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.renderPostForm(c, form.WithErrors(fields), false, createAction, "")
	}
	if err != nil {
		return err
	}
	return c.Redirect(author.URL(), fiber.StatusFound)
}

// PostEditForm handles GET /posts/:id/edit/. Anyone but the author is sent
// back to the post.
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.PostForEdit(c.UserContext(), viewer(c).ID, id)
	if models.IsForbidden(err) {
		return c.Redirect(post.URL(), fiber.StatusFound)
	}
	if err != nil {
		return err
	}

	form := view.NewForm(map[string]string{
		"text":  post.Text,
		"group": groupValue(post.GroupID),
	})
	return s.renderPostForm(c, form, true, post.URL()+"edit/", post.Image)
}

// PostEdit handles POST /posts/:id/edit/
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	in, form, err := readPostForm(c)
	if err != nil {
		return err
	}
	in.ClearImage = c.FormValue("image-clear") != ""

	post, err := s.postService.EditPost(c.UserContext(), viewer(c).ID, id, in)
	if models.IsForbidden(err) {
		return c.Redirect(post.URL(), fiber.StatusFound)
	}
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.renderPostForm(c, form.WithErrors(fields), true, post.URL()+"edit/", post.Image)
	}
	if err != nil {
		return err
	}
	return c.Redirect(post.URL(), fiber.StatusFound)
}

func (s *Server) renderPostForm(c *fiber.Ctx, form *view.Form, isEdit bool, action, currentImage string) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, postFormPage, fiber.Map{
		"form":          form,
		"groups":        groups,
		"is_edit":       isEdit,
		"action":        action,
		"current_image": currentImage,
	})
}

// readPostForm collects the submitted post fields and the optional upload.
func readPostForm(c *fiber.Ctx) (service.PostInput, *view.Form, error) {
	values := formValues(c, "text", "group")
	image, err := uploadedImage(c, "image")
	if err != nil {
		return service.PostInput{}, nil, err
	}
	return service.PostInput{
		Text:    values["text"],
		GroupID: values["group"],
		Image:   image,
	}, view.NewForm(values), nil
}

func groupValue(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}
