package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Form messages shared by the post and comment forms.
const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
	msgClearAndFile  = "Please either submit a file or check the clear checkbox, not both."
)

type PostService struct {
	posts   repository.PostRepository
	groups  repository.GroupRepository
	images  ImageStore
	rdb     *redis.Client
	perPage int
}

// PostInput is the submitted post form. GroupID is the raw select value.
type PostInput struct {
	Text       string
	GroupID    string
	Image      *UploadImageInput
	ClearImage bool
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts []*models.Post
	Page  pagination.Page
}

func NewPostService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	images ImageStore,
	rdb *redis.Client,
	perPage int,
) *PostService {
	if perPage < 1 {
		perPage = pagination.PostsPerPage
	}
	return &PostService{
		posts:   posts,
		groups:  groups,
		images:  images,
		rdb:     rdb,
		perPage: perPage,
	}
}

// ListPosts counts the filtered set and loads the page rawPage resolves to.
func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter, rawPage string) (*PostPage, error) {
	count, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := pagination.New(int(count), s.perPage).GetPage(rawPage)
	out := &PostPage{Posts: []*models.Post{}, Page: page}
	if page.Limit() == 0 {
		return out, nil
	}

	posts, err := s.posts.List(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	out.Posts = posts
	return out, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// CountByAuthor is the number of posts authorID has published.
func (s *PostService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.posts.Count(ctx, repository.PostFilter{AuthorID: authorID})
}

// GroupBySlug resolves a group feed URL.
func (s *PostService) GroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return s.groups.GetBySlug(ctx, slug)
}

// Groups returns the choices for the group select, cached briefly in Redis.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := cache.Aside(ctx, s.rdb, cache.GroupsKey, &groups, cache.GroupsTTL, func() error {
		var err error
		groups, err = s.groups.List(ctx, "")
		return err
	})
	return groups, err
}

// PostForEdit loads a post its author is about to edit. Anyone else gets a
// Forbidden error.
func (s *PostService) PostForEdit(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return post, models.NewForbiddenError("only the author can edit this post")
	}
	return post, nil
}

// CreatePost validates the form and stores a new post by authorID.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, in PostInput) (*models.Post, error) {
	text, groupID, fields, err := s.cleanPostForm(ctx, in)
	if err != nil {
		return nil, err
	}

	var image string
	if fields.Empty() && in.Image != nil {
		if image, err = s.storeImage(ctx, *in.Image, fields); err != nil {
			return nil, err
		}
	}
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}

	post := &models.Post{
		Text:     text,
		AuthorID: authorID,
		GroupID:  groupID,
		Image:    image,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.removeImage(image)
		return nil, err
	}

	observability.PostsCreated.Inc()
	return post, nil
}

// EditPost applies the form to a post owned by actorID. A new upload
// replaces the stored image; ClearImage without an upload removes it.
func (s *PostService) EditPost(ctx context.Context, actorID, postID uint, in PostInput) (*models.Post, error) {
	post, err := s.PostForEdit(ctx, actorID, postID)
	if err != nil {
		return post, err
	}

	text, groupID, fields, err := s.cleanPostForm(ctx, in)
	if err != nil {
		return nil, err
	}
	if in.ClearImage && in.Image != nil {
		fields.Add("image", msgClearAndFile)
	}

	previous := post.Image
	image := previous
	if fields.Empty() {
		switch {
		case in.Image != nil:
			if image, err = s.storeImage(ctx, *in.Image, fields); err != nil {
				return nil, err
			}
		case in.ClearImage:
			image = ""
		}
	}
	if !fields.Empty() {
		return post, models.NewFormError(fields)
	}

	post.Text = text
	post.GroupID = groupID
	post.Image = image
	if err := s.posts.Update(ctx, post); err != nil {
		if image != previous {
			s.removeImage(image)
		}
		return nil, err
	}
	if previous != "" && image != previous {
		s.removeImage(previous)
	}
	return post, nil
}

func (s *PostService) cleanPostForm(ctx context.Context, in PostInput) (string, *uint, models.FormErrors, error) {
	fields := models.FormErrors{}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		fields.Add("text", msgRequired)
	}

	groupID, err := s.cleanGroup(ctx, in.GroupID)
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
			return "", nil, nil, err
		}
		fields.Add("group", appErr.Message)
	}
	return text, groupID, fields, nil
}

// cleanGroup turns the select value into a group id. Blank means no group.
func (s *PostService) cleanGroup(ctx context.Context, raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewValidationError(msgInvalidChoice)
	}
	group, err := s.groups.GetByID(ctx, uint(id))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewValidationError(msgInvalidChoice)
		}
		return nil, err
	}
	return &group.ID, nil
}

// storeImage saves an upload. A rejected upload is recorded in fields and
// yields an empty path; only storage failures are returned as errors.
func (s *PostService) storeImage(ctx context.Context, in UploadImageInput, fields models.FormErrors) (string, error) {
	if s.images == nil {
		return "", errors.New("image storage not configured")
	}
	rel, err := s.images.Store(ctx, in)
	if err != nil {
		if IsUploadRejection(err) {
			fields.Add("image", err.Error())
			return "", nil
		}
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

func (s *PostService) removeImage(rel string) {
	if rel != "" && s.images != nil {
		s.images.Remove(rel)
	}
}
