package service

import (
	"context"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/redis/go-redis/v9"
)

// EmptyValue stands in for blank columns in admin listings.
const EmptyValue = "-empty-"

// OrEmpty returns s, or EmptyValue when s is blank.
func OrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyValue
	}
	return s
}

// AdminService backs the staff command line: content moderation, group
// management and cache control.
type AdminService struct {
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	images   ImageStore
	pages    *cache.PageCache
	rdb      *redis.Client
}

// AdminRepos groups the repositories AdminService works over.
type AdminRepos struct {
	Users    repository.UserRepository
	Groups   repository.GroupRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository
	Follows  repository.FollowRepository
}

// GroupRow is a group with its post count.
type GroupRow struct {
	Group models.Group
	Posts int64
}

// PostRow is a post with its comment count.
type PostRow struct {
	Post     *models.Post
	Comments int64
}

func NewAdminService(repos AdminRepos, images ImageStore, pages *cache.PageCache, rdb *redis.Client) *AdminService {
	return &AdminService{
		users:    repos.Users,
		groups:   repos.Groups,
		posts:    repos.Posts,
		comments: repos.Comments,
		follows:  repos.Follows,
		images:   images,
		pages:    pages,
		rdb:      rdb,
	}
}

// Groups lists groups matching search in title or description.
func (s *AdminService) Groups(ctx context.Context, search string) ([]GroupRow, error) {
	groups, err := s.groups.List(ctx, search)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(groups))
	for i := range groups {
		ids[i] = groups[i].ID
	}
	counts, err := s.groups.PostCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]GroupRow, len(groups))
	for i := range groups {
		rows[i] = GroupRow{Group: groups[i], Posts: counts[groups[i].ID]}
	}
	return rows, nil
}

func (s *AdminService) CreateGroup(ctx context.Context, slug, title, description string) (*models.Group, error) {
	fields := models.FormErrors{}
	slug = strings.TrimSpace(slug)
	title = strings.TrimSpace(title)
	if slug == "" {
		fields.Add("slug", msgRequired)
	} else if err := validation.ValidateSlug(slug); err != nil {
		fields.Add("slug", err.Error())
	}
	if title == "" {
		fields.Add("title", msgRequired)
	} else if len([]rune(title)) > 200 {
		fields.Add("title", "Ensure this value has at most 200 characters.")
	}
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}

	group := &models.Group{Slug: slug, Title: title, Description: strings.TrimSpace(description)}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	cache.InvalidateGroups(ctx, s.rdb)
	return group, nil
}

// DeleteGroup removes a group; its posts stay, ungrouped.
func (s *AdminService) DeleteGroup(ctx context.Context, slug string) error {
	if err := s.groups.DeleteBySlug(ctx, slug); err != nil {
		return err
	}
	cache.InvalidateGroups(ctx, s.rdb)
	return nil
}

// Posts lists up to limit posts whose text contains search, newest first.
func (s *AdminService) Posts(ctx context.Context, search string, limit int) ([]PostRow, error) {
	posts, err := s.posts.List(ctx, repository.PostFilter{Search: search}, limit, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := s.comments.CountByPost(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]PostRow, len(posts))
	for i, p := range posts {
		rows[i] = PostRow{Post: p, Comments: counts[p.ID]}
	}
	return rows, nil
}

// SetPostGroup moves a post into the group with slug. "" or "-" clears it.
func (s *AdminService) SetPostGroup(ctx context.Context, postID uint, slug string) error {
	var groupID *uint
	if slug = strings.TrimSpace(slug); slug != "" && slug != "-" {
		group, err := s.groups.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		groupID = &group.ID
	}
	return s.posts.SetGroup(ctx, postID, groupID)
}

// DeletePost removes a post with its comments and image files.
func (s *AdminService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	if post.Image != "" && s.images != nil {
		s.images.Remove(post.Image)
	}
	return nil
}

func (s *AdminService) Comments(ctx context.Context, search string, limit int) ([]*models.Comment, error) {
	return s.comments.List(ctx, search, limit, 0)
}

func (s *AdminService) DeleteComment(ctx context.Context, id uint) error {
	return s.comments.Delete(ctx, id)
}

func (s *AdminService) Follows(ctx context.Context, limit int) ([]*models.Follow, error) {
	return s.follows.List(ctx, limit, 0)
}

func (s *AdminService) DeleteFollow(ctx context.Context, id uint) error {
	return s.follows.DeleteByID(ctx, id)
}

// SetStaff grants or revokes staff status.
func (s *AdminService) SetStaff(ctx context.Context, username string, staff bool) error {
	return s.users.SetStaff(ctx, username, staff)
}

// ClearPageCache drops every cached page and reports how many went.
func (s *AdminService) ClearPageCache(ctx context.Context) (int, error) {
	if s.pages == nil || !s.pages.Enabled() {
		return 0, cache.ErrCacheDisabled
	}
	return s.pages.Clear(ctx)
}
