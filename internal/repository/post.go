package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post listing. Zero fields are ignored.
type PostFilter struct {
	GroupID  uint
	AuthorID uint
	// FollowerID selects posts by every author that user follows.
	FollowerID uint
	Search     string
}

func (f PostFilter) apply(db *gorm.DB) *gorm.DB {
	if f.GroupID != 0 {
		db = db.Where("group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		db = db.Where("author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		db = db.Where("author_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&models.Follow{}).Select("author_id").Where("user_id = ?", f.FollowerID))
	}
	return containsFold(db, "text", f.Search)
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	SetGroup(ctx context.Context, id uint, groupID *uint) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, filter PostFilter) (int64, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, done := observe(ctx, "Create", "posts")
	defer func() { done(err) }()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, done := observe(ctx, "GetByID", "posts")
	defer func() { done(err) }()

	var p models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&p, id).Error; err != nil {
		return nil, translate(err, "Post", id)
	}
	return &p, nil
}

// Update saves the editable fields: text, group and image.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) SetGroup(ctx context.Context, id uint, groupID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("group_id", groupID)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (n int64, err error) {
	ctx, done := observe(ctx, "Count", "posts")
	defer func() { done(err) }()

	q := filter.apply(r.db.WithContext(ctx).Model(&models.Post{}))
	if err := q.Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// List returns one page of posts, newest first, with author and group loaded.
func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) (posts []*models.Post, err error) {
	ctx, done := observe(ctx, "List", "posts")
	defer func() { done(err) }()

	q := filter.apply(r.db.WithContext(ctx).Model(&models.Post{}))
	err = q.Scopes(newestFirst, paged(limit, offset)).
		Preload("Author").
		Preload("Group").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
