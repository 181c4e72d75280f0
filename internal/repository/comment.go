package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	Count(ctx context.Context, search string) (int64, error)
	List(ctx context.Context, search string, limit, offset int) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByPost returns every comment under a post, newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) (comments []*models.Comment, err error) {
	ctx, done := observe(ctx, "ListByPost", "comments")
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Scopes(newestFirst).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	return countsByColumn(ctx, r.db, &models.Comment{}, "post_id", postIDs)
}

func (r *commentRepository) Count(ctx context.Context, search string) (int64, error) {
	var n int64
	if err := containsFold(r.db.WithContext(ctx).Model(&models.Comment{}), "text", search).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *commentRepository) List(ctx context.Context, search string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := containsFold(r.db.WithContext(ctx).Model(&models.Comment{}), "text", search).
		Scopes(newestFirst, paged(limit, offset)).
		Preload("Author").
		Preload("Post").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
