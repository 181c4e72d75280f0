package repository

import (
	"context"

	"yatube/internal/database"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	List(ctx context.Context, search string) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	DeleteBySlug(ctx context.Context, slug string) error
	PostCounts(ctx context.Context, ids []uint) (map[uint]int64, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (group *models.Group, err error) {
	ctx, done := observe(ctx, "GetBySlug", "groups")
	defer func() { done(err) }()

	var g models.Group
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return nil, translate(err, "Group", slug)
	}
	return &g, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, translate(err, "Group", id)
	}
	return &g, nil
}

// List returns groups ordered by slug, optionally filtered by title or description.
func (r *groupRepository) List(ctx context.Context, search string) ([]models.Group, error) {
	var groups []models.Group
	q := r.db.WithContext(ctx).Model(&models.Group{})
	if pattern, ok := likePattern(search); ok {
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if err := q.Order("slug").Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if database.IsUniqueViolation(err) {
			fields := models.FormErrors{}
			fields.Add("slug", "Group with this Slug already exists.")
			return models.NewFormError(fields)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteBySlug removes a group; its posts stay with no group.
func (r *groupRepository) DeleteBySlug(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Group{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Group", slug)
	}
	return nil
}

func (r *groupRepository) PostCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return countsByColumn(ctx, r.db, &models.Post{}, "group_id", ids)
}
