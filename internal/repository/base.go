package repository

import (
	"context"
	"errors"
	"strings"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// newestFirst is the ordering of every listing: creation time, then id,
// both descending, so equal timestamps still page deterministically.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created DESC").Order("id DESC")
}

func paged(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}

func likePattern(search string) (string, bool) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", false
	}
	return "%" + strings.ToLower(search) + "%", true
}

// containsFold matches column against a case-insensitive substring.
func containsFold(db *gorm.DB, column, search string) *gorm.DB {
	pattern, ok := likePattern(search)
	if !ok {
		return db
	}
	return db.Where("LOWER("+column+") LIKE ?", pattern)
}

// observe opens a span and a latency timer; call the returned func with
// the method's final error.
func observe(ctx context.Context, method, table string) (context.Context, func(error)) {
	ctx, span := observability.StartRepositorySpan(ctx, method, table)
	done := observability.TrackQuery(method, table)
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
	}
}

func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func countsByColumn(ctx context.Context, db *gorm.DB, model interface{}, column string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		OwnerID uint
		Total   int64
	}
	err := db.WithContext(ctx).Model(model).
		Select(column+" AS owner_id, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, r := range rows {
		out[r.OwnerID] = r.Total
	}
	return out, nil
}
