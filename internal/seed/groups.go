package seed

import (
	_ "embed"
	"fmt"

	"yatube/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed groups.yml
var groupsYAML []byte

// BuiltInGroup is one entry of the embedded groups fixture.
type BuiltInGroup struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// BuiltInGroups parses the embedded fixture.
func BuiltInGroups() ([]BuiltInGroup, error) {
	var items []BuiltInGroup
	if err := yaml.Unmarshal(groupsYAML, &items); err != nil {
		return nil, fmt.Errorf("parse groups fixture: %w", err)
	}
	for i, item := range items {
		if item.Slug == "" || item.Title == "" {
			return nil, fmt.Errorf("groups fixture entry %d: slug and title are required", i)
		}
	}
	return items, nil
}

// Groups upserts the built-in groups by slug and returns them.
func Groups(db *gorm.DB) ([]models.Group, error) {
	items, err := BuiltInGroups()
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(items))
	for _, item := range items {
		group := models.Group{Slug: item.Slug, Title: item.Title, Description: item.Description}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error
		if err != nil {
			return nil, fmt.Errorf("seed built-in group %s: %w", item.Slug, err)
		}
		if group.ID == 0 {
			if err := db.Where("slug = ?", item.Slug).First(&group).Error; err != nil {
				return nil, err
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}
