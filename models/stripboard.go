package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"gorm.io/gorm"
)

type Stripboard struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ProjectId   string    `gorm:"index;not null" json:"project_id"`
	Title       string    `gorm:"size:100;not null" json:"title" binding:"required"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    *bool     `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStripboard struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewStripboard) validate(ctx context.Context, projectId string, id int) error {
	if len(strings.TrimSpace(input.Title)) == 0 {
		return utils.NewValidationError("title is required")
	}
	if err := utils.ValidateUnique[Stripboard](ctx, projectId, "title", input.Title, id); err != nil {
		return err
	}
	return nil
}

func CreateStripboard(ctx context.Context, input *NewStripboard) (*Stripboard, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := input.validate(ctx, projectId, 0); err != nil {
		return nil, err
	}

	stripboard := Stripboard{
		ProjectId:   projectId,
		Title:       input.Title,
		Description: input.Description,
		IsActive:    utils.NewFalse(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&stripboard).Error
	if err != nil {
		return nil, err
	}
	return &stripboard, nil
}

func UpdateStripboard(ctx context.Context, id int, input *NewStripboard) (*Stripboard, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := input.validate(ctx, projectId, id); err != nil {
		return nil, err
	}

	stripboard, err := utils.FetchModel[Stripboard](ctx, projectId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&stripboard).Updates(map[string]interface{}{
		"Title":       input.Title,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	return stripboard, nil
}

func DeleteStripboard(ctx context.Context, id int) (*Stripboard, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	result, err := utils.FetchModel[Stripboard](ctx, projectId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stripboard_id = ?", id).Delete(&Strip{}).Error; err != nil {
			return err
		}
		return tx.Delete(&result).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetStripboard(ctx context.Context, id int) (*Stripboard, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	return utils.FetchModel[Stripboard](ctx, projectId, id)
}

func ListStripboards(ctx context.Context) ([]*Stripboard, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	var results []*Stripboard
	err := db.WithContext(ctx).Where("project_id = ?", projectId).Order("title").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetActiveStripboard returns the project's active board.
// (at most one board is active per project)
func GetActiveStripboard(ctx context.Context) (*Stripboard, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	var result Stripboard
	err := db.WithContext(ctx).Where("project_id = ? AND is_active = ?", projectId, true).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// SetActiveStripboard activates one board and deactivates every other board of
// the project in the same transaction.
func SetActiveStripboard(ctx context.Context, id int) (*Stripboard, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	stripboard, err := utils.FetchModel[Stripboard](ctx, projectId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Stripboard{}).
			Where("project_id = ? AND id != ?", projectId, id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&stripboard).Update("is_active", true).Error
	})
	if err != nil {
		return nil, err
	}
	stripboard.IsActive = utils.NewTrue()
	return stripboard, nil
}
