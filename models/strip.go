package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Strip is one unit of shooting work on a board, either derived from a script
// scene (SceneId set) or custom (CustomTitle set). AssignedDayId empty means
// the strip sits in the bank. SortKey is unique within a placement
// (bank, or one day) and defines the shooting order there.
type Strip struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ProjectId         string          `gorm:"index;not null" json:"project_id"`
	StripboardId      int             `gorm:"index;not null" json:"stripboard_id"`
	SceneId           string          `gorm:"size:64;index" json:"scene_id"`
	SceneNumber       string          `gorm:"size:20" json:"scene_number"`
	Slugline          string          `gorm:"size:255" json:"slugline"`
	CustomTitle       string          `gorm:"size:255" json:"custom_title"`
	Unit              string          `gorm:"size:10" json:"unit"`
	Status            StripStatus     `gorm:"size:20;not null;default:'PLANNED'" json:"status"`
	Notes             string          `gorm:"type:text" json:"notes"`
	EstimatedDuration int             `json:"estimated_duration"`
	PageEighths       decimal.Decimal `gorm:"type:decimal(8,3)" json:"page_eighths"`
	AssignedDayId     string          `gorm:"size:64;index" json:"assigned_day_id"`
	SortKey           int             `gorm:"not null" json:"sort_key"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Strip) IsCustom() bool { return s.SceneId == "" }

type NewStrip struct {
	SceneId           string          `json:"scene_id"`
	SceneNumber       string          `json:"scene_number"`
	Slugline          string          `json:"slugline"`
	CustomTitle       string          `json:"custom_title"`
	Unit              string          `json:"unit"`
	Notes             string          `json:"notes"`
	EstimatedDuration int             `json:"estimated_duration"`
	PageEighths       decimal.Decimal `json:"page_eighths"`
	AssignedDayId     string          `json:"assigned_day_id"`
}

// UpdateStripInput carries a partial update; nil fields are left untouched.
// AssignedDayId non-nil is a placement change and re-derives the sort key in
// the destination placement (append, unless Position is given).
type UpdateStripInput struct {
	CustomTitle       *string          `json:"custom_title"`
	Unit              *string          `json:"unit"`
	Status            *StripStatus     `json:"status"`
	Notes             *string          `json:"notes"`
	EstimatedDuration *int             `json:"estimated_duration"`
	PageEighths       *decimal.Decimal `json:"page_eighths"`
	AssignedDayId     *string          `json:"assigned_day_id"`
	Position          *int             `json:"position"`
}

func (input *NewStrip) validate() error {
	if input.SceneId == "" && len(strings.TrimSpace(input.CustomTitle)) == 0 {
		return utils.NewValidationError("a scene reference or a custom title is required")
	}
	return nil
}

// NextSortKey appends: max existing key in the placement + 1.
// Must run inside a transaction that holds the board lock.
func NextSortKey(tx *gorm.DB, projectId string, stripboardId int, dayId string) (int, error) {
	var max int
	err := tx.Model(&Strip{}).
		Where("project_id = ? AND stripboard_id = ? AND assigned_day_id = ?", projectId, stripboardId, dayId).
		Select("COALESCE(MAX(sort_key), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// makeRoomAt shifts every key >= position up by one so a strip can take that slot.
func makeRoomAt(tx *gorm.DB, projectId string, stripboardId int, dayId string, position int) error {
	return tx.Model(&Strip{}).
		Where("project_id = ? AND stripboard_id = ? AND assigned_day_id = ? AND sort_key >= ?",
			projectId, stripboardId, dayId, position).
		Update("sort_key", gorm.Expr("sort_key + 1")).Error
}

func CreateStrip(ctx context.Context, stripboardId int, input *NewStrip) (*Strip, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Stripboard](ctx, projectId, stripboardId); err != nil {
		return nil, utils.NewNotFoundError("stripboard not found")
	}

	strip := Strip{
		ProjectId:         projectId,
		StripboardId:      stripboardId,
		SceneId:           input.SceneId,
		SceneNumber:       input.SceneNumber,
		Slugline:          input.Slugline,
		CustomTitle:       input.CustomTitle,
		Unit:              input.Unit,
		Status:            StripStatusPlanned,
		Notes:             input.Notes,
		EstimatedDuration: input.EstimatedDuration,
		PageEighths:       input.PageEighths,
		AssignedDayId:     input.AssignedDayId,
	}
	if strip.AssignedDayId != "" {
		strip.Status = StripStatusScheduled
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBoardLock(tx, projectId, stripboardId); err != nil {
			return err
		}
		defer ReleaseBoardLock(tx, projectId, stripboardId)

		key, err := NextSortKey(tx, projectId, stripboardId, strip.AssignedDayId)
		if err != nil {
			return err
		}
		strip.SortKey = key
		return tx.Create(&strip).Error
	})
	if err != nil {
		return nil, err
	}
	return &strip, nil
}

func UpdateStrip(ctx context.Context, stripboardId int, stripId int, input *UpdateStripInput) (*Strip, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	var strip *Strip
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBoardLock(tx, projectId, stripboardId); err != nil {
			return err
		}
		defer ReleaseBoardLock(tx, projectId, stripboardId)

		var s Strip
		if err := tx.Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
			First(&s, stripId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		updates := map[string]interface{}{}
		if input.CustomTitle != nil {
			if s.IsCustom() && len(strings.TrimSpace(*input.CustomTitle)) == 0 {
				return utils.NewValidationError("custom title cannot be empty for a custom strip")
			}
			updates["CustomTitle"] = *input.CustomTitle
		}
		if input.Unit != nil {
			updates["Unit"] = *input.Unit
		}
		if input.Status != nil {
			if _, err := ParseStripStatus(string(*input.Status)); err != nil {
				return err
			}
			updates["Status"] = *input.Status
		}
		if input.Notes != nil {
			updates["Notes"] = *input.Notes
		}
		if input.EstimatedDuration != nil {
			updates["EstimatedDuration"] = *input.EstimatedDuration
		}
		if input.PageEighths != nil {
			updates["PageEighths"] = *input.PageEighths
		}

		if input.AssignedDayId != nil && *input.AssignedDayId != s.AssignedDayId {
			dest := *input.AssignedDayId
			var key int
			var err error
			if input.Position != nil {
				key = *input.Position
				if err = makeRoomAt(tx, projectId, stripboardId, dest, key); err != nil {
					return err
				}
			} else {
				key, err = NextSortKey(tx, projectId, stripboardId, dest)
				if err != nil {
					return err
				}
			}
			updates["AssignedDayId"] = dest
			updates["SortKey"] = key
		}

		if len(updates) == 0 {
			strip = &s
			return nil
		}
		if err := tx.Model(&s).Updates(updates).Error; err != nil {
			return err
		}
		strip = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return strip, nil
}

func DeleteStrip(ctx context.Context, stripboardId int, stripId int) (*Strip, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	var strip Strip
	if err := db.WithContext(ctx).
		Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
		First(&strip, stripId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// Survivors keep their keys; relative order is preserved without compaction.
	if err := db.WithContext(ctx).Delete(&strip).Error; err != nil {
		return nil, err
	}
	return &strip, nil
}

// findReorderNeighbor returns the index of the strip and of its swap partner
// within an ordered placement, or (-1, -1) when the strip is absent.
// The neighbor index equals the strip index at a boundary.
func findReorderNeighbor(ordered []*Strip, stripId int, direction ReorderDirection) (stripIdx, neighborIdx int) {
	stripIdx = -1
	for i, s := range ordered {
		if s.ID == stripId {
			stripIdx = i
			break
		}
	}
	if stripIdx < 0 {
		return -1, -1
	}
	switch direction {
	case ReorderDirectionUp:
		if stripIdx == 0 {
			return stripIdx, stripIdx
		}
		return stripIdx, stripIdx - 1
	default:
		if stripIdx == len(ordered)-1 {
			return stripIdx, stripIdx
		}
		return stripIdx, stripIdx + 1
	}
}

// ReorderStrip swaps a strip with its immediate neighbor inside its current
// placement. At a boundary (first strip UP, last strip DOWN) it returns a
// benign conflict error and changes nothing.
func ReorderStrip(ctx context.Context, stripboardId int, stripId int, direction ReorderDirection) (*Strip, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	var strip *Strip
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBoardLock(tx, projectId, stripboardId); err != nil {
			return err
		}
		defer ReleaseBoardLock(tx, projectId, stripboardId)

		var s Strip
		if err := tx.Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
			First(&s, stripId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		var placement []*Strip
		if err := tx.Where("project_id = ? AND stripboard_id = ? AND assigned_day_id = ?",
			projectId, stripboardId, s.AssignedDayId).
			Order("sort_key").Find(&placement).Error; err != nil {
			return err
		}

		idx, nIdx := findReorderNeighbor(placement, stripId, direction)
		if idx < 0 {
			return utils.ErrorRecordNotFound
		}
		if idx == nIdx {
			if direction == ReorderDirectionUp {
				return utils.NewConflictError("strip is already first")
			}
			return utils.NewConflictError("strip is already last")
		}

		neighbor := placement[nIdx]
		myKey, neighborKey := s.SortKey, neighbor.SortKey
		if err := tx.Model(&Strip{}).Where("id = ?", neighbor.ID).
			Update("sort_key", myKey).Error; err != nil {
			return err
		}
		if err := tx.Model(&s).Update("sort_key", neighborKey).Error; err != nil {
			return err
		}
		strip = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return strip, nil
}

// ListStrips returns every strip of a board ordered by placement then sort key.
func ListStrips(ctx context.Context, stripboardId int) ([]*Strip, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := utils.ValidateResourceId[Stripboard](ctx, projectId, stripboardId); err != nil {
		return nil, utils.NewNotFoundError("stripboard not found")
	}

	db := config.GetDB()
	var results []*Strip
	err := db.WithContext(ctx).
		Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
		Order("assigned_day_id, sort_key").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceDayOrder renumbers a day's strips to match the given strip-id order.
// Strips of the day not present in orderedStripIds (custom strips have no
// schedule slot) keep the positions they already hold, so renumbering with an
// unchanged scene order leaves the day untouched. Used by schedule sync when
// the external schedule wins.
func ReplaceDayOrder(ctx context.Context, stripboardId int, dayId string, orderedStripIds []int) error {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return utils.NewValidationError("project id is required")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBoardLock(tx, projectId, stripboardId); err != nil {
			return err
		}
		defer ReleaseBoardLock(tx, projectId, stripboardId)

		var placement []*Strip
		if err := tx.Where("project_id = ? AND stripboard_id = ? AND assigned_day_id = ?",
			projectId, stripboardId, dayId).
			Order("sort_key").Find(&placement).Error; err != nil {
			return err
		}

		newKeys := make(map[int]int, len(placement)) // strip id -> new key
		for i, id := range mergeDayOrder(placement, orderedStripIds) {
			newKeys[id] = i + 1
		}

		for _, s := range placement {
			newKey := newKeys[s.ID]
			if newKey == s.SortKey {
				continue
			}
			if err := tx.Model(&Strip{}).Where("id = ?", s.ID).
				Update("sort_key", newKey).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// mergeDayOrder returns the day's strip ids in their new order. Strips named
// by orderedStripIds take the named slots in that order; unnamed strips keep
// the slots they currently occupy, so an order update that only repeats the
// existing scene order changes nothing. Ids not on the day are ignored.
func mergeDayOrder(placement []*Strip, orderedStripIds []int) []int {
	onDay := make(map[int]bool, len(placement))
	for _, s := range placement {
		onDay[s.ID] = true
	}

	named := make(map[int]bool, len(orderedStripIds))
	queue := make([]int, 0, len(orderedStripIds))
	for _, id := range orderedStripIds {
		if !onDay[id] || named[id] {
			continue
		}
		named[id] = true
		queue = append(queue, id)
	}

	merged := make([]int, 0, len(placement))
	for _, s := range placement {
		if named[s.ID] {
			merged = append(merged, queue[0])
			queue = queue[1:]
			continue
		}
		merged = append(merged, s.ID)
	}
	return merged
}
