package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"gorm.io/gorm"
)

type DropTargetKind string

const (
	DropTargetBank  DropTargetKind = "bank"
	DropTargetDay   DropTargetKind = "day"
	DropTargetStrip DropTargetKind = "strip"
)

// DropTarget is where a dragged strip was released: the bank, a day column
// (by day id, even when the column is empty), or another strip (in which case
// the target placement is that strip's placement, not its identity).
type DropTarget struct {
	Kind    DropTargetKind `json:"kind"`
	DayId   string         `json:"day_id"`
	StripId int            `json:"strip_id"`
}

func (t DropTarget) validate() error {
	switch t.Kind {
	case DropTargetBank:
		return nil
	case DropTargetDay:
		if t.DayId == "" {
			return utils.NewValidationError("day target requires a day id")
		}
		return nil
	case DropTargetStrip:
		if t.StripId <= 0 {
			return utils.NewValidationError("strip target requires a strip id")
		}
		return nil
	}
	return utils.NewValidationError("invalid drop target kind")
}

// AssignmentResult always carries the authoritative placement after the
// operation so a caller can reconcile an optimistic display on failure or
// no-op.
type AssignmentResult struct {
	StripId       int    `json:"strip_id"`
	Moved         bool   `json:"moved"`
	AssignedDayId string `json:"assigned_day_id"`
	InBank        bool   `json:"in_bank"`
}

// resolveTargetDay maps a drop target to a destination day id ("" = bank).
// lookup returns the referenced strip's current placement; a missing strip
// (or one without placement information) resolves to bank.
func resolveTargetDay(target DropTarget, lookup func(stripId int) (dayId string, ok bool)) string {
	switch target.Kind {
	case DropTargetDay:
		return target.DayId
	case DropTargetStrip:
		if dayId, ok := lookup(target.StripId); ok {
			return dayId
		}
		return ""
	default:
		return ""
	}
}

// ResolveAssignment handles a drag/drop commit. Target placement is resolved
// against the store's current state at commit time (read latest, then write),
// never against a client snapshot. Same placement is a benign no-op: visual
// order during a drag does not persist by itself, only explicit reorders do.
func ResolveAssignment(ctx context.Context, stripboardId int, stripId int, target DropTarget) (*AssignmentResult, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := target.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var result *AssignmentResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.AcquireBoardLock(tx, projectId, stripboardId); err != nil {
			return err
		}
		defer models.ReleaseBoardLock(tx, projectId, stripboardId)

		var source models.Strip
		if err := tx.Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
			First(&source, stripId).Error; err != nil {
			return utils.NewNotFoundError("strip not found")
		}

		destDayId := resolveTargetDay(target, func(id int) (string, bool) {
			var other models.Strip
			if err := tx.Where("project_id = ? AND stripboard_id = ?", projectId, stripboardId).
				First(&other, id).Error; err != nil {
				return "", false
			}
			return other.AssignedDayId, true
		})

		if destDayId == source.AssignedDayId {
			result = &AssignmentResult{
				StripId:       source.ID,
				Moved:         false,
				AssignedDayId: source.AssignedDayId,
				InBank:        source.AssignedDayId == "",
			}
			return nil
		}

		key, err := models.NextSortKey(tx, projectId, stripboardId, destDayId)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"AssignedDayId": destDayId,
			"SortKey":       key,
		}
		if err := tx.Model(&source).Updates(updates).Error; err != nil {
			return err
		}
		result = &AssignmentResult{
			StripId:       source.ID,
			Moved:         true,
			AssignedDayId: destDayId,
			InBank:        destDayId == "",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
