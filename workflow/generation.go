package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/shopspring/decimal"
)

// PlannedStrip is a strip a generation source wants to exist.
type PlannedStrip struct {
	SceneId           string
	SceneNumber       string
	Slugline          string
	EstimatedDuration int
	PageEighths       decimal.Decimal
	AssignedDayId     string
}

// GenerationSource yields candidate strips from one upstream source.
// All three sources share the same skip-existing runner, keyed by scene id.
type GenerationSource interface {
	Name() string
	PlannedStrips(ctx context.Context, projectId string) ([]PlannedStrip, error)
}

type GenerationResult struct {
	Source  string `json:"source"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

// planGeneration drops candidates whose scene is already represented on the
// board (and duplicate candidates within one run). Scene identity alone keys
// the skip check, so re-running after reassignment never duplicates.
func planGeneration(existingSceneIds map[string]bool, candidates []PlannedStrip) (toCreate []PlannedStrip, skipped int) {
	seen := map[string]bool{}
	for _, c := range candidates {
		if c.SceneId == "" {
			skipped++
			continue
		}
		if existingSceneIds[c.SceneId] || seen[c.SceneId] {
			skipped++
			continue
		}
		seen[c.SceneId] = true
		toCreate = append(toCreate, c)
	}
	return toCreate, skipped
}

// RunGeneration creates a strip for every candidate the board does not have
// yet. Idempotent: a second run with unchanged sources reports created=0.
func RunGeneration(ctx context.Context, stripboardId int, source GenerationSource) (*GenerationResult, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	candidates, err := source.PlannedStrips(ctx, projectId)
	if err != nil {
		return nil, err
	}

	existing, err := models.ListStrips(ctx, stripboardId)
	if err != nil {
		return nil, err
	}
	existingSceneIds := make(map[string]bool, len(existing))
	for _, s := range existing {
		if s.SceneId != "" {
			existingSceneIds[s.SceneId] = true
		}
	}

	toCreate, skipped := planGeneration(existingSceneIds, candidates)

	result := &GenerationResult{Source: source.Name(), Skipped: skipped}
	for _, c := range toCreate {
		_, err := models.CreateStrip(ctx, stripboardId, &models.NewStrip{
			SceneId:           c.SceneId,
			SceneNumber:       c.SceneNumber,
			Slugline:          c.Slugline,
			EstimatedDuration: c.EstimatedDuration,
			PageEighths:       c.PageEighths,
			AssignedDayId:     c.AssignedDayId,
		})
		if err != nil {
			return result, err
		}
		result.Created++
	}
	return result, nil
}

/* sources */

// ScriptSource plans one bank strip per script scene.
type ScriptSource struct {
	Scenes prodapi.SceneStore
}

func (s *ScriptSource) Name() string { return "script" }

func (s *ScriptSource) PlannedStrips(ctx context.Context, projectId string) ([]PlannedStrip, error) {
	scenes, err := s.Scenes.ListScenes(ctx, projectId)
	if err != nil {
		return nil, err
	}
	planned := make([]PlannedStrip, 0, len(scenes))
	for _, sc := range scenes {
		planned = append(planned, PlannedStrip{
			SceneId:           sc.SceneId,
			SceneNumber:       sc.SceneNumber,
			Slugline:          sc.Slugline,
			EstimatedDuration: sc.EstimatedDuration,
			PageEighths:       sc.PageEighths,
		})
	}
	return planned, nil
}

// ScheduleSource plans strips only for scenes the schedule has already placed
// on a day, pre-assigned to that day. Unscheduled scenes are not planned.
type ScheduleSource struct {
	Schedule prodapi.ScheduleStore
	Scenes   prodapi.SceneStore
	Horizon  utils.DateRange
}

func (s *ScheduleSource) Name() string { return "schedule" }

func (s *ScheduleSource) PlannedStrips(ctx context.Context, projectId string) ([]PlannedStrip, error) {
	days, err := s.Schedule.ListDaySceneAssignments(ctx, projectId, s.Horizon)
	if err != nil {
		return nil, err
	}
	sceneIndex, err := indexScenes(ctx, s.Scenes, projectId)
	if err != nil {
		return nil, err
	}

	var planned []PlannedStrip
	for _, day := range days {
		for _, placement := range day.Scenes {
			p := PlannedStrip{SceneId: placement.SceneId, AssignedDayId: day.DayId}
			if sc, ok := sceneIndex[placement.SceneId]; ok {
				p.SceneNumber = sc.SceneNumber
				p.Slugline = sc.Slugline
				p.EstimatedDuration = sc.EstimatedDuration
				p.PageEighths = sc.PageEighths
			}
			planned = append(planned, p)
		}
	}
	return planned, nil
}

// CallSheetSource plans strips for the scenes of one call sheet, assigned to
// its linked production day.
type CallSheetSource struct {
	CallSheets  prodapi.CallSheetStore
	Scenes      prodapi.SceneStore
	CallSheetId string
}

func (s *CallSheetSource) Name() string { return "call_sheet" }

func (s *CallSheetSource) PlannedStrips(ctx context.Context, projectId string) ([]PlannedStrip, error) {
	if s.CallSheetId == "" {
		return nil, utils.NewValidationError("call_sheet_id is required")
	}
	cs, err := s.CallSheets.GetCallSheet(ctx, s.CallSheetId)
	if err != nil {
		return nil, err
	}
	sceneIndex, err := indexScenes(ctx, s.Scenes, projectId)
	if err != nil {
		return nil, err
	}

	planned := make([]PlannedStrip, 0, len(cs.SceneIds))
	for _, sceneId := range cs.SceneIds {
		p := PlannedStrip{SceneId: sceneId, AssignedDayId: cs.ProductionDayId}
		if sc, ok := sceneIndex[sceneId]; ok {
			p.SceneNumber = sc.SceneNumber
			p.Slugline = sc.Slugline
			p.EstimatedDuration = sc.EstimatedDuration
			p.PageEighths = sc.PageEighths
		}
		planned = append(planned, p)
	}
	return planned, nil
}

func indexScenes(ctx context.Context, store prodapi.SceneStore, projectId string) (map[string]prodapi.Scene, error) {
	scenes, err := store.ListScenes(ctx, projectId)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	index := make(map[string]prodapi.Scene, len(scenes))
	for _, sc := range scenes {
		index[sc.SceneId] = sc
	}
	return index, nil
}
