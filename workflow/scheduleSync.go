package workflow

import (
	"context"
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("stripboard-backend")

const (
	DayOutcomeOk      = "ok"
	DayOutcomeFailed  = "failed"
	DayOutcomeSkipped = "skipped"
)

// DaySyncOutcome reports what happened to one production day during a sync
// phase. One failed day never aborts the batch.
type DaySyncOutcome struct {
	DayId   string `json:"day_id"`
	Date    string `json:"date"`
	Phase   string `json:"phase"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Created int    `json:"created,omitempty"`
	Moved   int    `json:"moved,omitempty"`
	Written int    `json:"written,omitempty"`
}

type SyncResult struct {
	Direction models.SyncDirection `json:"direction"`
	Created   int                  `json:"created"`
	Moved     int                  `json:"moved"`
	Days      []DaySyncOutcome     `json:"days"`
	Partial   bool                 `json:"partial"`
	Message   string               `json:"message"`
}

// SyncSchedule reconciles strip day-assignments against the external
// production schedule. Both-direction sync runs from_schedule fully before
// to_schedule so schedule-originated changes are not overwritten by stale
// stripboard state.
//
// Conflict policy: the external schedule is the authority for which day a
// scene shoots on; the stripboard is the authority for intra-day order. So
// from_schedule alone also aligns intra-day order to the schedule, while
// inside a both-direction run the first phase moves strips between days only
// and the second phase pushes the board's order back.
func SyncSchedule(ctx context.Context, schedule prodapi.ScheduleStore, scenes prodapi.SceneStore,
	stripboardId int, direction models.SyncDirection, dateRange utils.DateRange) (*SyncResult, error) {

	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}
	if err := utils.ValidateResourceId[models.Stripboard](ctx, projectId, stripboardId); err != nil {
		return nil, utils.NewNotFoundError("stripboard not found")
	}

	result := &SyncResult{Direction: direction}

	days, err := schedule.ListDaySceneAssignments(ctx, projectId, dateRange)
	if err != nil {
		return nil, err
	}
	sortScheduleDays(days)

	if direction == models.SyncDirectionFromSchedule || direction == models.SyncDirectionBoth {
		matchOrder := direction == models.SyncDirectionFromSchedule
		if err := syncFromSchedule(ctx, scenes, stripboardId, days, matchOrder, result); err != nil {
			return nil, err
		}
	}
	if direction == models.SyncDirectionToSchedule || direction == models.SyncDirectionBoth {
		if err := syncToSchedule(ctx, schedule, stripboardId, days, result); err != nil {
			return nil, err
		}
	}

	result.Message = summarize(result)
	return result, nil
}

// syncFromSchedule ensures every scheduled scene has a strip on its scheduled
// day. Missing strips are generated (skip-existing rule); misplaced strips
// are moved; when matchOrder is set, each day's scene strips are renumbered to
// the schedule's scene order while custom strips keep their slots.
func syncFromSchedule(ctx context.Context, scenes prodapi.SceneStore, stripboardId int,
	days []prodapi.ScheduleDay, matchOrder bool, result *SyncResult) error {

	ctx, span := tracer.Start(ctx, "sync.from_schedule")
	defer span.End()

	projectId, _ := utils.GetProjectIdFromContext(ctx)
	sceneIndex, err := indexScenes(ctx, scenes, projectId)
	if err != nil {
		return err
	}

	for _, day := range days {
		outcome := DaySyncOutcome{DayId: day.DayId, Date: day.Date, Phase: "from_schedule", Status: DayOutcomeOk}

		// re-read per day: earlier days may have created or moved strips
		strips, err := models.ListStrips(ctx, stripboardId)
		if err != nil {
			return err
		}
		bySceneId := make(map[string]*models.Strip, len(strips))
		for _, s := range strips {
			if s.SceneId != "" {
				bySceneId[s.SceneId] = s
			}
		}

		placements := append([]prodapi.ScenePlacement(nil), day.Scenes...)
		sort.Slice(placements, func(i, j int) bool { return placements[i].Order < placements[j].Order })

		var dayStripIds []int
		failed := false
		for _, placement := range placements {
			strip, exists := bySceneId[placement.SceneId]
			if !exists {
				planned := models.NewStrip{SceneId: placement.SceneId, AssignedDayId: day.DayId}
				if sc, ok := sceneIndex[placement.SceneId]; ok {
					planned.SceneNumber = sc.SceneNumber
					planned.Slugline = sc.Slugline
					planned.EstimatedDuration = sc.EstimatedDuration
					planned.PageEighths = sc.PageEighths
				}
				created, err := models.CreateStrip(ctx, stripboardId, &planned)
				if err != nil {
					failed = true
					outcome.Detail = err.Error()
					break
				}
				result.Created++
				outcome.Created++
				dayStripIds = append(dayStripIds, created.ID)
				continue
			}
			if strip.AssignedDayId != day.DayId {
				dest := day.DayId
				_, err := models.UpdateStrip(ctx, stripboardId, strip.ID, &models.UpdateStripInput{AssignedDayId: &dest})
				if err != nil {
					failed = true
					outcome.Detail = err.Error()
					break
				}
				result.Moved++
				outcome.Moved++
			}
			dayStripIds = append(dayStripIds, strip.ID)
		}

		if !failed && matchOrder && len(dayStripIds) > 0 {
			if err := models.ReplaceDayOrder(ctx, stripboardId, day.DayId, dayStripIds); err != nil {
				failed = true
				outcome.Detail = err.Error()
			}
		}
		if failed {
			outcome.Status = DayOutcomeFailed
			result.Partial = true
		}
		result.Days = append(result.Days, outcome)
	}
	return nil
}

// syncToSchedule writes each day's ordered scene-id list back to the external
// schedule. Custom strips have no schedule slot; they are left out without
// failing the day. Days holding only custom strips are skipped.
func syncToSchedule(ctx context.Context, schedule prodapi.ScheduleStore, stripboardId int,
	days []prodapi.ScheduleDay, result *SyncResult) error {

	ctx, span := tracer.Start(ctx, "sync.to_schedule")
	defer span.End()

	strips, err := models.ListStrips(ctx, stripboardId)
	if err != nil {
		return err
	}
	dateByDayId := make(map[string]string, len(days))
	for _, d := range days {
		dateByDayId[d.DayId] = d.Date
	}

	sceneOrders := orderedSceneIdsPerDay(strips)

	dayIds := make([]string, 0, len(sceneOrders))
	for dayId := range sceneOrders {
		dayIds = append(dayIds, dayId)
	}
	sort.Strings(dayIds)

	for _, dayId := range dayIds {
		outcome := DaySyncOutcome{DayId: dayId, Date: dateByDayId[dayId], Phase: "to_schedule"}
		sceneIds := sceneOrders[dayId]
		if len(sceneIds) == 0 {
			outcome.Status = DayOutcomeSkipped
			outcome.Detail = "no scene-linked strips on this day"
			result.Days = append(result.Days, outcome)
			continue
		}
		if err := schedule.WriteDaySceneOrder(ctx, dayId, sceneIds); err != nil {
			outcome.Status = DayOutcomeFailed
			outcome.Detail = err.Error()
			result.Partial = true
		} else {
			outcome.Status = DayOutcomeOk
			outcome.Written = len(sceneIds)
		}
		result.Days = append(result.Days, outcome)
	}
	return nil
}

// orderedSceneIdsPerDay groups day-assigned strips by day, keeps sort-key
// order, and drops custom strips (no scene to propagate).
func orderedSceneIdsPerDay(strips []*models.Strip) map[string][]string {
	byDay := map[string][]*models.Strip{}
	for _, s := range strips {
		if s.AssignedDayId == "" {
			continue
		}
		byDay[s.AssignedDayId] = append(byDay[s.AssignedDayId], s)
	}
	out := make(map[string][]string, len(byDay))
	for dayId, group := range byDay {
		sort.Slice(group, func(i, j int) bool { return group[i].SortKey < group[j].SortKey })
		sceneIds := make([]string, 0, len(group))
		for _, s := range group {
			if s.SceneId == "" {
				continue
			}
			sceneIds = append(sceneIds, s.SceneId)
		}
		out[dayId] = sceneIds
	}
	return out
}

func sortScheduleDays(days []prodapi.ScheduleDay) {
	sort.Slice(days, func(i, j int) bool {
		if days[i].Date != days[j].Date {
			return days[i].Date < days[j].Date
		}
		return days[i].DayNumber < days[j].DayNumber
	})
}

func summarize(r *SyncResult) string {
	okCount, failedCount, skippedCount := 0, 0, 0
	for _, d := range r.Days {
		switch d.Status {
		case DayOutcomeOk:
			okCount++
		case DayOutcomeFailed:
			failedCount++
		case DayOutcomeSkipped:
			skippedCount++
		}
	}
	msg := fmt.Sprintf("sync %s: %d day(s) ok, %d failed, %d skipped; %d strip(s) created, %d moved",
		r.Direction, okCount, failedCount, skippedCount, r.Created, r.Moved)
	if r.Partial {
		msg += " (partial)"
	}
	return msg
}
