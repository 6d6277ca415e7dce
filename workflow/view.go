package workflow

import (
	"context"
	"sort"

	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/shopspring/decimal"
)

// DayColumn is one production day in the board view: the day's schedule
// metadata, its strips in board order, and the cast check when a call sheet
// exists for the day. Mismatch stays nil when no call sheet covers the day.
type DayColumn struct {
	DayId       string          `json:"day_id"`
	Date        string          `json:"date"`
	DayType     string          `json:"day_type"`
	DayNumber   int             `json:"day_number"`
	Strips      []*models.Strip `json:"strips"`
	PageEighths decimal.Decimal `json:"page_eighths"`
	Mismatch    *CastMismatch   `json:"cast_mismatch,omitempty"`
}

type StripboardView struct {
	Stripboard *models.Stripboard `json:"stripboard"`
	Bank       []*models.Strip    `json:"bank"`
	Days       []DayColumn        `json:"days"`
}

// GetStripboardView assembles the board: bank strips first, then day columns
// in calendar order. Strips whose assigned day is not in the schedule window
// are shown in the bank rather than dropped, so a stale day id never hides a
// strip from the UI.
func GetStripboardView(ctx context.Context, stores *prodapi.Stores, stripboardId int, dateRange utils.DateRange) (*StripboardView, error) {
	projectId, ok := utils.GetProjectIdFromContext(ctx)
	if !ok || projectId == "" {
		return nil, utils.NewValidationError("project id is required")
	}

	board, err := models.GetStripboard(ctx, stripboardId)
	if err != nil {
		return nil, err
	}
	strips, err := models.ListStrips(ctx, stripboardId)
	if err != nil {
		return nil, err
	}

	days, err := stores.Schedule.ListDaySceneAssignments(ctx, projectId, dateRange)
	if err != nil {
		return nil, err
	}
	sortScheduleDays(days)

	knownDay := make(map[string]bool, len(days))
	for _, d := range days {
		knownDay[d.DayId] = true
	}

	view := &StripboardView{Stripboard: board, Bank: []*models.Strip{}}
	byDay := map[string][]*models.Strip{}
	for _, s := range strips {
		if s.AssignedDayId == "" || !knownDay[s.AssignedDayId] {
			view.Bank = append(view.Bank, s)
			continue
		}
		byDay[s.AssignedDayId] = append(byDay[s.AssignedDayId], s)
	}

	sceneIndex, err := indexScenes(ctx, stores.Scenes, projectId)
	if err != nil {
		return nil, err
	}
	callSheetByDay, err := callSheetsByDay(ctx, stores.CallSheets, projectId)
	if err != nil {
		return nil, err
	}

	for _, d := range days {
		col := DayColumn{DayId: d.DayId, Date: d.Date, DayType: d.DayType, DayNumber: d.DayNumber}
		col.Strips = dayColumnStrips(byDay, d.DayId)

		for _, s := range col.Strips {
			col.PageEighths = col.PageEighths.Add(s.PageEighths)
		}

		if summary, ok := callSheetByDay[d.DayId]; ok {
			mismatch, err := dayCastMismatch(ctx, stores.CallSheets, summary.Id, col.Strips, sceneIndex)
			if err != nil {
				return nil, err
			}
			col.Mismatch = mismatch
		}
		view.Days = append(view.Days, col)
	}
	return view, nil
}

// dayColumnStrips returns a day's strips in board order. Days without strips
// get an empty slice, never nil, so every column serializes as "strips": [].
func dayColumnStrips(byDay map[string][]*models.Strip, dayId string) []*models.Strip {
	strips := byDay[dayId]
	if strips == nil {
		return []*models.Strip{}
	}
	sort.Slice(strips, func(i, j int) bool { return strips[i].SortKey < strips[j].SortKey })
	return strips
}

// dayCastMismatch compares the cast the day's strips need against the cast
// the call sheet lists as working.
func dayCastMismatch(ctx context.Context, store prodapi.CallSheetStore, callSheetId string,
	strips []*models.Strip, sceneIndex map[string]prodapi.Scene) (*CastMismatch, error) {

	sheet, err := store.GetCallSheet(ctx, callSheetId)
	if err != nil {
		return nil, err
	}
	var sceneCharacters [][]string
	for _, s := range strips {
		if s.SceneId == "" {
			continue
		}
		if sc, ok := sceneIndex[s.SceneId]; ok {
			sceneCharacters = append(sceneCharacters, sc.Characters)
		}
	}
	mismatch := ComputeCastMismatch(sceneCharacters, sheet.WorkingCast)
	return &mismatch, nil
}

// callSheetsByDay keeps the latest call sheet per production day when the
// office has issued revisions for the same day.
func callSheetsByDay(ctx context.Context, store prodapi.CallSheetStore, projectId string) (map[string]prodapi.CallSheetSummary, error) {
	sheets, err := store.ListCallSheets(ctx, projectId)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]prodapi.CallSheetSummary, len(sheets))
	for _, sheet := range sheets {
		if sheet.ProductionDayId == "" {
			continue
		}
		existing, ok := byDay[sheet.ProductionDayId]
		if !ok || sheet.Date > existing.Date || (sheet.Date == existing.Date && sheet.Id > existing.Id) {
			byDay[sheet.ProductionDayId] = sheet
		}
	}
	return byDay, nil
}
