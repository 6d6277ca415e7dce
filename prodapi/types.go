package prodapi

import (
	"context"

	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/shopspring/decimal"
)

// Scene is a script scene as the production office API reports it.
type Scene struct {
	SceneId           string          `json:"scene_id"`
	SceneNumber       string          `json:"scene_number"`
	Slugline          string          `json:"slugline"`
	Characters        []string        `json:"characters"`
	EstimatedDuration int             `json:"estimated_duration_minutes"`
	PageEighths       decimal.Decimal `json:"page_eighths"`
}

// ScenePlacement is one scene slot in a day's shooting order.
type ScenePlacement struct {
	SceneId string `json:"scene_id"`
	Order   int    `json:"order"`
}

// ScheduleDay is a production day plus the scenes the schedule has placed on it.
type ScheduleDay struct {
	DayId     string           `json:"day_id"`
	Date      string           `json:"date"` // YYYY-MM-DD
	DayType   string           `json:"day_type"`
	DayNumber int              `json:"day_number"`
	Scenes    []ScenePlacement `json:"scenes"`
}

type CallSheet struct {
	Id              string   `json:"id"`
	Title           string   `json:"title"`
	Date            string   `json:"date"`
	ProductionDayId string   `json:"production_day_id"`
	SceneIds        []string `json:"scenes"`
	WorkingCast     []string `json:"working_cast"`
}

type CallSheetSummary struct {
	Id              string `json:"id"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	ProductionDayId string `json:"production_day_id"`
}

// The three store contracts the core depends on. Failures surface as
// utils.ErrorKindUpstream so callers can tell "your edit failed" from
// "we could not read context data".

type SceneStore interface {
	ListScenes(ctx context.Context, projectId string) ([]Scene, error)
}

type ScheduleStore interface {
	ListDaySceneAssignments(ctx context.Context, projectId string, dateRange utils.DateRange) ([]ScheduleDay, error)
	WriteDaySceneOrder(ctx context.Context, dayId string, sceneIds []string) error
}

type CallSheetStore interface {
	GetCallSheet(ctx context.Context, callSheetId string) (*CallSheet, error)
	ListCallSheets(ctx context.Context, projectId string) ([]CallSheetSummary, error)
}
