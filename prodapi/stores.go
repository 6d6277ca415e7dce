package prodapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
)

// sceneCacheTTL bounds how stale a cached script read may be. Derived views
// (cast mismatch) are still recomputed per fetch; only the upstream read is
// deduplicated within this window.
const sceneCacheTTL = 30 * time.Second

type Stores struct {
	Scenes     SceneStore
	Schedule   ScheduleStore
	CallSheets CallSheetStore
}

// NewStores builds the HTTP-backed store set for the production office API.
func NewStores(apiKey string) (*Stores, error) {
	c, err := newAPIClient(apiKey)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Scenes:     &sceneStore{c: c},
		Schedule:   &scheduleStore{c: c},
		CallSheets: &callSheetStore{c: c},
	}, nil
}

type sceneStore struct {
	c *apiClient
}

func (s *sceneStore) ListScenes(ctx context.Context, projectId string) ([]Scene, error) {
	cacheKey := "prodapi:scenes:" + projectId

	var scenes []Scene
	if exists, err := config.GetRedisObject(cacheKey, &scenes); err == nil && exists {
		return scenes, nil
	}

	params := url.Values{}
	params.Set("project_id", projectId)
	var parsed struct {
		Scenes []Scene `json:"scenes"`
	}
	if err := s.c.getJSON(ctx, "/v1/scenes", params, &parsed); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(cacheKey, parsed.Scenes, sceneCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "prodapi", "ListScenes", "cache scenes", projectId, err)
	}
	return parsed.Scenes, nil
}

type scheduleStore struct {
	c *apiClient
}

func (s *scheduleStore) ListDaySceneAssignments(ctx context.Context, projectId string, dateRange utils.DateRange) ([]ScheduleDay, error) {
	params := url.Values{}
	params.Set("project_id", projectId)
	params.Set("start", dateRange.Start.Format("2006-01-02"))
	params.Set("end", dateRange.End.Format("2006-01-02"))

	var parsed struct {
		Days []ScheduleDay `json:"days"`
	}
	if err := s.c.getJSON(ctx, "/v1/schedule/days", params, &parsed); err != nil {
		return nil, err
	}
	return parsed.Days, nil
}

func (s *scheduleStore) WriteDaySceneOrder(ctx context.Context, dayId string, sceneIds []string) error {
	payload := map[string]interface{}{
		"scene_ids": sceneIds,
	}
	return s.c.putJSON(ctx, fmt.Sprintf("/v1/schedule/days/%s/scene-order", url.PathEscape(dayId)), payload)
}

type callSheetStore struct {
	c *apiClient
}

func (s *callSheetStore) GetCallSheet(ctx context.Context, callSheetId string) (*CallSheet, error) {
	var parsed CallSheet
	if err := s.c.getJSON(ctx, "/v1/call-sheets/"+url.PathEscape(callSheetId), nil, &parsed); err != nil {
		return nil, err
	}
	if parsed.Id == "" {
		return nil, utils.NewNotFoundError("call sheet not found")
	}
	return &parsed, nil
}

func (s *callSheetStore) ListCallSheets(ctx context.Context, projectId string) ([]CallSheetSummary, error) {
	cacheKey := "prodapi:callsheets:" + projectId

	var cached []CallSheetSummary
	if exists, err := config.GetRedisObject(cacheKey, &cached); err == nil && exists {
		return cached, nil
	}

	params := url.Values{}
	params.Set("project_id", projectId)

	var parsed struct {
		CallSheets []CallSheetSummary `json:"call_sheets"`
	}
	if err := s.c.getJSON(ctx, "/v1/call-sheets", params, &parsed); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(cacheKey, parsed.CallSheets, sceneCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "prodapi", "ListCallSheets", "cache call sheets", projectId, err)
	}
	return parsed.CallSheets, nil
}
