package workflow

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
)

// NOTE: These tests are intentionally DB-free. They validate the generation
// planning semantics (skip-by-scene-id idempotency) and the per-source
// candidate selection, using hand-written fakes for the production office API.

type fakeSceneStore struct {
	scenes []prodapi.Scene
}

func (f *fakeSceneStore) ListScenes(ctx context.Context, projectId string) ([]prodapi.Scene, error) {
	return f.scenes, nil
}

type fakeScheduleStore struct {
	days    []prodapi.ScheduleDay
	written map[string][]string
	failOn  map[string]error
}

func (f *fakeScheduleStore) ListDaySceneAssignments(ctx context.Context, projectId string, dateRange utils.DateRange) ([]prodapi.ScheduleDay, error) {
	return f.days, nil
}

func (f *fakeScheduleStore) WriteDaySceneOrder(ctx context.Context, dayId string, sceneIds []string) error {
	if err := f.failOn[dayId]; err != nil {
		return err
	}
	if f.written == nil {
		f.written = map[string][]string{}
	}
	f.written[dayId] = sceneIds
	return nil
}

type fakeCallSheetStore struct {
	sheets map[string]*prodapi.CallSheet
}

func (f *fakeCallSheetStore) GetCallSheet(ctx context.Context, callSheetId string) (*prodapi.CallSheet, error) {
	cs, ok := f.sheets[callSheetId]
	if !ok {
		return nil, utils.NewUpstreamError("call sheet not found", nil)
	}
	return cs, nil
}

func (f *fakeCallSheetStore) ListCallSheets(ctx context.Context, projectId string) ([]prodapi.CallSheetSummary, error) {
	var out []prodapi.CallSheetSummary
	for _, cs := range f.sheets {
		out = append(out, prodapi.CallSheetSummary{Id: cs.Id, Title: cs.Title, Date: cs.Date, ProductionDayId: cs.ProductionDayId})
	}
	return out, nil
}

func TestPlanGeneration_SkipsExistingScenes(t *testing.T) {
	existing := map[string]bool{"sc-1": true}
	candidates := []PlannedStrip{
		{SceneId: "sc-1"},
		{SceneId: "sc-2"},
	}

	toCreate, skipped := planGeneration(existing, candidates)

	if len(toCreate) != 1 || toCreate[0].SceneId != "sc-2" {
		t.Fatalf("toCreate = %+v, want only sc-2", toCreate)
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
}

func TestPlanGeneration_SecondRunCreatesNothing(t *testing.T) {
	candidates := []PlannedStrip{{SceneId: "sc-1"}, {SceneId: "sc-2"}}

	first, _ := planGeneration(map[string]bool{}, candidates)
	existing := map[string]bool{}
	for _, p := range first {
		existing[p.SceneId] = true
	}

	second, skipped := planGeneration(existing, candidates)
	if len(second) != 0 {
		t.Fatalf("second run created %d strips, want 0", len(second))
	}
	if skipped != len(candidates) {
		t.Fatalf("skipped = %d, want %d", skipped, len(candidates))
	}
}

func TestPlanGeneration_DuplicateCandidatesInOneRun(t *testing.T) {
	candidates := []PlannedStrip{{SceneId: "sc-1"}, {SceneId: "sc-1"}}
	toCreate, skipped := planGeneration(map[string]bool{}, candidates)
	if len(toCreate) != 1 || skipped != 1 {
		t.Fatalf("toCreate=%d skipped=%d, want 1 and 1", len(toCreate), skipped)
	}
}

func TestPlanGeneration_SkipsCandidatesWithoutScene(t *testing.T) {
	toCreate, skipped := planGeneration(map[string]bool{}, []PlannedStrip{{SceneId: ""}})
	if len(toCreate) != 0 || skipped != 1 {
		t.Fatalf("candidates without a scene id must be skipped, got toCreate=%d skipped=%d", len(toCreate), skipped)
	}
}

func TestScheduleSource_OnlyScheduledScenes(t *testing.T) {
	scenes := &fakeSceneStore{scenes: []prodapi.Scene{
		{SceneId: "sc-1", SceneNumber: "1", Slugline: "INT. KITCHEN - DAY"},
		{SceneId: "sc-2", SceneNumber: "2", Slugline: "EXT. PORCH - DAY"},
		{SceneId: "sc-3", SceneNumber: "3", Slugline: "INT. BARN - NIGHT"},
	}}
	schedule := &fakeScheduleStore{days: []prodapi.ScheduleDay{
		{DayId: "day-1", Date: "2026-09-01", Scenes: []prodapi.ScenePlacement{
			{SceneId: "sc-1", Order: 1},
			{SceneId: "sc-3", Order: 2},
		}},
	}}

	source := &ScheduleSource{Schedule: schedule, Scenes: scenes}
	planned, err := source.PlannedStrips(context.Background(), "proj-1")
	if err != nil {
		t.Fatal(err)
	}

	if len(planned) != 2 {
		t.Fatalf("planned %d strips, want 2 (unscheduled scenes excluded)", len(planned))
	}
	for _, p := range planned {
		if p.SceneId == "sc-2" {
			t.Fatal("unscheduled scene sc-2 must not be planned")
		}
		if p.AssignedDayId != "day-1" {
			t.Fatalf("strip for %s assigned to %q, want day-1", p.SceneId, p.AssignedDayId)
		}
	}
	if planned[0].Slugline != "INT. KITCHEN - DAY" {
		t.Fatalf("scene metadata not joined in: %+v", planned[0])
	}
}

func TestCallSheetSource_PlansSheetScenes(t *testing.T) {
	scenes := &fakeSceneStore{scenes: []prodapi.Scene{
		{SceneId: "sc-1", SceneNumber: "1"},
		{SceneId: "sc-2", SceneNumber: "2"},
	}}
	sheets := &fakeCallSheetStore{sheets: map[string]*prodapi.CallSheet{
		"cs-1": {Id: "cs-1", ProductionDayId: "day-4", SceneIds: []string{"sc-1", "sc-2"}},
	}}

	source := &CallSheetSource{CallSheets: sheets, Scenes: scenes, CallSheetId: "cs-1"}
	planned, err := source.PlannedStrips(context.Background(), "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(planned) != 2 {
		t.Fatalf("planned %d strips, want 2", len(planned))
	}
	for _, p := range planned {
		if p.AssignedDayId != "day-4" {
			t.Fatalf("call sheet strips must land on the sheet's day, got %q", p.AssignedDayId)
		}
	}
}

func TestCallSheetSource_RequiresSheetId(t *testing.T) {
	source := &CallSheetSource{CallSheets: &fakeCallSheetStore{}, Scenes: &fakeSceneStore{}}
	_, err := source.PlannedStrips(context.Background(), "proj-1")
	if err == nil {
		t.Fatal("expected validation error for missing call_sheet_id")
	}
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("error kind = %s, want VALIDATION", utils.KindOf(err))
	}
}
