package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"bitbucket.org/mmdatafocus/stripboard_backend/workflow"
)

// Sync round-trip regression: pushing the board's order to the schedule and
// pulling it back must reproduce the same day and order assignments, custom
// strips included. Also exercises the create and move paths of the pull phase.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./workflow -run ScheduleSyncRoundTrip -v
func TestScheduleSyncRoundTrip_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stripboard_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx = utils.SetProjectIdInContext(ctx, "it-project-sync")
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	board, err := models.CreateStripboard(ctx, &models.NewStripboard{Title: "Sync Board"})
	if err != nil {
		t.Fatalf("CreateStripboard: %v", err)
	}

	// day-1 holds scene strip A, a custom strip, scene strip B; sc-d sits on
	// day-2 although the schedule wants it on day-1; sc-c has no strip yet.
	stripA := mustCreateStrip(t, ctx, board.ID, &models.NewStrip{SceneId: "sc-a", AssignedDayId: "day-1"})
	stripCustom := mustCreateStrip(t, ctx, board.ID, &models.NewStrip{CustomTitle: "Company move", AssignedDayId: "day-1"})
	stripB := mustCreateStrip(t, ctx, board.ID, &models.NewStrip{SceneId: "sc-b", AssignedDayId: "day-1"})
	stripD := mustCreateStrip(t, ctx, board.ID, &models.NewStrip{SceneId: "sc-d", AssignedDayId: "day-2"})

	schedule := &echoScheduleStore{days: []prodapi.ScheduleDay{
		{DayId: "day-1", Date: "2026-09-01", DayNumber: 1, Scenes: []prodapi.ScenePlacement{
			{SceneId: "sc-a", Order: 1},
			{SceneId: "sc-b", Order: 2},
			{SceneId: "sc-d", Order: 3},
		}},
		{DayId: "day-2", Date: "2026-09-02", DayNumber: 2, Scenes: []prodapi.ScenePlacement{
			{SceneId: "sc-c", Order: 1},
		}},
	}}
	scenes := &staticSceneStore{scenes: []prodapi.Scene{
		{SceneId: "sc-a", SceneNumber: "1"},
		{SceneId: "sc-b", SceneNumber: "2"},
		{SceneId: "sc-c", SceneNumber: "3"},
		{SceneId: "sc-d", SceneNumber: "4"},
	}}

	dateRange, err := utils.ParseDateRange("2026-09-01", "2026-09-30")
	if err != nil {
		t.Fatal(err)
	}

	// Pull: sc-c gets created on day-2, sc-d moves to day-1, and the day-1
	// renumber leaves the custom strip in its slot between A and B.
	pull, err := workflow.SyncSchedule(ctx, schedule, scenes, board.ID, models.SyncDirectionFromSchedule, dateRange)
	if err != nil {
		t.Fatalf("sync from_schedule: %v", err)
	}
	if pull.Created != 1 || pull.Moved != 1 || pull.Partial {
		t.Fatalf("pull created=%d moved=%d partial=%v, want 1/1/false", pull.Created, pull.Moved, pull.Partial)
	}
	assertDayOrder(t, ctx, board.ID, "day-1", []int{stripA.ID, stripCustom.ID, stripB.ID, stripD.ID})

	stripC := findStripByScene(t, ctx, board.ID, "sc-c")
	if stripC.AssignedDayId != "day-2" {
		t.Fatalf("sc-c assigned to %q, want day-2", stripC.AssignedDayId)
	}

	// Push, then pull again: no external change happened in between, so the
	// board must come back exactly as it was.
	if _, err := workflow.SyncSchedule(ctx, schedule, scenes, board.ID, models.SyncDirectionToSchedule, dateRange); err != nil {
		t.Fatalf("sync to_schedule: %v", err)
	}
	if want := []string{"sc-a", "sc-b", "sc-d"}; !reflect.DeepEqual(schedule.sceneOrder("day-1"), want) {
		t.Fatalf("schedule day-1 order = %v, want %v", schedule.sceneOrder("day-1"), want)
	}

	round, err := workflow.SyncSchedule(ctx, schedule, scenes, board.ID, models.SyncDirectionFromSchedule, dateRange)
	if err != nil {
		t.Fatalf("round-trip from_schedule: %v", err)
	}
	if round.Created != 0 || round.Moved != 0 || round.Partial {
		t.Fatalf("round-trip created=%d moved=%d partial=%v, want 0/0/false", round.Created, round.Moved, round.Partial)
	}
	assertDayOrder(t, ctx, board.ID, "day-1", []int{stripA.ID, stripCustom.ID, stripB.ID, stripD.ID})
	assertDayOrder(t, ctx, board.ID, "day-2", []int{stripC.ID})
}

func mustCreateStrip(t *testing.T, ctx context.Context, boardId int, input *models.NewStrip) *models.Strip {
	t.Helper()
	s, err := models.CreateStrip(ctx, boardId, input)
	if err != nil {
		t.Fatalf("CreateStrip(%+v): %v", input, err)
	}
	return s
}

func findStripByScene(t *testing.T, ctx context.Context, boardId int, sceneId string) *models.Strip {
	t.Helper()
	strips, err := models.ListStrips(ctx, boardId)
	if err != nil {
		t.Fatalf("ListStrips: %v", err)
	}
	for _, s := range strips {
		if s.SceneId == sceneId {
			return s
		}
	}
	t.Fatalf("no strip for scene %s", sceneId)
	return nil
}

func assertDayOrder(t *testing.T, ctx context.Context, boardId int, dayId string, wantIds []int) {
	t.Helper()
	strips, err := models.ListStrips(ctx, boardId)
	if err != nil {
		t.Fatalf("ListStrips: %v", err)
	}
	var gotIds []int
	for _, s := range strips {
		if s.AssignedDayId == dayId {
			gotIds = append(gotIds, s.ID)
		}
	}
	if !reflect.DeepEqual(gotIds, wantIds) {
		t.Fatalf("day %q order = %v, want %v", dayId, gotIds, wantIds)
	}
}

// echoScheduleStore plays the external schedule: reads hand back whatever the
// last WriteDaySceneOrder stored, which is exactly the round-trip contract.
type echoScheduleStore struct {
	days []prodapi.ScheduleDay
}

func (s *echoScheduleStore) ListDaySceneAssignments(ctx context.Context, projectId string, dateRange utils.DateRange) ([]prodapi.ScheduleDay, error) {
	out := make([]prodapi.ScheduleDay, len(s.days))
	for i, d := range s.days {
		d.Scenes = append([]prodapi.ScenePlacement(nil), d.Scenes...)
		out[i] = d
	}
	return out, nil
}

func (s *echoScheduleStore) WriteDaySceneOrder(ctx context.Context, dayId string, sceneIds []string) error {
	for i := range s.days {
		if s.days[i].DayId != dayId {
			continue
		}
		placements := make([]prodapi.ScenePlacement, 0, len(sceneIds))
		for n, id := range sceneIds {
			placements = append(placements, prodapi.ScenePlacement{SceneId: id, Order: n + 1})
		}
		s.days[i].Scenes = placements
		return nil
	}
	return utils.NewNotFoundError("unknown production day " + dayId)
}

func (s *echoScheduleStore) sceneOrder(dayId string) []string {
	for _, d := range s.days {
		if d.DayId != dayId {
			continue
		}
		ids := make([]string, 0, len(d.Scenes))
		for _, p := range d.Scenes {
			ids = append(ids, p.SceneId)
		}
		return ids
	}
	return nil
}

type staticSceneStore struct {
	scenes []prodapi.Scene
}

func (s *staticSceneStore) ListScenes(ctx context.Context, projectId string) ([]prodapi.Scene, error) {
	return s.scenes, nil
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stripboard-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stripboard_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
