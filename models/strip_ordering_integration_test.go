package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
)

// Ordering invariant regression: after any sequence of create/move/reorder/
// delete, sort keys within one placement stay strictly ordered and unique.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./models -run StripOrdering -v
func TestStripOrdering_EndToEnd(t *testing.T) {
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

	ctx = utils.SetProjectIdInContext(ctx, "it-project-1")
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	board, err := models.CreateStripboard(ctx, &models.NewStripboard{Title: "Ordering Board"})
	if err != nil {
		t.Fatalf("CreateStripboard: %v", err)
	}

	// Bank creates append in order.
	var created []*models.Strip
	for i := 1; i <= 3; i++ {
		s, err := models.CreateStrip(ctx, board.ID, &models.NewStrip{SceneId: fmt.Sprintf("sc-%d", i), SceneNumber: fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("CreateStrip %d: %v", i, err)
		}
		created = append(created, s)
	}
	assertPlacementOrder(t, ctx, board.ID, "", []int{created[0].ID, created[1].ID, created[2].ID})

	// Moving to a day appends after existing strips on that day.
	for _, s := range created[:2] {
		day := "day-1"
		if _, err := models.UpdateStrip(ctx, board.ID, s.ID, &models.UpdateStripInput{AssignedDayId: &day}); err != nil {
			t.Fatalf("move strip %d: %v", s.ID, err)
		}
	}
	assertPlacementOrder(t, ctx, board.ID, "day-1", []int{created[0].ID, created[1].ID})

	// Reorder swaps with the neighbor; boundary reorder is a benign conflict.
	if _, err := models.ReorderStrip(ctx, board.ID, created[1].ID, models.ReorderDirectionUp); err != nil {
		t.Fatalf("ReorderStrip: %v", err)
	}
	assertPlacementOrder(t, ctx, board.ID, "day-1", []int{created[1].ID, created[0].ID})

	_, err = models.ReorderStrip(ctx, board.ID, created[1].ID, models.ReorderDirectionUp)
	if err == nil {
		t.Fatal("reordering the first strip UP must signal a conflict")
	}
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("boundary reorder error kind = %s, want CONFLICT", utils.KindOf(err))
	}
	assertPlacementOrder(t, ctx, board.ID, "day-1", []int{created[1].ID, created[0].ID})

	// Delete preserves relative order among survivors; no key compaction needed.
	if _, err := models.DeleteStrip(ctx, board.ID, created[1].ID); err != nil {
		t.Fatalf("DeleteStrip: %v", err)
	}
	assertPlacementOrder(t, ctx, board.ID, "day-1", []int{created[0].ID})

	// Moving back to bank appends at the end of the bank order.
	bank := ""
	if _, err := models.UpdateStrip(ctx, board.ID, created[0].ID, &models.UpdateStripInput{AssignedDayId: &bank}); err != nil {
		t.Fatalf("move to bank: %v", err)
	}
	assertPlacementOrder(t, ctx, board.ID, "", []int{created[2].ID, created[0].ID})
}

func assertPlacementOrder(t *testing.T, ctx context.Context, boardId int, dayId string, wantIds []int) {
	t.Helper()
	strips, err := models.ListStrips(ctx, boardId)
	if err != nil {
		t.Fatalf("ListStrips: %v", err)
	}
	var gotIds []int
	seenKeys := map[int]bool{}
	lastKey := 0
	for _, s := range strips {
		if s.AssignedDayId != dayId {
			continue
		}
		gotIds = append(gotIds, s.ID)
		if seenKeys[s.SortKey] {
			t.Fatalf("duplicate sort key %d in placement %q", s.SortKey, dayId)
		}
		seenKeys[s.SortKey] = true
		if s.SortKey <= lastKey {
			t.Fatalf("sort keys not strictly increasing in placement %q", dayId)
		}
		lastKey = s.SortKey
	}
	if len(gotIds) != len(wantIds) {
		t.Fatalf("placement %q has strips %v, want %v", dayId, gotIds, wantIds)
	}
	for i := range wantIds {
		if gotIds[i] != wantIds[i] {
			t.Fatalf("placement %q order = %v, want %v", dayId, gotIds, wantIds)
		}
	}
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
