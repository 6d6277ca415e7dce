// seed-demo creates a demo stripboard with a handful of strips so a fresh
// environment has something to render.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
//
// Optional:
//   SEED_PROJECT_ID=<project uuid>   (defaults to a fixed demo project id)
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"github.com/shopspring/decimal"
)

const defaultProjectId = "00000000-0000-0000-0000-000000000001"

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	projectId := os.Getenv("SEED_PROJECT_ID")
	if projectId == "" {
		projectId = defaultProjectId
	}
	ctx = utils.SetProjectIdInContext(ctx, projectId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	board, err := models.CreateStripboard(ctx, &models.NewStripboard{
		Title:       "Demo Shooting Schedule",
		Description: "Seeded demo board",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create stripboard: %v\n", err)
		os.Exit(1)
	}
	if _, err := models.SetActiveStripboard(ctx, board.ID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to activate stripboard: %v\n", err)
		os.Exit(1)
	}

	strips := []models.NewStrip{
		{SceneId: "demo-scene-1", SceneNumber: "1", Slugline: "INT. FARMHOUSE KITCHEN - DAY", PageEighths: decimal.NewFromFloat(1.375), EstimatedDuration: 45},
		{SceneId: "demo-scene-2", SceneNumber: "2", Slugline: "EXT. FARMHOUSE PORCH - DAY", PageEighths: decimal.NewFromFloat(0.625), EstimatedDuration: 30},
		{SceneId: "demo-scene-3", SceneNumber: "3A", Slugline: "INT. BARN - NIGHT", PageEighths: decimal.NewFromFloat(2.25), EstimatedDuration: 90},
		{CustomTitle: "Company move", Notes: "Travel to barn location"},
		{CustomTitle: "Lunch"},
	}
	for i := range strips {
		if _, err := models.CreateStrip(ctx, board.ID, &strips[i]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create strip %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded stripboard %d (project %s) with %d strips\n", board.ID, projectId, len(strips))
}
