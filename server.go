package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"bitbucket.org/mmdatafocus/stripboard_backend/middlewares"
	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/models/reports"
	"bitbucket.org/mmdatafocus/stripboard_backend/prodapi"
	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"bitbucket.org/mmdatafocus/stripboard_backend/workflow"
	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// errorStatus maps a workflow/model error to the HTTP status the client
// should see. Plain errors classify as INTERNAL and become 500s, so a DB
// fault is never reported as a bad request.
func errorStatus(err error) int {
	switch utils.KindOf(err) {
	case utils.ErrorKindNotFound:
		return http.StatusNotFound
	case utils.ErrorKindConflict:
		return http.StatusConflict
	case utils.ErrorKindUpstream:
		return http.StatusBadGateway
	case utils.ErrorKindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// viewRange reads the optional from/to query params; unset means an open
// one-year window around today so the board still renders without filters.
func viewRange(c *gin.Context) (utils.DateRange, error) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" && to == "" {
		now := time.Now().UTC()
		from = now.AddDate(-1, 0, 0).Format("2006-01-02")
		to = now.AddDate(1, 0, 0).Format("2006-01-02")
	}
	return utils.ParseDateRange(from, to)
}

/* stripboard handlers */

func listStripboardsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boards, err := models.ListStripboards(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stripboards": boards})
	}
}

func createStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStripboard
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		board, err := models.CreateStripboard(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, board)
	}
}

func updateStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewStripboard
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		board, err := models.UpdateStripboard(c.Request.Context(), id, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, board)
	}
}

func deleteStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		board, err := models.DeleteStripboard(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, board)
	}
}

func getStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		board, err := models.GetStripboard(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, board)
	}
}

func activateStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		board, err := models.SetActiveStripboard(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, board)
	}
}

func activeStripboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		board, err := models.GetActiveStripboard(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, board)
	}
}

/* strip handlers */

func listStripsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		strips, err := models.ListStrips(c.Request.Context(), boardId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"strips": strips})
	}
}

func createStripHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewStrip
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		strip, err := models.CreateStrip(c.Request.Context(), boardId, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, strip)
	}
}

func updateStripHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		stripId, ok := pathId(c, "stripId")
		if !ok {
			return
		}
		var input models.UpdateStripInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		strip, err := models.UpdateStrip(c.Request.Context(), boardId, stripId, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, strip)
	}
}

func deleteStripHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		stripId, ok := pathId(c, "stripId")
		if !ok {
			return
		}
		strip, err := models.DeleteStrip(c.Request.Context(), boardId, stripId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, strip)
	}
}

type reorderStripRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func reorderStripHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		stripId, ok := pathId(c, "stripId")
		if !ok {
			return
		}
		var req reorderStripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		direction, err := models.ParseReorderDirection(req.Direction)
		if err != nil {
			abortWithError(c, err)
			return
		}
		strip, err := models.ReorderStrip(c.Request.Context(), boardId, stripId, direction)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, strip)
	}
}

type assignStripRequest struct {
	StripId int                 `json:"strip_id" binding:"required"`
	Target  workflow.DropTarget `json:"target" binding:"required"`
}

func assignStripHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req assignStripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := workflow.ResolveAssignment(c.Request.Context(), boardId, req.StripId, req.Target)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

/* generation, sync, view */

type generateStripsRequest struct {
	Source      string `json:"source" binding:"required"`
	CallSheetId string `json:"call_sheet_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

func generateStripsHandler(stores *prodapi.Stores) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req generateStripsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		var source workflow.GenerationSource
		switch req.Source {
		case "script":
			source = &workflow.ScriptSource{Scenes: stores.Scenes}
		case "schedule":
			from, to := req.From, req.To
			if from == "" && to == "" {
				now := time.Now().UTC()
				from = now.AddDate(-1, 0, 0).Format("2006-01-02")
				to = now.AddDate(1, 0, 0).Format("2006-01-02")
			}
			horizon, err := utils.ParseDateRange(from, to)
			if err != nil {
				abortWithError(c, err)
				return
			}
			source = &workflow.ScheduleSource{Schedule: stores.Schedule, Scenes: stores.Scenes, Horizon: horizon}
		case "call_sheet":
			source = &workflow.CallSheetSource{CallSheets: stores.CallSheets, Scenes: stores.Scenes, CallSheetId: req.CallSheetId}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be one of script, schedule, call_sheet"})
			return
		}

		result, err := workflow.RunGeneration(c.Request.Context(), boardId, source)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type syncScheduleRequest struct {
	Direction string `json:"direction" binding:"required"`
	From      string `json:"from"`
	To        string `json:"to"`
}

func syncScheduleHandler(stores *prodapi.Stores) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req syncScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		direction, err := models.ParseSyncDirection(req.Direction)
		if err != nil {
			abortWithError(c, err)
			return
		}
		from, to := req.From, req.To
		if from == "" && to == "" {
			now := time.Now().UTC()
			from = now.AddDate(-1, 0, 0).Format("2006-01-02")
			to = now.AddDate(1, 0, 0).Format("2006-01-02")
		}
		dateRange, err := utils.ParseDateRange(from, to)
		if err != nil {
			abortWithError(c, err)
			return
		}

		projectId, _ := utils.GetProjectIdFromContext(c.Request.Context())

		// Best-effort: keep two sync requests for the same board from racing.
		// Reliability must not depend on Redis: writes are also serialized via
		// MySQL advisory locks in the models layer.
		var lock *redislock.Lock
		if redisLock := config.GetRedisLock(); redisLock == nil {
			logger.WithFields(logrus.Fields{
				"field":         "syncScheduleHandler",
				"project_id":    projectId,
				"stripboard_id": boardId,
			}).Warn("redis lock not ready; proceeding without redis lock")
		} else {
			lock, err = redisLock.Obtain(c.Request.Context(), fmt.Sprintf("lock:sync:%s:%d", projectId, boardId), 30*time.Second, nil)
			if err == redislock.ErrNotObtained {
				c.JSON(http.StatusConflict, gin.H{"error": "a sync for this stripboard is already running"})
				return
			} else if err != nil {
				logger.WithFields(logrus.Fields{
					"field":         "syncScheduleHandler",
					"project_id":    projectId,
					"stripboard_id": boardId,
				}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
				lock = nil
			}
		}
		defer func() {
			if lock == nil {
				return
			}
			if releaseErr := lock.Release(c.Request.Context()); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"field":         "syncScheduleHandler",
					"project_id":    projectId,
					"stripboard_id": boardId,
				}).Warn("failed to release redis lock: " + releaseErr.Error())
			}
		}()

		result, err := workflow.SyncSchedule(c.Request.Context(), stores.Schedule, stores.Scenes, boardId, direction, dateRange)
		if err != nil {
			config.LogError(logger, "server.go", "syncScheduleHandler", "SyncSchedule", req, err)
			abortWithError(c, err)
			return
		}
		// Partial failures still return the per-day outcomes with 200; the
		// client reads result.partial and result.days. Attach a PARTIAL error
		// so the error logger records the summary with the correlation id.
		if result.Partial {
			_ = c.Error(utils.NewPartialError(result.Message))
		}
		c.JSON(http.StatusOK, result)
	}
}

func stripboardViewHandler(stores *prodapi.Stores) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		dateRange, err := viewRange(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		view, err := workflow.GetStripboardView(c.Request.Context(), stores, boardId, dateRange)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func exportStripboardHandler(stores *prodapi.Stores) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardId, ok := pathId(c, "id")
		if !ok {
			return
		}
		dateRange, err := viewRange(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		view, err := workflow.GetStripboardView(c.Request.Context(), stores, boardId, dateRange)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=stripboard-%d.xlsx", boardId))
		if err := reports.ExportStripboardExcel(view, c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportStripboardHandler", "ExportStripboardExcel", boardId, err)
			c.Status(http.StatusInternalServerError)
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("x-project-id", "x-user-id", "x-user-name", "x-correlation-id", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.ProjectMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	stores, err := prodapi.NewStores(os.Getenv("PRODOFFICE_API_KEY"))
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "prodapi"}).Panic(err.Error())
	}

	r.GET("/stripboards", listStripboardsHandler())
	r.POST("/stripboards", createStripboardHandler())
	r.GET("/stripboards/active", activeStripboardHandler())
	r.GET("/stripboards/:id", getStripboardHandler())
	r.PUT("/stripboards/:id", updateStripboardHandler())
	r.DELETE("/stripboards/:id", deleteStripboardHandler())
	r.POST("/stripboards/:id/activate", activateStripboardHandler())

	r.GET("/stripboards/:id/strips", listStripsHandler())
	r.POST("/stripboards/:id/strips", createStripHandler())
	r.PUT("/stripboards/:id/strips/:stripId", updateStripHandler())
	r.DELETE("/stripboards/:id/strips/:stripId", deleteStripHandler())
	r.POST("/stripboards/:id/strips/:stripId/reorder", reorderStripHandler())

	r.POST("/stripboards/:id/assign", assignStripHandler())
	r.POST("/stripboards/:id/generate", generateStripsHandler(stores))
	r.POST("/stripboards/:id/sync", syncScheduleHandler(stores))
	r.GET("/stripboards/:id/view", stripboardViewHandler(stores))
	r.GET("/stripboards/:id/export", exportStripboardHandler(stores))

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			entry := logrus.NewEntry(logger)
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				entry = entry.WithFields(logrus.Fields{"correlation_id": cid})
			}
			entry.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
