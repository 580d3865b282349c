package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	marketerDB "marketer-service/internal/marketer/db"
)

func setupTestAppWithRoutes(t *testing.T, dbFilePath string) (*route.Engine, *gorm.DB) {
	os.Remove(dbFilePath)

	gormDB, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database '%s': %v", dbFilePath, err)
	}

	err = gormDB.AutoMigrate(&marketerDB.Campaign{}, &marketerDB.Source{},
		&marketerDB.Task{}, &marketerDB.Metric{}, &marketerDB.Credential{})
	if err != nil {
		t.Fatalf("Failed to migrate test database '%s': %v", dbFilePath, err)
	}

	hlog.SetLevel(hlog.LevelFatal)

	h := server.Default(
		server.WithHostPorts("127.0.0.1:0"),
		server.WithExitWaitTime(time.Duration(0)),
	)

	taskHandler := NewTaskHandler(gormDB)
	campaignHandler := NewCampaignHandler(gormDB)
	metricHandler := NewMetricHandler(gormDB)

	tasks := h.Group("/api/tasks")
	{
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("", taskHandler.GetTasks)
		tasks.GET("/:id", taskHandler.GetTaskByID)
		tasks.PATCH("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
	}
	campaigns := h.Group("/api/campaigns")
	{
		campaigns.POST("", campaignHandler.CreateCampaign)
		campaigns.DELETE("/:id", campaignHandler.DeleteCampaign)
	}
	metrics := h.Group("/api/metrics")
	{
		metrics.POST("", metricHandler.CreateMetric)
		metrics.GET("", metricHandler.GetMetrics)
	}
	return h.Engine, gormDB
}

func teardownTestDBFromRouter(gormDB *gorm.DB, t *testing.T, dbFilePath string) {
	if gormDB != nil {
		sqlDB, err := gormDB.DB()
		if err == nil && sqlDB != nil {
			if err = sqlDB.Close(); err != nil {
				t.Logf("Warning: could not close test API DB: %v", err)
			}
		}
	}
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: could not remove test API DB file '%s': %v", dbFilePath, err)
	}
}

func performJSON(router *route.Engine, method, url string, payload interface{}) *ut.ResponseRecorder {
	if payload == nil {
		return ut.PerformRequest(router, method, url, nil)
	}
	payloadBytes, _ := json.Marshal(payload)
	return ut.PerformRequest(router, method, url, &ut.Body{Body: bytes.NewReader(payloadBytes), Len: len(payloadBytes)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func testDBFile(prefix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
}

func TestCreateTaskAPI(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_create_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	w := performJSON(router, "POST", "/api/tasks", CreateTaskRequest{
		Platform: "linkedin",
		Content:  "Draft content",
	})
	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var created marketerDB.Task
	assert.NoError(t, json.Unmarshal(resp.Body(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, marketerDB.StatusDraft, created.Status)
}

func TestCreateTaskAPI_WithScheduleDefaultsToScheduled(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_sched_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	scheduledAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	w := performJSON(router, "POST", "/api/tasks", CreateTaskRequest{
		Platform:    "linkedin",
		Content:     "Scheduled content",
		ScheduledAt: &scheduledAt,
	})
	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var created marketerDB.Task
	assert.NoError(t, json.Unmarshal(resp.Body(), &created))
	assert.Equal(t, marketerDB.StatusScheduled, created.Status)
	assert.NotNil(t, created.ScheduledAt)
}

func TestUpdateTaskAPI_ClearingScheduleResetsToDraft(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_clear_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	scheduledAt := time.Now().Add(time.Hour)
	task := marketerDB.Task{Platform: "linkedin", Content: "c", Status: marketerDB.StatusScheduled, ScheduledAt: &scheduledAt}
	gormDB.Create(&task)

	empty := ""
	url := "/api/tasks/" + strconv.FormatUint(uint64(task.ID), 10)
	w := performJSON(router, "PATCH", url, UpdateTaskRequest{ScheduledAt: &empty})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	var updated marketerDB.Task
	assert.NoError(t, gormDB.First(&updated, task.ID).Error)
	assert.Equal(t, marketerDB.StatusDraft, updated.Status)
	assert.Nil(t, updated.ScheduledAt)
}

func TestUpdateTaskAPI_ManualPostStampsPostedAt(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_drag_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	task := marketerDB.Task{Platform: "linkedin", Content: "c", Status: marketerDB.StatusDraft}
	gormDB.Create(&task)

	posted := marketerDB.StatusPosted
	url := "/api/tasks/" + strconv.FormatUint(uint64(task.ID), 10)
	w := performJSON(router, "PATCH", url, UpdateTaskRequest{Status: &posted})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	var updated marketerDB.Task
	assert.NoError(t, gormDB.First(&updated, task.ID).Error)
	assert.Equal(t, marketerDB.StatusPosted, updated.Status)
	assert.NotNil(t, updated.PostedAt)
}

func TestDeleteTaskAPI_CascadesMetrics(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_delete_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	task := marketerDB.Task{Platform: "linkedin", Status: marketerDB.StatusPosted}
	gormDB.Create(&task)
	gormDB.Create(&marketerDB.Metric{TaskID: task.ID, Likes: 3, RecordedAt: time.Now()})

	url := "/api/tasks/" + strconv.FormatUint(uint64(task.ID), 10)
	w := performJSON(router, "DELETE", url, nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	var taskCount, metricCount int64
	gormDB.Model(&marketerDB.Task{}).Where("id = ?", task.ID).Count(&taskCount)
	gormDB.Model(&marketerDB.Metric{}).Where("task_id = ?", task.ID).Count(&metricCount)
	assert.Equal(t, int64(0), taskCount)
	assert.Equal(t, int64(0), metricCount)
}

func TestDeleteCampaignAPI_DetachesTasks(t *testing.T) {
	dbFilePath := testDBFile("test_api_campaign_delete_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	campaign := marketerDB.Campaign{Name: "Launch"}
	gormDB.Create(&campaign)
	task := marketerDB.Task{CampaignID: &campaign.ID, Platform: "linkedin", Status: marketerDB.StatusDraft}
	gormDB.Create(&task)

	url := "/api/campaigns/" + strconv.FormatUint(uint64(campaign.ID), 10)
	w := performJSON(router, "DELETE", url, nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	var detached marketerDB.Task
	assert.NoError(t, gormDB.First(&detached, task.ID).Error)
	assert.Nil(t, detached.CampaignID)
}

func TestCreateMetricAPI_RequiresExistingTask(t *testing.T) {
	dbFilePath := testDBFile("test_api_metric_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	w := performJSON(router, "POST", "/api/metrics", CreateMetricRequest{TaskID: 999, Likes: 1})
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())

	task := marketerDB.Task{Platform: "linkedin", Status: marketerDB.StatusPosted}
	gormDB.Create(&task)

	w = performJSON(router, "POST", "/api/metrics", CreateMetricRequest{TaskID: task.ID, Likes: 12, Impressions: 400})
	assert.Equal(t, http.StatusCreated, w.Result().StatusCode())

	w = performJSON(router, "GET", "/api/metrics?task_id="+strconv.FormatUint(uint64(task.ID), 10), nil)
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	var metrics []marketerDB.Metric
	assert.NoError(t, json.Unmarshal(resp.Body(), &metrics))
	assert.Len(t, metrics, 1)
	assert.Equal(t, 12, metrics[0].Likes)
}

func TestGetTaskAPI_NotFound(t *testing.T) {
	dbFilePath := testDBFile("test_api_task_404_")
	router, gormDB := setupTestAppWithRoutes(t, dbFilePath)
	defer teardownTestDBFromRouter(gormDB, t, dbFilePath)

	w := performJSON(router, "GET", "/api/tasks/12345", nil)
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode())

	w = performJSON(router, "GET", "/api/tasks/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}
