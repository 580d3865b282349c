package db

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDBFile := "test_gorm.db"
	_ = os.Remove(testDBFile)

	gormDB, err := gorm.Open(sqlite.Open(testDBFile), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = gormDB.AutoMigrate(&Campaign{}, &Source{}, &Task{}, &Metric{}, &Credential{})
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return gormDB
}

func teardownTestDB(gormDB *gorm.DB, t *testing.T) {
	sqlDB, err := gormDB.DB()
	if err == nil {
		if err = sqlDB.Close(); err != nil {
			t.Logf("Warning: could not close test DB: %v", err)
		}
	}
	if err = os.Remove("test_gorm.db"); err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: could not remove test DB file: %v", err)
	}
}

func TestTaskCRUD(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	scheduledAt := time.Now().Add(time.Hour)
	task := Task{
		Platform:    PlatformLinkedIn,
		Content:     "Announcing our new feature.",
		Status:      StatusScheduled,
		ScheduledAt: &scheduledAt,
	}
	result := gormDB.Create(&task)
	assert.NoError(t, result.Error)
	assert.NotZero(t, task.ID)

	var fetched Task
	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Equal(t, StatusScheduled, fetched.Status)
	assert.NotNil(t, fetched.ScheduledAt)
	assert.Nil(t, fetched.PostedAt)
	assert.Nil(t, fetched.CampaignID)

	postedAt := time.Now()
	assert.NoError(t, gormDB.Model(&fetched).Updates(map[string]interface{}{
		"status":        StatusPosted,
		"posted_at":     postedAt,
		"published_url": "https://www.linkedin.com/feed/update/urn:li:share:1",
		"publish_error": "",
	}).Error)

	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Equal(t, StatusPosted, fetched.Status)
	assert.NotNil(t, fetched.PostedAt)
	assert.Contains(t, fetched.PublishedURL, "urn:li:share:1")

	assert.NoError(t, gormDB.Delete(&fetched).Error)
	assert.ErrorIs(t, gormDB.First(&Task{}, task.ID).Error, gorm.ErrRecordNotFound)
}

func TestTaskDefaultsToDraft(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	task := Task{Platform: PlatformBlog, Content: "body"}
	assert.NoError(t, gormDB.Create(&task).Error)

	var fetched Task
	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Equal(t, StatusDraft, fetched.Status)
}

func TestTaskCampaignAndSourceLinks(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	campaign := Campaign{Name: "Q3 Launch"}
	assert.NoError(t, gormDB.Create(&campaign).Error)
	source := Source{URL: "https://example.com/a", Title: "A", Content: "text"}
	assert.NoError(t, gormDB.Create(&source).Error)

	task := Task{CampaignID: &campaign.ID, SourceID: &source.ID, Platform: PlatformLinkedIn, Status: StatusTodo}
	assert.NoError(t, gormDB.Create(&task).Error)

	var loaded Campaign
	assert.NoError(t, gormDB.Preload("Tasks").First(&loaded, campaign.ID).Error)
	assert.Len(t, loaded.Tasks, 1)

	// Detaching the parent never invalidates the task.
	assert.NoError(t, gormDB.Model(&Task{}).Where("campaign_id = ?", campaign.ID).Update("campaign_id", nil).Error)
	var fetched Task
	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Nil(t, fetched.CampaignID)
	assert.NotNil(t, fetched.SourceID)
}

func TestMetricsBelongToTask(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	task := Task{Platform: PlatformLinkedIn, Status: StatusPosted}
	assert.NoError(t, gormDB.Create(&task).Error)

	metrics := []Metric{
		{TaskID: task.ID, Likes: 10, Comments: 2, RecordedAt: time.Now().Add(-time.Hour)},
		{TaskID: task.ID, Likes: 25, Comments: 5, Shares: 3, Impressions: 900, RecordedAt: time.Now()},
	}
	assert.NoError(t, gormDB.Create(&metrics).Error)

	var loaded Task
	assert.NoError(t, gormDB.Preload("Metrics").First(&loaded, task.ID).Error)
	assert.Len(t, loaded.Metrics, 2)

	var count int64
	gormDB.Model(&Metric{}).Where("task_id = ?", task.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()

	fresh := Credential{Provider: PlatformLinkedIn, AccessToken: "t", ExpiresAt: now.Add(time.Hour)}
	assert.False(t, fresh.Expired(now))

	stale := Credential{Provider: PlatformLinkedIn, AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, stale.Expired(now))

	noExpiry := Credential{Provider: PlatformLinkedIn, AccessToken: "t"}
	assert.False(t, noExpiry.Expired(now))
}
