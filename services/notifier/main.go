package main

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/config"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

// FailedNotification is a notification delivery parked for retry
type FailedNotification struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OriginalEventID string     `gorm:"not null" json:"original_event_id"`
	RecipientID     string     `gorm:"not null;index" json:"recipient_id"`
	EventType       string     `gorm:"not null" json:"event_type"`
	Payload         string     `gorm:"type:text;not null" json:"payload"`
	ErrorMessage    string     `gorm:"not null" json:"error_message"`
	RetryCount      int        `gorm:"default:0" json:"retry_count"`
	Status          string     `gorm:"default:'pending';index" json:"status"`
	NextRetryAt     *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func (FailedNotification) TableName() string {
	return "failed_notifications"
}

// RetryLoop periodically redelivers failed notifications with
// exponential backoff, abandoning them after maxRetries.
type RetryLoop struct {
	db            *gorm.DB
	client        *NotifyClient
	maxRetries    int
	batchSize     int
	checkInterval time.Duration
}

// NewRetryLoop creates a retry loop
func NewRetryLoop(db *gorm.DB, client *NotifyClient) *RetryLoop {
	return &RetryLoop{
		db:            db,
		client:        client,
		maxRetries:    8,
		batchSize:     100,
		checkInterval: 30 * time.Second,
	}
}

// Run processes failed notifications forever
func (rl *RetryLoop) Run() {
	logrus.Info("Starting notification retry loop...")

	for {
		var failed []FailedNotification
		err := rl.db.Where("status = ? AND next_retry_at <= ?", "pending", time.Now()).
			Limit(rl.batchSize).
			Find(&failed).Error
		if err != nil {
			logrus.Errorf("Failed to fetch pending notifications: %v", err)
			time.Sleep(rl.checkInterval)
			continue
		}

		for i := range failed {
			rl.retryOne(&failed[i])
		}

		time.Sleep(rl.checkInterval)
	}
}

func (rl *RetryLoop) retryOne(failed *FailedNotification) {
	var event pipeline.NotificationEvent
	if err := json.Unmarshal([]byte(failed.Payload), &event); err != nil {
		logrus.Errorf("Dropping failed notification %s with bad payload: %v", failed.ID, err)
		failed.Status = "abandoned"
		rl.db.Save(failed)
		return
	}

	err := rl.client.Deliver(event)
	failed.RetryCount++

	if err == nil {
		now := time.Now()
		failed.Status = "resolved"
		failed.ResolvedAt = &now
		logrus.Infof("Redelivered %s notification to %s after %d retries", failed.EventType, failed.RecipientID, failed.RetryCount)
	} else if failed.RetryCount >= rl.maxRetries {
		failed.Status = "abandoned"
		failed.ErrorMessage = err.Error()
		logrus.Warnf("Abandoning %s notification to %s after %d retries", failed.EventType, failed.RecipientID, failed.RetryCount)
	} else {
		// Exponential backoff: 1m, 2m, 4m, ...
		backoff := time.Duration(1<<uint(failed.RetryCount)) * time.Minute
		next := time.Now().Add(backoff)
		failed.NextRetryAt = &next
		failed.ErrorMessage = err.Error()
	}

	if err := rl.db.Save(failed).Error; err != nil {
		logrus.Errorf("Failed to update notification %s: %v", failed.ID, err)
	}
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate the DLQ table owned by this service
	if err := db.AutoMigrate(&FailedNotification{}); err != nil {
		log.Fatal("Failed to migrate failed notifications table:", err)
	}

	client := NewNotifyClient(config.GetEnv("NOTIFY_ENDPOINT", "http://localhost:8091/notify"))

	// Kafka consumer
	kafkaBroker := config.GetEnv("KAFKA_BROKER", "localhost:9092")
	consumer := NewEventConsumer(kafkaBroker, db)
	defer consumer.Close()

	go consumer.ConsumeEvents(client)
	go NewRetryLoop(db, client).Run()

	// Health endpoint
	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Notifier service is healthy", nil)
	})

	port := os.Getenv("NOTIFIER_SERVICE_PORT")
	if port == "" {
		port = "8003"
	}

	logrus.Infof("Notifier service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start notifier service:", err)
	}
}
