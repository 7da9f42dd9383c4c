package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/pipeline"
)

// EventConsumer reads onboarding events from Kafka and hands them to
// the notification function. Delivery is best-effort: failures go to
// the DLQ table for the retry loop, never back to the producer.
type EventConsumer struct {
	reader *kafka.Reader
	db     *gorm.DB
}

// NewEventConsumer creates a Kafka consumer for tenancy events
func NewEventConsumer(broker string, db *gorm.DB) *EventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          "tenancy-events",
		GroupID:        "notifier-service",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &EventConsumer{reader: reader, db: db}
}

// ConsumeEvents consumes notification events and dispatches them
func (ec *EventConsumer) ConsumeEvents(client *NotifyClient) {
	logrus.Info("Starting tenancy events consumer...")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg, err := ec.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if err == context.DeadlineExceeded {
				continue
			}
			logrus.Errorf("Error reading tenancy event: %v", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var event pipeline.NotificationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logrus.Errorf("Error unmarshaling tenancy event: %v", err)
			continue
		}

		if err := client.Deliver(event); err != nil {
			logrus.Warnf("Error delivering %s notification: %v", event.Type, err)
			if dlqErr := ec.storeFailedNotification(event, err); dlqErr != nil {
				logrus.Errorf("Failed to store failed notification: %v", dlqErr)
			}
		} else {
			logrus.Infof("Delivered %s notification to %s", event.Type, event.RecipientID)
		}
	}
}

// storeFailedNotification parks a failed delivery for the retry loop
func (ec *EventConsumer) storeFailedNotification(event pipeline.NotificationEvent, cause error) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	nextRetryAt := time.Now().Add(1 * time.Minute)
	failed := FailedNotification{
		ID:              uuid.New(),
		OriginalEventID: event.ID.String(),
		RecipientID:     event.RecipientID,
		EventType:       event.Type,
		Payload:         string(payload),
		ErrorMessage:    cause.Error(),
		Status:          "pending",
		NextRetryAt:     &nextRetryAt,
	}
	if err := ec.db.Create(&failed).Error; err != nil {
		return fmt.Errorf("failed to persist failed notification: %w", err)
	}
	return nil
}

// Close closes the Kafka consumer
func (ec *EventConsumer) Close() error {
	if err := ec.reader.Close(); err != nil {
		return fmt.Errorf("failed to close event reader: %w", err)
	}
	return nil
}
