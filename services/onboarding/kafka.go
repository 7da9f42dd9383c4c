package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/pipeline"
)

const notificationTopic = "tenancy-events"

// NotificationProducer publishes onboarding events to Kafka with a
// worker pool. Enqueueing is non-blocking: the notification channel is
// best-effort and a full queue drops the event.
type NotificationProducer struct {
	writer       *kafka.Writer
	eventChan    chan pipeline.NotificationEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewNotificationProducer creates a Kafka producer with a worker pool
func NewNotificationProducer(broker string) (*NotificationProducer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	np := &NotificationProducer{
		writer:       writer,
		eventChan:    make(chan pipeline.NotificationEvent, 1000),
		workerCount:  10,
		shutdownChan: make(chan struct{}),
	}

	np.startWorkers()

	return np, nil
}

// startWorkers starts the worker pool for async event publication
func (np *NotificationProducer) startWorkers() {
	for i := 0; i < np.workerCount; i++ {
		np.wg.Add(1)
		go np.eventWorker(i)
	}
	logrus.Infof("[Kafka] Started %d notification workers", np.workerCount)
}

// eventWorker publishes events from the channel
func (np *NotificationProducer) eventWorker(id int) {
	defer np.wg.Done()

	for {
		select {
		case event := <-np.eventChan:
			if err := np.sendEventSync(event); err != nil {
				metrics.NotificationDropsCounter.Inc()
				logrus.Warnf("[Kafka Worker %d] Failed to send %s event: %v", id, event.Type, err)
			}
		case <-np.shutdownChan:
			logrus.Infof("[Kafka Worker %d] Shutting down notification worker", id)
			return
		}
	}
}

// Notify queues an event asynchronously (non-blocking). Implements
// pipeline.Notifier.
func (np *NotificationProducer) Notify(event pipeline.NotificationEvent) error {
	select {
	case np.eventChan <- event:
		return nil
	default:
		metrics.NotificationDropsCounter.Inc()
		return fmt.Errorf("notification queue full, event dropped")
	}
}

// sendEventSync publishes an event to Kafka synchronously (called by workers)
func (np *NotificationProducer) sendEventSync(event pipeline.NotificationEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	msg := kafka.Message{
		Topic: notificationTopic,
		Key:   []byte(event.RecipientID),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "recipient_id", Value: []byte(event.RecipientID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := np.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write notification event to Kafka: %w", err)
	}

	return nil
}

// Close gracefully shuts down the producer and workers
func (np *NotificationProducer) Close() error {
	logrus.Info("[Kafka] Initiating graceful shutdown...")

	close(np.shutdownChan)
	np.wg.Wait()
	close(np.eventChan)

	if err := np.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}

	logrus.Info("[Kafka] Graceful shutdown complete")
	return nil
}
