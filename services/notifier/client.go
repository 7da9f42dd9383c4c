package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rentflow/rentflow/shared/pipeline"
)

// NotifyClient invokes the external notification function. Channel and
// template selection happen on the far side; this client only posts the
// event.
type NotifyClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewNotifyClient creates a client for the notification function
func NewNotifyClient(endpoint string) *NotifyClient {
	return &NotifyClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Deliver posts one event to the notification function
func (nc *NotifyClient) Deliver(event pipeline.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	resp, err := nc.httpClient.Post(nc.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notification call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification call returned status %d", resp.StatusCode)
	}
	return nil
}
