package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// Config contains everything needed to reach the store's ingestion queue.
type Config struct {
	// QueueURL is the full URL of the ingestion queue,
	// e.g. https://account.queue.core.windows.net/store-ingest.
	QueueURL     string
	ClientID     string
	ClientSecret string
	TenantID     string
}

// QueueClient enqueues serialized ingestion commands onto the store's
// ingestion queue using service-principal credentials.
type QueueClient struct {
	queue *azqueue.QueueClient
}

var _ Submitter = (*QueueClient)(nil)

// NewQueueClient builds the queue client. Construction validates credentials
// shape only; the first Submit performs the actual token exchange.
func NewQueueClient(cfg Config) (*QueueClient, error) {
	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("build client-secret credential: %w", err)
	}

	queue, err := azqueue.NewQueueClient(cfg.QueueURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("build ingestion queue client: %w", err)
	}

	return &QueueClient{queue: queue}, nil
}

// Submit serializes cmd and enqueues it. Queue message bodies are base64
// encoded, matching what the store's queued-ingestion consumers expect.
func (c *QueueClient) Submit(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal ingest command: %w", err)
	}

	text := base64.StdEncoding.EncodeToString(payload)
	if _, err := c.queue.EnqueueMessage(ctx, text, nil); err != nil {
		return fmt.Errorf("enqueue ingest command: %w", err)
	}
	return nil
}
