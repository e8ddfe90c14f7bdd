package events

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"go.uber.org/zap"

	"github.com/your-org/adxrelay/internal/dispatch"
	"github.com/your-org/adxrelay/pkg/config"
)

const errorBackoff = 5 * time.Second

// messageQueue is the slice of the storage-queue client the poller uses;
// satisfied by *azqueue.QueueClient.
type messageQueue interface {
	DequeueMessages(ctx context.Context, o *azqueue.DequeueMessagesOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// Poller drains a storage-event queue and dispatches each message. Messages
// within a batch are handled concurrently; a message whose dispatch fails is
// left on the queue to reappear after the visibility timeout, everything
// else (submitted, skipped, undecodable) is deleted.
type Poller struct {
	queue      messageQueue
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	cfg        config.EventsConfig
}

// NewPoller builds a poller against cfg.QueueURL using ambient Azure
// credentials (environment, workload identity, managed identity).
func NewPoller(cfg config.EventsConfig, dispatcher *dispatch.Dispatcher, logger *zap.Logger) (*Poller, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("load azure credentials: %w", err)
	}

	queue, err := azqueue.NewQueueClient(cfg.QueueURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("build event queue client: %w", err)
	}

	return &Poller{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting event queue polling loop", zap.String("queue_url", p.cfg.QueueURL))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event queue polling loop stopped")
			return nil
		default:
		}

		rctx, cancel := context.WithTimeout(ctx, p.cfg.ReceiveTimeout)
		numberOfMessages := p.cfg.BatchSize
		visibilityTimeout := p.cfg.VisibilityTimeout
		result, err := p.queue.DequeueMessages(rctx, &azqueue.DequeueMessagesOptions{
			NumberOfMessages:  &numberOfMessages,
			VisibilityTimeout: &visibilityTimeout,
		})
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("dequeue from event queue failed", zap.Error(err))
			time.Sleep(errorBackoff)
			continue
		}

		p.drainBatch(ctx, result.Messages)

		if len(result.Messages) == 0 {
			time.Sleep(p.cfg.PollInterval)
		}
	}
}

// drainBatch dispatches every message on its own goroutine, bounded by the
// dequeue batch size, and returns when the whole batch settles. The
// dispatcher is safe for concurrent invocations; only the initializer's
// check-and-construct section serializes.
func (p *Poller) drainBatch(ctx context.Context, messages []*azqueue.DequeuedMessage) {
	var wg sync.WaitGroup
	for _, message := range messages {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if message.MessageText == nil {
				p.deleteMessage(ctx, message.MessageID, message.PopReceipt)
				return
			}

			raw := decodeIfBase64(*message.MessageText)
			if p.handle(ctx, raw) {
				p.deleteMessage(ctx, message.MessageID, message.PopReceipt)
			}
		}()
	}
	wg.Wait()
}

// handle dispatches every notification in one queue message. It reports
// whether the message is finished: undecodable payloads are finished (they
// will never improve), failed dispatches are not, so the message reappears.
func (p *Poller) handle(ctx context.Context, raw []byte) bool {
	notifications, err := ParseNotifications(raw)
	if err != nil {
		p.logger.Warn("dropping undecodable queue message", zap.Error(err))
		return true
	}

	finished := true
	for _, n := range notifications {
		if out := p.dispatcher.Dispatch(ctx, n); out.State == dispatch.StateFailed {
			finished = false
		}
	}
	return finished
}

func (p *Poller) deleteMessage(ctx context.Context, messageID, popReceipt *string) {
	if messageID == nil || popReceipt == nil {
		return
	}
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := p.queue.DeleteMessage(dctx, *messageID, *popReceipt, nil); err != nil {
		p.logger.Error("delete queue message failed", zap.Error(err))
	}
}

// decodeIfBase64 tolerates the base64 wrapping some event sources apply to
// queue message bodies.
func decodeIfBase64(s string) []byte {
	if len(s)%4 != 0 {
		return []byte(s)
	}
	for _, c := range s {
		if !(('A' <= c && c <= 'Z') ||
			('a' <= c && c <= 'z') ||
			('0' <= c && c <= '9') ||
			c == '+' || c == '/' || c == '=') {
			return []byte(s)
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return []byte(s)
	}
	return decoded
}
