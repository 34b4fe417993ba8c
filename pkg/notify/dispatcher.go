package notify

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
)

const deliveryTimeout = 30 * time.Second

// Message is a stored notification queued for delivery
type Message struct {
	model.Notification
	RecipientEmail string
}

// Sink delivers messages over one channel (email, push, log)
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Options sizes the delivery queue
type Options struct {
	QueueSize int
	Workers   int
}

// Dispatcher persists notifications to the inbox and fans them out to sinks
// asynchronously. Delivery failures are logged and counted, never returned.
type Dispatcher struct {
	store   db.NotificationStore
	sinks   []Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

// NewDispatcher starts opts.Workers delivery goroutines. Call Close to drain them.
func NewDispatcher(store db.NotificationStore, logger *zap.Logger, m *metrics.Metrics, opts Options, sinks ...Sink) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	d := &Dispatcher{
		store:   store,
		sinks:   sinks,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		queue:   make(chan Message, opts.QueueSize),
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}

	return d
}

// Notify stores the event in the recipient's inbox and queues it for delivery.
// Only the inbox write can fail; a full queue drops the delivery with a warning.
func (d *Dispatcher) Notify(ctx context.Context, event model.NotificationEvent) error {
	data := maps.Clone(event.Data)
	if event.RequestID != "" {
		if data == nil {
			data = map[string]string{}
		}
		data["request_id"] = event.RequestID
	}

	notification := model.Notification{
		ID:        uuid.New().String(),
		UserID:    event.RecipientID,
		Title:     event.Title,
		Message:   event.Message,
		Type:      event.Type,
		Data:      data,
		CreatedAt: d.now(),
	}

	if err := d.store.InsertNotification(ctx, &notification); err != nil {
		return fmt.Errorf("failed to store notification for %s: %w", event.RecipientID, err)
	}

	d.enqueue(Message{Notification: notification, RecipientEmail: event.RecipientEmail})
	return nil
}

func (d *Dispatcher) enqueue(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed || len(d.sinks) == 0 {
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("Notification queue full, dropping delivery",
			zap.String("notification_id", msg.ID),
			zap.String("recipient_id", msg.UserID))
		d.metrics.IncrementDelivery("queue", "dropped")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for msg := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, msg)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := sink.Deliver(ctx, msg); err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("sink", sink.Name()),
			zap.String("notification_id", msg.ID),
			zap.String("recipient_id", msg.UserID),
			zap.Error(err))
		d.metrics.IncrementDelivery(sink.Name(), "error")
		return
	}

	d.metrics.IncrementDelivery(sink.Name(), "ok")
}

// Close stops accepting deliveries and waits for queued ones to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
