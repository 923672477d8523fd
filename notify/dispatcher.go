package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"critiq/logger"
	"critiq/metrics"
	"critiq/models"
	"critiq/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	storeTimeout    = 10 * time.Second
	deliveryTimeout = 10 * time.Second
)

// Request describes one notification to create.
type Request struct {
	Recipient primitive.ObjectID
	Sender    primitive.ObjectID
	Type      models.NotificationType
	RelatedID primitive.ObjectID
	Message   string
}

// Sink delivers a stored notification to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n *models.Notification) error
}

type Config struct {
	Workers   int
	QueueSize int
}

// Dispatcher stores and delivers notifications off the request path. Notify
// never fails the caller: errors are logged and counted.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	sinks         []Sink
	queue         chan Request
	wg            sync.WaitGroup
	mu            sync.RWMutex
	closed        bool
}

func NewDispatcher(notifications repository.NotificationRepository, users repository.UserRepository, cfg Config, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	d := &Dispatcher{
		notifications: notifications,
		users:         users,
		sinks:         sinks,
		queue:         make(chan Request, cfg.QueueSize),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// Notify queues req. When the queue is full or the dispatcher is closed the
// notification is dropped.
func (d *Dispatcher) Notify(req Request) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.Log.Warn("Notification dropped, dispatcher closed", zap.String("type", string(req.Type)))
		return
	}

	select {
	case d.queue <- req:
	default:
		metrics.Get().NotificationsDropped.Inc()
		metrics.Get().NotificationsDispatched.WithLabelValues(string(req.Type), "dropped").Inc()
		logger.Log.Warn("Notification queue full, dropping notification",
			zap.String("type", string(req.Type)),
			zap.String("recipient", req.Recipient.Hex()),
		)
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for req := range d.queue {
		d.process(req)
	}
}

func (d *Dispatcher) process(req Request) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Panic while dispatching notification", zap.Any("panic", r))
		}
	}()

	typ := string(req.Type)
	n := &models.Notification{
		RecipientID: req.Recipient,
		SenderID:    req.Sender,
		Type:        req.Type,
		RelatedID:   req.RelatedID,
		Message:     req.Message,
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	err := d.notifications.Create(ctx, n)
	cancel()
	if err != nil {
		metrics.Get().NotificationsDispatched.WithLabelValues(typ, "failed").Inc()
		logger.Log.Error("Failed to store notification",
			zap.String("type", typ),
			zap.String("recipient", req.Recipient.Hex()),
			zap.Error(err),
		)
		return
	}
	metrics.Get().NotificationsDispatched.WithLabelValues(typ, "stored").Inc()

	if d.users != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if sender, err := d.users.FindByID(ctx, req.Sender); err == nil {
			n.Sender = sender.Summary()
		} else if !errors.Is(err, repository.ErrNotFound) {
			logger.Log.Warn("Failed to load notification sender", zap.Error(err))
		}
		cancel()
	}

	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := sink.Deliver(ctx, n); err != nil {
			metrics.Get().NotificationsDispatched.WithLabelValues(typ, "delivery_failed").Inc()
			logger.Log.Warn("Notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("type", typ),
				zap.String("recipient", req.Recipient.Hex()),
				zap.Error(err),
			)
		}
		cancel()
	}
}
