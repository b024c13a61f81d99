package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"internship_backend/internal/logger"
	"internship_backend/internal/metrics"
	"internship_backend/internal/services/dto"
)

const deliverTimeout = 5 * time.Second

// Sink - канал доставки событий (websocket, amqp)
type Sink interface {
	Name() string
	Deliver(ctx context.Context, userIDs []string, event dto.RealtimeEvent, payload []byte) error
}

// ParticipantLister раскрывает беседу в список получателей
type ParticipantLister interface {
	ParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
}

type ParticipantListerFunc func(ctx context.Context, conversationID string) ([]string, error)

func (f ParticipantListerFunc) ParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	return f(ctx, conversationID)
}

type job struct {
	userID         string
	conversationID string
	event          dto.RealtimeEvent
}

// Dispatcher - очередь fire-and-forget событий с пулом воркеров.
// Push никогда не блокируется: при полной очереди событие отбрасывается.
type Dispatcher struct {
	queue        chan job
	workers      int
	sinks        []Sink
	participants ParticipantLister

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewDispatcher(queueSize, workers int, participants ParticipantLister, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		queue:        make(chan job, queueSize),
		workers:      workers,
		sinks:        sinks,
		participants: participants,
		done:         make(chan struct{}),
	}
}

// Start запускает воркеры; они завершаются по ctx или Stop
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-d.done:
					return
				case j := <-d.queue:
					d.process(ctx, j)
				}
			}
		}()
	}
	logger.Info("Realtime dispatcher started", "workers", d.workers, "sinks", len(d.sinks))
}

// Stop останавливает воркеры; события, оставшиеся в очереди, теряются
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

func (d *Dispatcher) PushToUser(userID string, event dto.RealtimeEvent) {
	d.enqueue(job{userID: userID, event: event})
}

func (d *Dispatcher) PushToConversation(conversationID string, event dto.RealtimeEvent) {
	if event.ConversationID == "" {
		event.ConversationID = conversationID
	}
	d.enqueue(job{conversationID: conversationID, event: event})
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case <-d.done:
		metrics.RealtimeDropped.WithLabelValues(j.event.Type).Inc()
		return
	default:
	}

	select {
	case d.queue <- j:
	default:
		metrics.RealtimeDropped.WithLabelValues(j.event.Type).Inc()
		logger.Warn("Realtime queue is full, event dropped",
			"event_type", j.event.Type,
			"user_id", j.userID,
			"conversation_id", j.conversationID,
		)
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	recipients := []string{j.userID}
	if j.conversationID != "" {
		ids, err := d.participants.ParticipantIDs(ctx, j.conversationID)
		if err != nil {
			logger.WorkerLog("realtime", "resolve_participants", err, "conversation_id", j.conversationID)
			return
		}
		recipients = ids
	}
	if len(recipients) == 0 {
		return
	}

	payload, err := json.Marshal(j.event)
	if err != nil {
		logger.WorkerLog("realtime", "marshal_event", err, "event_type", j.event.Type)
		return
	}

	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, recipients, j.event, payload); err != nil {
			metrics.RealtimeDeliveries.WithLabelValues(sink.Name(), "failed").Inc()
			logger.WorkerLog("realtime", "deliver", err, "sink", sink.Name(), "event_type", j.event.Type)
			continue
		}
		metrics.RealtimeDeliveries.WithLabelValues(sink.Name(), "delivered").Inc()
	}
}
