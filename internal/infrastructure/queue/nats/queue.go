package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/resilience"
)

// dispatcherGroup spreads events across worker replicas; each event reaches one of them.
const dispatcherGroup = "analysis-dispatchers"

// Queue carries assignment-submitted events from the API to the dispatch worker.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	now      func() time.Time
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	FailOnInitialError bool
	ResilienceExecutor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if subject == "" {
		return nil, errors.New("nats subject is required")
	}

	conn, err := nats.Connect(url, connectOptions(options)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		now:      time.Now,
	}, nil
}

func connectOptions(options Options) []nats.Option {
	timeout := options.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	wait := options.ReconnectWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	reconnects := options.MaxReconnects
	if reconnects <= 0 {
		reconnects = 60
	}

	return []nats.Option{
		nats.Name("assignment-analyzer"),
		nats.Timeout(timeout),
		nats.ReconnectWait(wait),
		nats.MaxReconnects(reconnects),
		nats.RetryOnFailedConnect(!options.FailOnInitialError),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			slog.Info("nats_connection_closed")
		}),
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAssignmentSubmitted(ctx context.Context, assignmentID int64) error {
	msg := newSubmittedMsg(q.subject, assignmentID, q.now())
	publish := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor == nil {
		return publishError(publish(ctx))
	}
	return publishError(q.executor.Execute(ctx, "nats.publish", publish, classifyPublishError))
}

// SubscribeAssignmentSubmitted blocks until ctx is done, then drains the subscription.
// Handler errors are logged; the event is not redelivered.
func (q *Queue) SubscribeAssignmentSubmitted(ctx context.Context, handler func(context.Context, int64) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, dispatcherGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}

		assignmentID, err := decodeAssignmentID(msg.Data)
		if err != nil {
			slog.Error("assignment_event_malformed", "payload", string(msg.Data), "error", err)
			return
		}
		if published, ok := submittedAt(msg); ok {
			slog.Debug("assignment_event_received",
				"assignment_id", assignmentID,
				"queue_lag_ms", q.now().Sub(published).Milliseconds(),
			)
		}

		if err := handler(ctx, assignmentID); err != nil {
			slog.Error("assignment_event_handler_failed", "assignment_id", assignmentID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
