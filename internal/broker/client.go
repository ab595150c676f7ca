package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/google/uuid"

	"github.com/kacperpap/air-pollution-tracker/internal/workerpool"
)

// reconnectDelay is the fixed backoff between connection attempts (spec
// §4.G: "sleep 5 s and retry").
const reconnectDelay = 5 * time.Second

// pendingResult pairs a worker's eventual Result with the original
// delivery's acknowledgement, so the I/O loop — and only the I/O loop —
// publishes to the channel and acks the originating message (spec §5:
// "the broker channel is owned by the I/O loop and must not be written to
// by workers").
type pendingResult struct {
	result workerpool.Result
	ack    func() error
}

// Client drives the per-session broker state machine of spec §4.G:
// Disconnected -> Connecting -> Connected -> Subscribed -> Draining ->
// Disconnected.
type Client struct {
	URL      string
	Queue    string
	Prefetch int
	Pool     *workerpool.Pool
	Log      *logrus.Logger
}

// Run connects and consumes until ctx is cancelled. On a transient broker
// error it logs, sleeps reconnectDelay, and retries indefinitely (spec
// §4.G, §7 "Transient broker errors").
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).Warn("broker: failed to connect, retrying")
			if !sleepOrDone(ctx, reconnectDelay) {
				return nil
			}
			continue
		}

		if err := c.session(ctx, conn); err != nil {
			c.Log.WithError(err).Warn("broker: session ended, reconnecting")
			conn.Close()
			if !sleepOrDone(ctx, reconnectDelay) {
				return nil
			}
			continue
		}
		conn.Close()
		return nil // ctx was cancelled and the session drained cleanly
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// session runs one Connected -> Subscribed -> Draining lifecycle over a
// single AMQP connection.
func (c *Client) session(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("broker: opening channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.Prefetch, 0, false); err != nil {
		return fmt.Errorf("broker: setting prefetch: %w", err)
	}

	q, err := ch.QueueDeclare(c.Queue, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("broker: declaring queue %s: %w", c.Queue, err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("broker: starting consume on %s: %w", q.Name, err)
	}
	c.Log.WithField("queue", q.Name).Info("broker: subscribed")

	completions := make(chan pendingResult, c.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return c.drain(ch, completions)

		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("broker: consumer channel closed")
			}
			c.dispatch(ctx, d, completions)

		case pending := <-completions:
			c.publish(ch, pending)
		}
	}
}

// dispatch parses and validates one incoming delivery. Malformed payloads
// and validation errors are acked immediately with a failed reply so the
// broker never redelivers a poison message (spec §7); valid jobs are
// submitted to the pool and their eventual result is routed back through
// completions.
func (c *Client) dispatch(ctx context.Context, d amqp.Delivery, completions chan<- pendingResult) {
	traceID := uuid.New().String()
	log := c.Log.WithFields(logrus.Fields{
		"correlation_id": d.CorrelationId,
		"reply_to":       d.ReplyTo,
		"trace_id":       traceID,
	})
	log.Info("broker: processing message")

	job, err := ParseJob(d.Body)
	if err != nil {
		log.WithError(err).Warn("broker: rejecting malformed or invalid job")
		// Sent from a goroutine, not inline: completions may be full while
		// the session loop itself is the only reader, and this call runs
		// on that same loop's goroutine. Bound on ctx so the goroutine
		// doesn't leak if the session has already drained and stopped
		// reading completions by the time this runs.
		go func() {
			select {
			case completions <- pendingResult{
				result: workerpool.Result{CorrelationID: d.CorrelationId, ReplyTo: d.ReplyTo, Status: workerpool.StatusFailed},
				ack:    func() error { return d.Ack(false) },
			}:
			case <-ctx.Done():
			}
		}()
		return
	}
	job.CorrelationID = d.CorrelationId
	job.ReplyTo = d.ReplyTo

	resultCh, started := c.Pool.Submit(ctx, job, log)
	if !started {
		log.Warn("broker: pool is draining, job dropped without reply")
		d.Nack(false, false)
		return
	}

	go func() {
		result, ok := <-resultCh
		if !ok {
			return
		}
		if result.Status == workerpool.StatusFailed && result.Output == nil && ctx.Err() != nil {
			// Shutdown mid-job: no reply is published, ack so the
			// message isn't redelivered into a dead worker pool
			// (spec §7 "Shutdown mid-job").
			d.Ack(false)
			return
		}
		completions <- pendingResult{result: result, ack: func() error { return d.Ack(false) }}
	}()
}

func (c *Client) publish(ch *amqp.Channel, pending pendingResult) {
	body, err := EncodeResult(pending.result)
	if err != nil {
		c.Log.WithError(err).Error("broker: failed to encode result")
		body = EncodeFailure()
	}
	err = ch.Publish("", pending.result.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: pending.result.CorrelationID,
		Body:          body,
	})
	if err != nil {
		c.Log.WithError(err).Error("broker: failed to publish reply")
		return
	}
	if err := pending.ack(); err != nil {
		c.Log.WithError(err).Warn("broker: failed to ack message after publish")
	}
}

// drain flushes any completions already queued up before the connection is
// torn down, giving in-flight jobs a brief window to have their replies
// published (spec §4.H: "await in-flight up to a short grace").
func (c *Client) drain(ch *amqp.Channel, completions chan pendingResult) error {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case pending := <-completions:
			c.publish(ch, pending)
		case <-deadline:
			return nil
		}
	}
}
