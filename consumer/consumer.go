// Package consumer implements the long-lived worker loop described in
// spec §4.7: connect, consume, decode, route, reply — never dying from a
// single poisoned message.
package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/broker"
	"github.com/theapemachine/busrpc/metrics"
	"github.com/theapemachine/busrpc/router"
	"github.com/theapemachine/busrpc/wire"
)

// Consumer is a worker bound to one request queue and one Router.
type Consumer struct {
	conn    *broker.Conn
	router  *router.Router
	queue   string
	logger  *log.Logger
	metrics metrics.Sink
}

// Option configures optional Consumer behavior.
type Option func(*Consumer)

// WithMetrics attaches an instrumentation sink. Passing nil is a no-op.
func WithMetrics(sink metrics.Sink) Option {
	return func(c *Consumer) {
		if sink != nil {
			c.metrics = sink
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

type noopSink struct{}

func (noopSink) Inc(string)            {}
func (noopSink) Observe(string, float64) {}

// New constructs a Consumer bound to queue, using r to route decoded
// requests.
func New(conn *broker.Conn, queue string, r *router.Router, opts ...Option) *Consumer {
	c := &Consumer{
		conn:    conn,
		router:  r,
		queue:   queue,
		logger:  log.Default(),
		metrics: noopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run implements the Connecting -> Consuming -> Draining state machine.
// Connection/channel establishment failures are fatal (logged at fatal
// level and returned so the host can restart the process); every
// per-delivery failure afterwards is caught and converted to an error
// reply instead of propagating out of Run.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		c.logger.Log(log.FatalLevel, "failed to connect to broker", "error", err)
		return fmt.Errorf("consumer: connect: %w", err)
	}

	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		c.logger.Log(log.FatalLevel, "failed to declare request queue", "error", err, "queue", c.queue)
		return fmt.Errorf("consumer: queue declare: %w", err)
	}

	consumerTag := fmt.Sprintf("busrpc-%s", q.Name)
	deliveries, err := ch.Consume(q.Name, consumerTag, true, false, false, false, nil)
	if err != nil {
		c.logger.Log(log.FatalLevel, "failed to register consumer", "error", err, "queue", q.Name)
		return fmt.Errorf("consumer: consume: %w", err)
	}

	c.logger.Info("consumer started", "queue", q.Name)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			wg.Wait()
			c.logger.Info("consumer stopped", "queue", q.Name)
			return nil

		case d, ok := <-deliveries:
			if !ok {
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				c.handleDelivery(ctx, d)
			}(d)
		}
	}
}

// handleDelivery is the per-delivery pipeline of spec §4.7.3. It recovers
// from panics so a single malformed handler invocation cannot take the
// whole consumer goroutine pool down with it.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered from panic while handling delivery", "panic", r)
			c.reply(d, wire.Failure(apperr.New(apperr.InternalServerError, "UNHANDLED", "handler panicked")))
			outcome = "panic"
		}
		c.metrics.Observe(outcome, time.Since(start).Seconds())
		c.metrics.Inc(outcome)
	}()

	env := Process(ctx, c.router, d.Body)
	if !env.OK {
		outcome = env.Error.Code
	}
	c.reply(d, env)
}

// Process runs the decode -> route portion of the per-delivery pipeline in
// isolation from the broker, so it can be unit tested without a live AMQP
// connection. It never returns an error; every failure is folded into the
// returned envelope, matching the "all exits MUST attempt a reply"
// invariant of spec §4.7.3.
func Process(ctx context.Context, r *router.Router, body []byte) *wire.RpcEnvelope {
	msg, err := wire.DecodeBusMessage(body)
	if err != nil {
		return wire.Failure(apperr.New(apperr.BadRequest, "DESERIALIZE_ERROR", "Invalid payload.").WithDetails(err.Error()))
	}

	result, err := r.Route(ctx, msg)
	if err != nil {
		ae, ok := apperr.As(err)
		if !ok {
			ae = apperr.Wrap(apperr.InternalServerError, "ROUTING_ERROR", "unhandled routing failure", err)
		}
		return wire.Failure(ae)
	}

	return wire.Success(result)
}

// reply publishes env to the default exchange using the delivery's
// replyTo/correlationId. Deliveries without a replyTo are dropped with a
// warning since there is nowhere to send the reply.
func (c *Consumer) reply(d amqp.Delivery, env *wire.RpcEnvelope) {
	if d.ReplyTo == "" {
		c.logger.Warn("delivery has no replyTo; dropping reply", "correlationId", d.CorrelationId)
		return
	}

	body, err := env.Marshal()
	if err != nil {
		c.logger.Error("failed to encode reply envelope", "error", err)
		return
	}

	status := "ok"
	if !env.OK {
		status = "error"
	}

	err = c.conn.Publish("", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		CorrelationId:   d.CorrelationId,
		Headers:         amqp.Table{"x-status": status},
		Body:            body,
	})
	if err != nil {
		c.logger.Error("failed to publish reply", "error", err, "replyTo", d.ReplyTo)
	}
}
