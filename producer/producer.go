// Package producer implements the gateway side of a request/reply call:
// declare a private reply queue, publish the request, and wait for the
// one reply that matches a correlation id (spec §4.8).
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/theapemachine/busrpc/apperr"
	"github.com/theapemachine/busrpc/broker"
	"github.com/theapemachine/busrpc/wire"
)

// CallProps identifies one in-flight request: the correlation id it was
// published with and the reply queue it should be answered on.
type CallProps struct {
	CorrelationID string
	ReplyTo       string
}

// Producer sends requests over a shared broker.Conn and waits for typed
// replies, one reply queue per call.
type Producer struct {
	conn     *broker.Conn
	settings broker.Settings
	logger   *log.Logger
}

// New constructs a Producer bound to conn. AwaitResponse always waits at
// most settings.TimeoutOrDefault, and stops earlier if the caller's context
// is done first.
func New(conn *broker.Conn, settings broker.Settings) *Producer {
	return &Producer{conn: conn, settings: settings, logger: log.Default()}
}

// SendMessage declares a private reply queue, publishes body to queue, and
// returns the correlation id / reply queue pair AwaitResponse needs to
// collect the answer.
func (p *Producer) SendMessage(queue string, body []byte) (CallProps, error) {
	if queue == "" || len(body) == 0 {
		return CallProps{}, apperr.New(apperr.BadRequest, "INVALID_REQUEST", "queue and body are required")
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return CallProps{}, apperr.Wrap(apperr.InternalServerError, "BROKER_UNAVAILABLE", "failed to open channel", err)
	}

	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return CallProps{}, apperr.Wrap(apperr.InternalServerError, "REPLY_QUEUE_DECLARE_FAILED", "failed to declare reply queue", err)
	}

	correlationID := uuid.NewString()

	err = p.conn.Publish("", queue, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		CorrelationId:   correlationID,
		ReplyTo:         replyQueue.Name,
		Body:            body,
	})
	if err != nil {
		return CallProps{}, apperr.Wrap(apperr.InternalServerError, "PUBLISH_FAILED", "failed to publish request", err)
	}

	return CallProps{CorrelationID: correlationID, ReplyTo: replyQueue.Name}, nil
}

// AwaitResponse subscribes to props.ReplyTo and waits for the one delivery
// whose correlation id matches props.CorrelationID, a context cancellation,
// or the configured timeout, whichever comes first. The reply queue is
// deleted best-effort before returning.
func (p *Producer) AwaitResponse(ctx context.Context, props CallProps) (string, error) {
	if props.CorrelationID == "" || props.ReplyTo == "" {
		return "", apperr.New(apperr.InternalServerError, "INVALID_CALL_PROPS", "correlationId and replyTo are required")
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return "", apperr.Wrap(apperr.InternalServerError, "BROKER_UNAVAILABLE", "failed to open channel", err)
	}

	consumerTag := fmt.Sprintf("busrpc-reply-%s", props.CorrelationID)
	deliveries, err := ch.Consume(props.ReplyTo, consumerTag, false, true, false, false, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalServerError, "REPLY_CONSUME_FAILED", "failed to subscribe to reply queue", err)
	}
	defer p.cleanup(ch, consumerTag, props.ReplyTo)

	timeout := p.settings.TimeoutOrDefault()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", apperr.Wrap(apperr.GatewayTimeout, "CANCELLED", "call cancelled", ctx.Err())

		case <-timer.C:
			return "", apperr.New(apperr.GatewayTimeout, "TIMEOUT", "no reply received within the configured timeout")

		case d, ok := <-deliveries:
			if !ok {
				return "", apperr.New(apperr.InternalServerError, "REPLY_CHANNEL_CLOSED", "reply delivery channel closed before a reply arrived")
			}
			if d.CorrelationId != props.CorrelationID {
				_ = d.Ack(false)
				continue
			}
			_ = d.Ack(false)
			return decodeReply(d.Body)
		}
	}
}

// decodeReply implements the RpcEnvelope decode / compatibility fallback
// described in spec §4.8: a well-formed envelope resolves to its data or
// fails as an RpcError; anything else is returned as the raw body.
func decodeReply(body []byte) (string, error) {
	env, err := wire.DecodeEnvelope(body)
	if err != nil {
		return string(body), nil
	}

	if !env.OK {
		if ae := env.AsAppError(); ae != nil {
			return "", ae
		}
		return string(body), nil
	}
	if env.Data == nil {
		return "", nil
	}
	return *env.Data, nil
}

func (p *Producer) cleanup(ch *amqp.Channel, consumerTag, queue string) {
	if err := ch.Cancel(consumerTag, false); err != nil {
		p.logger.Debug("failed to cancel reply consumer", "error", err, "tag", consumerTag)
	}
	if _, err := ch.QueueDelete(queue, false, false, false); err != nil {
		p.logger.Debug("failed to delete reply queue", "error", err, "queue", queue)
	}
}

// Client composes SendMessage + AwaitResponse into the single round trip
// most callers want, mirroring the teacher's RPCClient.Call convenience
// wrapper adapted from HTTP to AMQP transport.
type Client struct {
	producer *Producer
}

// NewClient builds a Client over an existing Producer.
func NewClient(p *Producer) *Client {
	return &Client{producer: p}
}

// Call marshals msg, sends it to queue, and waits for the matching reply,
// returning the handler's JSON string result or a typed error.
func (c *Client) Call(ctx context.Context, queue string, msg *wire.BusMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", apperr.Wrap(apperr.BadRequest, "ENCODE_FAILED", "failed to encode request", err)
	}

	props, err := c.producer.SendMessage(queue, body)
	if err != nil {
		return "", err
	}

	return c.producer.AwaitResponse(ctx, props)
}
