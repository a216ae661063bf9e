package broker

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Conn wraps a single AMQP connection/channel pair, lazily (re-)opened
// under a check-open/create pattern (spec §5) and safe for concurrent
// publish via an internal mutex since amqp091-go channels are not
// themselves safe for concurrent Publish calls.
type Conn struct {
	settings Settings

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New constructs a Conn that dials lazily on first use.
func New(settings Settings) *Conn {
	return &Conn{settings: settings}
}

// Channel returns the shared, open channel, (re-)dialing if necessary.
func (c *Conn) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelLocked()
}

// channelLocked assumes c.mu is already held.
func (c *Conn) channelLocked() (*amqp.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.settings.URL())
		if err != nil {
			return nil, fmt.Errorf("broker: dial failed: %w", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("broker: channel open failed: %w", err)
	}
	c.channel = ch
	return ch, nil
}

// Publish serializes publishes behind Conn's mutex so concurrent callers
// (multiple in-flight RPCs, or producer + consumer reply paths sharing a
// connection) never race on the same channel.
func (c *Conn) Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		return err
	}
	return ch.Publish(exchange, routingKey, mandatory, immediate, msg)
}

// Close releases the channel and connection, best-effort.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
