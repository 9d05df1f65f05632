package amqp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"walleet/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures     = 5
	openTimeout     = 30 * time.Second
	maxBackoff      = 30 * time.Second
	maxDialAttempts = 3

	// directReplyTo is RabbitMQ's pseudo-queue for RPC replies.
	directReplyTo = "amq.rabbitmq.reply-to"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes analysis requests and consumes their replies, or, on the
// worker side, consumes requests and publishes replies.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	failureMu    sync.Mutex
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       log.OrDefault(logger, log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name, as usual for a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureConnected redials a dropped connection with exponential backoff.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	alive := c.conn != nil && !c.conn.IsClosed()
	c.mu.Unlock()
	if alive {
		return nil
	}

	var err error
	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		if err = c.connect(); err == nil {
			c.log().InfoContext(ctx, "AMQP reconnected", "attempt", attempt+1)
			return nil
		}
		c.log().WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, log.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return err
}

// Call publishes req and waits for the worker's reply.
func (c *Client) Call(ctx context.Context, req *AnalysisRequest) (*AnalysisReply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.isCircuitOpen() {
		return nil, fmt.Errorf("publish analysis request: %w", ErrCircuitOpen)
	}
	if err := c.ensureConnected(ctx); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("connect: %w", err)
	}

	body, err := req.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	// Direct reply-to needs its own consumer per caller channel.
	c.mu.Lock()
	ch, err := c.conn.Channel()
	c.mu.Unlock()
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("open rpc channel: %w", err)
	}
	defer ch.Close()

	replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	pub := amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: req.ID,
		ReplyTo:       directReplyTo,
		Timestamp:     time.Now(),
		Body:          body,
	}
	if deadline, ok := ctx.Deadline(); ok {
		pub.Expiration = strconv.FormatInt(max(time.Until(deadline).Milliseconds(), 1), 10)
	}
	if err := ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, pub); err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return nil, fmt.Errorf("publish message: %w", err)
	}
	c.log().DebugContext(ctx, "Published analysis request", "request_id", req.ID, "kind", req.Kind)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				c.recordFailure()
				return nil, errors.New("reply channel closed")
			}
			if d.CorrelationId != req.ID {
				continue
			}
			reply, err := AnalysisReplyFromJSON(d.Body)
			if err != nil {
				return nil, fmt.Errorf("decode reply: %w", err)
			}
			c.recordSuccess()
			return reply, nil
		}
	}
}

// Handler answers one analysis request.
type Handler func(ctx context.Context, req *AnalysisRequest) (*AnalysisReply, error)

// Consume serves analysis requests until ctx is done. Handler failures are
// sent back as error replies; malformed requests are dropped.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("amqp client not connected")
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming analysis requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handle(ctx, ch, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, ch *amqp091.Channel, delivery amqp091.Delivery, handler Handler) {
	req, err := AnalysisRequestFromJSON(delivery.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}

	c.log().InfoContext(ctx, "Processing analysis request", "request_id", req.ID, "kind", req.Kind)

	reply, err := handler(ctx, req)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to handle message", "request_id", req.ID, log.FieldError, err)
		reply = &AnalysisReply{Error: err.Error()}
	}
	reply.RequestID = req.ID
	reply.Timestamp = time.Now()

	if delivery.ReplyTo != "" {
		body, err := reply.ToJSON()
		if err == nil {
			err = ch.PublishWithContext(ctx, "", delivery.ReplyTo, false, false, amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: delivery.CorrelationId,
				Timestamp:     reply.Timestamp,
				Body:          body,
			})
		}
		if err != nil {
			c.log().ErrorContext(ctx, "Failed to publish reply", "request_id", req.ID, log.FieldError, err)
		}
	}

	delivery.Ack(false)
	c.log().InfoContext(ctx, "Analysis request answered", "request_id", req.ID, log.FieldCount, len(reply.Candidates))
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failureMu.Lock()
	last := c.lastFailure
	c.failureMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.failureMu.Lock()
	c.lastFailure = time.Now()
	c.failureMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.OrDefault(nil, log.ComponentAMQP)
	}
	return c.logger
}
