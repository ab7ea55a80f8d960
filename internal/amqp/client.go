package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"subscan/internal/log"
)

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

func dialAMQP(url string) (channel, io.Closer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// RetryPolicy bounds reconnect attempts while publishing.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      4,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Publisher sends scan reports to a direct exchange. The connection is
// opened on first publish and re-dialed after connection failures.
type Publisher struct {
	url          string
	exchangeName string
	routingKey   string
	retry        RetryPolicy
	logger       *slog.Logger
	dial         dialFunc

	mu   sync.Mutex
	conn io.Closer
	ch   channel
}

func NewPublisher(url, exchangeName, routingKey string, retry RetryPolicy, logger *slog.Logger) *Publisher {
	if retry == (RetryPolicy{}) {
		retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		retry:        retry,
		logger:       logger,
		dial:         dialAMQP,
	}
}

// connect returns the open channel, dialing and declaring the exchange if
// needed. Callers hold p.mu.
func (p *Publisher) connect() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p.ch, p.conn = ch, conn
	return ch, nil
}

// reset drops the current connection. Callers hold p.mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// PublishReport publishes msg as persistent JSON, reconnecting with
// exponential backoff on connection errors.
func (p *Publisher) PublishReport(ctx context.Context, msg *ReportMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	attempt := 0
	op := func() error {
		attempt++
		ch, err := p.connect()
		if err != nil {
			if isConnectionError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err = ch.PublishWithContext(
			pubCtx,
			p.exchangeName, // exchange
			p.routingKey,   // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    msg.ScanID.String(),
				Timestamp:    msg.GeneratedAt,
				Body:         body,
			},
		)
		if err == nil {
			return nil
		}
		if isConnectionError(err) {
			p.reset()
			return err
		}
		return backoff.Permanent(fmt.Errorf("publish message: %w", err))
	}

	notify := func(err error, wait time.Duration) {
		p.logger.WarnContext(ctx, "AMQP publish failed, retrying",
			append(log.NewFields().
				WithOperation(log.OpPublish).
				WithErrorType(log.ErrorTypeNetwork).
				WithError(err).
				ToSlice(),
				"attempt", attempt,
				"retry_in", wait)...)
	}

	if err := backoff.RetryNotify(op, p.newBackOff(ctx), notify); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "Published scan report",
		log.FieldOperation, log.OpPublish,
		log.FieldScanID, msg.ScanID.String(),
		log.FieldExchange, p.exchangeName,
		log.FieldRoutingKey, p.routingKey,
		"bytes", len(body))
	return nil
}

func (p *Publisher) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialInterval
	b.MaxInterval = p.retry.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.retry.MaxRetries), ctx)
}

// isConnectionError reports whether err means the broker link is gone and a
// fresh connection may succeed.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"unexpected eof",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	return err
}
