// Package amqpsink publishes fired reminders to a RabbitMQ exchange so other
// services can react to them.
package amqpsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	Enabled      bool
	URL          string
	Exchange     string
	ExchangeType string
	// RoutingPrefix is joined with the notice kind, e.g. "reminder.emphasis".
	RoutingPrefix  string
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = "reminders"
	}
	if c.ExchangeType == "" {
		c.ExchangeType = "topic"
	}
	if c.RoutingPrefix == "" {
		c.RoutingPrefix = "reminder"
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

// Message is the JSON body of every published notice.
type Message struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	FiredAt  time.Time         `json:"fired_at"`
	Reminder reminder.Reminder `json:"reminder"`
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, func() error, error)

// Publisher is a reminder.Dispatcher. It connects lazily and reconnects on
// the next publish after a failure.
type Publisher struct {
	cfg  Config
	log  logx.Logger
	dial dialFunc
	now  func() time.Time

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

var _ reminder.Dispatcher = (*Publisher)(nil)

func New(cfg Config, log logx.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Publisher{cfg: cfg.withDefaults(), log: log, dial: dialAMQP, now: time.Now}, nil
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

func (p *Publisher) Dispatch(ctx context.Context, n reminder.Notice) error {
	msg := Message{ID: uuid.NewString(), Kind: string(n.Kind), FiredAt: p.now().UTC(), Reminder: n.Reminder}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("amqp: marshal notice: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	key := p.cfg.RoutingPrefix + "." + string(n.Kind)
	err = p.ch.PublishWithContext(pctx, p.cfg.Exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.FiredAt,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("amqp: publish %s: %w", key, err)
	}
	p.log.Debug("notice published", logx.String("routing_key", key), logx.Int64("id", n.Reminder.ID))
	return nil
}

func (p *Publisher) connectLocked() error {
	if p.ch != nil {
		return nil
	}
	ch, closeConn, err := p.dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp: dial: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, p.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("amqp: declare exchange %q: %w", p.cfg.Exchange, err)
	}
	p.ch, p.closeConn = ch, closeConn
	p.log.Info("amqp connected", logx.String("exchange", p.cfg.Exchange))
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
